package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hummingbird-research/distress-cli/internal/distress"
	"github.com/hummingbird-research/distress-cli/internal/filing"
	"github.com/hummingbird-research/distress-cli/internal/master"
)

var (
	files990Standard []string
	files990EZ       []string
	files990PF       []string
	score990NoMaster bool
)

var score990Cmd = &cobra.Command{
	Use:   "score990",
	Short: "Score IRS 990 filers from annual extract CSVs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if len(files990Standard)+len(files990EZ)+len(files990PF) == 0 {
			return eris.New("no extract files given; pass --full, --ez, or --pf")
		}

		filter, err := masterEINFilter(ctx)
		if err != nil {
			return err
		}

		tbl := filing.NewTable()
		for _, group := range []struct {
			std   filing.Standard
			paths []string
		}{
			{filing.Standard990, files990Standard},
			{filing.EZ990, files990EZ},
			{filing.PF990, files990PF},
		} {
			for _, path := range group.paths {
				if err := load990File(ctx, path, group.std, filter, tbl); err != nil {
					return err
				}
			}
		}
		zap.L().Info("loaded 990 filings",
			zap.Int("entities", tbl.Len()),
			zap.Int("multi_year", tbl.MultiYearCount()),
		)

		model, err := buildModel(distress.Model990())
		if err != nil {
			return err
		}
		eng, err := distress.NewEngine990(tbl, model)
		if err != nil {
			return err
		}

		var recs []distress.Record
		if cfg.Engine.AllYears {
			recs, err = eng.ScoreAllYears(ctx, cfg.Engine.Workers)
		} else {
			recs, err = eng.ScoreAll(ctx, cfg.Engine.TargetYear, cfg.Engine.Workers)
		}
		if err != nil {
			return err
		}
		logSummary(master.Variant990, recs)

		path, err := writeDetail(recs, master.Variant990)
		if err != nil {
			return err
		}
		zap.L().Info("wrote detail export", zap.String("path", path))

		if !score990NoMaster {
			if err := mergeMaster(ctx, recs, master.Variant990); err != nil {
				return err
			}
		}
		return persistRun(ctx, master.Variant990, model, recs)
	},
}

func init() {
	score990Cmd.Flags().StringSliceVar(&files990Standard, "full", nil, "full Form 990 extract CSVs")
	score990Cmd.Flags().StringSliceVar(&files990EZ, "ez", nil, "Form 990-EZ extract CSVs")
	score990Cmd.Flags().StringSliceVar(&files990PF, "pf", nil, "Form 990-PF extract CSVs")
	score990Cmd.Flags().BoolVar(&score990NoMaster, "no-master", false, "skip master-table merge-back")
	rootCmd.AddCommand(score990Cmd)
}

func load990File(ctx context.Context, path string, std filing.Standard, filter map[string]bool, tbl *filing.Table) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	n, err := filing.Load990CSV(ctx, f, path, std, filter, tbl)
	if err != nil {
		return err
	}
	zap.L().Info("loaded extract",
		zap.String("file", path),
		zap.String("type", std.String()),
		zap.Int("rows", n),
	)
	return nil
}

// masterEINFilter restricts 990 loading to EINs present in the master table,
// so national extract files with 300k+ rows only materialize the tracked
// institutions. Returns nil (no filtering) when merge-back is disabled.
func masterEINFilter(ctx context.Context) (map[string]bool, error) {
	if score990NoMaster {
		return nil, nil
	}
	f, err := os.Open(cfg.Data.MasterPath)
	if err != nil {
		return nil, eris.Wrapf(err, "open master %s", cfg.Data.MasterPath)
	}
	defer f.Close()

	tbl, err := master.Load(ctx, f, cfg.Data.MasterPath)
	if err != nil {
		return nil, err
	}
	filter := make(map[string]bool, tbl.Len())
	for _, row := range tbl.Rows() {
		if ein := filing.CleanEIN(row.Get("ein")); ein != "" {
			filter[ein] = true
		}
	}
	return filter, nil
}
