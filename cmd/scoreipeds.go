package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hummingbird-research/distress-cli/internal/distress"
	"github.com/hummingbird-research/distress-cli/internal/fetcher"
	"github.com/hummingbird-research/distress-cli/internal/filing"
	"github.com/hummingbird-research/distress-cli/internal/master"
)

var (
	ipedsSurveys  []string
	ipedsNoMaster bool
)

var scoreIPEDSCmd = &cobra.Command{
	Use:   "scoreipeds",
	Short: "Score IPEDS institutions from survey extract CSVs",
	Long: "Loads year-keyed IPEDS extract CSVs (--survey 2024=data/ipeds_2024.csv), detects " +
		"accounting standards and contaminated subsidiaries, scores every institution, and merges " +
		"results back into the master table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if len(ipedsSurveys) == 0 {
			return eris.New("no survey files given; pass --survey year=path")
		}

		mtbl, err := loadMasterTable(ctx)
		if err != nil {
			return err
		}

		var filter map[string]bool
		if mtbl != nil {
			filter = make(map[string]bool, mtbl.Len())
			for _, row := range mtbl.Rows() {
				if uid := filing.CleanUnitID(row.Get("unitid")); uid != "" {
					filter[uid] = true
				}
			}
		}

		tbl := filing.NewTable()
		for _, spec := range ipedsSurveys {
			year, path, err := parseSurveyFlag(spec)
			if err != nil {
				return err
			}
			if err := loadIPEDSFile(ctx, path, year, filter, tbl); err != nil {
				return err
			}
		}
		zap.L().Info("loaded ipeds surveys",
			zap.Int("institutions", tbl.Len()),
			zap.Int("multi_year", tbl.MultiYearCount()),
		)

		model, err := buildModel(distress.ModelIPEDS())
		if err != nil {
			return err
		}
		eng, err := distress.NewEngineIPEDS(tbl, model, cfg.Engine.TargetYear)
		if err != nil {
			return err
		}

		if mtbl != nil {
			wireMaster(eng, mtbl, tbl)
		}

		var recs []distress.Record
		if cfg.Engine.AllYears {
			recs, err = eng.ScoreAllYears(ctx, cfg.Engine.Workers)
		} else {
			recs, err = eng.ScoreAll(ctx, cfg.Engine.Workers)
		}
		if err != nil {
			return err
		}
		logSummary(master.VariantIPEDS, recs)

		path, err := writeDetail(recs, master.VariantIPEDS)
		if err != nil {
			return err
		}
		zap.L().Info("wrote detail export", zap.String("path", path))

		if mtbl != nil {
			mtbl.MergeScores(recs, master.VariantIPEDS)
			out, err := os.Create(cfg.Data.MasterPath)
			if err != nil {
				return eris.Wrapf(err, "rewrite master %s", cfg.Data.MasterPath)
			}
			err = mtbl.WriteCSV(out)
			out.Close()
			if err != nil {
				return err
			}
		}
		return persistRun(ctx, master.VariantIPEDS, model, recs)
	},
}

func init() {
	scoreIPEDSCmd.Flags().StringSliceVar(&ipedsSurveys, "survey", nil, "survey extract as year=path (repeatable)")
	scoreIPEDSCmd.Flags().BoolVar(&ipedsNoMaster, "no-master", false, "skip master-table integration")
	rootCmd.AddCommand(scoreIPEDSCmd)
}

func parseSurveyFlag(spec string) (int, string, error) {
	yearStr, path, ok := strings.Cut(spec, "=")
	if !ok {
		return 0, "", eris.Errorf("malformed --survey %q, want year=path", spec)
	}
	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil {
		return 0, "", eris.Errorf("malformed --survey year %q", yearStr)
	}
	return year, strings.TrimSpace(path), nil
}

func loadIPEDSFile(ctx context.Context, path string, year int, filter map[string]bool, tbl *filing.Table) error {
	var r io.Reader
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		// IPEDS custom data files come down as single-sheet workbooks.
		rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.WriteAll(rows); err != nil {
			return eris.Wrapf(err, "convert %s", path)
		}
		r = &buf
	} else {
		f, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "open %s", path)
		}
		defer f.Close()
		r = f
	}

	n, err := filing.LoadIPEDSCSV(ctx, r, path, year, filter, tbl)
	if err != nil {
		return err
	}
	zap.L().Info("loaded survey",
		zap.String("file", path),
		zap.Int("year", year),
		zap.Int("rows", n),
	)
	return nil
}

func loadMasterTable(ctx context.Context) (*master.Table, error) {
	if ipedsNoMaster {
		return nil, nil
	}
	f, err := os.Open(cfg.Data.MasterPath)
	if err != nil {
		return nil, eris.Wrapf(err, "open master %s", cfg.Data.MasterPath)
	}
	defer f.Close()
	return master.Load(ctx, f, cfg.Data.MasterPath)
}

// wireMaster connects master rows to the engine: per-institution backfill
// rows, 990-sourced standard forcing, and contamination links.
func wireMaster(eng *distress.EngineIPEDS, mtbl *master.Table, tbl *filing.Table) {
	forced := 0
	for _, row := range mtbl.Rows() {
		uid := filing.CleanUnitID(row.Get("unitid"))
		if uid == "" || tbl.Entity(uid) == nil {
			continue
		}
		eng.AttachMaster(uid, row)

		// Institutions whose master finances came from a 990 filing report
		// on the FASB columns but are marked so private-school corrections
		// still apply.
		switch strings.ToLower(strings.TrimSpace(row.Get("finance_source"))) {
		case "990", "irs990":
			tbl.SetStandard(uid, filing.IRS990)
			forced++
		}
	}

	links := distress.DetectSubsidiaries(
		mtbl.GroupMembers(cfg.Engine.TargetYear),
		distress.DefaultAssetMatchTolerance,
	)
	eng.SetSubsidiaries(links)

	zap.L().Info("wired master integration",
		zap.Int("irs990_forced", forced),
		zap.Int("subsidiaries", len(links)),
	)
}
