package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hummingbird-research/distress-cli/internal/distress"
	"github.com/hummingbird-research/distress-cli/internal/master"
	"github.com/hummingbird-research/distress-cli/internal/store"
)

// buildModel applies the configured calibration overrides, if any.
func buildModel(base distress.Model) (distress.Model, error) {
	if cfg.Engine.Overrides == "" {
		return base, nil
	}
	if err := base.ApplyOverrides(cfg.Engine.Overrides); err != nil {
		return distress.Model{}, err
	}
	zap.L().Info("applied calibration overrides", zap.String("path", cfg.Engine.Overrides))
	return base, nil
}

// openStore returns the configured score store, or nil for driver "none".
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "none", "":
		return nil, nil
	case "sqlite":
		s, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// persistRun saves a scoring batch when a store is configured.
func persistRun(ctx context.Context, variant string, model distress.Model, recs []distress.Record) error {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	defer s.Close()

	run := store.NewRun(variant, cfg.Engine.TargetYear, model)
	return s.SaveRun(ctx, run, recs)
}

// writeDetail writes the longitudinal per-record export.
func writeDetail(recs []distress.Record, variant string) (string, error) {
	if err := os.MkdirAll(cfg.Data.OutputDir, 0o755); err != nil {
		return "", eris.Wrap(err, "create output dir")
	}
	path := filepath.Join(cfg.Data.OutputDir, "distress_detail_"+variant+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	if err := master.WriteDetail(f, recs); err != nil {
		return "", err
	}
	return path, nil
}

// mergeMaster loads the master file, merges scores, and rewrites it.
func mergeMaster(ctx context.Context, recs []distress.Record, variant string) error {
	path := cfg.Data.MasterPath
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "open master %s", path)
	}
	tbl, err := master.Load(ctx, f, path)
	f.Close()
	if err != nil {
		return err
	}

	tbl.MergeScores(recs, variant)

	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "rewrite master %s", path)
	}
	defer out.Close()
	return tbl.WriteCSV(out)
}

// logSummary reports the category distribution of a scoring batch.
func logSummary(variant string, recs []distress.Record) {
	counts := map[string]int{}
	for i := range recs {
		counts[recs[i].Category]++
	}
	zap.L().Info("scoring summary",
		zap.String("variant", variant),
		zap.Int("total", len(recs)),
		zap.Int("severe", counts[distress.CategorySevere]),
		zap.Int("high", counts[distress.CategoryHigh]),
		zap.Int("moderate", counts[distress.CategoryModerate]),
		zap.Int("low", counts[distress.CategoryLow]),
		zap.Int("healthy", counts[distress.CategoryHealthy]),
		zap.Int("insufficient", counts[distress.CategoryInsufficient]),
	)
}
