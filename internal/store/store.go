// Package store persists scoring runs: Postgres via pgx for shared
// deployments, SQLite via modernc for local runs. The driver is selected by
// configuration.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hummingbird-research/distress-cli/internal/distress"
)

// Run identifies one scoring batch. The config hash ties persisted scores
// back to the exact calibration that produced them.
type Run struct {
	ID         uuid.UUID `json:"id"`
	Variant    string    `json:"variant"`
	TargetYear int       `json:"target_year"`
	ConfigHash string    `json:"config_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewRun mints a run for a variant, target year, and model calibration.
func NewRun(variant string, targetYear int, model distress.Model) *Run {
	return &Run{
		ID:         uuid.New(),
		Variant:    variant,
		TargetYear: targetYear,
		ConfigHash: ConfigHash(model),
		CreatedAt:  time.Now().UTC(),
	}
}

// ConfigHash fingerprints a model calibration: the first 32 hex characters
// of the SHA-256 over its canonical JSON form.
func ConfigHash(model distress.Model) string {
	raw, err := json.Marshal(model)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:32]
}

// Store is the persistence interface for scoring runs.
type Store interface {
	Migrate(ctx context.Context) error
	SaveRun(ctx context.Context, run *Run, recs []distress.Record) error
	Close() error
}
