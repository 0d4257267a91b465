// Package store persists an audit trail of compatibility checks. Persistence
// is best-effort: a store failure is logged by the caller and never fails a
// check.
package store

import (
	"context"
	"time"
)

// CheckRun is one audited compatibility check.
type CheckRun struct {
	ID            string    `json:"id"`
	BikeInfo      string    `json:"bike_info"`
	ProductURL    string    `json:"product_url"`
	ProductKey    string    `json:"product_key"`
	ProductH1     string    `json:"product_h1,omitempty"`
	Compatibility string    `json:"compatibility"`
	Confidence    string    `json:"confidence"`
	Argument      string    `json:"argument"`
	DurationMS    int64     `json:"duration_ms"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store defines the audit persistence interface.
type Store interface {
	SaveCheck(ctx context.Context, run CheckRun) error
	ListChecks(ctx context.Context, limit int) ([]CheckRun, error)
	Migrate(ctx context.Context) error
	Close() error
}
