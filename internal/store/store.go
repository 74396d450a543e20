// Package store persists enrichment runs and their deals. It replaces the
// ambient session caching of earlier iterations with an explicit, injectable
// provider.
package store

import (
	"context"
	"time"

	"github.com/sells-group/dealscout-cli/internal/model"
	"github.com/sells-group/dealscout-cli/internal/zoning"
)

// RunStatus tracks a run's lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded enrichment batch.
type Run struct {
	ID         string             `json:"id"`
	SourcePath string             `json:"source_path"`
	ZoningPath string             `json:"zoning_path"`
	Status     RunStatus          `json:"status"`
	Summary    model.BatchSummary `json:"summary"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// DealFilter narrows a stored-deal query. Zero values mean "no constraint";
// constraints compose as intersection.
type DealFilter struct {
	MaxPricePerUnit float64
	Zones           []zoning.BaseCode
	Limit           int
}

// Store is the persistence interface for enrichment runs.
type Store interface {
	Migrate(ctx context.Context) error
	CreateRun(ctx context.Context, sourcePath, zoningPath string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, summary model.BatchSummary) error
	FailRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	InsertDeals(ctx context.Context, runID string, deals []model.EnrichedParcel) error
	ListDeals(ctx context.Context, runID string, filter DealFilter) ([]model.EnrichedParcel, error)
	Close() error
}
