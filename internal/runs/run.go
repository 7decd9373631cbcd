package runs

import (
	"context"
	"time"
)

const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Run is one refresh attempt of one catalog.
type Run struct {
	ID           string     `json:"id"`
	CatalogID    string     `json:"catalog_id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Status       string     `json:"status"` // RUNNING, COMPLETED, FAILED
	ItemsFetched int        `json:"items_fetched"`
	Error        string     `json:"error,omitempty"`
}

// Duration is zero while the run is still going.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

type Repository interface {
	CreateRun(ctx context.Context, run *Run) (string, error)
	UpdateRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, catalogID string, limit int) ([]Run, error)
}
