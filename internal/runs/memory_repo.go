package runs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepo keeps the most recent runs per catalog in process memory. It
// backs the run history when no database is configured.
type MemoryRepo struct {
	mu        sync.Mutex
	keep      int
	byCatalog map[string][]*Run
	byID      map[string]*Run
}

func NewMemoryRepo(keep int) *MemoryRepo {
	if keep <= 0 {
		keep = 50
	}
	return &MemoryRepo{
		keep:      keep,
		byCatalog: make(map[string][]*Run),
		byID:      make(map[string]*Run),
	}
}

func (r *MemoryRepo) CreateRun(_ context.Context, run *Run) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	stored := *run
	stored.ID = id
	list := append(r.byCatalog[run.CatalogID], &stored)
	if len(list) > r.keep {
		for _, old := range list[:len(list)-r.keep] {
			delete(r.byID, old.ID)
		}
		list = append([]*Run(nil), list[len(list)-r.keep:]...)
	}
	r.byCatalog[run.CatalogID] = list
	r.byID[id] = &stored
	return id, nil
}

func (r *MemoryRepo) UpdateRun(_ context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[run.ID]
	if !ok {
		return fmt.Errorf("refresh run %s not found", run.ID)
	}
	stored.FinishedAt = run.FinishedAt
	stored.Status = run.Status
	stored.ItemsFetched = run.ItemsFetched
	stored.Error = run.Error
	return nil
}

func (r *MemoryRepo) ListRuns(_ context.Context, catalogID string, limit int) ([]Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.byCatalog[catalogID]
	out := make([]Run, 0, len(list))
	for _, run := range list {
		out = append(out, *run)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
