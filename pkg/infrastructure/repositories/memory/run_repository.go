package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/application/services/orchestration"
)

// RunRepository keeps planning results for the lifetime of the process. It is a
// session cache for the HTTP surface, not persistence.
type RunRepository struct {
	runs  map[string]*dto.PlanningResult
	limit int
	mutex sync.RWMutex
}

// NewRunRepository creates a run cache holding at most limit runs; limit <= 0 keeps all
func NewRunRepository(limit int) *RunRepository {
	return &RunRepository{
		runs:  make(map[string]*dto.PlanningResult),
		limit: limit,
	}
}

// Verify interface compliance
var _ orchestration.RunStore = (*RunRepository)(nil)

// Save stores a copy of result, replacing an earlier version of the same run. When the
// cache is full the oldest run is evicted.
func (r *RunRepository) Save(ctx context.Context, result *dto.PlanningResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result == nil || result.RunID == "" {
		return fmt.Errorf("run id cannot be empty")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.runs[result.RunID]; !exists && r.limit > 0 && len(r.runs) >= r.limit {
		r.evictOldest()
	}
	r.runs[result.RunID] = result.Clone()
	return nil
}

// Get returns a copy of the stored run
func (r *RunRepository) Get(ctx context.Context, runID string) (*dto.PlanningResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result, exists := r.runs[runID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", orchestration.ErrRunNotFound, runID)
	}
	return result.Clone(), nil
}

// List returns copies of all runs, newest first
func (r *RunRepository) List(ctx context.Context) ([]*dto.PlanningResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]*dto.PlanningResult, 0, len(r.runs))
	for _, result := range r.runs {
		out = append(out, result.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	return out, nil
}

func (r *RunRepository) evictOldest() {
	var oldest *dto.PlanningResult
	for _, result := range r.runs {
		if oldest == nil || result.StartedAt.Before(oldest.StartedAt) ||
			(result.StartedAt.Equal(oldest.StartedAt) && result.RunID < oldest.RunID) {
			oldest = result
		}
	}
	if oldest != nil {
		delete(r.runs, oldest.RunID)
	}
}
