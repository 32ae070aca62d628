package orchestration

import (
	"context"
	"errors"

	"github.com/vsinha/prodplan/pkg/application/dto"
)

// ErrRunNotFound is returned by run stores for an unknown run id
var ErrRunNotFound = errors.New("run not found")

// RunStore keeps planning results for the interactive surface
type RunStore interface {
	Save(ctx context.Context, result *dto.PlanningResult) error
	Get(ctx context.Context, runID string) (*dto.PlanningResult, error)
	// List returns runs ordered by start time, newest first
	List(ctx context.Context) ([]*dto.PlanningResult, error)
}
