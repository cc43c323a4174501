package repository

import (
	"context"

	"github.com/martijn/harvestd/internal/api/util"
	"github.com/martijn/harvestd/internal/core/domain"
)

// DefaultRunLimit bounds run listings when the caller gives no limit
const DefaultRunLimit = 10

// RunFields are the columns listings may filter and order on
var RunFields = []string{"id", "started", "finished", "exit_code"}

// RunFilter embeds ListFilter for generic query/order/pagination
type RunFilter struct {
	util.ListFilter
	// IncludeLog loads the captured output; listings usually leave it out
	IncludeLog bool
}

type RunRepository interface {
	// Save inserts the run or overwrites the whole row with the same ID
	Save(ctx context.Context, run *domain.Run) error
	FindByID(ctx context.Context, id string) (*domain.Run, error)
	// List returns runs most recent first unless the filter orders otherwise
	List(ctx context.Context, filter RunFilter) ([]*domain.Run, error)
	Count(ctx context.Context, filter RunFilter) (int, error)

	// Runs left without a finish time, e.g. by a crashed supervisor
	FindUnfinished(ctx context.Context) ([]*domain.Run, error)
}
