package ports

import (
	"context"

	"gsradjust/domain/adjust"
	"gsradjust/domain/core"
)

// RunRepository persists completed adjustment runs for downstream querying.
type RunRepository interface {
	SaveRun(ctx context.Context, res *adjust.Result) error
	GetRun(ctx context.Context, id core.ID) (*adjust.Result, error)
	ListRecentRuns(ctx context.Context, limit int) ([]*adjust.Result, error)
}
