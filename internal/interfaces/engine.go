package interfaces

import (
	"context"

	"sentiment-trader/internal/types"
)

type Engine interface {
	RunCycle(ctx context.Context) (types.CycleReport, error)
}
