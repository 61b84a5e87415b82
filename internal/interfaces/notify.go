package interfaces

import (
	"context"

	"sentiment-trader/internal/types"
)

type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// TradeJournal persists every submitted signal and its outcome.
type TradeJournal interface {
	Append(rec types.TradeRecord) error
}
