package engine

import (
	"errors"
	"fmt"

	"sentiment-trader/internal/strategy"
	"sentiment-trader/internal/symbols"
)

var ErrInvalidSettings = errors.New("invalid engine settings")

// Settings is the validated configuration of one engine run. Changing any
// of it means Stop and Start again.
type Settings struct {
	StrategyID string
	Mapping    *symbols.Mapping
	AssetClass string
	Risk       strategy.RiskConfig
	Window     TradingWindow

	// Flags gate optional behaviour around the decision logic, never the logic itself.
	AutoTrade       bool
	MoneyManagement bool
	Debug           bool
	Notifications   bool
}

func (s Settings) Validate() error {
	if s.StrategyID == "" {
		return fmt.Errorf("%w: strategy id is required", ErrInvalidSettings)
	}
	if s.Mapping == nil {
		return fmt.Errorf("%w: symbol mapping is required", ErrInvalidSettings)
	}
	if err := s.Risk.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := s.Window.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}
