package strategy

import (
	"errors"
	"fmt"

	"sentiment-trader/internal/types"
)

var ErrInvalidRisk = errors.New("invalid risk config")

const (
	DefaultThreshold      = 0.2
	DefaultExpectedReturn = 5.0
)

// RiskConfig is fixed for one engine run.
type RiskConfig struct {
	// Threshold is the entry sentiment score; exits use half of it.
	Threshold float64
	// ExpectedReturn is in percent. Half of it triggers exits and pyramiding.
	ExpectedReturn float64
	MaxPositions   int
	MaxTrades      int
	// CapWithinCycle spends capacity as entries are emitted, so one cycle can
	// never open more than the gate had room for. Off, every symbol is checked
	// against the ledger alone.
	CapWithinCycle bool
}

func (rc RiskConfig) ExitThreshold() float64 {
	return rc.Threshold / 2
}

func (rc RiskConfig) HalfReturn() float64 {
	return rc.ExpectedReturn / 2
}

func (rc RiskConfig) Validate() error {
	switch {
	case rc.Threshold <= 0:
		return fmt.Errorf("%w: threshold must be > 0, got %v", ErrInvalidRisk, rc.Threshold)
	case rc.ExpectedReturn <= 0:
		return fmt.Errorf("%w: expected return must be > 0, got %v", ErrInvalidRisk, rc.ExpectedReturn)
	case rc.MaxPositions < 1:
		return fmt.Errorf("%w: max positions must be >= 1, got %d", ErrInvalidRisk, rc.MaxPositions)
	case rc.MaxTrades < 1:
		return fmt.Errorf("%w: max trades per symbol must be >= 1, got %d", ErrInvalidRisk, rc.MaxTrades)
	}
	return nil
}

// MaxTradesFor derives the per-symbol cap from the global one: floor(max/symbols), at least 1.
func MaxTradesFor(maxPositions, symbolCount int) int {
	if symbolCount <= 0 {
		return 1
	}
	if n := maxPositions / symbolCount; n > 1 {
		return n
	}
	return 1
}

// Gate answers whether the strategy may open more positions. It holds no
// counters; every call counts the ledger snapshot it is given.
type Gate struct {
	strategyID   string
	maxPositions int
}

func NewGate(strategyID string, maxPositions int) Gate {
	return Gate{strategyID: strategyID, maxPositions: maxPositions}
}

func (g Gate) HasCapacity(positions []types.Position) bool {
	return g.Remaining(positions) > 0
}

// Remaining is how many more positions the strategy may open.
func (g Gate) Remaining(positions []types.Position) int {
	n := g.maxPositions - types.CountTagged(positions, g.strategyID)
	if n < 0 {
		return 0
	}
	return n
}

// PctChange is the percentage move from reference to current.
func PctChange(current, reference float64) float64 {
	if reference == 0 {
		return 0
	}
	return (current - reference) / reference * 100
}
