package strategy

import (
	"fmt"
	"time"

	"github.com/newthinker/optlab/internal/core"
)

// Setup is everything a strategy sees for one weekly entry
type Setup struct {
	Date        time.Time // entry day
	Expiration  time.Time
	DaysToExp   int
	Spot        float64 // close on the entry day
	Settlement  float64 // close of the bar nearest the expiration
	RiskFree    float64
	TargetDelta float64 // absolute value
	Width       float64 // iron condor wing width in strike points
	Chain       *core.OptionChain
}

// YearsToExpiry converts DaysToExp with a 365.25 day year
func (s Setup) YearsToExpiry() float64 {
	return float64(s.DaysToExp) / 365.25
}

// Leg is one contract of a position
type Leg struct {
	Short    bool
	Contract core.OptionContract
	Delta    float64
}

// Trade is a completed simulated position
type Trade struct {
	Strategy   core.Strategy
	EntryDate  time.Time
	Expiration time.Time
	Spot       float64
	Settlement float64
	Premium    float64 // per-share premium, or net credit for spreads
	Profit     float64 // dollars for one contract
	Outcome    string
	Legs       []Leg
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.Profit > 0
}

// LogLine formats the trade for the trade log
func (t Trade) LogLine() string {
	entry := t.EntryDate.Format(core.DateLayout)
	exp := t.Expiration.Format(core.DateLayout)
	if t.Strategy == core.StrategyIronCondor {
		return fmt.Sprintf("[%s] Trade: Sold Iron Condor on %s for $%.2f credit. Final Profit: $%.2f. Outcome: %s",
			entry, exp, t.Premium*100, t.Profit, t.Outcome)
	}
	return fmt.Sprintf("[%s] Trade: Sold %s on %s for $%.2f premium. Final Profit: $%.2f. Outcome: %s",
		entry, t.Strategy, exp, t.Premium, t.Profit, t.Outcome)
}

// Strategy defines the interface for options strategies
type Strategy interface {
	Name() core.Strategy
	Description() string
	// Evaluate picks contracts and settles the position. ok is false when no
	// acceptable trade exists for this entry.
	Evaluate(s Setup) (trade *Trade, ok bool)
}
