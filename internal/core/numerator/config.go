// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"fmt"
	"strconv"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyLatest reads the most recent code of the family, increments
	// its numeric suffix and restarts at 1 when no suffix can be parsed.
	// Runs inside the caller's transaction behind an advisory lock.
	StrategyLatest Strategy = iota

	// StrategyCounter uses UPSERT ... RETURNING on a dedicated counter row.
	// Guarantees strictly increasing numbers under concurrent load.
	StrategyCounter
)

// ParseStrategy maps a configuration string to a Strategy.
// An empty string selects StrategyLatest.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "latest":
		return StrategyLatest, nil
	case "counter":
		return StrategyCounter, nil
	}
	return StrategyLatest, fmt.Errorf("unknown numbering strategy %q", s)
}

// DefaultPadWidth is the minimum width of the numeric part.
const DefaultPadWidth = 4

// Config holds numbering configuration for one document family.
type Config struct {
	// Prefix added to all numbers (e.g., "INV", "DN")
	Prefix string

	// Family is the document family whose latest code seeds the sequence.
	Family string

	// ScopeYear restarts the sequence every year and renders the year in the code.
	ScopeYear bool

	// PadWidth is the minimum number width (default 4)
	PadWidth int

	Strategy Strategy
}

// Key identifies the sequence for advisory locking and counter rows.
// Configurations with the same Family share one sequence whatever their prefix.
func (c Config) Key(year int) string {
	name := c.Family
	if name == "" {
		name = c.Prefix
	}
	if c.ScopeYear {
		return name + "_" + strconv.Itoa(year)
	}
	return name
}
