// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	NextFunc func(ctx context.Context, cfg Config, period time.Time) (string, error)

	mu       sync.Mutex
	counters map[string]int
}

// Next implements Generator.
func (m *MockGenerator) Next(ctx context.Context, cfg Config, period time.Time) (string, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, cfg, period)
	}

	// Default: per-key counter rendered like the real generator
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int)
	}
	key := cfg.Key(period.Year())
	m.counters[key]++

	if cfg.ScopeYear {
		return fmt.Sprintf("%s-%d-%04d", cfg.Prefix, period.Year(), m.counters[key]), nil
	}
	return fmt.Sprintf("%s-%04d", cfg.Prefix, m.counters[key]), nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
