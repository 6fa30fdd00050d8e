// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
	"time"
)

// Generator generates human-readable document codes.
// This is the domain contract - implementations live in infrastructure layer.
type Generator interface {
	// Next returns the next code for cfg.
	// Pattern: PREFIX-XXXX, or PREFIX-YEAR-XXXX when cfg.ScopeYear is set
	// (e.g., DN-0007, INV-2026-0012).
	//
	// Must be called inside the transaction that inserts the numbered
	// document so that a rollback also discards the allocation.
	Next(ctx context.Context, cfg Config, period time.Time) (string, error)
}
