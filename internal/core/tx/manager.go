// Package tx declares the transaction boundary used by domain services.
package tx

import "context"

// Manager runs units of work atomically.
//
// A document operation is one unit: number allocation, stock movements,
// payment postings and the history entry commit or roll back together.
type Manager interface {
	// RunInTransaction executes fn within a transaction. An error from fn
	// rolls everything back. Nested calls join the transaction found in ctx.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transactions for reports.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a transaction that rejects writes.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
