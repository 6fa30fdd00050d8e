package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchInserter writes journal rows with the COPY protocol.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// Available reports whether ctx carries a transaction COPY can run on.
func (b *BatchInserter) Available(ctx context.Context) bool {
	return b.txManager.InTransaction(ctx)
}

// CopyFromSlice bulk inserts rows (each matching columns) on the transaction in ctx.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := b.txManager.getTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("copy into %s requires a transaction", table)
	}
	return tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}
