package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"docflow/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

// migrationLockKey serializes concurrent startups applying the schema.
const migrationLockKey = "docflow:migrate"

// Migrate applies the embedded schema inside one transaction.
func Migrate(ctx context.Context, txm *TxManager) error {
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		q := txm.GetQuerier(ctx)
		if _, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", migrationLockKey); err != nil {
			return fmt.Errorf("lock schema: %w", err)
		}
		if _, err := q.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "schema applied")
	return nil
}
