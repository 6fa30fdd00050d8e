// Package numerator provides the PostgreSQL implementation of document auto-numbering.
// It implements core/numerator.Generator on the caller's transaction.
package numerator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	corenumerator "docflow/internal/core/numerator"
	"docflow/internal/infrastructure/storage/postgres"
	pkgnumerator "docflow/pkg/numerator"
)

// Service generates document codes.
type Service struct {
	txm *postgres.TxManager
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a new numerator service.
func New(txm *postgres.TxManager) *Service {
	return &Service{txm: txm}
}

// Next implements corenumerator.Generator.
//
// The advisory lock is transaction scoped: it is held until the enclosing
// document insert commits or rolls back, so two concurrent creations of the
// same family never read the same latest code.
func (s *Service) Next(ctx context.Context, cfg corenumerator.Config, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if !s.txm.InTransaction(ctx) {
		return "", fmt.Errorf("numerator requires a transaction")
	}

	q := s.txm.GetQuerier(ctx)
	if _, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", LockKey(cfg, period)); err != nil {
		return "", fmt.Errorf("lock sequence: %w", err)
	}

	var num int64
	var err error
	switch cfg.Strategy {
	case corenumerator.StrategyCounter:
		num, err = s.nextCounter(ctx, q, cfg.Key(period.Year()))
	default:
		num, err = s.nextLatest(ctx, q, cfg, period)
	}
	if err != nil {
		return "", err
	}

	return pkgnumerator.Format(cfg, period, num), nil
}

// LockKey names the advisory lock serializing a sequence. Configurations
// reading the same family share the lock.
func LockKey(cfg corenumerator.Config, period time.Time) string {
	return "numerator:" + cfg.Key(period.Year())
}

// nextLatest reads the most recent code of the family and increments its suffix.
func (s *Service) nextLatest(ctx context.Context, q postgres.Querier, cfg corenumerator.Config, period time.Time) (int64, error) {
	sql, args, err := LatestQuery(cfg, period).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build latest query: %w", err)
	}

	var last string
	err = q.QueryRow(ctx, sql, args...).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read latest code: %w", err)
	}
	return pkgnumerator.Following(last), nil
}

// LatestQuery selects the code of the most recently created document of the family.
func LatestQuery(cfg corenumerator.Config, period time.Time) squirrel.SelectBuilder {
	family := cfg.Family
	if family == "" {
		family = cfg.Prefix
	}
	q := postgres.Builder().
		Select("code").
		From("documents").
		Where(squirrel.Eq{"family": family})
	if cfg.ScopeYear {
		q = q.Where(squirrel.Like{"code": "%-" + strconv.Itoa(period.Year()) + "-%"})
	}
	return q.OrderBy("created_at DESC", "id DESC").Limit(1)
}

// nextCounter increments the dedicated counter row of key.
func (s *Service) nextCounter(ctx context.Context, q postgres.Querier, key string) (int64, error) {
	var num int64
	err := q.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_value)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE
		SET current_value = sys_sequences.current_value + 1, updated_at = now()
		RETURNING current_value
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("counter next: %w", err)
	}
	return num, nil
}

