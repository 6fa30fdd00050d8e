// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/infrastructure/storage/postgres"
)

// baseRepo provides the CRUD statements shared by catalog tables.
// Embed it in specific catalog repositories.
type baseRepo[T any] struct {
	txm        *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
}

func newBaseRepo[T any](txm *postgres.TxManager, tableName, entityName string) baseRepo[T] {
	return baseRepo[T]{
		txm:        txm,
		tableName:  tableName,
		entityName: entityName,
		selectCols: postgres.ExtractDBColumns[T](),
	}
}

func (r *baseRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func (r *baseRepo[T]) baseSelect() squirrel.SelectBuilder {
	return postgres.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// insert writes every mapped column of entity.
func (r *baseRepo[T]) insert(ctx context.Context, entity *T) error {
	data := postgres.Pick(postgres.StructToMap(entity), r.selectCols)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in %s", r.entityName)
	}

	sql, args, err := postgres.Builder().
		Insert(r.tableName).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// update writes the given columns of the row matching id and version and
// increments the stored version. Zero affected rows means the caller held a
// stale copy (or the row is gone).
func (r *baseRepo[T]) update(ctx context.Context, entityID id.ID, version int, data map[string]any) error {
	sql, args, err := postgres.Builder().
		Update(r.tableName).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.entityName, entityID.String())
	}
	return nil
}

func (r *baseRepo[T]) delete(ctx context.Context, entityID id.ID) error {
	sql, args, err := postgres.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": entityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewConflict(r.entityName + " is referenced by other records").
				WithDetail("id", entityID.String())
		}
		return fmt.Errorf("delete %s: %w", r.tableName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

func (r *baseRepo[T]) getByID(ctx context.Context, entityID id.ID) (*T, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": entityID}).
		Limit(1)
	return r.findOne(ctx, q, entityID.String())
}

func (r *baseRepo[T]) findOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	entity := new(T)
	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entityName, key)
		}
		return nil, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return entity, nil
}

func (r *baseRepo[T]) findAll(ctx context.Context, q squirrel.SelectBuilder) ([]*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*T
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.entityName, err)
	}
	return items, nil
}

// count returns the row count of q before pagination.
func (r *baseRepo[T]) count(ctx context.Context, q squirrel.SelectBuilder) (int64, error) {
	sql, args, err := postgres.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var total int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.tableName, err)
	}
	return total, nil
}

// exists reports whether q returns at least one row.
func (r *baseRepo[T]) exists(ctx context.Context, q squirrel.SelectBuilder) (bool, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", r.tableName, err)
	}
	return true, nil
}
