// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain/registers/stock"
	"docflow/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "stock_movements"
	productsTable       = "products"
)

var movementCols = postgres.ExtractDBColumns[stock.Movement]()

// StockRepo implements stock.Repository on the products.on_hand column
// and the stock_movements journal.
type StockRepo struct {
	txm      *postgres.TxManager
	inserter *postgres.BatchInserter
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:      txm,
		inserter: postgres.NewBatchInserter(txm),
	}
}

func (r *StockRepo) GetAvailability(ctx context.Context, productID id.ID) (stock.Availability, error) {
	var a stock.Availability
	err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &a, `
		SELECT id, designation, on_hand
		FROM products
		WHERE id = $1
	`, productID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return a, apperror.NewNotFound("product", productID.String())
		}
		return a, fmt.Errorf("get availability: %w", err)
	}
	return a, nil
}

func (r *StockRepo) LockAvailability(ctx context.Context, productIDs []id.ID) (map[id.ID]stock.Availability, error) {
	out := make(map[id.ID]stock.Availability, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	sql, args, err := lockQuery(productIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock query: %w", err)
	}

	var rows []stock.Availability
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("lock availability: %w", err)
	}
	for _, a := range rows {
		out[a.ProductID] = a
	}
	return out, nil
}

// lockQuery takes the row locks in product ID order so that two documents
// sharing products always lock them in the same sequence.
func lockQuery(productIDs []id.ID) squirrel.SelectBuilder {
	ids := append([]id.ID(nil), productIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	return postgres.Builder().
		Select("id", "designation", "on_hand").
		From(productsTable).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id").
		Suffix("FOR UPDATE")
}

func (r *StockRepo) Decrement(ctx context.Context, productID id.ID, qty int64) (int64, bool, error) {
	var onHand int64
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, `
		UPDATE products
		SET on_hand = on_hand - $1, updated_at = now()
		WHERE id = $2 AND on_hand >= $1
		RETURNING on_hand
	`, qty, productID).Scan(&onHand)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("decrement on hand: %w", err)
	}
	return onHand, true, nil
}

func (r *StockRepo) Increment(ctx context.Context, productID id.ID, qty int64) (int64, error) {
	var onHand int64
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, `
		UPDATE products
		SET on_hand = on_hand + $1, updated_at = now()
		WHERE id = $2
		RETURNING on_hand
	`, qty, productID).Scan(&onHand)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperror.NewNotFound("product", productID.String())
	}
	if err != nil {
		return 0, fmt.Errorf("increment on hand: %w", err)
	}
	return onHand, nil
}

// AppendMovements uses COPY inside a transaction and a multi-row INSERT otherwise.
func (r *StockRepo) AppendMovements(ctx context.Context, movements []stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	rows := movementRows(movements)
	if r.inserter.Available(ctx) {
		if _, err := r.inserter.CopyFromSlice(ctx, stockMovementsTable, movementCols, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	q := postgres.Builder().Insert(stockMovementsTable).Columns(movementCols...)
	for _, row := range rows {
		q = q.Values(row...)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

func (r *StockRepo) GetMovementsByDocument(ctx context.Context, documentID id.ID) ([]stock.Movement, error) {
	sql, args, err := postgres.Builder().
		Select(movementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"document_id": documentID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	movements := make([]stock.Movement, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("get movements: %w", err)
	}
	return movements, nil
}

func movementRows(movements []stock.Movement) [][]any {
	rows := make([][]any, 0, len(movements))
	for i := range movements {
		m := postgres.StructToMap(&movements[i])
		row := make([]any, len(movementCols))
		for j, col := range movementCols {
			row[j] = m[col]
		}
		rows = append(rows, row)
	}
	return rows
}
