package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain/payments"
	"docflow/internal/infrastructure/storage/postgres"
)

const paymentsTable = "payments"

var paymentCols = postgres.ExtractDBColumns[payments.Payment]()

// PaymentRepo implements payments.Repository.
type PaymentRepo struct {
	txm *postgres.TxManager
}

var _ payments.Repository = (*PaymentRepo)(nil)

// NewPaymentRepo creates a new payment repository.
func NewPaymentRepo(txm *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{txm: txm}
}

func (r *PaymentRepo) Create(ctx context.Context, p *payments.Payment) error {
	sql, args, err := postgres.Builder().
		Insert(paymentsTable).
		SetMap(postgres.Pick(postgres.StructToMap(p), paymentCols)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewNotFound("document", p.DocumentID.String())
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepo) ListByDocument(ctx context.Context, documentID id.ID) ([]*payments.Payment, error) {
	sql, args, err := postgres.Builder().
		Select(paymentCols...).
		From(paymentsTable).
		Where(squirrel.Eq{"document_id": documentID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows := make([]*payments.Payment, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return rows, nil
}

func (r *PaymentRepo) Reassign(ctx context.Context, fromDocumentID, toDocumentID id.ID) (int64, error) {
	sql, args, err := postgres.Builder().
		Update(paymentsTable).
		Set("document_id", toDocumentID).
		Where(squirrel.Eq{"document_id": fromDocumentID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("reassign payments: %w", err)
	}
	return tag.RowsAffected(), nil
}
