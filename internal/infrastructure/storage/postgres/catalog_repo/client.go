package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"docflow/internal/core/id"
	"docflow/internal/domain/documents"
	"docflow/internal/infrastructure/storage/postgres"
)

const clientTable = "clients"

// Client is the minimal client row documents point at.
// Master data is owned by another service; only the ID and a display name are kept.
type Client struct {
	ID        id.ID     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// ClientRepo implements documents.ClientDirectory.
type ClientRepo struct {
	baseRepo[Client]
}

var _ documents.ClientDirectory = (*ClientRepo)(nil)

// NewClientRepo creates a new client directory.
func NewClientRepo(txm *postgres.TxManager) *ClientRepo {
	return &ClientRepo{baseRepo: newBaseRepo[Client](txm, clientTable, "client")}
}

func (r *ClientRepo) Exists(ctx context.Context, clientID id.ID) (bool, error) {
	q := postgres.Builder().
		Select("1").
		From(clientTable).
		Where(squirrel.Eq{"id": clientID})
	return r.exists(ctx, q)
}

// Upsert registers a client, renaming it when the ID is already known.
// Used by the seed command to mirror external master data.
func (r *ClientRepo) Upsert(ctx context.Context, c *Client) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	sql, args, err := postgres.Builder().
		Insert(clientTable).
		Columns("id", "name", "created_at").
		Values(c.ID, c.Name, c.CreatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert client: %w", err)
	}
	return nil
}

func (r *ClientRepo) GetByID(ctx context.Context, clientID id.ID) (*Client, error) {
	return r.getByID(ctx, clientID)
}
