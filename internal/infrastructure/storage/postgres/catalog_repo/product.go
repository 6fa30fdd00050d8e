package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain"
	"docflow/internal/domain/catalogs/product"
	"docflow/internal/domain/documents"
	"docflow/internal/infrastructure/storage/postgres"
)

const (
	productTable        = "products"
	productReferenceKey = "products_reference_key"
	productDefaultOrder = "reference ASC"
	documentLinesTable  = "document_lines"
)

// productUpdateCols are written by Update. on_hand belongs to the stock ledger.
var productUpdateCols = []string{"reference", "designation", "unit_price", "unit_cost", "updated_at"}

var productOrderCols = []string{"reference", "designation", "unit_price", "on_hand", "created_at", "updated_at"}

// ProductRepo implements product.Repository.
type ProductRepo struct {
	baseRepo[product.Product]
}

var (
	_ product.Repository       = (*ProductRepo)(nil)
	_ documents.ProductCatalog = (*ProductRepo)(nil)
)

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{baseRepo: newBaseRepo[product.Product](txm, productTable, "product")}
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	if err := r.insert(ctx, p); err != nil {
		if postgres.IsUniqueViolation(err, productReferenceKey) {
			return apperror.NewDuplicate("product", "reference", p.Reference)
		}
		return err
	}
	return nil
}

func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	data := postgres.Pick(postgres.StructToMap(p), productUpdateCols)
	if err := r.update(ctx, p.ID, p.Version, data); err != nil {
		if postgres.IsUniqueViolation(err, productReferenceKey) {
			return apperror.NewDuplicate("product", "reference", p.Reference)
		}
		return err
	}
	p.Version++
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, productID id.ID) error {
	return r.delete(ctx, productID)
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.getByID(ctx, productID)
}

func (r *ProductRepo) GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*product.Product, error) {
	out := make(map[id.ID]*product.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	items, err := r.findAll(ctx, r.baseSelect().Where(squirrel.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProductRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	filter.Normalize()
	result := domain.ListResult[*product.Product]{
		Items:  make([]*product.Product, 0),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.filtered(filter)
	total, err := r.count(ctx, q)
	if err != nil {
		return result, err
	}
	result.TotalCount = total

	orderBy, err := postgres.ParseOrderBy(filter.OrderBy, productOrderCols, productDefaultOrder)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "id").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	items, err := r.findAll(ctx, q)
	if err != nil {
		return result, err
	}
	if items != nil {
		result.Items = items
	}
	return result, nil
}

// filtered applies the search filter to the base select.
func (r *ProductRepo) filtered(filter domain.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"reference": pattern},
			squirrel.ILike{"designation": pattern},
		})
	}
	return q
}

func (r *ProductRepo) IsReferenced(ctx context.Context, productID id.ID) (bool, error) {
	q := postgres.Builder().
		Select("1").
		From(documentLinesTable).
		Where(squirrel.Eq{"product_id": productID})
	ok, err := r.exists(ctx, q)
	if err != nil {
		return false, fmt.Errorf("product references: %w", err)
	}
	return ok, nil
}

func (r *ProductRepo) ExistsByReference(ctx context.Context, reference string, excludeID *id.ID) (bool, error) {
	q := postgres.Builder().
		Select("1").
		From(productTable).
		Where(squirrel.Eq{"reference": reference})
	if excludeID != nil {
		q = q.Where(squirrel.NotEq{"id": *excludeID})
	}
	return r.exists(ctx, q)
}
