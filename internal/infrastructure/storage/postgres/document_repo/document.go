// Package document_repo provides the PostgreSQL implementation of the document repository.
// Every family shares one header table and one line table, told apart by the family column.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain"
	"docflow/internal/domain/documents"
	"docflow/internal/infrastructure/storage/postgres"
)

const (
	documentsTable = "documents"
	linesTable     = "document_lines"

	familyCodeKey   = "documents_family_code_key"
	familySourceKey = "documents_family_source_key"

	defaultOrder = "created_at DESC"
)

var orderCols = []string{"code", "doc_date", "due_date", "total", "status", "created_at", "updated_at"}

// DocumentRepo implements documents.Repository.
type DocumentRepo struct {
	txm        *postgres.TxManager
	headerCols []string
	lineCols   []string
}

var _ documents.Repository = (*DocumentRepo)(nil)

// NewDocumentRepo creates a new document repository.
func NewDocumentRepo(txm *postgres.TxManager) *DocumentRepo {
	return &DocumentRepo{
		txm:        txm,
		headerCols: postgres.ExtractDBColumns[documents.Document](),
		lineCols:   postgres.ExtractDBColumns[documents.Line](),
	}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *documents.Document) error {
	data := postgres.Pick(postgres.StructToMap(doc), r.headerCols)

	sql, args, err := postgres.Builder().
		Insert(documentsTable).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.mapWriteError(err, doc)
	}

	return r.insertLines(ctx, doc.Lines)
}

func (r *DocumentRepo) Update(ctx context.Context, doc *documents.Document) error {
	data := postgres.Pick(postgres.StructToMap(doc), r.headerCols, "id", "version", "created_at", "family")

	sql, args, err := postgres.Builder().
		Update(documentsTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": doc.ID}).
		Where(squirrel.Eq{"version": doc.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return r.mapWriteError(err, doc)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(string(doc.Family), doc.ID.String())
	}

	doc.Version++
	return nil
}

// Delete removes the header. Lines go with it (ON DELETE CASCADE).
func (r *DocumentRepo) Delete(ctx context.Context, docID id.ID) error {
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, "DELETE FROM "+documentsTable+" WHERE id = $1", docID)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewConflict("document still owns payment records").
				WithDetail("id", docID.String())
		}
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("document", docID.String())
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, docID id.ID) (*documents.Document, error) {
	return r.get(ctx, r.byID(docID), docID)
}

func (r *DocumentRepo) GetForUpdate(ctx context.Context, docID id.ID) (*documents.Document, error) {
	return r.get(ctx, r.byID(docID).Suffix("FOR UPDATE"), docID)
}

func (r *DocumentRepo) ExistsBySource(ctx context.Context, family documents.Family, sourceID id.ID) (bool, error) {
	sql, args, err := r.sourceQuery(family, sourceID).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by source: %w", err)
	}
	return exists, nil
}

func (r *DocumentRepo) ReplaceLines(ctx context.Context, docID id.ID, lines []documents.Line) error {
	q := r.txm.GetQuerier(ctx)
	if _, err := q.Exec(ctx, "DELETE FROM "+linesTable+" WHERE document_id = $1", docID); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}
	return r.insertLines(ctx, lines)
}

func (r *DocumentRepo) List(ctx context.Context, filter documents.ListFilter) (domain.ListResult[*documents.Document], error) {
	filter.Normalize()
	result := domain.ListResult[*documents.Document]{
		Items:  make([]*documents.Document, 0),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.filtered(filter)
	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := postgres.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count documents: %w", err)
	}

	orderBy, err := postgres.ParseOrderBy(filter.OrderBy, orderCols, defaultOrder)
	if err != nil {
		return result, err
	}

	sql, args, err := q.OrderBy(orderBy, "id").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	var docs []*documents.Document
	if err := pgxscan.Select(ctx, querier, &docs, sql, args...); err != nil {
		return result, fmt.Errorf("list documents: %w", err)
	}
	if err := r.attachLines(ctx, docs); err != nil {
		return result, err
	}
	if docs != nil {
		result.Items = docs
	}
	return result, nil
}

func (r *DocumentRepo) baseSelect() squirrel.SelectBuilder {
	return postgres.Builder().
		Select(r.headerCols...).
		From(documentsTable)
}

func (r *DocumentRepo) byID(docID id.ID) squirrel.SelectBuilder {
	return r.baseSelect().
		Where(squirrel.Eq{"id": docID}).
		Limit(1)
}

// filtered applies every list criterion except ordering and pagination.
func (r *DocumentRepo) filtered(filter documents.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()
	if filter.Family != "" {
		q = q.Where(squirrel.Eq{"family": filter.Family})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"doc_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"doc_date": *filter.DateTo})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"code": "%" + filter.Search + "%"})
	}
	return q
}

// sourceQuery ignores cancelled targets, matching the partial unique index.
func (r *DocumentRepo) sourceQuery(family documents.Family, sourceID id.ID) squirrel.SelectBuilder {
	return postgres.Builder().
		Select("1").
		Prefix("SELECT EXISTS (").
		From(documentsTable).
		Where(squirrel.Eq{"family": family, "source_id": sourceID}).
		Where(squirrel.NotEq{"status": documents.StatusCancelled}).
		Suffix(")")
}

func (r *DocumentRepo) get(ctx context.Context, q squirrel.SelectBuilder, docID id.ID) (*documents.Document, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	doc := new(documents.Document)
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("document", docID.String())
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	if err := r.attachLines(ctx, []*documents.Document{doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

// attachLines loads the lines of docs in one query.
func (r *DocumentRepo) attachLines(ctx context.Context, docs []*documents.Document) error {
	if len(docs) == 0 {
		return nil
	}

	byDoc := make(map[id.ID]*documents.Document, len(docs))
	ids := make([]id.ID, len(docs))
	for i, d := range docs {
		d.Lines = make([]documents.Line, 0)
		byDoc[d.ID] = d
		ids[i] = d.ID
	}

	sql, args, err := r.linesQuery(ids).ToSql()
	if err != nil {
		return fmt.Errorf("build lines query: %w", err)
	}

	var lines []documents.Line
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return fmt.Errorf("get lines: %w", err)
	}
	for _, l := range lines {
		if d, ok := byDoc[l.DocumentID]; ok {
			d.Lines = append(d.Lines, l)
		}
	}
	return nil
}

func (r *DocumentRepo) linesQuery(docIDs []id.ID) squirrel.SelectBuilder {
	return postgres.Builder().
		Select(r.lineCols...).
		From(linesTable).
		Where(squirrel.Eq{"document_id": docIDs}).
		OrderBy("document_id", "line_no")
}

// insertLines writes all lines in a single multi-row INSERT.
func (r *DocumentRepo) insertLines(ctx context.Context, lines []documents.Line) error {
	if len(lines) == 0 {
		return nil
	}

	sql, args, err := r.insertLinesQuery(lines).ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

func (r *DocumentRepo) insertLinesQuery(lines []documents.Line) squirrel.InsertBuilder {
	q := postgres.Builder().
		Insert(linesTable).
		Columns(r.lineCols...)
	for i := range lines {
		row := postgres.StructToMap(&lines[i])
		values := make([]any, len(r.lineCols))
		for j, col := range r.lineCols {
			values[j] = row[col]
		}
		q = q.Values(values...)
	}
	return q
}

func (r *DocumentRepo) mapWriteError(err error, doc *documents.Document) error {
	switch {
	case postgres.IsUniqueViolation(err, familyCodeKey):
		return apperror.NewDuplicate(string(doc.Family), "code", doc.Code)
	case postgres.IsUniqueViolation(err, familySourceKey) && doc.SourceID != nil:
		if doc.Family == documents.FamilyInvoice {
			return apperror.NewDuplicateInvoice(doc.SourceID.String())
		}
		return apperror.NewDuplicateConversion(string(doc.Family), doc.SourceID.String())
	}
	return fmt.Errorf("write document: %w", err)
}
