package memstore

import (
	"context"
	"sort"
	"strings"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain"
	"docflow/internal/domain/catalogs/product"
	"docflow/internal/domain/documents"
	"docflow/internal/domain/payments"
	"docflow/internal/domain/registers/stock"
)

// --- products ---

// ProductRepo implements product.Repository.
type ProductRepo struct{ s *Store }

func (r *ProductRepo) Create(_ context.Context, p *product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; ok {
		return apperror.NewDuplicate("product", "id", p.ID.String())
	}
	r.s.products[p.ID] = copyProduct(p)
	return nil
}

func (r *ProductRepo) Update(_ context.Context, p *product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ID]
	if !ok {
		return apperror.NewNotFound("product", p.ID.String())
	}
	if cur.Version != p.Version {
		return apperror.NewConcurrentModification("product", p.ID.String())
	}
	next := copyProduct(p)
	next.OnHand = cur.OnHand
	next.Version = cur.Version + 1
	r.s.products[p.ID] = next
	p.Version = next.Version
	return nil
}

func (r *ProductRepo) Delete(_ context.Context, productID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[productID]; !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	delete(r.s.products, productID)
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return copyProduct(p), nil
}

func (r *ProductRepo) GetByIDs(_ context.Context, ids []id.ID) (map[id.ID]*product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[id.ID]*product.Product, len(ids))
	for _, pid := range ids {
		if p, ok := r.s.products[pid]; ok {
			out[pid] = copyProduct(p)
		}
	}
	return out, nil
}

func (r *ProductRepo) List(_ context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []*product.Product
	search := strings.ToLower(filter.Search)
	for _, p := range r.s.products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Reference), search) &&
			!strings.Contains(strings.ToLower(p.Designation), search) {
			continue
		}
		items = append(items, copyProduct(p))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Reference < items[j].Reference })
	return page(items, filter), nil
}

func (r *ProductRepo) IsReferenced(_ context.Context, productID id.ID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.docs {
		for _, l := range d.Lines {
			if l.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *ProductRepo) ExistsByReference(_ context.Context, reference string, excludeID *id.ID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		if p.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

var _ product.Repository = (*ProductRepo)(nil)

// --- stock ---

// StockRepo implements stock.Repository on the product table.
type StockRepo struct{ s *Store }

func (r *StockRepo) GetAvailability(_ context.Context, productID id.ID) (stock.Availability, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return stock.Availability{}, apperror.NewNotFound("product", productID.String())
	}
	return stock.Availability{ProductID: p.ID, Designation: p.Designation, OnHand: p.OnHand}, nil
}

func (r *StockRepo) LockAvailability(_ context.Context, ids []id.ID) (map[id.ID]stock.Availability, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[id.ID]stock.Availability, len(ids))
	for _, pid := range ids {
		if p, ok := r.s.products[pid]; ok {
			out[pid] = stock.Availability{ProductID: p.ID, Designation: p.Designation, OnHand: p.OnHand}
		}
	}
	return out, nil
}

func (r *StockRepo) Decrement(_ context.Context, productID id.ID, qty int64) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok || p.OnHand < qty {
		return 0, false, nil
	}
	p.OnHand -= qty
	return p.OnHand, true, nil
}

func (r *StockRepo) Increment(_ context.Context, productID id.ID, qty int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return 0, apperror.NewNotFound("product", productID.String())
	}
	p.OnHand += qty
	return p.OnHand, nil
}

func (r *StockRepo) AppendMovements(_ context.Context, movements []stock.Movement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.movements = append(r.s.movements, movements...)
	return nil
}

func (r *StockRepo) GetMovementsByDocument(_ context.Context, documentID id.ID) ([]stock.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []stock.Movement
	for _, m := range r.s.movements {
		if m.DocumentID != nil && *m.DocumentID == documentID {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ stock.Repository = (*StockRepo)(nil)

// --- documents ---

// DocumentRepo implements documents.Repository.
type DocumentRepo struct{ s *Store }

func (r *DocumentRepo) Create(_ context.Context, doc *documents.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.docs {
		if d.Family == doc.Family && d.Code == doc.Code {
			return apperror.NewDuplicate(string(doc.Family), "code", doc.Code)
		}
	}
	r.s.docs[doc.ID] = copyDocument(doc)
	return nil
}

func (r *DocumentRepo) Update(_ context.Context, doc *documents.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.docs[doc.ID]
	if !ok {
		return apperror.NewNotFound(string(doc.Family), doc.ID.String())
	}
	if cur.Version != doc.Version {
		return apperror.NewConcurrentModification(string(doc.Family), doc.ID.String())
	}
	next := copyDocument(doc)
	next.Lines = cur.Lines
	next.Version = cur.Version + 1
	r.s.docs[doc.ID] = next
	doc.Version = next.Version
	return nil
}

func (r *DocumentRepo) Delete(_ context.Context, docID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.docs[docID]; !ok {
		return apperror.NewNotFound("document", docID.String())
	}
	delete(r.s.docs, docID)
	return nil
}

func (r *DocumentRepo) GetByID(_ context.Context, docID id.ID) (*documents.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("document", docID.String())
	}
	return copyDocument(d), nil
}

func (r *DocumentRepo) GetForUpdate(ctx context.Context, docID id.ID) (*documents.Document, error) {
	return r.GetByID(ctx, docID)
}

func (r *DocumentRepo) ExistsBySource(_ context.Context, family documents.Family, sourceID id.ID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.docs {
		if d.Family == family && d.SourceID != nil && *d.SourceID == sourceID &&
			d.Status != documents.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (r *DocumentRepo) ReplaceLines(_ context.Context, docID id.ID, lines []documents.Line) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.docs[docID]
	if !ok {
		return apperror.NewNotFound("document", docID.String())
	}
	d.Lines = append([]documents.Line(nil), lines...)
	return nil
}

func (r *DocumentRepo) List(_ context.Context, filter documents.ListFilter) (domain.ListResult[*documents.Document], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []*documents.Document
	search := strings.ToLower(filter.Search)
	for _, d := range r.s.docs {
		switch {
		case filter.Family != "" && d.Family != filter.Family:
			continue
		case filter.Status != "" && d.Status != filter.Status:
			continue
		case filter.ClientID != nil && d.ClientID != *filter.ClientID:
			continue
		case filter.DateFrom != nil && d.Date.Before(*filter.DateFrom):
			continue
		case filter.DateTo != nil && d.Date.After(*filter.DateTo):
			continue
		case search != "" && !strings.Contains(strings.ToLower(d.Code), search):
			continue
		}
		items = append(items, copyDocument(d))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Code > items[j].Code })
	return page(items, filter.ListFilter), nil
}

var _ documents.Repository = (*DocumentRepo)(nil)

// --- payments ---

// PaymentRepo implements payments.Repository.
type PaymentRepo struct{ s *Store }

func (r *PaymentRepo) Create(_ context.Context, p *payments.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	r.s.payments = append(r.s.payments, &cp)
	return nil
}

func (r *PaymentRepo) ListByDocument(_ context.Context, documentID id.ID) ([]*payments.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*payments.Payment, 0)
	for _, p := range r.s.payments {
		if p.DocumentID == documentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *PaymentRepo) Reassign(_ context.Context, from, to id.ID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.payments {
		if p.DocumentID == from {
			p.DocumentID = to
			n++
		}
	}
	return n, nil
}

var _ payments.Repository = (*PaymentRepo)(nil)

// --- history & clients ---

// HistoryLog implements documents.HistoryRecorder.
type HistoryLog struct{ s *Store }

func (h *HistoryLog) Record(_ context.Context, event documents.Event) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.events = append(h.s.events, event)
	return nil
}

func (h *HistoryLog) List(_ context.Context, documentID id.ID) ([]documents.Event, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	out := make([]documents.Event, 0)
	for _, e := range h.s.events {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

var _ documents.HistoryRecorder = (*HistoryLog)(nil)

// ClientDirectory implements documents.ClientDirectory.
type ClientDirectory struct{ s *Store }

func (c *ClientDirectory) Exists(_ context.Context, clientID id.ID) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.clients[clientID], nil
}

var _ documents.ClientDirectory = (*ClientDirectory)(nil)

func page[T any](items []T, filter domain.ListFilter) domain.ListResult[T] {
	total := len(items)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	out := items[start:end]
	if out == nil {
		out = []T{}
	}
	return domain.ListResult[T]{
		Items:      out,
		TotalCount: int64(total),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
}
