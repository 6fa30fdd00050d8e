// Package memstore provides in-memory repositories for service tests.
//
// A Store keeps every table in maps guarded by one mutex. Its transaction
// manager snapshots the whole store when an outermost transaction starts and
// restores the snapshot when the callback fails, so tests observe the same
// all-or-nothing behavior as PostgreSQL.
package memstore

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"docflow/internal/core/id"
	"docflow/internal/core/numerator"
	"docflow/internal/core/tx"
	"docflow/internal/domain/catalogs/product"
	"docflow/internal/domain/documents"
	"docflow/internal/domain/payments"
	"docflow/internal/domain/registers/stock"
)

// Store is an in-memory database.
type Store struct {
	mu sync.Mutex

	products  map[id.ID]*product.Product
	docs      map[id.ID]*documents.Document
	payments  []*payments.Payment
	movements []stock.Movement
	events    []documents.Event
	clients   map[id.ID]bool

	numerator *numerator.MockGenerator
}

// New creates an empty store.
func New() *Store {
	return &Store{
		products:  make(map[id.ID]*product.Product),
		docs:      make(map[id.ID]*documents.Document),
		clients:   make(map[id.ID]bool),
		numerator: &numerator.MockGenerator{},
	}
}

// AddClient registers a known client.
func (s *Store) AddClient() id.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	cid := id.New()
	s.clients[cid] = true
	return cid
}

// AddProduct inserts a product with the given stock directly.
func (s *Store) AddProduct(designation string, price string, onHand int64) *product.Product {
	p := product.NewProduct("REF-"+id.New().String()[:8], designation, decimal.RequireFromString(price), decimal.Zero)
	p.OnHand = onHand
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = copyProduct(p)
	return p
}

// OnHand returns the current stock of a product.
func (s *Store) OnHand(productID id.ID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[productID]; ok {
		return p.OnHand
	}
	return -1
}

// DocumentCount returns the number of stored documents of a family.
func (s *Store) DocumentCount(family documents.Family) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.docs {
		if d.Family == family {
			n++
		}
	}
	return n
}

// PaymentsOf returns the payment rows of a document.
func (s *Store) PaymentsOf(documentID id.ID) []*payments.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*payments.Payment
	for _, p := range s.payments {
		if p.DocumentID == documentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

// Movements returns every stock movement.
func (s *Store) Movements() []stock.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stock.Movement(nil), s.movements...)
}

// Numerator returns the code generator used by Deps.
func (s *Store) Numerator() *numerator.MockGenerator {
	return s.numerator
}

func (s *Store) Products() *ProductRepo   { return &ProductRepo{s} }
func (s *Store) Stock() *StockRepo        { return &StockRepo{s} }
func (s *Store) Documents() *DocumentRepo { return &DocumentRepo{s} }
func (s *Store) Payments() *PaymentRepo   { return &PaymentRepo{s} }
func (s *Store) History() *HistoryLog     { return &HistoryLog{s} }
func (s *Store) Clients() *ClientDirectory {
	return &ClientDirectory{s}
}

// TxManager returns a transaction manager that rolls the store back on error.
func (s *Store) TxManager() tx.Manager {
	return &TxManager{store: s}
}

// Deps wires every repository of the store for the document services.
func (s *Store) Deps() documents.Deps {
	return documents.Deps{
		Repo:      s.Documents(),
		Products:  s.Products(),
		Clients:   s.Clients(),
		Numerator: s.numerator,
		Numbering: documents.DefaultNumbering(),
		History:   s.History(),
		TxManager: s.TxManager(),
	}
}

// --- transactions ---

type txKey struct{}

type snapshot struct {
	products  map[id.ID]*product.Product
	docs      map[id.ID]*documents.Document
	payments  []*payments.Payment
	movements []stock.Movement
	events    []documents.Event
}

// TxManager implements tx.Manager over a Store.
type TxManager struct {
	store *Store
}

// RunInTransaction runs fn and restores the store when it fails.
// Nested calls join the outer transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	snap := m.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

var _ tx.Manager = (*TxManager)(nil)

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		products:  make(map[id.ID]*product.Product, len(s.products)),
		docs:      make(map[id.ID]*documents.Document, len(s.docs)),
		payments:  make([]*payments.Payment, len(s.payments)),
		movements: append([]stock.Movement(nil), s.movements...),
		events:    append([]documents.Event(nil), s.events...),
	}
	for k, p := range s.products {
		snap.products[k] = copyProduct(p)
	}
	for k, d := range s.docs {
		snap.docs[k] = copyDocument(d)
	}
	for i, p := range s.payments {
		cp := *p
		snap.payments[i] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = snap.products
	s.docs = snap.docs
	s.payments = snap.payments
	s.movements = snap.movements
	s.events = snap.events
}

func copyProduct(p *product.Product) *product.Product {
	cp := *p
	return &cp
}

func copyDocument(d *documents.Document) *documents.Document {
	cp := *d
	cp.Lines = append([]documents.Line(nil), d.Lines...)
	if d.SourceID != nil {
		cp.SourceID = id.Ptr(*d.SourceID)
	}
	if d.TargetID != nil {
		cp.TargetID = id.Ptr(*d.TargetID)
	}
	if d.TaxRate != nil {
		rate := *d.TaxRate
		cp.TaxRate = &rate
	}
	if d.DueDate != nil {
		due := *d.DueDate
		cp.DueDate = &due
	}
	return &cp
}
