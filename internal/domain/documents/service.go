package documents

import (
	"context"
	"fmt"
	"time"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/core/numerator"
	"docflow/internal/core/tx"
	"docflow/internal/core/validate"
	"docflow/internal/domain"
)

// Numbering maps each family to its code sequence.
type Numbering map[Family]numerator.Config

// DefaultNumbering returns QUO-0001, DN-0001 and INV-2026-0001 style sequences.
func DefaultNumbering() Numbering {
	return Numbering{
		FamilyQuote: {
			Prefix:   "QUO",
			Family:   string(FamilyQuote),
			PadWidth: numerator.DefaultPadWidth,
		},
		FamilyDeliveryNote: {
			Prefix:   "DN",
			Family:   string(FamilyDeliveryNote),
			PadWidth: numerator.DefaultPadWidth,
		},
		FamilyInvoice: {
			Prefix:    "INV",
			Family:    string(FamilyInvoice),
			ScopeYear: true,
			PadWidth:  numerator.DefaultPadWidth,
		},
	}
}

// WithStrategy returns a copy using strategy for every family.
func (n Numbering) WithStrategy(strategy numerator.Strategy) Numbering {
	out := make(Numbering, len(n))
	for f, cfg := range n {
		cfg.Strategy = strategy
		out[f] = cfg
	}
	return out
}

// WithQuoteSequence returns a copy where quote codes follow the latest code of
// the given family. FamilyQuote keeps quotes on their own sequence.
func (n Numbering) WithQuoteSequence(family Family) Numbering {
	out := make(Numbering, len(n))
	for f, cfg := range n {
		out[f] = cfg
	}
	cfg := out[FamilyQuote]
	cfg.Family = string(family)
	out[FamilyQuote] = cfg
	return out
}

// Deps groups the collaborators shared by every family service.
type Deps struct {
	Repo      Repository
	Products  ProductCatalog
	Clients   ClientDirectory
	Numerator numerator.Generator
	Numbering Numbering
	History   HistoryRecorder
	TxManager tx.Manager
}

// Base implements the operations every family service shares.
// Family services embed it and add their lifecycle side effects.
type Base struct {
	Deps
	family Family
}

// NewBase creates the shared service of one family.
func NewBase(family Family, deps Deps) *Base {
	if deps.Numbering == nil {
		deps.Numbering = DefaultNumbering()
	}
	return &Base{Deps: deps, family: family}
}

// Family returns the document family served.
func (b *Base) Family() Family {
	return b.family
}

// Lifecycle returns the state machine of the family served.
func (b *Base) Lifecycle() Lifecycle {
	lc, _ := LifecycleOf(b.family)
	return lc
}

// GetByID returns a document of the family with its lines.
func (b *Base) GetByID(ctx context.Context, docID id.ID) (*Document, error) {
	doc, err := b.Repo.GetByID(ctx, docID)
	if err != nil {
		return nil, b.normalizeGetErr(err, docID)
	}
	if doc.Family != b.family {
		return nil, apperror.NewNotFound(string(b.family), docID.String())
	}
	return doc, nil
}

// Lock returns a document of the family holding its row lock.
// Must be called inside a transaction.
func (b *Base) Lock(ctx context.Context, docID id.ID) (*Document, error) {
	doc, err := b.Repo.GetForUpdate(ctx, docID)
	if err != nil {
		return nil, b.normalizeGetErr(err, docID)
	}
	if doc.Family != b.family {
		return nil, apperror.NewNotFound(string(b.family), docID.String())
	}
	return doc, nil
}

// List retrieves documents of the family.
func (b *Base) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Document], error) {
	filter.Family = b.family
	filter.Normalize()
	if filter.Status != "" && !b.Lifecycle().Knows(filter.Status) {
		return domain.ListResult[*Document]{}, apperror.NewValidation("unknown status").
			WithDetail("status", string(filter.Status))
	}
	return b.Repo.List(ctx, filter)
}

// History returns the recorded events of a document.
func (b *Base) History(ctx context.Context, docID id.ID) ([]Event, error) {
	if _, err := b.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	if b.Deps.History == nil {
		return []Event{}, nil
	}
	return b.Deps.History.List(ctx, docID)
}

// Prepare validates input and builds an unsaved document with computed totals.
func (b *Base) Prepare(ctx context.Context, in CreateInput) (*Document, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := b.EnsureClient(ctx, in.ClientID); err != nil {
		return nil, err
	}

	doc := New(b.family, in.ClientID, in.Date)
	doc.DueDate = in.DueDate
	doc.PaymentMode = in.PaymentMode
	doc.Notes = in.Notes
	doc.Discount = in.Discount

	lines, err := b.BuildLines(ctx, in.Lines)
	if err != nil {
		return nil, err
	}
	doc.SetLines(lines)

	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	if err := doc.Recalculate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// EnsureClient fails with NOT_FOUND for unknown clients.
func (b *Base) EnsureClient(ctx context.Context, clientID id.ID) error {
	if b.Clients == nil {
		return nil
	}
	ok, err := b.Clients.Exists(ctx, clientID)
	if err != nil {
		return fmt.Errorf("check client: %w", err)
	}
	if !ok {
		return apperror.NewNotFound("client", clientID.String())
	}
	return nil
}

// BuildLines resolves products and snapshots designation and unit price.
// An omitted unit price takes the current catalog sale price.
func (b *Base) BuildLines(ctx context.Context, inputs []LineInput) ([]Line, error) {
	ids := make([]id.ID, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.ProductID)
	}

	products, err := b.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	lines := make([]Line, len(inputs))
	for i, in := range inputs {
		p, ok := products[in.ProductID]
		if !ok {
			return nil, apperror.NewNotFound("product", in.ProductID.String()).
				WithDetail("line", i+1)
		}
		price := p.UnitPrice
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}
		lines[i] = Line{
			ID:          id.New(),
			ProductID:   p.ID,
			Designation: p.Designation,
			Quantity:    in.Quantity,
			UnitPrice:   price,
			Discount:    in.Discount,
		}
	}
	return lines, nil
}

// AllocateCode returns the next code of a family on the caller's transaction.
func (b *Base) AllocateCode(ctx context.Context, family Family, date time.Time) (string, error) {
	cfg, ok := b.Numbering[family]
	if !ok {
		return "", apperror.NewInternal(fmt.Errorf("no numbering configured for %s", family))
	}
	code, err := b.Numerator.Next(ctx, cfg, date)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return code, nil
}

// Insert allocates the code when missing, persists the document and records its creation.
func (b *Base) Insert(ctx context.Context, doc *Document) error {
	if doc.Code == "" {
		code, err := b.AllocateCode(ctx, doc.Family, doc.Date)
		if err != nil {
			return err
		}
		doc.Code = code
	}
	if err := b.Repo.Create(ctx, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return b.Record(ctx, doc, EventCreated, Snapshot(doc))
}

// Save persists header changes. Version is bumped by the repository.
func (b *Base) Save(ctx context.Context, doc *Document) error {
	doc.Touch()
	if err := b.Repo.Update(ctx, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// ApplyUpdate applies header changes and, when requested, rebuilds the lines.
// It reports whether the lines were replaced. Totals are not recomputed.
func (b *Base) ApplyUpdate(ctx context.Context, doc *Document, in UpdateInput) (bool, error) {
	if err := validate.Struct(in); err != nil {
		return false, err
	}
	if in.Version != 0 && in.Version != doc.Version {
		return false, apperror.NewConcurrentModification(string(doc.Family), doc.ID.String())
	}

	if in.DueDate != nil {
		doc.DueDate = in.DueDate
	}
	if in.PaymentMode != nil {
		doc.PaymentMode = *in.PaymentMode
	}
	if in.Notes != nil {
		doc.Notes = *in.Notes
	}
	if in.Discount != nil {
		doc.Discount = *in.Discount
	}

	if in.Lines == nil {
		return false, doc.Validate(ctx)
	}

	lines, err := b.BuildLines(ctx, in.Lines)
	if err != nil {
		return false, err
	}
	doc.SetLines(lines)
	return true, doc.Validate(ctx)
}

// Record appends an event to the document history.
func (b *Base) Record(ctx context.Context, doc *Document, t EventType, payload map[string]any) error {
	if b.Deps.History == nil {
		return nil
	}
	if err := b.Deps.History.Record(ctx, NewEvent(doc, t, payload)); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// CheckDelete fails unless the document may be deleted in its current status.
func (b *Base) CheckDelete(doc *Document) error {
	if !doc.Lifecycle().IsDeletable(doc.Status) {
		return apperror.NewInvalidTransition(string(doc.Family), string(doc.Status), "").
			WithDetail("operation", "delete")
	}
	if doc.Converted {
		state := string(StatusConverted)
		if doc.Family == FamilyDeliveryNote {
			state = StateInvoiced
		}
		return apperror.NewInvalidTransition(string(doc.Family), state, "").
			WithDetail("operation", "delete")
	}
	return nil
}

// Snapshot returns the payload stored with created and updated events.
func Snapshot(doc *Document) map[string]any {
	lines := make([]map[string]any, len(doc.Lines))
	for i, l := range doc.Lines {
		lines[i] = map[string]any{
			"productId": l.ProductID.String(),
			"quantity":  l.Quantity,
			"unitPrice": l.UnitPrice.String(),
			"discount":  l.Discount.String(),
			"total":     l.Total.String(),
		}
	}
	return map[string]any{
		"subtotal": doc.Subtotal.String(),
		"discount": doc.Discount.String(),
		"tax":      doc.TaxAmount.String(),
		"total":    doc.Total.String(),
		"lines":    lines,
	}
}

func (b *Base) normalizeGetErr(err error, docID id.ID) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(string(b.family), docID.String())
	}
	return err
}
