package documents

import (
	"context"
	"time"

	"docflow/internal/core/id"
)

// EventType names a recorded document event.
type EventType string

const (
	EventCreated       EventType = "created"
	EventUpdated       EventType = "updated"
	EventStatusChanged EventType = "status_changed"
	EventConverted     EventType = "converted"
	EventPaymentAdded  EventType = "payment_added"
	EventCredited      EventType = "credited"
	EventUnlinked      EventType = "unlinked"
	EventDeleted       EventType = "deleted"
)

// Event is one entry of a document's history.
type Event struct {
	ID         id.ID          `json:"id"`
	DocumentID id.ID          `json:"documentId"`
	Family     Family         `json:"family"`
	Code       string         `json:"code"`
	Type       EventType      `json:"type"`
	Status     Status         `json:"status"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// NewEvent captures the current state of doc.
func NewEvent(doc *Document, t EventType, payload map[string]any) Event {
	return Event{
		ID:         id.New(),
		DocumentID: doc.ID,
		Family:     doc.Family,
		Code:       doc.Code,
		Type:       t,
		Status:     doc.Status,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
}

// HistoryRecorder stores document events on the caller's transaction.
type HistoryRecorder interface {
	Record(ctx context.Context, event Event) error
	List(ctx context.Context, documentID id.ID) ([]Event, error)
}
