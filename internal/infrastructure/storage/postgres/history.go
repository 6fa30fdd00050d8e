package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"docflow/internal/core/id"
	"docflow/internal/domain/documents"
)

// DefaultCompressThreshold is the payload size above which history rows are zstd-compressed.
const DefaultCompressThreshold = 4 * 1024

// historyRow is the stored shape of a documents.Event.
type historyRow struct {
	ID         id.ID     `db:"id"`
	DocumentID id.ID     `db:"document_id"`
	Family     string    `db:"family"`
	Code       string    `db:"code"`
	EventType  string    `db:"event_type"`
	Status     string    `db:"status"`
	Payload    []byte    `db:"payload"`
	Compressed bool      `db:"compressed"`
	CreatedAt  time.Time `db:"created_at"`
}

// HistoryLog implements documents.HistoryRecorder on the doc_history table.
type HistoryLog struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ documents.HistoryRecorder = (*HistoryLog)(nil)

// NewHistoryLog creates a history log. threshold <= 0 selects DefaultCompressThreshold.
func NewHistoryLog(txManager *TxManager, threshold int) (*HistoryLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}

	return &HistoryLog{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: threshold,
	}, nil
}

// Record inserts the event on the transaction in ctx.
func (h *HistoryLog) Record(ctx context.Context, event documents.Event) error {
	row, err := h.toRow(event)
	if err != nil {
		return err
	}

	_, err = h.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO doc_history (
			id, document_id, family, code, event_type, status,
			payload, compressed, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		row.ID, row.DocumentID, row.Family, row.Code, row.EventType, row.Status,
		row.Payload, row.Compressed, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// List returns the events of a document, oldest first.
func (h *HistoryLog) List(ctx context.Context, documentID id.ID) ([]documents.Event, error) {
	var rows []historyRow
	err := pgxscan.Select(ctx, h.txManager.GetQuerier(ctx), &rows, `
		SELECT id, document_id, family, code, event_type, status,
			   payload, compressed, created_at
		FROM doc_history
		WHERE document_id = $1
		ORDER BY created_at, id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	events := make([]documents.Event, 0, len(rows))
	for _, row := range rows {
		e, err := h.fromRow(row)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func (h *HistoryLog) toRow(event documents.Event) (historyRow, error) {
	if id.IsNil(event.ID) {
		event.ID = id.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	row := historyRow{
		ID:         event.ID,
		DocumentID: event.DocumentID,
		Family:     string(event.Family),
		Code:       event.Code,
		EventType:  string(event.Type),
		Status:     string(event.Status),
		CreatedAt:  event.CreatedAt,
	}
	if len(event.Payload) == 0 {
		return row, nil
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return row, fmt.Errorf("marshal payload: %w", err)
	}
	if len(payload) > h.compressThreshold {
		payload = h.encoder.EncodeAll(payload, nil)
		row.Compressed = true
	}
	row.Payload = payload
	return row, nil
}

func (h *HistoryLog) fromRow(row historyRow) (documents.Event, error) {
	e := documents.Event{
		ID:         row.ID,
		DocumentID: row.DocumentID,
		Family:     documents.Family(row.Family),
		Code:       row.Code,
		Type:       documents.EventType(row.EventType),
		Status:     documents.Status(row.Status),
		CreatedAt:  row.CreatedAt,
	}
	if len(row.Payload) == 0 {
		return e, nil
	}

	payload := row.Payload
	if row.Compressed {
		decompressed, err := h.decoder.DecodeAll(payload, nil)
		if err != nil {
			return e, fmt.Errorf("decompress payload: %w", err)
		}
		payload = decompressed
	}
	if err := json.Unmarshal(payload, &e.Payload); err != nil {
		return e, fmt.Errorf("unmarshal payload: %w", err)
	}
	return e, nil
}
