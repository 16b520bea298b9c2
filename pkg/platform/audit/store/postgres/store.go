package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"warden/pkg/domain"
	audit "warden/pkg/platform/audit"
	txcontext "warden/pkg/platform/tx"
)

// AggregateWallet is the outbox aggregate type of every wallet event.
const AggregateWallet = "wallet"

// Store implements audit.Store using the transactional outbox pattern.
// Rows are inserted through the transaction carried in ctx when there is one,
// so an event commits or rolls back together with the wallet change it
// describes. The outbox relay publishes committed rows to Kafka.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Payload is the JSON document stored in outbox.payload and published to Kafka.
type Payload struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	WalletID  string `json:"wallet_id,omitempty"`
	Actor     string `json:"actor,omitempty"`
	Action    string `json:"action"`
	Subject   string `json:"subject,omitempty"`
	Amount    uint64 `json:"amount,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// NewPayload converts an event to its wire form. The category is always
// derived from the action.
func NewPayload(event audit.Event) Payload {
	p := Payload{
		ID:        event.ID.String(),
		Category:  string(audit.AuditEvent(event.Action).Category()),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Actor:     event.Actor.String(),
		Action:    event.Action,
		Subject:   event.Subject.String(),
		Amount:    event.Amount.Uint64(),
		Reason:    event.Reason,
		RequestID: event.RequestID,
	}
	if !event.WalletID.IsNil() {
		p.WalletID = event.WalletID.String()
	}
	return p
}

// Event converts a wire payload back into an audit event.
func (p Payload) Event() (audit.Event, error) {
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Event{}, fmt.Errorf("parse timestamp: %w", err)
	}
	event := audit.Event{
		Category:  audit.EventCategory(p.Category),
		Timestamp: ts,
		Actor:     domain.Principal(p.Actor),
		Action:    p.Action,
		Subject:   domain.Principal(p.Subject),
		Amount:    domain.Amount(p.Amount),
		Reason:    p.Reason,
		RequestID: p.RequestID,
	}
	if p.ID != "" {
		u, err := uuid.Parse(p.ID)
		if err != nil {
			return audit.Event{}, fmt.Errorf("parse event id: %w", err)
		}
		event.ID = domain.EventID(u)
	}
	if p.WalletID != "" {
		u, err := uuid.Parse(p.WalletID)
		if err != nil {
			return audit.Event{}, fmt.Errorf("parse wallet id: %w", err)
		}
		event.WalletID = domain.WalletID(u)
	}
	return event, nil
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payloadBytes, err := json.Marshal(NewPayload(event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := event.ID.String()
	if !event.WalletID.IsNil() {
		aggregateType = AggregateWallet
		aggregateID = event.WalletID.String()
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(event.ID),
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByWallet returns the events of one wallet in commit order.
func (s *Store) ListByWallet(ctx context.Context, walletID domain.WalletID) ([]audit.Event, error) {
	query := `
		SELECT payload
		FROM outbox
		WHERE aggregate_type = $1 AND aggregate_id = $2
		ORDER BY seq
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, AggregateWallet, walletID.String())
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan outbox payload: %w", err)
		}
		var p Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode outbox payload: %w", err)
		}
		event, err := p.Event()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return events, nil
}
