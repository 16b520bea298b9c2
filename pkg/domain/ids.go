package domain

import (
	"github.com/google/uuid"

	dErrors "warden/pkg/domain-errors"
)

// WalletID identifies one deployed wallet instance. Each wallet is independent;
// all of its state is addressed by this id.
type WalletID uuid.UUID

// NewWalletID returns a fresh random wallet id.
func NewWalletID() WalletID {
	return WalletID(uuid.New())
}

// ParseWalletID validates external input and returns a typed id.
// Empty, malformed, and nil UUIDs are rejected.
func ParseWalletID(s string) (WalletID, error) {
	u, err := parseUUID(s, "wallet_id")
	if err != nil {
		return WalletID{}, err
	}
	return WalletID(u), nil
}

func (id WalletID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero UUID.
func (id WalletID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// EventID identifies an audit/outbox event.
type EventID uuid.UUID

func NewEventID() EventID { return EventID(uuid.New()) }

func (id EventID) String() string { return uuid.UUID(id).String() }

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}
