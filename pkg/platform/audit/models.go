package audit

import (
	"context"
	"time"

	"warden/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// Downstream consumers route and retain by category.
type EventCategory string

const (
	// CategoryCompliance covers movements of funds. These are the records a
	// reconciliation or regulator asks for and are never sampled.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers changes of control over a wallet: guardian votes
	// and the recovery sweep.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine lifecycle and admin activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        domain.EventID
	Category  EventCategory
	Timestamp time.Time
	WalletID  domain.WalletID
	// Actor is the authenticated caller that triggered the action.
	Actor  domain.Principal
	Action string
	// Subject is the counterparty of the action: the transfer recipient, the
	// recovery address, or the credited ledger account.
	Subject   domain.Principal
	Amount    domain.Amount
	Reason    string
	RequestID string
}

type AuditEvent string

const (
	// Wallet lifecycle
	EventWalletInitialized AuditEvent = "wallet_initialized"

	// Funds movement
	EventDepositReceived AuditEvent = "deposit_received"
	EventTransferSent    AuditEvent = "transfer_sent"

	// Recovery
	EventRecoveryVoteCast AuditEvent = "recovery_vote_cast"
	EventWalletRecovered  AuditEvent = "wallet_recovered"

	// Ledger administration
	EventLedgerCredited AuditEvent = "ledger_credited"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDepositReceived: CategoryCompliance,
	EventTransferSent:    CategoryCompliance,
	EventLedgerCredited:  CategoryCompliance,

	EventRecoveryVoteCast: CategorySecurity,
	EventWalletRecovered:  CategorySecurity,

	EventWalletInitialized: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations that support transactions join
// the transaction carried in ctx so an event commits with the state it describes.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByWallet(ctx context.Context, walletID domain.WalletID) ([]Event, error)
}
