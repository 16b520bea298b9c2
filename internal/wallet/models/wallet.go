package models

import (
	"time"

	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
)

// WalletStatus is derived from the recovery tally; it is never stored.
type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "active"
	WalletStatusRecovered WalletStatus = "recovered"
)

const (
	DefaultThresholdPct = 70
	MinThresholdPct     = 50
	MaxThresholdPct     = 100
)

// RecoveryThreshold is floor(guardians * pct / 100). Small guardian sets can
// yield 0.
func RecoveryThreshold(guardians, pct int) int {
	return guardians * pct / 100
}

// Wallet is the aggregate root for one custodial wallet.
//
// Invariants:
//   - Owner and the guardian set are fixed at construction
//   - Guardians is non-empty and holds each principal once
//   - Threshold = RecoveryThreshold(len(Guardians), ThresholdPct)
//   - Votes equals the number of guardians whose flag is set and never decreases
//   - RecoveryAddress is nil until the first accepted vote, then never changes
//   - RecoveredAt is set exactly once, by the vote that first reaches Threshold
type Wallet struct {
	ID    domain.WalletID
	Owner domain.Principal
	// Guardians maps each guardian to whether it has voted.
	Guardians map[domain.Principal]bool
	// GuardianOrder keeps the guardians in the order they were supplied.
	GuardianOrder   []domain.Principal
	Threshold       int
	ThresholdPct    int
	Votes           int
	RecoveryAddress *domain.Principal
	RecoveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewWallet builds a wallet owned by owner. Duplicate guardians are collapsed
// before the threshold is computed. A nil pct means DefaultThresholdPct.
func NewWallet(
	id domain.WalletID,
	owner domain.Principal,
	guardians []domain.Principal,
	pct *int,
	now time.Time,
) (*Wallet, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "wallet id cannot be nil")
	}
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "wallet owner cannot be empty")
	}

	thresholdPct := DefaultThresholdPct
	if pct != nil {
		if *pct < MinThresholdPct || *pct > MaxThresholdPct {
			return nil, dErrors.New(dErrors.CodeInvalidThreshold, "recovery threshold percentage must be between 50 and 100")
		}
		thresholdPct = *pct
	}

	flags := make(map[domain.Principal]bool, len(guardians))
	order := make([]domain.Principal, 0, len(guardians))
	for _, g := range guardians {
		if g.IsZero() {
			return nil, dErrors.New(dErrors.CodeValidation, "guardian cannot be empty")
		}
		if _, dup := flags[g]; dup {
			continue
		}
		flags[g] = false
		order = append(order, g)
	}
	if len(order) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one guardian is required")
	}

	return &Wallet{
		ID:            id,
		Owner:         owner,
		Guardians:     flags,
		GuardianOrder: order,
		Threshold:     RecoveryThreshold(len(order), thresholdPct),
		ThresholdPct:  thresholdPct,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (w *Wallet) Status() WalletStatus {
	if w.RecoveredAt != nil {
		return WalletStatusRecovered
	}
	return WalletStatusActive
}

func (w *Wallet) IsGuardian(p domain.Principal) bool {
	_, ok := w.Guardians[p]
	return ok
}

// RequireOwner fails with not_owner unless caller owns the wallet.
func (w *Wallet) RequireOwner(caller domain.Principal) error {
	if caller != w.Owner {
		return dErrors.New(dErrors.CodeNotOwner, "caller is not the wallet owner")
	}
	return nil
}

// CheckFunds fails with insufficient_balance when amount exceeds balance.
func (w *Wallet) CheckFunds(amount, balance domain.Amount) error {
	if amount > balance {
		return dErrors.New(dErrors.CodeInsufficientBalance, "amount exceeds wallet balance")
	}
	return nil
}

// CheckDestination rejects the wallet's own custody account as the target of
// a transfer or a recovery: funds moved onto custody never leave it.
func (w *Wallet) CheckDestination(addr domain.Principal) error {
	if addr == domain.CustodyAccount(w.ID) {
		return dErrors.New(dErrors.CodeValidation, "address must not be the wallet's own custody account")
	}
	return nil
}

// VoteOutcome describes the tally after an accepted vote.
type VoteOutcome struct {
	Votes     int
	Threshold int
	Address   domain.Principal
	// ShouldSweep is true only for the vote that first reaches the threshold.
	ShouldSweep bool
}

// CastVote records a recovery vote by guardian for addr. Checks run in the
// order not_guardian, already_voted, validation_error (own custody account),
// address_mismatch; a rejected vote leaves the wallet untouched. The first accepted vote locks the recovery address.
func (w *Wallet) CastVote(guardian, addr domain.Principal, now time.Time) (VoteOutcome, error) {
	voted, ok := w.Guardians[guardian]
	if !ok {
		return VoteOutcome{}, dErrors.New(dErrors.CodeNotGuardian, "caller is not a guardian of this wallet")
	}
	if voted {
		return VoteOutcome{}, dErrors.New(dErrors.CodeAlreadyVoted, "guardian has already voted")
	}
	if err := w.CheckDestination(addr); err != nil {
		return VoteOutcome{}, err
	}
	if w.RecoveryAddress != nil && *w.RecoveryAddress != addr {
		return VoteOutcome{}, dErrors.New(dErrors.CodeAddressMismatch, "recovery address does not match the address already voted for")
	}

	if w.RecoveryAddress == nil {
		locked := addr
		w.RecoveryAddress = &locked
	}
	w.Guardians[guardian] = true
	w.Votes++
	w.UpdatedAt = now

	outcome := VoteOutcome{
		Votes:     w.Votes,
		Threshold: w.Threshold,
		Address:   *w.RecoveryAddress,
	}
	if w.RecoveredAt == nil && w.Votes >= w.Threshold {
		recoveredAt := now
		w.RecoveredAt = &recoveredAt
		outcome.ShouldSweep = true
	}
	return outcome, nil
}

// VotedGuardians returns the guardians that have voted, in guardian order.
func (w *Wallet) VotedGuardians() []domain.Principal {
	var voted []domain.Principal
	for _, g := range w.GuardianOrder {
		if w.Guardians[g] {
			voted = append(voted, g)
		}
	}
	return voted
}

// Clone returns a deep copy. Services mutate clones and persist them only when
// the whole operation succeeds.
func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	c := *w
	c.Guardians = make(map[domain.Principal]bool, len(w.Guardians))
	for g, voted := range w.Guardians {
		c.Guardians[g] = voted
	}
	c.GuardianOrder = append([]domain.Principal(nil), w.GuardianOrder...)
	if w.RecoveryAddress != nil {
		addr := *w.RecoveryAddress
		c.RecoveryAddress = &addr
	}
	if w.RecoveredAt != nil {
		at := *w.RecoveredAt
		c.RecoveredAt = &at
	}
	return &c
}
