package models

import (
	"strings"

	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
)

// MaxGuardians bounds the guardian set accepted at init.
const MaxGuardians = 64

type CreateWalletRequest struct {
	Guardians    []string `json:"guardians"`
	ThresholdPct *int     `json:"threshold_pct,omitempty"`

	guardians []domain.Principal
}

func (r *CreateWalletRequest) Normalize() {
	if r == nil {
		return
	}
	for i, g := range r.Guardians {
		r.Guardians[i] = strings.TrimSpace(g)
	}
}

// Follows validation order: Size -> Required -> Syntax. The threshold
// percentage is range-checked by NewWallet so it fails as invalid_threshold.
func (r *CreateWalletRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Guardians) > MaxGuardians {
		return dErrors.New(dErrors.CodeValidation, "at most 64 guardians are allowed")
	}
	if len(r.Guardians) == 0 {
		return dErrors.New(dErrors.CodeValidation, "guardians is required")
	}
	guardians, err := domain.ParsePrincipalSet(r.Guardians)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "guardians: "+dErrors.Message(err))
	}
	r.guardians = guardians
	return nil
}

// ParsedGuardians returns the deduplicated guardians. Valid after Validate.
func (r *CreateWalletRequest) ParsedGuardians() []domain.Principal {
	return r.guardians
}

type DepositRequest struct {
	Amount *uint64 `json:"amount"`

	amount domain.Amount
}

func (r *DepositRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return err
	}
	r.amount = amount
	return nil
}

func (r *DepositRequest) ParsedAmount() domain.Amount { return r.amount }

type TransferRequest struct {
	To     string  `json:"to"`
	Amount *uint64 `json:"amount"`

	to     domain.Principal
	amount domain.Amount
}

func (r *TransferRequest) Normalize() {
	if r == nil {
		return
	}
	r.To = strings.TrimSpace(r.To)
}

func (r *TransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.To == "" {
		return dErrors.New(dErrors.CodeValidation, "to is required")
	}
	to, err := domain.ParsePrincipal(r.To)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "to: "+dErrors.Message(err))
	}
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return err
	}
	r.to = to
	r.amount = amount
	return nil
}

func (r *TransferRequest) ParsedTo() domain.Principal { return r.to }

func (r *TransferRequest) ParsedAmount() domain.Amount { return r.amount }

type RecoverRequest struct {
	Address string `json:"address"`

	address domain.Principal
}

func (r *RecoverRequest) Normalize() {
	if r == nil {
		return
	}
	r.Address = strings.TrimSpace(r.Address)
}

func (r *RecoverRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Address == "" {
		return dErrors.New(dErrors.CodeValidation, "address is required")
	}
	addr, err := domain.ParsePrincipal(r.Address)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "address: "+dErrors.Message(err))
	}
	r.address = addr
	return nil
}

func (r *RecoverRequest) ParsedAddress() domain.Principal { return r.address }

func parseAmount(v *uint64) (domain.Amount, error) {
	if v == nil {
		return 0, dErrors.New(dErrors.CodeValidation, "amount is required")
	}
	amount, err := domain.ParseAmount(*v)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeValidation, "amount: "+dErrors.Message(err))
	}
	return amount, nil
}
