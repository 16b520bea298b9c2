// Package models holds the ledger admin request and response types.
package models

import (
	"strings"

	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
)

// CreditRequest funds a ledger account from outside the system.
type CreditRequest struct {
	Account string  `json:"account"`
	Amount  *uint64 `json:"amount"`

	account domain.Principal
	amount  domain.Amount
}

func (r *CreditRequest) Normalize() {
	if r == nil {
		return
	}
	r.Account = strings.TrimSpace(r.Account)
}

func (r *CreditRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Account == "" {
		return dErrors.New(dErrors.CodeValidation, "account is required")
	}
	account, err := domain.ParsePrincipal(r.Account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "account: "+dErrors.Message(err))
	}
	if r.Amount == nil {
		return dErrors.New(dErrors.CodeValidation, "amount is required")
	}
	if *r.Amount == 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	amount, err := domain.ParseAmount(*r.Amount)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "amount: "+dErrors.Message(err))
	}
	r.account = account
	r.amount = amount
	return nil
}

func (r *CreditRequest) ParsedAccount() domain.Principal { return r.account }

func (r *CreditRequest) ParsedAmount() domain.Amount { return r.amount }

// AccountResponse reports one ledger account balance.
type AccountResponse struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

func ToAccountResponse(account domain.Principal, balance domain.Amount) *AccountResponse {
	return &AccountResponse{Account: account.String(), Balance: balance.Uint64()}
}
