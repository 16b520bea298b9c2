package models

import (
	"time"

	"warden/pkg/domain"
)

type GuardianResponse struct {
	Principal string `json:"principal"`
	Voted     bool   `json:"voted"`
}

type WalletResponse struct {
	ID              string             `json:"wallet_id"`
	Owner           string             `json:"owner"`
	CustodyAccount  string             `json:"custody_account"`
	Guardians       []GuardianResponse `json:"guardians"`
	Threshold       int                `json:"recovery_threshold"`
	ThresholdPct    int                `json:"threshold_pct"`
	Votes           int                `json:"recovery_votes"`
	RecoveryAddress *string            `json:"recovery_address,omitempty"`
	Status          WalletStatus       `json:"status"`
	RecoveredAt     *time.Time         `json:"recovered_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func ToWalletResponse(w *Wallet) *WalletResponse {
	guardians := make([]GuardianResponse, 0, len(w.GuardianOrder))
	for _, g := range w.GuardianOrder {
		guardians = append(guardians, GuardianResponse{Principal: g.String(), Voted: w.Guardians[g]})
	}
	resp := &WalletResponse{
		ID:             w.ID.String(),
		Owner:          w.Owner.String(),
		CustodyAccount: domain.CustodyAccount(w.ID).String(),
		Guardians:      guardians,
		Threshold:      w.Threshold,
		ThresholdPct:   w.ThresholdPct,
		Votes:          w.Votes,
		Status:         w.Status(),
		RecoveredAt:    w.RecoveredAt,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
	if w.RecoveryAddress != nil {
		addr := w.RecoveryAddress.String()
		resp.RecoveryAddress = &addr
	}
	return resp
}

type BalanceResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  uint64 `json:"balance"`
}

// TransferResult is returned by deposit and transfer_to.
type TransferResult struct {
	WalletID domain.WalletID
	From     domain.Principal
	To       domain.Principal
	Amount   domain.Amount
	// Balance is the wallet balance after the movement.
	Balance domain.Amount
}

type TransferResponse struct {
	WalletID string `json:"wallet_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   uint64 `json:"amount"`
	Balance  uint64 `json:"balance"`
}

func ToTransferResponse(r *TransferResult) *TransferResponse {
	return &TransferResponse{
		WalletID: r.WalletID.String(),
		From:     r.From.String(),
		To:       r.To.String(),
		Amount:   r.Amount.Uint64(),
		Balance:  r.Balance.Uint64(),
	}
}

// RecoveryResult is returned by recover_to.
type RecoveryResult struct {
	WalletID domain.WalletID
	Outcome  VoteOutcome
	// Swept is the amount moved to the recovery address; zero unless this
	// vote crossed the threshold.
	Swept  domain.Amount
	Status WalletStatus
}

type RecoveryResponse struct {
	WalletID        string       `json:"wallet_id"`
	Votes           int          `json:"recovery_votes"`
	Threshold       int          `json:"recovery_threshold"`
	RecoveryAddress string       `json:"recovery_address"`
	Swept           bool         `json:"swept"`
	SweptAmount     uint64       `json:"swept_amount"`
	Status          WalletStatus `json:"status"`
}

func ToRecoveryResponse(r *RecoveryResult) *RecoveryResponse {
	return &RecoveryResponse{
		WalletID:        r.WalletID.String(),
		Votes:           r.Outcome.Votes,
		Threshold:       r.Outcome.Threshold,
		RecoveryAddress: r.Outcome.Address.String(),
		Swept:           r.Outcome.ShouldSweep,
		SweptAmount:     r.Swept.Uint64(),
		Status:          r.Status,
	}
}
