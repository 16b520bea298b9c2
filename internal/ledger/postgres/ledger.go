// Package postgres keeps ledger balances in the ledger_accounts table. Every
// statement joins the transaction carried in ctx, so a wallet operation and
// the funds it moves commit together.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
	txcontext "warden/pkg/platform/tx"
)

// SQLSTATE numeric_value_out_of_range, raised when a BIGINT balance would
// overflow.
const sqlStateOutOfRange = "22003"

type Ledger struct {
	db *sql.DB
}

func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Transfer debits from with a conditional update, so a concurrent debit can
// never take the balance below zero, then credits to.
func (l *Ledger) Transfer(ctx context.Context, from, to domain.Principal, amount domain.Amount) error {
	if amount == 0 {
		return nil
	}
	return l.inTx(ctx, func(ctx context.Context, exec txcontext.Executor) error {
		res, err := exec.ExecContext(ctx, `
			UPDATE ledger_accounts
			SET balance = balance - $2, updated_at = now()
			WHERE account = $1 AND balance >= $2
		`, from.String(), amount.Int64())
		if err != nil {
			return fmt.Errorf("debit %s: %w", from, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("debit %s: %w", from, err)
		}
		if n == 0 {
			return sentinel.ErrInsufficientFunds
		}
		if _, err := credit(ctx, exec, to, amount); err != nil {
			return err
		}
		return nil
	})
}

func (l *Ledger) BalanceOf(ctx context.Context, account domain.Principal) (domain.Amount, error) {
	var balance int64
	err := txcontext.Exec(ctx, l.db).QueryRowContext(ctx, `
		SELECT balance FROM ledger_accounts WHERE account = $1
	`, account.String()).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: balance of %s: %w", sentinel.ErrUnavailable, account, err)
	}
	return domain.Amount(balance), nil
}

func (l *Ledger) Credit(ctx context.Context, account domain.Principal, amount domain.Amount) (domain.Amount, error) {
	return credit(ctx, txcontext.Exec(ctx, l.db), account, amount)
}

func credit(ctx context.Context, exec txcontext.Executor, account domain.Principal, amount domain.Amount) (domain.Amount, error) {
	var balance int64
	err := exec.QueryRowContext(ctx, `
		INSERT INTO ledger_accounts (account, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account) DO UPDATE
		SET balance = ledger_accounts.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
		RETURNING balance
	`, account.String(), amount.Int64()).Scan(&balance)
	if err != nil {
		if sqlState(err) == sqlStateOutOfRange {
			return 0, fmt.Errorf("credit %s: %w", account, sentinel.ErrInvalidState)
		}
		return 0, fmt.Errorf("credit %s: %w", account, err)
	}
	return domain.Amount(balance), nil
}

// inTx joins the context transaction or opens one for the debit and credit.
func (l *Ledger) inTx(ctx context.Context, fn func(ctx context.Context, exec txcontext.Executor) error) error {
	if tx, ok := txcontext.From(ctx); ok {
		return fn(ctx, tx)
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin ledger transaction: %w", sentinel.ErrUnavailable, err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

func sqlState(err error) string {
	var e interface{ SQLState() string }
	if errors.As(err, &e) {
		return e.SQLState()
	}
	return ""
}
