package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"warden/internal/wallet/models"
	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
	txcontext "warden/pkg/platform/tx"
)

// PostgresStore persists wallets in the wallets and wallet_guardians tables.
// Every statement runs on the transaction carried in ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the wallet row and its guardians. Call it inside a
// transaction so both inserts commit together.
func (s *PostgresStore) Create(ctx context.Context, wallet *models.Wallet) error {
	exec := txcontext.Exec(ctx, s.db)

	_, err := exec.ExecContext(ctx, `
		INSERT INTO wallets (id, owner, threshold, threshold_pct, votes, recovery_address, recovered_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(wallet.ID),
		wallet.Owner.String(),
		wallet.Threshold,
		wallet.ThresholdPct,
		wallet.Votes,
		nullPrincipal(wallet.RecoveryAddress),
		wallet.RecoveredAt,
		wallet.CreatedAt,
		wallet.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert wallet: %w", err)
	}

	guardians := make([]string, len(wallet.GuardianOrder))
	voted := make([]bool, len(wallet.GuardianOrder))
	for i, g := range wallet.GuardianOrder {
		guardians[i] = g.String()
		voted[i] = wallet.Guardians[g]
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO wallet_guardians (wallet_id, guardian, position, voted)
		SELECT $1, g.guardian, g.position::int, g.voted
		FROM unnest($2::text[], $3::boolean[]) WITH ORDINALITY AS g(guardian, voted, position)
	`, uuid.UUID(wallet.ID), pq.Array(guardians), pq.Array(voted))
	if err != nil {
		return fmt.Errorf("insert wallet guardians: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.WalletID) (*models.Wallet, error) {
	return s.find(ctx, id, false)
}

// FindByIDForUpdate locks the wallet row until the surrounding transaction
// ends, serializing operations on the same wallet.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, id domain.WalletID) (*models.Wallet, error) {
	return s.find(ctx, id, true)
}

func (s *PostgresStore) find(ctx context.Context, id domain.WalletID, forUpdate bool) (*models.Wallet, error) {
	exec := txcontext.Exec(ctx, s.db)

	query := `
		SELECT owner, threshold, threshold_pct, votes, recovery_address, recovered_at, created_at, updated_at
		FROM wallets
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	wallet := &models.Wallet{ID: id}
	var (
		owner       string
		recoveryTo  sql.NullString
		recoveredAt sql.NullTime
	)
	err := exec.QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&owner,
		&wallet.Threshold,
		&wallet.ThresholdPct,
		&wallet.Votes,
		&recoveryTo,
		&recoveredAt,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find wallet: %w", err)
	}
	wallet.Owner = domain.Principal(owner)
	if recoveryTo.Valid {
		addr := domain.Principal(recoveryTo.String)
		wallet.RecoveryAddress = &addr
	}
	if recoveredAt.Valid {
		at := recoveredAt.Time
		wallet.RecoveredAt = &at
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT guardian, voted
		FROM wallet_guardians
		WHERE wallet_id = $1
		ORDER BY position
	`, uuid.UUID(id))
	if err != nil {
		return nil, fmt.Errorf("find wallet guardians: %w", err)
	}
	defer rows.Close()

	wallet.Guardians = make(map[domain.Principal]bool)
	for rows.Next() {
		var (
			guardian string
			voted    bool
		)
		if err := rows.Scan(&guardian, &voted); err != nil {
			return nil, fmt.Errorf("scan wallet guardian: %w", err)
		}
		p := domain.Principal(guardian)
		wallet.Guardians[p] = voted
		wallet.GuardianOrder = append(wallet.GuardianOrder, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet guardians: %w", err)
	}
	return wallet, nil
}

// Save writes the recovery tally. Owner, guardians and threshold are
// immutable and never updated; guardian flags only ever go from false to
// true.
func (s *PostgresStore) Save(ctx context.Context, wallet *models.Wallet) error {
	exec := txcontext.Exec(ctx, s.db)

	res, err := exec.ExecContext(ctx, `
		UPDATE wallets
		SET votes = $2, recovery_address = $3, recovered_at = $4, updated_at = $5
		WHERE id = $1
	`,
		uuid.UUID(wallet.ID),
		wallet.Votes,
		nullPrincipal(wallet.RecoveryAddress),
		wallet.RecoveredAt,
		wallet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}

	voted := wallet.VotedGuardians()
	if len(voted) == 0 {
		return nil
	}
	names := make([]string, len(voted))
	for i, g := range voted {
		names[i] = g.String()
	}
	_, err = exec.ExecContext(ctx, `
		UPDATE wallet_guardians
		SET voted = TRUE
		WHERE wallet_id = $1 AND guardian = ANY($2::text[]) AND NOT voted
	`, uuid.UUID(wallet.ID), pq.Array(names))
	if err != nil {
		return fmt.Errorf("update wallet guardians: %w", err)
	}
	return nil
}

func nullPrincipal(p *domain.Principal) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: p.String(), Valid: true}
}

// isUniqueViolation reports SQLSTATE 23505 from either driver.
func isUniqueViolation(err error) bool {
	var sqlState interface{ SQLState() string }
	if errors.As(err, &sqlState) {
		return sqlState.SQLState() == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
