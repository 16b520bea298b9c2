package main

import (
	"context"

	"warden/internal/platform/postgres"
	"warden/pkg/domain"
)

// walletPostgresTx runs wallet operations in one database transaction. The
// wallet row lock is taken inside fn by FindByIDForUpdate, so the wallet id
// only scopes the unit of work.
type walletPostgresTx struct {
	runner *postgres.TxRunner
}

func newWalletPostgresTx(runner *postgres.TxRunner) *walletPostgresTx {
	return &walletPostgresTx{runner: runner}
}

func (t *walletPostgresTx) RunInTx(ctx context.Context, _ domain.WalletID, fn func(ctx context.Context) error) error {
	return t.runner.RunInTx(ctx, fn)
}
