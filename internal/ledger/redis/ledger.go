// Package redis keeps ledger balances in one Redis hash. Transfers run as a
// Lua script so the balance check and both movements are atomic.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

// DefaultKey is the hash holding every account balance.
const DefaultKey = "warden:ledger:balances"

// transferScript debits ARGV[1] by ARGV[3] and credits ARGV[2]. HINCRBY keeps
// the arithmetic in 64-bit integers; the script undoes the debit before
// returning a failure, and Redis runs it without interleaving.
//
// Returns 1 on success, 0 for insufficient funds, -1 when the credit would
// overflow.
var transferScript = redis.NewScript(`
local remaining = redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[4])
if remaining < 0 then
	redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[3])
	return 0
end
local ok = redis.pcall('HINCRBY', KEYS[1], ARGV[2], ARGV[3])
if type(ok) == 'table' and ok.err then
	redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[3])
	return -1
end
return 1
`)

type Ledger struct {
	client *redis.Client
	key    string
}

type Option func(*Ledger)

// WithKey overrides the balances hash key.
func WithKey(key string) Option {
	return func(l *Ledger) {
		l.key = key
	}
}

func New(client *redis.Client, opts ...Option) *Ledger {
	l := &Ledger{client: client, key: DefaultKey}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Transfer(ctx context.Context, from, to domain.Principal, amount domain.Amount) error {
	if amount == 0 {
		return nil
	}
	n := strconv.FormatInt(amount.Int64(), 10)
	res, err := transferScript.Run(ctx, l.client, []string{l.key}, from.String(), to.String(), n, "-"+n).Int()
	if err != nil {
		return fmt.Errorf("%w: transfer: %w", sentinel.ErrUnavailable, err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return sentinel.ErrInsufficientFunds
	default:
		return fmt.Errorf("credit %s: %w", to, sentinel.ErrInvalidState)
	}
}

func (l *Ledger) BalanceOf(ctx context.Context, account domain.Principal) (domain.Amount, error) {
	balance, err := l.client.HGet(ctx, l.key, account.String()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: balance of %s: %w", sentinel.ErrUnavailable, account, err)
	}
	return domain.Amount(balance), nil
}

func (l *Ledger) Credit(ctx context.Context, account domain.Principal, amount domain.Amount) (domain.Amount, error) {
	balance, err := l.client.HIncrBy(ctx, l.key, account.String(), amount.Int64()).Result()
	if err != nil {
		if strings.Contains(err.Error(), "overflow") {
			return 0, fmt.Errorf("credit %s: %w", account, sentinel.ErrInvalidState)
		}
		return 0, fmt.Errorf("%w: credit %s: %w", sentinel.ErrUnavailable, account, err)
	}
	return domain.Amount(balance), nil
}

// Health pings the backing Redis.
func (l *Ledger) Health(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
