package domain

import (
	"math"

	dErrors "warden/pkg/domain-errors"
)

// Amount is a quantity of the ledger's fungible unit, in minor units.
type Amount uint64

// MaxAmount is the largest amount any ledger backend can represent. Redis and
// Postgres store balances as signed 64-bit integers.
const MaxAmount Amount = math.MaxInt64

// ParseAmount validates an amount received at a trust boundary.
func ParseAmount(v uint64) (Amount, error) {
	if v > uint64(MaxAmount) {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "amount exceeds the maximum supported value")
	}
	return Amount(v), nil
}

func (a Amount) Uint64() uint64 { return uint64(a) }

func (a Amount) Int64() int64 { return int64(a) }
