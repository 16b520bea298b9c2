package domain

import (
	"strings"

	dErrors "warden/pkg/domain-errors"
)

// Principal is an identity that can invoke wallet operations and hold a ledger
// balance (an account address, a key hash, a service account name).
//
// Invariant: 1–128 characters from [A-Za-z0-9._:@-]. Construct via
// ParsePrincipal at trust boundaries; direct casting bypasses validation.
type Principal string

const maxPrincipalLen = 128

// custodyPrefix namespaces the ledger accounts that hold wallet custody so they
// cannot collide with externally issued principals.
const custodyPrefix = "wallet:"

// ParsePrincipal trims and validates external input.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	if len(s) > maxPrincipalLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal must be 128 characters or less")
	}
	for i := 0; i < len(s); i++ {
		if !principalByte(s[i]) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "principal contains invalid characters")
		}
	}
	return Principal(s), nil
}

func principalByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.', c == '_', c == ':', c == '@', c == '-':
		return true
	}
	return false
}

func (p Principal) String() string { return string(p) }

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool { return p == "" }

// IsCustody reports whether p names a wallet custody account.
func (p Principal) IsCustody() bool { return strings.HasPrefix(string(p), custodyPrefix) }

// CustodyAccount is the ledger account holding the funds of a wallet.
func CustodyAccount(id WalletID) Principal {
	return Principal(custodyPrefix + id.String())
}

// ParsePrincipalSet parses each value and collapses duplicates, keeping the
// first occurrence order. Any invalid entry rejects the whole set.
func ParsePrincipalSet(values []string) ([]Principal, error) {
	seen := make(map[Principal]struct{}, len(values))
	result := make([]Principal, 0, len(values))
	for _, v := range values {
		p, err := ParsePrincipal(v)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		result = append(result, p)
	}
	return result, nil
}
