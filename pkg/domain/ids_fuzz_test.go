package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParsePrincipal checks that parsing never panics and that accepted
// principals are stable under a second parse.
func FuzzParsePrincipal(f *testing.F) {
	f.Add("")
	f.Add("alice")
	f.Add("wallet:550e8400-e29b-41d4-a716-446655440000")
	f.Add("'; DROP TABLE wallets;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		p, err := ParsePrincipal(input)
		if err != nil {
			return
		}
		again, err := ParsePrincipal(p.String())
		if err != nil {
			t.Errorf("accepted principal failed round-trip: %v", err)
		}
		if again != p {
			t.Error("round-trip changed principal value")
		}
		if !utf8.ValidString(p.String()) {
			t.Error("non-UTF8 principal was accepted")
		}
	})
}

// FuzzParseWalletID checks that accepted wallet ids round-trip.
func FuzzParseWalletID(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseWalletID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Error("nil wallet id was accepted")
		}
		roundTrip, err := ParseWalletID(id.String())
		if err != nil || roundTrip != id {
			t.Errorf("wallet id failed round-trip: %v", err)
		}
	})
}
