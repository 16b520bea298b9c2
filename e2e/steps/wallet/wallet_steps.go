package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// observer reads wallet state without affecting the scenario's caller.
const observer = "observer"

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string, headers map[string]string) error
	TokenFor(principal string) (string, error)
	GetLastResponseStatus() int
	GetResponseField(field string) (any, error)
	WalletID() string
	SetWalletID(id string)
}

// RegisterSteps registers wallet operation and state assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &walletSteps{tc: tc}

	ctx.Step(`^I initialize a wallet with guardians "([^"]*)"$`, steps.initWallet)
	ctx.Step(`^I initialize a wallet with guardians "([^"]*)" and threshold (\d+) percent$`, steps.initWalletWithThreshold)
	ctx.Step(`^I deposit (\d+)$`, steps.deposit)
	ctx.Step(`^I transfer (\d+) to "([^"]*)"$`, steps.transfer)
	ctx.Step(`^I vote to recover the wallet to "([^"]*)"$`, steps.recover)

	ctx.Step(`^the recovery threshold should be (\d+)$`, steps.thresholdShouldBe)
	ctx.Step(`^the wallet should have (\d+) recovery votes?$`, steps.votesShouldBe)
	ctx.Step(`^the wallet balance should be (\d+)$`, steps.balanceShouldBe)
	ctx.Step(`^the wallet status should be "([^"]*)"$`, steps.statusShouldBe)
	ctx.Step(`^the wallet recovery address should be "([^"]*)"$`, steps.recoveryAddressShouldBe)
}

type walletSteps struct {
	tc TestContext
}

func (s *walletSteps) initWallet(ctx context.Context, guardians string) error {
	return s.init(map[string]any{"guardians": splitList(guardians)})
}

func (s *walletSteps) initWalletWithThreshold(ctx context.Context, guardians string, pct int) error {
	return s.init(map[string]any{"guardians": splitList(guardians), "threshold_pct": pct})
}

func (s *walletSteps) init(body map[string]any) error {
	if err := s.tc.POST("/wallets", body); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return nil
	}
	id, err := s.tc.GetResponseField("wallet_id")
	if err != nil {
		return err
	}
	s.tc.SetWalletID(fmt.Sprint(id))
	return nil
}

func (s *walletSteps) deposit(_ context.Context, amount int) error {
	return s.tc.POST(s.path("/deposit"), map[string]any{"amount": amount})
}

func (s *walletSteps) transfer(_ context.Context, amount int, to string) error {
	return s.tc.POST(s.path("/transfer"), map[string]any{"to": to, "amount": amount})
}

func (s *walletSteps) recover(_ context.Context, address string) error {
	return s.tc.POST(s.path("/recover"), map[string]any{"address": address})
}

func (s *walletSteps) thresholdShouldBe(_ context.Context, want int) error {
	return s.walletFieldShouldBe("", "recovery_threshold", fmt.Sprint(want))
}

func (s *walletSteps) votesShouldBe(_ context.Context, want int) error {
	return s.walletFieldShouldBe("", "recovery_votes", fmt.Sprint(want))
}

func (s *walletSteps) balanceShouldBe(_ context.Context, want int) error {
	return s.walletFieldShouldBe("/balance", "balance", fmt.Sprint(want))
}

func (s *walletSteps) statusShouldBe(_ context.Context, want string) error {
	return s.walletFieldShouldBe("", "status", want)
}

func (s *walletSteps) recoveryAddressShouldBe(_ context.Context, want string) error {
	return s.walletFieldShouldBe("", "recovery_address", want)
}

// walletFieldShouldBe reads the wallet (or one of its sub-resources) as an
// observer and compares one field.
func (s *walletSteps) walletFieldShouldBe(suffix, field, want string) error {
	token, err := s.tc.TokenFor(observer)
	if err != nil {
		return err
	}
	if err := s.tc.GET(s.path(suffix), map[string]string{"Authorization": "Bearer " + token}); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("read wallet: unexpected status %d", status)
	}
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s to be %q, got %q", field, want, got)
	}
	return nil
}

func (s *walletSteps) path(suffix string) string {
	return "/wallets/" + s.tc.WalletID() + suffix
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
