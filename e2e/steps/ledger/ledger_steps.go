package ledger

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	AdminPOST(path string, body any) error
	AdminGET(path string) error
	GetLastResponseStatus() int
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers operator ledger steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ledgerSteps{tc: tc}

	ctx.Step(`^"([^"]*)" has been credited (\d+)$`, steps.credit)
	ctx.Step(`^the ledger balance of "([^"]*)" should be (\d+)$`, steps.ledgerBalanceShouldBe)
}

type ledgerSteps struct {
	tc TestContext
}

func (s *ledgerSteps) credit(_ context.Context, account string, amount int) error {
	if err := s.tc.AdminPOST("/admin/ledger/credit", map[string]any{
		"account": account,
		"amount":  amount,
	}); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("credit %s: unexpected status %d", account, status)
	}
	return nil
}

func (s *ledgerSteps) ledgerBalanceShouldBe(_ context.Context, account string, want int) error {
	if err := s.tc.AdminGET("/admin/ledger/accounts/" + url.PathEscape(account)); err != nil {
		return err
	}
	v, err := s.tc.GetResponseField("balance")
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != fmt.Sprint(want) {
		return fmt.Errorf("expected ledger balance of %s to be %d, got %s", account, want, got)
	}
	return nil
}
