package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	TokenFor(principal string) (string, error)
	SetAccessToken(token string)
	GetLastResponseStatus() int
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers authentication and response assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I am authenticated as "([^"]*)"$`, steps.authenticateAs)
	ctx.Step(`^"([^"]*)" is the caller$`, steps.authenticateAs)
	ctx.Step(`^I am not authenticated$`, steps.clearAuthentication)

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the request should fail with "([^"]*)"$`, steps.requestShouldFailWith)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) authenticateAs(_ context.Context, principal string) error {
	token, err := s.tc.TokenFor(principal)
	if err != nil {
		return fmt.Errorf("issue token for %s: %w", principal, err)
	}
	s.tc.SetAccessToken(token)
	return nil
}

func (s *commonSteps) clearAuthentication(context.Context) error {
	s.tc.SetAccessToken("")
	return nil
}

func (s *commonSteps) responseStatusShouldBe(_ context.Context, status int) error {
	if got := s.tc.GetLastResponseStatus(); got != status {
		return fmt.Errorf("expected status %d, got %d", status, got)
	}
	return nil
}

func (s *commonSteps) requestShouldFailWith(_ context.Context, code string) error {
	if status := s.tc.GetLastResponseStatus(); status < 400 {
		return fmt.Errorf("expected an error response, got status %d", status)
	}
	return s.responseFieldShouldBe(context.Background(), "error", code)
}

func (s *commonSteps) responseFieldShouldBe(_ context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s to be %q, got %q", field, want, got)
	}
	return nil
}
