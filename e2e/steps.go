package e2e

import (
	"github.com/cucumber/godog"

	"warden/e2e/steps/common"
	"warden/e2e/steps/ledger"
	"warden/e2e/steps/wallet"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Authentication and generic response assertions
	common.RegisterSteps(ctx, tc)

	// Operator ledger funding
	ledger.RegisterSteps(ctx, tc)

	// Wallet operations and recovery
	wallet.RegisterSteps(ctx, tc)
}
