package e2e

import (
	"github.com/cucumber/godog"

	"pollbook/e2e/steps/common"
	"pollbook/e2e/steps/registry"
	"pollbook/e2e/steps/survey"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// identity setup, raw requests and response assertions
	common.RegisterSteps(ctx, tc)

	survey.RegisterSteps(ctx, tc)
	registry.RegisterSteps(ctx, tc)
}
