//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs features/ against the server at POLLBOOK_E2E_URL, using
// POLLBOOK_E2E_ADMIN_TOKEN for the /admin routes.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("POLLBOOK_E2E_URL")
	if baseURL == "" {
		t.Skip("POLLBOOK_E2E_URL is not set")
	}
	tc := NewTestContext(baseURL, os.Getenv("POLLBOOK_E2E_ADMIN_TOKEN"))

	suite := godog.TestSuite{
		Name: "pollbook",
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}
