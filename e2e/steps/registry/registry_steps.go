package registry

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the suite context these steps need.
type TestContext interface {
	POST(ctx context.Context, path string, body any, headers map[string]string) error
	GET(ctx context.Context, path string, headers map[string]string) error
	Wallet(alias string) string
	BearerHeaders(alias string) map[string]string
}

// RegisterSteps registers candidate and user registry steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrySteps{tc: tc}

	ctx.Step(`^"([^"]*)" registers as candidate "([^"]*)" with RFC "([^"]*)"$`, steps.registerCandidate)
	ctx.Step(`^"([^"]*)" registers as user "([^"]*)" "([^"]*)"$`, steps.registerUser)
	ctx.Step(`^I look up candidate "([^"]*)"$`, steps.lookupCandidate)
	ctx.Step(`^I look up user "([^"]*)"$`, steps.lookupUser)
}

type registrySteps struct {
	tc TestContext
}

func (s *registrySteps) registerCandidate(ctx context.Context, alias, name, rfc string) error {
	return s.tc.POST(ctx, "/candidates", map[string]any{"name": name, "rfc": rfc}, s.tc.BearerHeaders(alias))
}

func (s *registrySteps) registerUser(ctx context.Context, alias, firstName, lastName string) error {
	body := map[string]any{
		"first_name":         firstName,
		"paternal_last_name": lastName,
		"email":              fmt.Sprintf("%s@example.com", alias),
	}
	return s.tc.POST(ctx, "/users", body, s.tc.BearerHeaders(alias))
}

func (s *registrySteps) lookupCandidate(ctx context.Context, alias string) error {
	return s.tc.GET(ctx, "/candidates/"+s.tc.Wallet(alias), nil)
}

func (s *registrySteps) lookupUser(ctx context.Context, alias string) error {
	return s.tc.GET(ctx, "/users/"+s.tc.Wallet(alias), nil)
}
