package common

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the suite context these steps need.
type TestContext interface {
	POST(ctx context.Context, path string, body any, headers map[string]string) error
	GET(ctx context.Context, path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Wallet(alias string) string
	SetToken(alias, token string)
	Token(alias string) string
	AdminHeaders(alias string) map[string]string
}

// RegisterSteps registers identity setup and generic response assertions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^"([^"]*)" holds an identity token$`, steps.issueToken)
	ctx.Step(`^the ledger has been initialized by "([^"]*)"$`, steps.initializeLedger)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response error should be "([^"]*)"$`, steps.errorShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) issueToken(ctx context.Context, alias string) error {
	body := map[string]any{"address": s.tc.Wallet(alias)}
	if err := s.tc.POST(ctx, "/admin/tokens", body, s.tc.AdminHeaders("")); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != http.StatusOK {
		return fmt.Errorf("issue token for %s: status %d body %s", alias, status, s.tc.GetLastResponseBody())
	}
	token, err := s.tc.GetResponseField("access_token")
	if err != nil {
		return err
	}
	s.tc.SetToken(alias, fmt.Sprint(token))
	return nil
}

// initializeLedger accepts a conflict because a shared server may already be initialized.
func (s *commonSteps) initializeLedger(ctx context.Context, alias string) error {
	body := map[string]any{"admin": s.tc.Wallet(alias)}
	if err := s.tc.POST(ctx, "/admin/initialize", body, s.tc.AdminHeaders(alias)); err != nil {
		return err
	}
	switch status := s.tc.GetLastResponseStatus(); status {
	case http.StatusOK, http.StatusConflict:
		return nil
	default:
		return fmt.Errorf("initialize: status %d body %s", status, s.tc.GetLastResponseBody())
	}
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(ctx, path, nil)
}

func (s *commonSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.GetLastResponseStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d (body=%s)", want, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) errorShouldBe(_ context.Context, want string) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("decode error body: %w", err)
	}
	if body.Error != want {
		return fmt.Errorf("expected error %q, got %q", want, body.Error)
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(_ context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s=%q, got %q", field, want, got)
	}
	return nil
}
