package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext drives a running pollbook server over HTTP and remembers the
// last response plus the named identities and surveys a scenario created.
type TestContext struct {
	BaseURL    string
	AdminToken string
	HTTPClient *http.Client

	lastStatus int
	lastBody   []byte
	lastHeader http.Header

	tokens  map[string]string
	wallets map[string]string
	surveys map[string]string
	runID   string
}

// NewTestContext reads nothing from the environment; the suite runner does.
func NewTestContext(baseURL, adminToken string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AdminToken: adminToken,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state. Wallet names get a run suffix so scenarios
// never collide with data left by earlier runs against the same server.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeader = nil
	tc.tokens = map[string]string{}
	tc.wallets = map[string]string{}
	tc.surveys = map[string]string{}
	tc.runID = fmt.Sprintf("%d", time.Now().UnixNano())
}

// Wallet maps a scenario alias such as "alice" to a unique address.
func (tc *TestContext) Wallet(alias string) string {
	if w, ok := tc.wallets[alias]; ok {
		return w
	}
	w := "G" + strings.ToUpper(alias) + tc.runID
	tc.wallets[alias] = w
	return w
}

func (tc *TestContext) Token(alias string) string { return tc.tokens[alias] }

func (tc *TestContext) SetToken(alias, token string) { tc.tokens[alias] = token }

func (tc *TestContext) SurveyID(alias string) (string, bool) {
	id, ok := tc.surveys[alias]
	return id, ok
}

func (tc *TestContext) SetSurveyID(alias, id string) { tc.surveys[alias] = id }

func (tc *TestContext) GetLastResponseStatus() int { return tc.lastStatus }

func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.lastHeader == nil {
		return ""
	}
	return tc.lastHeader.Get(name)
}

// GetResponseField returns a top level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("decode response: %w (body=%s)", err, tc.lastBody)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("field %q missing from response %s", field, tc.lastBody)
	}
	return v, nil
}

func (tc *TestContext) POST(ctx context.Context, path string, body any, headers map[string]string) error {
	return tc.do(ctx, http.MethodPost, path, body, headers)
}

func (tc *TestContext) GET(ctx context.Context, path string, headers map[string]string) error {
	return tc.do(ctx, http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(ctx context.Context, method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

// AdminHeaders carries the admin token, plus a bearer token when alias has one.
func (tc *TestContext) AdminHeaders(alias string) map[string]string {
	headers := map[string]string{"X-Admin-Token": tc.AdminToken}
	if token := tc.tokens[alias]; alias != "" && token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return headers
}

// BearerHeaders returns the Authorization header for alias, or none.
func (tc *TestContext) BearerHeaders(alias string) map[string]string {
	token := tc.tokens[alias]
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}
