package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAdminToken(t *testing.T) {
	hash, err := HashToken("s3cret-admin")
	require.NoError(t, err)
	assert.NotContains(t, string(hash), "s3cret-admin")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RequireAdminToken(hash, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for name, tc := range map[string]struct {
		token  string
		status int
	}{
		"matching token": {"s3cret-admin", http.StatusOK},
		"wrong token":    {"guess", http.StatusUnauthorized},
		"missing token":  {"", http.StatusUnauthorized},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/initialize", nil)
			if tc.token != "" {
				req.Header.Set(HeaderAdminToken, tc.token)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tc.status, rr.Code)
		})
	}
}
