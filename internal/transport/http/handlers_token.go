package httptransport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	id "pollbook/pkg/domain"
	dErrors "pollbook/pkg/domain-errors"
	"pollbook/pkg/platform/httputil"
	"pollbook/pkg/requestcontext"
)

const maxTokenTTL = 24 * time.Hour

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	GenerateIdentityToken(addr id.Address, expiresIn time.Duration) (string, error)
}

// TokenHandler lets an operator mint identity tokens for addresses whose
// control was proven out of band.
type TokenHandler struct {
	issuer     TokenIssuer
	defaultTTL time.Duration
	logger     *slog.Logger
}

func NewTokenHandler(issuer TokenIssuer, defaultTTL time.Duration, logger *slog.Logger) *TokenHandler {
	if defaultTTL <= 0 || defaultTTL > maxTokenTTL {
		defaultTTL = time.Hour
	}
	return &TokenHandler{issuer: issuer, defaultTTL: defaultTTL, logger: logger}
}

type IssueTokenRequest struct {
	Address    string `json:"address"`
	TTLSeconds int64  `json:"ttl_seconds"`

	address id.Address
	ttl     time.Duration
}

func (r *IssueTokenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	addr, err := id.ParseAddress(strings.TrimSpace(r.Address))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid address")
	}
	r.address = addr
	if r.TTLSeconds < 0 || r.TTLSeconds > int64(maxTokenTTL/time.Second) {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds must be between 0 and 86400")
	}
	r.ttl = time.Duration(r.TTLSeconds) * time.Second
	return nil
}

type IssueTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// HandleIssue handles POST /admin/tokens.
func (h *TokenHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueTokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	ttl := req.ttl
	if ttl == 0 {
		ttl = h.defaultTTL
	}

	token, err := h.issuer.GenerateIdentityToken(req.address, ttl)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue identity token", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token"))
		return
	}

	h.logger.InfoContext(ctx, "identity token issued",
		"request_id", requestID,
		"address", req.address,
		"ttl_seconds", int64(ttl.Seconds()),
		"log_type", "audit",
	)
	httputil.WriteJSON(w, http.StatusOK, IssueTokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
	})
}
