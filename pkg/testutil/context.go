package testutil

import (
	"net/http"

	id "pollbook/pkg/domain"
	"pollbook/pkg/requestcontext"
)

// WithIdentity marks the request as authenticated for addr, the way the bearer
// middleware would after validating a token.
func WithIdentity(req *http.Request, addr string) *http.Request {
	parsed, err := id.ParseAddress(addr)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithIdentity(req.Context(), parsed))
}

// WithRequestID tags the request the way the request-id middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
