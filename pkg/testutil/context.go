package testutil

import (
	"net/http"

	"warden/pkg/domain"
	"warden/pkg/requestcontext"
)

// WithPrincipal authenticates the request as principal, the way the auth
// middleware would after validating a bearer token.
func WithPrincipal(req *http.Request, principal string) *http.Request {
	p, err := domain.ParsePrincipal(principal)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
}

// WithRequestID attaches a request id to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
