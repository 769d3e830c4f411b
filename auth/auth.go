// Package auth provides bearer-token authentication for the record filter
// Flight service.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

var (
	// ErrInvalidAuthHeader is returned when the authorization header is malformed.
	ErrInvalidAuthHeader = errors.New("authorization header must use Bearer scheme")

	// ErrTokenIsEmpty is returned when the bearer token is empty or missing.
	ErrTokenIsEmpty = errors.New("authorization token is empty")

	// ErrUnauthenticated is returned when authentication fails.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Authenticator validates bearer tokens and returns user identity.
// Implementations MUST be goroutine-safe.
type Authenticator interface {
	// Authenticate validates a bearer token and returns user identity.
	// Context allows timeout for auth backend calls.
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

// MethodAuthorizer is an optional interface an Authenticator can implement
// to restrict which Flight methods an identity may call.
//
// It is called after a successful Authenticate with the identity already in
// the context. method is the full gRPC method name, for example
// "/arrow.flight.protocol.FlightService/DoExchange". A non-nil error is
// returned to the client as PermissionDenied.
type MethodAuthorizer interface {
	AuthorizeMethod(ctx context.Context, method string) (context.Context, error)
}

type noAuthenticator struct{}

// NoAuth returns an Authenticator that allows all requests as "anonymous".
// Useful for development/testing. DO NOT use in production.
func NoAuth() Authenticator {
	return noAuthenticator{}
}

func (noAuthenticator) Authenticate(context.Context, string) (string, error) {
	return "anonymous", nil
}

// bearerAuthenticator wraps a user-provided validation function.
type bearerAuthenticator struct {
	validateFunc func(token string) (identity string, err error)
}

// BearerAuth creates an Authenticator from a validation function.
//
// Example:
//
//	a := auth.BearerAuth(func(token string) (string, error) {
//	    user, err := lookupToken(token)
//	    if err != nil {
//	        return "", auth.ErrUnauthenticated
//	    }
//	    return user.ID, nil
//	})
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return &bearerAuthenticator{validateFunc: validateFunc}
}

func (b *bearerAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	return b.validateFunc(token)
}

// staticTokens authenticates against a fixed token to identity table.
type staticTokens struct {
	tokens map[string]string
}

// StaticTokens returns an Authenticator backed by a fixed table mapping
// tokens to identities. The table is copied.
func StaticTokens(tokens map[string]string) Authenticator {
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &staticTokens{tokens: cp}
}

func (s *staticTokens) Authenticate(_ context.Context, token string) (string, error) {
	for known, identity := range s.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return identity, nil
		}
	}
	return "", ErrUnauthenticated
}
