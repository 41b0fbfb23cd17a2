package auth

import (
	"context"
)

// Logger is the structured logger used across the module. Args are
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider hands out named loggers.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// PrincipalStore is the read only lookup the authentication core needs.
type PrincipalStore interface {
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	GetByID(ctx context.Context, id int64) (*Principal, error)
}

// ProfileStore extends PrincipalStore with the manager aware lookup used
// by the profile endpoint.
type ProfileStore interface {
	PrincipalStore
	GetByIDWithManager(ctx context.Context, id int64) (*Principal, error)
}

// CredentialVerifier checks an email and password pair.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*Principal, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenService issues and validates access tokens.
type TokenService interface {
	Issue(principal *Principal) (*IssuedToken, error)
	Decode(tokenString string) (*JWTClaims, error)
	Validate(ctx context.Context, tokenString string) (*AuthenticatedPrincipal, error)
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Authenticate(ctx context.Context, tokenString string) (*AuthenticatedPrincipal, error)
	Profile(ctx context.Context, id int64) (*Principal, error)
	Logout(ctx context.Context, principal *AuthenticatedPrincipal) error
}
