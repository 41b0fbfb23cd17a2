package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenExpiration is the access token lifetime in seconds.
const DefaultTokenExpiration = 3600

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	signingMethod   jwt.SigningMethod
	tokenExpiration time.Duration
	issuer          string
	audience        jwt.ClaimStrings
	store           PrincipalStore
	logger          Logger
	now             func() time.Time
	optErr          error
}

// TokenServiceOption configures a TokenServiceImpl.
type TokenServiceOption func(*TokenServiceImpl)

// WithIssuer sets the iss claim issued and required on validation.
func WithIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.issuer = issuer
	}
}

// WithAudience sets the aud claim. Validation requires the first entry.
func WithAudience(audience ...string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.audience = nil
		for _, a := range audience {
			if a != "" {
				ts.audience = append(ts.audience, a)
			}
		}
	}
}

// WithSigningMethod selects an HMAC signing method by name. An empty name
// keeps HS256; any other non HMAC name makes NewTokenService fail.
func WithSigningMethod(name string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if name == "" {
			return
		}
		m, ok := jwt.GetSigningMethod(name).(*jwt.SigningMethodHMAC)
		if !ok {
			ts.optErr = decorate(ErrUnsupportedSigningMethod, map[string]any{"signing_method": name})
			return
		}
		ts.signingMethod = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTokenLogger sets the logger.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.logger = logger
	}
}

// NewTokenService creates a new TokenService instance. ttlSeconds <= 0
// uses DefaultTokenExpiration.
func NewTokenService(signingKey []byte, ttlSeconds int, store PrincipalStore, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultTokenExpiration
	}

	ts := &TokenServiceImpl{
		signingKey:      signingKey,
		signingMethod:   jwt.SigningMethodHS256,
		tokenExpiration: time.Duration(ttlSeconds) * time.Second,
		store:           store,
		now:             time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}
	ts.logger = resolveLogger(ts.logger)

	if ts.optErr != nil {
		ts.logger.Error("token service misconfigured", "error", ts.optErr)
		return nil, ts.optErr
	}

	return ts, nil
}

// NewTokenServiceFromConfig builds a token service from Config.
func NewTokenServiceFromConfig(cfg Config, store PrincipalStore, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	base := []TokenServiceOption{
		WithIssuer(cfg.GetIssuer()),
		WithAudience(cfg.GetAudience()...),
		WithSigningMethod(cfg.GetSigningMethod()),
	}
	return NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetTokenExpiration(), store, append(base, opts...)...)
}

// Issue signs an access token for principal.
func (ts *TokenServiceImpl) Issue(principal *Principal) (*IssuedToken, error) {
	if principal == nil {
		return nil, Internal(errors.New("principal must not be nil"), "issue token")
	}

	now := ts.now()
	expiresAt := now.Add(ts.tokenExpiration)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   principal.Subject(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Email:    principal.Email,
		UserRole: string(principal.Role),
	}

	signed, err := ts.SignClaims(claims)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(ts.tokenExpiration / time.Second),
		ExpiresAt:   expiresAt,
	}, nil
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", Internal(errors.New("claims must not be nil"), "sign claims")
	}

	token := jwt.NewWithClaims(ts.signingMethod, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", Internal(err, "failed to sign JWT")
	}

	return signedString, nil
}

// Decode verifies the signature and claims of tokenString. Expiry is
// reported as ErrTokenExpired even when other claims are also wrong.
func (ts *TokenServiceImpl) Decode(tokenString string) (*JWTClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{ts.signingMethod.Alg()}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Warn("token service rejected unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, decorate(withSource(ErrTokenExpired, err), map[string]any{"reason": "expired"})
		}
		return nil, decorate(withSource(ErrTokenInvalid, err), map[string]any{"reason": invalidReason(err)})
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, withReason(ErrTokenInvalid, "undecodable_claims")
	}

	return claims, nil
}

// Validate decodes tokenString and re-reads the principal from the store.
// The returned identity reflects the store, not the token payload.
func (ts *TokenServiceImpl) Validate(ctx context.Context, tokenString string) (*AuthenticatedPrincipal, error) {
	claims, err := ts.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	id, err := claims.PrincipalID()
	if err != nil {
		return nil, decorate(withSource(ErrTokenInvalid, err), map[string]any{"reason": "bad_subject"})
	}

	if ts.store == nil {
		return nil, Internal(errors.New("principal store not configured"), "validate token")
	}

	principal, err := ts.store.GetByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			ts.logger.Debug("token subject no longer exists", "principal_id", id)
			return nil, withReason(ErrTokenInvalid, "stale_principal")
		}
		ts.logger.Error("token validation could not load principal", "principal_id", id, "error", err)
		return nil, Internal(err, "load principal")
	}

	if principal == nil || !principal.IsActive {
		ts.logger.Debug("token subject is inactive", "principal_id", id)
		return nil, withReason(ErrTokenInvalid, "inactive_principal")
	}

	return NewAuthenticatedPrincipal(principal), nil
}

// TokenExpiration returns the configured lifetime.
func (ts *TokenServiceImpl) TokenExpiration() time.Duration {
	return ts.tokenExpiration
}

func invalidReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "signature"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "issuer"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "audience"
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "not_yet_valid"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing_claim"
	default:
		return "invalid"
	}
}
