package auth

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// ErrorKind is the go-errors category of a failure. Token and credential
// failures extend CategoryAuth, guard denials extend CategoryAuthz, so each
// failure class keeps its own discriminant.
type ErrorKind = goerrors.Category

var (
	KindInternal           = goerrors.CategoryInternal
	KindInvalidCredentials = goerrors.CategoryAuth.Extend("invalid_credentials")
	KindTokenMissing       = goerrors.CategoryAuth.Extend("token_missing")
	KindTokenExpired       = goerrors.CategoryAuth.Extend("token_expired")
	KindTokenInvalid       = goerrors.CategoryAuth.Extend("token_invalid")
	KindNoIdentity         = goerrors.CategoryAuthz.Extend("no_identity")
	KindInsufficientRole   = goerrors.CategoryAuthz.Extend("insufficient_role")
	KindValidation         = goerrors.CategoryValidation
	KindBadInput           = goerrors.CategoryBadInput
	KindNotFound           = goerrors.CategoryNotFound
	KindRateLimited        = goerrors.CategoryRateLimit
)

// kindReasons is the reason reported for errors carrying no reason metadata.
var kindReasons = map[ErrorKind]string{
	KindInternal:           "internal",
	KindInvalidCredentials: "invalid_credentials",
	KindTokenMissing:       "token_missing",
	KindTokenExpired:       "expired",
	KindTokenInvalid:       "token_invalid",
	KindNoIdentity:         "no_identity",
	KindInsufficientRole:   "insufficient_role",
	KindValidation:         "validation",
	KindBadInput:           "bad_input",
	KindNotFound:           "not_found",
	KindRateLimited:        "rate_limited",
}

const (
	TextCodeUnauthorized    = "UNAUTHORIZED"
	TextCodeForbidden       = "FORBIDDEN"
	TextCodeValidation      = "VALIDATION_ERROR"
	TextCodeBadRequest      = "BAD_REQUEST"
	TextCodeNotFound        = "NOT_FOUND"
	TextCodeTooManyRequests = "TOO_MANY_REQUESTS"
	TextCodeInternal        = "INTERNAL_ERROR"
)

func newError(kind ErrorKind, code int, textCode, message string) *goerrors.Error {
	return goerrors.New(message, kind).
		WithCode(code).
		WithTextCode(textCode)
}

var (
	// ErrInvalidCredentials is returned for every failed login, no matter
	// which check failed.
	ErrInvalidCredentials = newError(KindInvalidCredentials, goerrors.CodeUnauthorized,
		goerrors.TextCodeInvalidCredentials, "invalid email or password")

	// ErrTokenMissing is returned when a request carries no bearer token.
	ErrTokenMissing = newError(KindTokenMissing, goerrors.CodeUnauthorized,
		TextCodeUnauthorized, "authentication required")

	// ErrTokenExpired is returned for a well formed token past its expiry.
	ErrTokenExpired = newError(KindTokenExpired, goerrors.CodeUnauthorized,
		goerrors.TextCodeTokenExpired, "token has expired")

	// ErrTokenInvalid covers malformed, forged and stale tokens.
	ErrTokenInvalid = newError(KindTokenInvalid, goerrors.CodeUnauthorized,
		TextCodeUnauthorized, "invalid token")

	// ErrNoIdentity is returned by the guard when a role restricted
	// operation runs without a bound principal.
	ErrNoIdentity = newError(KindNoIdentity, goerrors.CodeForbidden,
		TextCodeForbidden, "access denied")

	// ErrInsufficientRole is returned when the principal role is not entitled.
	ErrInsufficientRole = newError(KindInsufficientRole, goerrors.CodeForbidden,
		TextCodeForbidden, "you do not have permission to perform this operation")

	ErrPrincipalNotFound = newError(KindNotFound, goerrors.CodeNotFound,
		TextCodeNotFound, "salesperson not found")

	ErrRouteNotFound = newError(KindNotFound, goerrors.CodeNotFound,
		TextCodeNotFound, "resource not found")

	ErrValidation = newError(KindValidation, http.StatusUnprocessableEntity,
		TextCodeValidation, "invalid request payload")

	ErrBadInput = newError(KindBadInput, goerrors.CodeBadRequest,
		TextCodeBadRequest, "unable to parse request")

	ErrTooManyRequests = newError(KindRateLimited, goerrors.CodeTooManyRequests,
		TextCodeTooManyRequests, "too many requests")

	ErrInternal = newError(KindInternal, goerrors.CodeInternal,
		TextCodeInternal, "an unexpected error occurred")

	// ErrNoEmptyString is returned when hashing an empty password.
	ErrNoEmptyString = newError(KindBadInput, goerrors.CodeBadRequest,
		goerrors.TextCodeEmptyPassword, "password can't be an empty string")

	// ErrMissingSigningKey is returned when a token service is built without a key.
	ErrMissingSigningKey = goerrors.New("jwt signing key is required", goerrors.CategoryBadInput)

	// ErrUnsupportedSigningMethod is returned for signing methods other than HMAC.
	ErrUnsupportedSigningMethod = goerrors.New("jwt signing method must be HS256, HS384 or HS512", goerrors.CategoryBadInput)
)

// decorate returns a copy of e with md merged into its metadata. The
// package sentinels are never mutated.
func decorate(e *goerrors.Error, md map[string]any) *goerrors.Error {
	return e.Clone().WithMetadata(md)
}

// withReason is decorate for the common reason only case.
func withReason(e *goerrors.Error, reason string) *goerrors.Error {
	return decorate(e, map[string]any{"reason": reason})
}

// withSource returns a copy of e wrapping err.
func withSource(e *goerrors.Error, err error) *goerrors.Error {
	c := e.Clone()
	c.Source = err
	return c
}

// AsError converts any error into a *goerrors.Error. Unknown errors become
// internal errors wrapping the original.
func AsError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, ErrInternal.Message).
		WithCode(goerrors.CodeInternal).
		WithTextCode(TextCodeInternal)
}

// KindOf reports the kind of err. Non module errors are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	return AsError(err).Category
}

// IsKind reports whether err, or an error it wraps, is of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return goerrors.IsCategory(err, kind)
}

// Reason returns the internal failure reason recorded in metadata, falling
// back to a name derived from the kind.
func Reason(err error) string {
	e := AsError(err)
	if e == nil {
		return ""
	}
	if r, ok := e.Metadata["reason"].(string); ok && r != "" {
		return r
	}
	return kindReasons[e.Category]
}

// Internal wraps err as an internal error. op names the failed operation
// for the logs.
func Internal(err error, op string) *goerrors.Error {
	e := withSource(ErrInternal, err)
	if op != "" {
		e = e.WithMetadata(map[string]any{"op": op})
	}
	return e
}

// NewValidationError converts ozzo validation errors into a
// VALIDATION_ERROR carrying one FieldError per failing field.
func NewValidationError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return goerrors.FromOzzoValidation(err, ErrValidation.Message).
		WithCode(ErrValidation.Code).
		WithTextCode(ErrValidation.TextCode)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return IsKind(err, KindTokenExpired)
}

// IsMalformedError will check for missing or invalid tokens
func IsMalformedError(err error) bool {
	return IsKind(err, KindTokenInvalid) || IsKind(err, KindTokenMissing)
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}
