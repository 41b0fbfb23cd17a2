package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/salesreport/go-auth/middleware/jwtware"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

// RouteAuthenticator wires the Authenticator and Guard into router middleware.
type RouteAuthenticator struct {
	auth         Authenticator
	guard        *Guard
	cfg          Config
	activitySink ActivitySink
	listeners    []ValidationListener
	Logger       Logger
	ErrorHandler router.ErrorHandler
}

func NewHTTPAuthenticator(auther Authenticator, guard *Guard, cfg Config) *RouteAuthenticator {
	if guard == nil {
		guard = NewGuard(nil)
	}
	a := &RouteAuthenticator{
		auth:         auther,
		guard:        guard,
		cfg:          cfg,
		activitySink: noopActivitySink{},
		Logger:       defLogger{},
	}
	a.ErrorHandler = a.defaultErrHandler
	return a
}

// WithLogger sets the logger.
func (a *RouteAuthenticator) WithLogger(l Logger) *RouteAuthenticator {
	a.Logger = resolveLogger(l)
	return a
}

// WithActivitySink configures where access denials are reported.
func (a *RouteAuthenticator) WithActivitySink(sink ActivitySink) *RouteAuthenticator {
	a.activitySink = normalizeActivitySink(sink)
	return a
}

// WithValidationListeners adds listeners that run on every protected route
// after the token validated and before the guard runs.
func (a *RouteAuthenticator) WithValidationListeners(listeners ...ValidationListener) *RouteAuthenticator {
	a.listeners = append(a.listeners, listeners...)
	return a
}

// ContextKey returns the locals key the principal is bound under.
func (a *RouteAuthenticator) ContextKey() string {
	if key := a.cfg.GetContextKey(); key != "" {
		return key
	}
	return DefaultContextKey
}

// ProtectedRoute authenticates the request and checks op against the guard.
func (a *RouteAuthenticator) ProtectedRoute(op Operation) router.MiddlewareFunc {
	cfg := jwtware.Config{
		TokenValidator: jwtware.TokenValidatorFunc(a.validate),
		ErrorHandler: func(c router.Context, err error) error {
			return a.ErrorHandler(c, a.normalizeAuthError(err))
		},
		AuthScheme:      a.cfg.GetAuthScheme(),
		ContextKey:      a.ContextKey(),
		TokenLookup:     a.cfg.GetTokenLookup(),
		ContextEnricher: ContextEnricherAdapter,
		Authorizer: func(c router.Context, p jwtware.AuthPrincipal) error {
			principal, _ := p.(*AuthenticatedPrincipal)
			return a.Authorize(c.Context(), principal, op)
		},
	}
	RegisterValidationListeners(&cfg, a.listeners...)
	return jwtware.New(cfg)
}

// RequireOperation checks op against whatever principal is already bound,
// possibly none. Use it behind optional authentication.
func (a *RouteAuthenticator) RequireOperation(op Operation) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			principal, _ := PrincipalFromRequest(c, a.ContextKey())
			if err := a.Authorize(c.Context(), principal, op); err != nil {
				return a.ErrorHandler(c, err)
			}
			return c.Next()
		}
	}
}

// Authorize runs the guard and reports denials to the activity sink.
func (a *RouteAuthenticator) Authorize(ctx context.Context, principal *AuthenticatedPrincipal, op Operation) error {
	err := a.guard.Check(principal, op)
	if err == nil {
		return nil
	}

	var id string
	if principal != nil {
		id = principal.Subject()
	}
	emitActivity(ctx, a.activitySink, a.Logger, ActivityEvent{
		EventType:   ActivityEventAccessDenied,
		PrincipalID: id,
		Operation:   string(op),
		Reason:      Reason(err),
	})
	return err
}

func (a *RouteAuthenticator) validate(ctx context.Context, token string) (jwtware.AuthPrincipal, error) {
	principal, err := a.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return principal, nil
}

func (a *RouteAuthenticator) normalizeAuthError(err error) error {
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		return ErrTokenMissing
	}
	return err
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	return RenderError(c, err, a.Logger)
}

// RenderError writes err as an ErrorBody with the matching status.
// Internal errors are logged and rendered without their cause.
func RenderError(c router.Context, err error, logger Logger) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, ErrInternal.Message).
			WithCode(goerrors.CodeInternal).
			WithTextCode(TextCodeInternal)
	}

	log := resolveLogger(logger)
	switch {
	case goerrors.IsCategory(richErr, goerrors.CategoryInternal):
		log.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
	default:
		log.Debug("request rejected",
			"method", c.Method(),
			"path", c.Path(),
			"category", richErr.Category,
			"text_code", richErr.TextCode,
		)
	}

	status := richErr.Code
	if status == 0 {
		status = statusForCategory(richErr.Category)
	}
	textCode := richErr.TextCode
	if textCode == "" {
		textCode = goerrors.HTTPStatusToTextCode(status)
	}

	body := ErrorBody{
		Code:    textCode,
		Message: richErr.Message,
	}
	if status >= router.StatusInternalServerError {
		body.Code = TextCodeInternal
		body.Message = ErrInternal.Message
	}
	if fields := richErr.AllValidationErrors(); len(fields) > 0 {
		body.Details = make(map[string][]string, len(fields))
		for _, fe := range fields {
			body.Details[fe.Field] = append(body.Details[fe.Field], fe.Message)
		}
	}

	return c.JSON(status, body)
}

// statusForCategory is the fallback status for errors built without a code.
func statusForCategory(category goerrors.Category) int {
	switch {
	case category == goerrors.CategoryValidation:
		return router.StatusUnprocessableEntity
	case category == goerrors.CategoryBadInput:
		return router.StatusBadRequest
	case category == goerrors.CategoryNotFound:
		return router.StatusNotFound
	case category == goerrors.CategoryRateLimit:
		return router.StatusTooManyRequests
	case category == goerrors.CategoryAuth || strings.HasPrefix(string(category), string(goerrors.CategoryAuth)+"_"):
		return router.StatusUnauthorized
	case category == goerrors.CategoryAuthz || strings.HasPrefix(string(category), string(goerrors.CategoryAuthz)+"_"):
		return router.StatusForbidden
	default:
		return router.StatusInternalServerError
	}
}

// NewFiberErrorHandler renders errors escaping the route chain, including
// fiber's own routing errors, as ErrorBody. Install it on the fiber app
// behind the router adapter.
func NewFiberErrorHandler(logger Logger) fiber.ErrorHandler {
	log := resolveLogger(logger)
	return func(fc *fiber.Ctx, err error) error {
		c := router.NewFiberContext(fc, log)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			switch fe.Code {
			case fiber.StatusNotFound:
				return RenderError(c, ErrRouteNotFound, log)
			case fiber.StatusTooManyRequests:
				return RenderError(c, ErrTooManyRequests, log)
			case fiber.StatusBadRequest, fiber.StatusMethodNotAllowed, fiber.StatusRequestEntityTooLarge, fiber.StatusUnsupportedMediaType:
				return c.JSON(fe.Code, ErrorBody{Code: TextCodeBadRequest, Message: fe.Message})
			}
		}
		return RenderError(c, err, log)
	}
}
