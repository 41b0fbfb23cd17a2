package auth

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// Default paths of the auth routes.
const (
	LoginPath  = "/auth/login"
	LogoutPath = "/auth/logout"
	MePath     = "/auth/me"
)

// RegisterAuthRoutes mounts login, logout and profile routes on r.
func RegisterAuthRoutes[T any](r router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	r.Post(controller.Routes.Login, controller.LoginPost, controller.LoginMiddleware...).
		SetName("auth.login")

	r.Post(controller.Routes.Logout, controller.LogOut,
		controller.HTTP.ProtectedRoute(OperationLogout),
	).SetName("auth.logout")

	r.Get(controller.Routes.Me, controller.Me,
		controller.HTTP.ProtectedRoute(OperationMe),
	).SetName("auth.me")

	return controller
}

type AuthControllerRoutes struct {
	Login  string
	Logout string
	Me     string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Routes       *AuthControllerRoutes
	Auther       Authenticator
	HTTP         *RouteAuthenticator
	ErrorHandler router.ErrorHandler

	// LoginMiddleware runs in front of the login handler.
	LoginMiddleware []router.MiddlewareFunc
}

type AuthControllerOption func(*AuthController) *AuthController

// WithAuthenticator sets the Authenticator and the RouteAuthenticator
// guarding the protected routes.
func WithAuthenticator(auther Authenticator, http *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		c.HTTP = http
		return c
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = resolveLogger(l)
		return c
	}
}

// WithLoginMiddleware installs middleware in front of login.
func WithLoginMiddleware(mw ...router.MiddlewareFunc) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.LoginMiddleware = append(c.LoginMiddleware, mw...)
		return c
	}
}

// WithDebug dumps sanitized login payloads.
func WithDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:  LoginPath,
			Logout: LogoutPath,
			Me:     MePath,
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.HTTP == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = func(ctx router.Context, err error) error {
			return RenderError(ctx, err, c.Logger)
		}
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.EmailFormat,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// PrincipalDTO is the public projection of a principal.
type PrincipalDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// ManagerDTO is the short projection of a manager.
type ManagerDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        PrincipalDTO `json:"user"`
}

// ProfileDTO is the authenticated principal profile.
type ProfileDTO struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Role    Role        `json:"role"`
	Manager *ManagerDTO `json:"manager"`
}

// ProfileResponse wraps ProfileDTO.
type ProfileResponse struct {
	Success bool       `json:"success"`
	Data    ProfileDTO `json:"data"`
}

// NewPrincipalDTO projects p.
func NewPrincipalDTO(p *Principal) PrincipalDTO {
	return PrincipalDTO{ID: p.ID, Name: p.Name, Email: p.Email, Role: p.Role}
}

// NewManagerDTO projects p, nil when p is nil.
func NewManagerDTO(p *Principal) *ManagerDTO {
	if p == nil {
		return nil
	}
	return &ManagerDTO{ID: p.ID, Name: p.Name}
}

func (a *AuthController) LoginPost(c router.Context) error {
	payload := new(LoginRequest)

	if err := c.Bind(payload); err != nil {
		return a.ErrorHandler(c, withSource(ErrBadInput, err))
	}

	if a.Debug {
		sanitized := *payload
		sanitized.Password = "********"
		a.Logger.Debug("auth login payload", "payload", print.MaybePrettyJSON(sanitized))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(c, NewValidationError(err))
	}

	result, err := a.Auther.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(router.StatusOK, LoginResponse{
		AccessToken: result.Token.AccessToken,
		TokenType:   result.Token.TokenType,
		ExpiresIn:   result.Token.ExpiresIn,
		User:        NewPrincipalDTO(result.Principal),
	})
}

func (a *AuthController) LogOut(c router.Context) error {
	principal, _ := PrincipalFromRequest(c, a.HTTP.ContextKey())
	if err := a.Auther.Logout(c.Context(), principal); err != nil {
		return a.ErrorHandler(c, err)
	}
	return c.JSON(router.StatusOK, map[string]string{"message": "logged out successfully"})
}

func (a *AuthController) Me(c router.Context) error {
	principal, ok := PrincipalFromRequest(c, a.HTTP.ContextKey())
	if !ok {
		return a.ErrorHandler(c, ErrTokenMissing)
	}

	profile, err := a.Auther.Profile(c.Context(), principal.ID)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(router.StatusOK, ProfileResponse{
		Success: true,
		Data: ProfileDTO{
			ID:      profile.ID,
			Name:    profile.Name,
			Email:   profile.Email,
			Role:    profile.Role,
			Manager: NewManagerDTO(profile.Manager),
		},
	})
}
