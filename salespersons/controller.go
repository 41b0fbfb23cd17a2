// Package salespersons exposes the read only salesperson directory over HTTP.
package salespersons

import (
	"errors"
	"math"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-router"

	auth "github.com/salesreport/go-auth"
)

// Routes holds the mount paths.
type Routes struct {
	List string
	Show string
}

// Controller serves the salesperson directory.
type Controller struct {
	Repo         auth.Principals
	HTTP         *auth.RouteAuthenticator
	Logger       auth.Logger
	Routes       *Routes
	ErrorHandler router.ErrorHandler
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l auth.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.Logger = l
		}
	}
}

// NewController builds a Controller. repo and http are required.
func NewController(repo auth.Principals, http *auth.RouteAuthenticator, opts ...Option) *Controller {
	if repo == nil {
		panic("Missing Principals repository in salespersons controller...")
	}
	if http == nil {
		panic("Missing RouteAuthenticator in salespersons controller...")
	}

	c := &Controller{
		Repo: repo,
		HTTP: http,
		Routes: &Routes{
			List: "/salespersons",
			Show: "/salespersons/:id",
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ErrorHandler == nil {
		c.ErrorHandler = func(ctx router.Context, err error) error {
			return auth.RenderError(ctx, err, c.Logger)
		}
	}
	return c
}

// RegisterRoutes mounts the directory routes on r.
func RegisterRoutes[T any](r router.Router[T], repo auth.Principals, http *auth.RouteAuthenticator, opts ...Option) *Controller {
	c := NewController(repo, http, opts...)

	r.Get(c.Routes.List, c.List, http.ProtectedRoute(auth.OperationSalespersonsList)).
		SetName(string(auth.OperationSalespersonsList))
	r.Get(c.Routes.Show, c.Show, http.ProtectedRoute(auth.OperationSalespersonsShow)).
		SetName(string(auth.OperationSalespersonsShow))

	return c
}

// ListQuery is the raw query string of the list endpoint.
type ListQuery struct {
	Keyword   string `json:"keyword"`
	Role      string `json:"role"`
	ManagerID string `json:"manager_id"`
	IsActive  string `json:"is_active"`
	Page      string `json:"page"`
	PerPage   string `json:"per_page"`
}

// Validate will run validation rules
func (q ListQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Role,
			validation.In(string(auth.RoleSales), string(auth.RoleManager), string(auth.RoleAdmin)).
				Error("must be one of sales, manager, admin"),
		),
		validation.Field(&q.ManagerID,
			is.Int,
			validation.By(intRange(1, math.MaxInt64, "must be a positive integer")),
		),
		validation.Field(&q.IsActive,
			validation.In("true", "false").Error("must be true or false"),
		),
		validation.Field(&q.Page,
			is.Int,
			validation.By(intRange(1, math.MaxInt32, "must be at least 1")),
		),
		validation.Field(&q.PerPage,
			is.Int,
			validation.By(intRange(1, auth.MaxPerPage, "must be between 1 and 100")),
		),
	)
}

// Filter converts a validated query into a repository filter.
func (q ListQuery) Filter() auth.PrincipalFilter {
	f := auth.PrincipalFilter{
		Keyword: q.Keyword,
		Role:    auth.Role(q.Role),
		Page:    1,
		PerPage: auth.DefaultPerPage,
	}
	if v, err := strconv.ParseInt(q.ManagerID, 10, 64); err == nil {
		f.ManagerID = &v
	}
	if v, err := strconv.ParseBool(q.IsActive); err == nil && q.IsActive != "" {
		f.IsActive = &v
	}
	if v, err := strconv.Atoi(q.Page); err == nil {
		f.Page = v
	}
	if v, err := strconv.Atoi(q.PerPage); err == nil {
		f.PerPage = v
	}
	return f
}

var errNotInteger = errors.New("must be an integer")

// intRange checks a decimal string against [lo, hi]. Values that do not fit
// an int64 fail instead of being dropped.
func intRange(lo, hi int64, msg string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errNotInteger
		}
		if v < lo || v > hi {
			return errors.New(msg)
		}
		return nil
	}
}

// SimpleDTO is the short reference to another salesperson.
type SimpleDTO struct {
	ID   int64  `json:"salesperson_id"`
	Name string `json:"name"`
}

// ListItemDTO is one row of the list response.
type ListItemDTO struct {
	ID        int64      `json:"salesperson_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      auth.Role  `json:"role"`
	Manager   *SimpleDTO `json:"manager"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// Pagination describes the returned page.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalPages  int `json:"total_pages"`
	TotalCount  int `json:"total_count"`
}

// ListResponse is the list endpoint body.
type ListResponse struct {
	Success    bool          `json:"success"`
	Data       []ListItemDTO `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// DetailDTO is the detail endpoint payload.
type DetailDTO struct {
	ID           int64       `json:"salesperson_id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         auth.Role   `json:"role"`
	Manager      *SimpleDTO  `json:"manager"`
	Subordinates []SimpleDTO `json:"subordinates"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// DetailResponse is the detail endpoint body.
type DetailResponse struct {
	Success bool      `json:"success"`
	Data    DetailDTO `json:"data"`
}

func newSimpleDTO(p *auth.Principal) *SimpleDTO {
	if p == nil {
		return nil
	}
	return &SimpleDTO{ID: p.ID, Name: p.Name}
}

// List handles GET /salespersons.
func (ctrl *Controller) List(c router.Context) error {
	query := ListQuery{
		Keyword:   c.Query("keyword"),
		Role:      c.Query("role"),
		ManagerID: c.Query("manager_id"),
		IsActive:  c.Query("is_active"),
		Page:      c.Query("page"),
		PerPage:   c.Query("per_page"),
	}

	if err := query.Validate(); err != nil {
		return ctrl.ErrorHandler(c, auth.NewValidationError(err))
	}

	filter := query.Filter()
	records, total, err := ctrl.Repo.List(c.Context(), filter)
	if err != nil {
		return ctrl.ErrorHandler(c, err)
	}

	data := make([]ListItemDTO, 0, len(records))
	for _, r := range records {
		data = append(data, ListItemDTO{
			ID:        r.ID,
			Name:      r.Name,
			Email:     r.Email,
			Role:      r.Role,
			Manager:   newSimpleDTO(r.Manager),
			IsActive:  r.IsActive,
			CreatedAt: r.CreatedAt,
		})
	}

	return c.JSON(router.StatusOK, ListResponse{
		Success: true,
		Data:    data,
		Pagination: Pagination{
			CurrentPage: filter.Page,
			PerPage:     filter.PerPage,
			TotalPages:  int(math.Ceil(float64(total) / float64(filter.PerPage))),
			TotalCount:  total,
		},
	})
}

// Show handles GET /salespersons/:id.
func (ctrl *Controller) Show(c router.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return ctrl.ErrorHandler(c, auth.NewValidationError(validation.Errors{
			"id": errors.New("must be a positive integer"),
		}))
	}

	record, err := ctrl.Repo.GetByIDWithManager(c.Context(), id)
	if err != nil {
		return ctrl.ErrorHandler(c, err)
	}

	subordinates, err := ctrl.Repo.Subordinates(c.Context(), id)
	if err != nil {
		return ctrl.ErrorHandler(c, err)
	}

	subs := make([]SimpleDTO, 0, len(subordinates))
	for _, s := range subordinates {
		subs = append(subs, SimpleDTO{ID: s.ID, Name: s.Name})
	}

	return c.JSON(router.StatusOK, DetailResponse{
		Success: true,
		Data: DetailDTO{
			ID:           record.ID,
			Name:         record.Name,
			Email:        record.Email,
			Role:         record.Role,
			Manager:      newSimpleDTO(record.Manager),
			Subordinates: subs,
			IsActive:     record.IsActive,
			CreatedAt:    record.CreatedAt,
			UpdatedAt:    record.UpdatedAt,
		},
	})
}
