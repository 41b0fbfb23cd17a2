package salespersons_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/salesreport/go-auth"
	"github.com/salesreport/go-auth/repository"
	"github.com/salesreport/go-auth/salespersons"
)

type authConfig struct{}

func (authConfig) GetSigningKey() string    { return "salespersons-test-secret-0123456789" }
func (authConfig) GetSigningMethod() string { return "HS256" }
func (authConfig) GetContextKey() string    { return "" }
func (authConfig) GetTokenExpiration() int  { return 3600 }
func (authConfig) GetTokenLookup() string   { return "" }
func (authConfig) GetAuthScheme() string    { return "" }
func (authConfig) GetIssuer() string        { return "" }
func (authConfig) GetAudience() []string    { return nil }

type fixture struct {
	app    *fiber.App
	auther *auth.Auther
	byMail map[string]*auth.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := repository.Open(repository.Options{
		Driver: repository.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = repository.Migrate(ctx, db)
	require.NoError(t, err)

	fixtures, err := repository.LoadDefaultFixtures()
	require.NoError(t, err)

	manager := auth.NewRepositoryManager(db)
	seeded, err := repository.Seed(ctx, manager, nil, fixtures)
	require.NoError(t, err)

	byMail := make(map[string]*auth.Principal, len(seeded))
	for _, p := range seeded {
		byMail[p.Email] = p
	}

	repo := manager.Principals()
	ts, err := auth.NewTokenServiceFromConfig(authConfig{}, repo)
	require.NoError(t, err)

	auther := auth.NewAuthenticator(repo, ts)
	routeAuth := auth.NewHTTPAuthenticator(auther, auth.NewGuard(nil), authConfig{})

	srv := newServer()
	salespersons.RegisterRoutes(srv.Router(), repo, routeAuth)

	return &fixture{app: srv.WrappedRouter(), auther: auther, byMail: byMail}
}

func newServer() router.Server[*fiber.App] {
	return router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return fiber.New(fiber.Config{
			ErrorHandler:          auth.NewFiberErrorHandler(nil),
			DisableStartupMessage: true,
		})
	})
}

func (f *fixture) token(t *testing.T, email string) string {
	t.Helper()
	result, err := f.auther.Login(context.Background(), email, "password123")
	require.NoError(t, err)
	return result.Token.AccessToken
}

func (f *fixture) get(t *testing.T, path, token string, out any) int {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}

func TestListRequiresToken(t *testing.T) {
	f := newFixture(t)

	var body auth.ErrorBody
	status := f.get(t, "/salespersons", "", &body)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body.Code)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "tanaka@example.com")

	var body salespersons.ListResponse
	status := f.get(t, "/salespersons", token, &body)
	require.Equal(t, fiber.StatusOK, status)

	assert.True(t, body.Success)
	assert.Len(t, body.Data, 4)
	assert.Equal(t, salespersons.Pagination{CurrentPage: 1, PerPage: 20, TotalPages: 1, TotalCount: 4}, body.Pagination)

	tanaka := body.Data[2]
	assert.Equal(t, "tanaka@example.com", tanaka.Email)
	require.NotNil(t, tanaka.Manager)
	assert.Equal(t, "Ichiro Suzuki", tanaka.Manager.Name)
	assert.Nil(t, body.Data[0].Manager)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "suzuki@example.com")
	suzuki := f.byMail["suzuki@example.com"]

	tests := []struct {
		name       string
		query      string
		wantEmails []string
		wantPages  int
	}{
		{"role", "?role=sales", []string{"tanaka@example.com", "sato@example.com"}, 1},
		{"keyword", "?keyword=sato", []string{"sato@example.com"}, 1},
		{"manager", "?manager_id=" + suzuki.Subject(), []string{"tanaka@example.com", "sato@example.com"}, 1},
		{"active", "?is_active=true&role=admin", []string{"admin@example.com"}, 1},
		{"paged", "?per_page=3&page=2", []string{"sato@example.com"}, 2},
		{"past the end", "?page=9", []string{}, 1},
		{"percent is literal", "?keyword=%25", []string{}, 0},
		{"underscore is literal", "?keyword=_", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body salespersons.ListResponse
			status := f.get(t, "/salespersons"+tt.query, token, &body)
			require.Equal(t, fiber.StatusOK, status)

			emails := make([]string, 0, len(body.Data))
			for _, d := range body.Data {
				emails = append(emails, d.Email)
			}
			assert.Equal(t, tt.wantEmails, emails)
			assert.Equal(t, tt.wantPages, body.Pagination.TotalPages)
		})
	}
}

func TestListValidation(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "tanaka@example.com")

	tests := []struct {
		query string
		field string
	}{
		{"?role=boss", "role"},
		{"?is_active=yes", "is_active"},
		{"?manager_id=abc", "manager_id"},
		{"?page=0", "page"},
		{"?per_page=101", "per_page"},
		{"?per_page=x", "per_page"},
		{"?per_page=99999999999999999999", "per_page"},
		{"?page=99999999999999999999", "page"},
		{"?manager_id=99999999999999999999", "manager_id"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var body auth.ErrorBody
			status := f.get(t, "/salespersons"+tt.query, token, &body)
			assert.Equal(t, fiber.StatusUnprocessableEntity, status)
			assert.Equal(t, "VALIDATION_ERROR", body.Code)
			assert.Contains(t, body.Details, tt.field)
		})
	}
}

func TestDirectoryUsesSalespersonIDKey(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "sato@example.com")
	suzuki := f.byMail["suzuki@example.com"]

	var detail map[string]any
	status := f.get(t, "/salespersons/"+suzuki.Subject(), token, &detail)
	require.Equal(t, fiber.StatusOK, status)

	data, ok := detail["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(suzuki.ID), data["salesperson_id"])
	assert.NotContains(t, data, "id")

	subs, ok := data["subordinates"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, subs)
	assert.Contains(t, subs[0], "salesperson_id")

	var list map[string]any
	status = f.get(t, "/salespersons?role=sales", token, &list)
	require.Equal(t, fiber.StatusOK, status)
	rows, ok := list["data"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, rows)
	row := rows[0].(map[string]any)
	assert.Contains(t, row, "salesperson_id")
	assert.Contains(t, row["manager"], "salesperson_id")
}

func TestShow(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "sato@example.com")
	suzuki := f.byMail["suzuki@example.com"]

	var body salespersons.DetailResponse
	status := f.get(t, "/salespersons/"+suzuki.Subject(), token, &body)
	require.Equal(t, fiber.StatusOK, status)

	assert.True(t, body.Success)
	assert.Equal(t, suzuki.ID, body.Data.ID)
	assert.Equal(t, auth.RoleManager, body.Data.Role)
	assert.Nil(t, body.Data.Manager)
	require.Len(t, body.Data.Subordinates, 2)
	assert.Equal(t, "Taro Tanaka", body.Data.Subordinates[0].Name)
	assert.Equal(t, "Hanako Sato", body.Data.Subordinates[1].Name)
	assert.False(t, body.Data.CreatedAt.IsZero())
}

func TestShowErrors(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "tanaka@example.com")

	var body auth.ErrorBody
	status := f.get(t, "/salespersons/9999", token, &body)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body.Code)
	assert.Equal(t, "salesperson not found", body.Message)

	body = auth.ErrorBody{}
	status = f.get(t, "/salespersons/abc", token, &body)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Details, "id")
}

type failingRepo struct {
	auth.Principals
}

func (failingRepo) List(context.Context, auth.PrincipalFilter) ([]*auth.Principal, int, error) {
	return nil, 0, auth.Internal(errors.New("disk I/O error"), "list principals")
}

func TestListStoreFailure(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "tanaka@example.com")

	routeAuth := auth.NewHTTPAuthenticator(f.auther, nil, authConfig{})
	srv := newServer()
	salespersons.RegisterRoutes(srv.Router(), failingRepo{}, routeAuth)

	req := httptest.NewRequest("GET", "/salespersons", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.WrappedRouter().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body auth.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.NotContains(t, body.Message, "disk")
}
