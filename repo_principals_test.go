package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	auth "github.com/salesreport/go-auth"
	"github.com/salesreport/go-auth/repository"
)

func newSeededRepository(t *testing.T) (auth.RepositoryManager, []*auth.Principal) {
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
	manager.MustValidate()

	seeded, err := repository.Seed(ctx, manager, nil, fixtures)
	require.NoError(t, err)
	require.Len(t, seeded, 4)

	return manager, seeded
}

func TestPrincipalsRepositoryLookups(t *testing.T) {
	manager, seeded := newSeededRepository(t)
	repo := manager.Principals()
	ctx := context.Background()

	tanaka, err := repo.GetByEmail(ctx, "tanaka@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Taro Tanaka", tanaka.Name)
	assert.Equal(t, auth.RoleSales, tanaka.Role)
	assert.True(t, tanaka.IsActive)
	require.NotNil(t, tanaka.ManagerID)
	assert.NoError(t, auth.ComparePasswordAndHash("password123", tanaka.PasswordHash))

	_, err = repo.GetByEmail(ctx, "TANAKA@example.com")
	assert.True(t, auth.IsNotFound(err))

	byID, err := repo.GetByID(ctx, tanaka.ID)
	require.NoError(t, err)
	assert.Equal(t, tanaka.Email, byID.Email)
	assert.Nil(t, byID.Manager)

	withManager, err := repo.GetByIDWithManager(ctx, tanaka.ID)
	require.NoError(t, err)
	require.NotNil(t, withManager.Manager)
	assert.Equal(t, "Ichiro Suzuki", withManager.Manager.Name)

	_, err = repo.GetByID(ctx, 9999)
	assert.True(t, auth.IsNotFound(err))

	assert.Equal(t, "admin@example.com", seeded[0].Email)
}

func TestPrincipalsRepositoryList(t *testing.T) {
	manager, seeded := newSeededRepository(t)
	repo := manager.Principals()
	ctx := context.Background()

	suzukiID := seeded[1].ID
	inactive := false

	tests := []struct {
		name       string
		filter     auth.PrincipalFilter
		wantEmails []string
		wantTotal  int
	}{
		{
			name:       "everyone",
			filter:     auth.PrincipalFilter{},
			wantEmails: []string{"admin@example.com", "suzuki@example.com", "tanaka@example.com", "sato@example.com"},
			wantTotal:  4,
		},
		{
			name:       "by role",
			filter:     auth.PrincipalFilter{Role: auth.RoleSales},
			wantEmails: []string{"tanaka@example.com", "sato@example.com"},
			wantTotal:  2,
		},
		{
			name:       "by keyword ignores case",
			filter:     auth.PrincipalFilter{Keyword: "TANAKA"},
			wantEmails: []string{"tanaka@example.com"},
			wantTotal:  1,
		},
		{
			name:       "keyword percent is literal",
			filter:     auth.PrincipalFilter{Keyword: "%"},
			wantEmails: []string{},
			wantTotal:  0,
		},
		{
			name:       "keyword underscore is literal",
			filter:     auth.PrincipalFilter{Keyword: "t_naka"},
			wantEmails: []string{},
			wantTotal:  0,
		},
		{
			name:       "keyword backslash is literal",
			filter:     auth.PrincipalFilter{Keyword: `\`},
			wantEmails: []string{},
			wantTotal:  0,
		},
		{
			name:       "by manager",
			filter:     auth.PrincipalFilter{ManagerID: &suzukiID},
			wantEmails: []string{"tanaka@example.com", "sato@example.com"},
			wantTotal:  2,
		},
		{
			name:       "by inactive",
			filter:     auth.PrincipalFilter{IsActive: &inactive},
			wantEmails: []string{},
			wantTotal:  0,
		},
		{
			name:       "second page",
			filter:     auth.PrincipalFilter{Page: 2, PerPage: 3},
			wantEmails: []string{"sato@example.com"},
			wantTotal:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			emails := make([]string, 0, len(records))
			for _, r := range records {
				emails = append(emails, r.Email)
			}
			assert.Equal(t, tt.wantEmails, emails)
		})
	}

	records, _, err := repo.List(ctx, auth.PrincipalFilter{Role: auth.RoleSales})
	require.NoError(t, err)
	for _, r := range records {
		require.NotNil(t, r.Manager)
		assert.Equal(t, "Ichiro Suzuki", r.Manager.Name)
	}
}

func TestPrincipalsRepositorySubordinates(t *testing.T) {
	manager, seeded := newSeededRepository(t)
	repo := manager.Principals()
	ctx := context.Background()

	suzuki := seeded[1]
	sato := seeded[3]

	subs, err := repo.Subordinates(ctx, suzuki.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "tanaka@example.com", subs[0].Email)

	_, err = manager.DB().NewUpdate().
		Model((*auth.Principal)(nil)).
		Set("is_active = ?", false).
		Where("id = ?", sato.ID).
		Exec(ctx)
	require.NoError(t, err)

	subs, err = repo.Subordinates(ctx, suzuki.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "tanaka@example.com", subs[0].Email)

	subs, err = repo.Subordinates(ctx, sato.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSeedIsIdempotent(t *testing.T) {
	manager, seeded := newSeededRepository(t)
	ctx := context.Background()

	fixtures, err := repository.LoadDefaultFixtures()
	require.NoError(t, err)

	again, err := repository.Seed(ctx, manager, nil, fixtures)
	require.NoError(t, err)
	require.Len(t, again, len(seeded))
	for i := range seeded {
		assert.Equal(t, seeded[i].ID, again[i].ID)
		assert.Equal(t, seeded[i].PasswordHash, again[i].PasswordHash)
	}

	_, total, err := manager.Principals().List(ctx, auth.PrincipalFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestSeededStoreBacksLogin(t *testing.T) {
	manager, _ := newSeededRepository(t)
	repo := manager.Principals()

	ts, err := auth.NewTokenService([]byte(testSecret), 3600, repo)
	require.NoError(t, err)
	auther := auth.NewAuthenticator(repo, ts)

	result, err := auther.Login(context.Background(), "sato@example.com", "password123")
	require.NoError(t, err)

	principal, err := auther.Authenticate(context.Background(), result.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Hanako Sato", principal.Name)

	profile, err := auther.Profile(context.Background(), principal.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Manager)
	assert.Equal(t, "Ichiro Suzuki", profile.Manager.Name)
}

func TestPrincipalsRepositoryStoreUnavailable(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqldb.Close()

	db := bun.NewDB(sqldb, sqlitedialect.New())
	repo := auth.NewPrincipalsRepository(db)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	_, err = repo.GetByEmail(context.Background(), "tanaka@example.com")
	require.Error(t, err)
	assert.Equal(t, auth.KindInternal, auth.KindOf(err))
	assert.False(t, auth.IsNotFound(err))

	ts, err := auth.NewTokenService([]byte(testSecret), 3600, repo)
	require.NoError(t, err)
	auther := auth.NewAuthenticator(repo, ts)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))
	_, err = auther.Login(context.Background(), "tanaka@example.com", "password123")
	require.Error(t, err)
	assert.Equal(t, auth.KindInternal, auth.KindOf(err))
	assert.False(t, auth.IsKind(err, auth.KindInvalidCredentials))

	assert.NoError(t, mock.ExpectationsWereMet())
}
