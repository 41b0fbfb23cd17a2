package auth_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/salesreport/go-auth"
)

const testSecret = "test-secret-key-at-least-32-bytes!!"

// MockProfileStore implements auth.ProfileStore
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	args := m.Called(ctx, email)
	p, _ := args.Get(0).(*auth.Principal)
	return p, args.Error(1)
}

func (m *MockProfileStore) GetByID(ctx context.Context, id int64) (*auth.Principal, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*auth.Principal)
	return p, args.Error(1)
}

func (m *MockProfileStore) GetByIDWithManager(ctx context.Context, id int64) (*auth.Principal, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*auth.Principal)
	return p, args.Error(1)
}

// memoryStore is a map backed auth.ProfileStore whose records can be
// changed between calls.
type memoryStore struct {
	mu      sync.Mutex
	records map[int64]*auth.Principal
}

func newMemoryStore(records ...*auth.Principal) *memoryStore {
	s := &memoryStore{records: map[int64]*auth.Principal{}}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *memoryStore) update(id int64, fn func(p *auth.Principal)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.records[id]; ok {
		fn(p)
	}
}

func (s *memoryStore) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

func (s *memoryStore) GetByEmail(_ context.Context, email string) (*auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.records {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, auth.ErrPrincipalNotFound
}

func (s *memoryStore) GetByID(_ context.Context, id int64) (*auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[id]
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memoryStore) GetByIDWithManager(ctx context.Context, id int64) (*auth.Principal, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ManagerID != nil {
		if m, err := s.GetByID(ctx, *p.ManagerID); err == nil {
			p.Manager = m
		}
	}
	return p, nil
}

// recordingSink collects emitted activity events.
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) all() []auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]auth.ActivityEvent(nil), s.events...)
}

func (s *recordingSink) last() auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return auth.ActivityEvent{}
	}
	return s.events[len(s.events)-1]
}

// testConfig implements auth.Config
type testConfig struct {
	signingKey string
	expiration int
	issuer     string
	audience   []string
}

func (c testConfig) GetSigningKey() string    { return c.signingKey }
func (c testConfig) GetSigningMethod() string { return "HS256" }
func (c testConfig) GetContextKey() string    { return "" }
func (c testConfig) GetTokenExpiration() int  { return c.expiration }
func (c testConfig) GetTokenLookup() string   { return "" }
func (c testConfig) GetAuthScheme() string    { return "" }
func (c testConfig) GetIssuer() string        { return c.issuer }
func (c testConfig) GetAudience() []string    { return c.audience }

var (
	hashOnce   sync.Once
	cachedHash string
)

// passwordHash returns a cost 10 hash of "password123", computed once.
func passwordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := auth.HashPassword("password123")
		require.NoError(t, err)
		cachedHash = h
	})
	return cachedHash
}

func int64Ptr(v int64) *int64 { return &v }

// salesTeam returns tanaka (id 1, sales), suzuki (id 2, manager of
// tanaka) and admin (id 3). All share the password "password123".
func salesTeam(t *testing.T) []*auth.Principal {
	hash := passwordHash(t)
	return []*auth.Principal{
		{ID: 1, Name: "Taro Tanaka", Email: "tanaka@example.com", PasswordHash: hash, Role: auth.RoleSales, IsActive: true, ManagerID: int64Ptr(2)},
		{ID: 2, Name: "Ichiro Suzuki", Email: "suzuki@example.com", PasswordHash: hash, Role: auth.RoleManager, IsActive: true},
		{ID: 3, Name: "System Administrator", Email: "admin@example.com", PasswordHash: hash, Role: auth.RoleAdmin, IsActive: true},
	}
}
