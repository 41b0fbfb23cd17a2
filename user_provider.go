package auth

import (
	"context"
	"strings"
	"sync"
)

// PrincipalProvider verifies credentials against a PrincipalStore.
type PrincipalProvider struct {
	store     PrincipalStore
	passwords PasswordAuthenticator
	logger    Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewPrincipalProvider will create a new PrincipalProvider
func NewPrincipalProvider(store PrincipalStore) *PrincipalProvider {
	return &PrincipalProvider{
		store:     store,
		passwords: NewBcryptHasher(DefaultPasswordCost),
		logger:    defLogger{},
	}
}

func (u *PrincipalProvider) WithLogger(l Logger) *PrincipalProvider {
	u.logger = resolveLogger(l)
	return u
}

// WithPasswordAuthenticator overrides the password hasher.
func (u *PrincipalProvider) WithPasswordAuthenticator(p PasswordAuthenticator) *PrincipalProvider {
	if p != nil {
		u.passwords = p
	}
	return u
}

// VerifyCredentials returns the principal when email exists, the principal
// is active and password matches. Every failure is ErrInvalidCredentials
// with the internal reason kept in metadata.
func (u *PrincipalProvider) VerifyCredentials(ctx context.Context, email, password string) (*Principal, error) {
	principal, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if !IsNotFound(err) {
			u.logger.Error("credential verification could not load principal", "error", err)
			return nil, Internal(err, "load principal by email")
		}
		principal = nil
	}

	if principal == nil {
		// keep timing close to the known email path
		_ = u.passwords.ComparePasswordAndHash(password, u.placeholderHash())
		return nil, invalidCredentials("unknown_email", email)
	}

	if !principal.IsActive {
		return nil, invalidCredentials("inactive", email)
	}

	if err := u.passwords.ComparePasswordAndHash(password, principal.PasswordHash); err != nil {
		if IsKind(err, KindInvalidCredentials) {
			return nil, invalidCredentials("password_mismatch", email)
		}
		u.logger.Error("stored password hash is unusable", "principal_id", principal.ID, "error", err)
		return nil, Internal(err, "compare password hash")
	}

	return principal, nil
}

func (u *PrincipalProvider) placeholderHash() string {
	u.dummyOnce.Do(func() {
		u.dummyHash = RandomPasswordHash()
	})
	return u.dummyHash
}

func invalidCredentials(reason, email string) error {
	return decorate(ErrInvalidCredentials, map[string]any{
		"reason": reason,
		"email":  strings.ToLower(email),
	})
}
