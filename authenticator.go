package auth

import (
	"context"
	"strconv"
)

// Auther implements Authenticator on top of a credential verifier, a
// token service and a profile store.
type Auther struct {
	verifier     CredentialVerifier
	tokenService TokenService
	profiles     ProfileStore
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(profiles ProfileStore, tokenService TokenService) *Auther {
	return &Auther{
		verifier:     NewPrincipalProvider(profiles),
		tokenService: tokenService,
		profiles:     profiles,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = resolveLogger(logger)
	return s
}

// WithCredentialVerifier replaces the default PrincipalProvider.
func (s *Auther) WithCredentialVerifier(v CredentialVerifier) *Auther {
	if v != nil {
		s.verifier = v
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and issues an access token. Every credential
// failure surfaces as ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	principal, err := s.verifier.VerifyCredentials(ctx, email, password)
	if err != nil {
		reason := Reason(err)
		s.logger.Info("login rejected", "reason", reason)
		emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Reason:    reason,
			Metadata:  map[string]any{"email": email},
		})
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, Internal(err, "login cancelled")
	}

	token, err := s.tokenService.Issue(principal)
	if err != nil {
		s.logger.Error("login failed to issue token", "principal_id", principal.ID, "error", err)
		emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
			EventType:   ActivityEventLoginFailure,
			PrincipalID: principal.Subject(),
			Reason:      "token_issue",
		})
		return nil, err
	}

	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType:   ActivityEventLoginSuccess,
		PrincipalID: principal.Subject(),
		Metadata:    map[string]any{"role": string(principal.Role)},
	})

	return &LoginResult{Token: token, Principal: principal}, nil
}

// Authenticate validates a bearer token and returns the fresh principal.
func (s *Auther) Authenticate(ctx context.Context, tokenString string) (*AuthenticatedPrincipal, error) {
	principal, err := s.tokenService.Validate(ctx, tokenString)
	if err != nil {
		if IsKind(err, KindTokenExpired) || IsMalformedError(err) {
			emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
				EventType: ActivityEventTokenRejected,
				Reason:    Reason(err),
			})
		}
		return nil, err
	}
	return principal, nil
}

// Profile loads the principal with its manager. A principal that vanished
// or was deactivated after token validation is treated as a stale token.
func (s *Auther) Profile(ctx context.Context, id int64) (*Principal, error) {
	principal, err := s.profiles.GetByIDWithManager(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, withReason(ErrTokenInvalid, "stale_principal")
		}
		return nil, AsError(err)
	}
	if !principal.IsActive {
		return nil, withReason(ErrTokenInvalid, "inactive_principal")
	}
	return principal, nil
}

// Logout records the event. Tokens are stateless and stay valid until
// they expire.
func (s *Auther) Logout(ctx context.Context, principal *AuthenticatedPrincipal) error {
	var id string
	if principal != nil {
		id = strconv.FormatInt(principal.ID, 10)
	}
	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType:   ActivityEventLogout,
		PrincipalID: id,
	})
	return nil
}
