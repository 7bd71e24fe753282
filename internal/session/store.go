package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/naveenspark/storefront/pkg/client"
	"github.com/naveenspark/storefront/pkg/domain"
)

// User-facing failure messages.
const (
	msgInvalidCredentials = "Invalid email or password."
	msgNoDelegatedSession = "No signed-in account found with the identity provider."
	msgSessionExpired     = "Failed to fetch profile. Please re-login."
	msgNotAuthorized      = "Sign in with email and password to edit your profile."
	msgAuthRejected       = "Your session is no longer authorized. Please re-login."
	msgNothingChanged     = "One or more fields need to be changed."
	msgUpdateFailed       = "Failed to update profile."
)

// Store is the single owner of Session state.
//
// Every mutating call takes a generation number from a store-wide counter
// when it starts. Its result is applied only if no newer call has started
// since; otherwise the call returns the current snapshot and
// domain.ErrSuperseded.
type Store struct {
	api       API
	delegated Delegated
	persist   Persister
	logger    zerolog.Logger
	now       func() time.Time

	mu  sync.Mutex
	gen uint64
	cur Session

	// persistMu orders writes to the Persister with the generation check.
	persistMu sync.Mutex
}

// New creates a Store. delegated and persist may be nil.
func New(api API, delegated Delegated, persist Persister, logger zerolog.Logger) *Store {
	return &Store{
		api:       api,
		delegated: delegated,
		persist:   persist,
		logger:    logger.With().Str("component", "session").Logger(),
		now:       time.Now,
	}
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.clone()
}

// LoginWithCredentials exchanges email and password for a token, then fetches
// the profile it belongs to.
func (s *Store) LoginWithCredentials(ctx context.Context, email, password string) (Session, error) {
	const op = "session.LoginWithCredentials"
	gen := s.begin()

	tokens, err := s.api.Login(ctx, email, password)
	if err != nil {
		return s.fail(gen, op, domain.NewError(domain.KindInvalidCredentials, msgInvalidCredentials, err))
	}
	user, err := s.api.Profile(ctx, tokens.AccessToken)
	if err != nil {
		return s.fail(gen, op, domain.NewError(domain.KindInvalidCredentials, msgInvalidCredentials, err))
	}

	ident := user.Identity()
	return s.succeed(ctx, gen, op, Session{
		Identity:        &ident,
		CredentialToken: &tokens.AccessToken,
		Method:          MethodCredentials,
	})
}

// LoginWithDelegatedSession adopts the identity provider's current session.
// The resulting session carries no credential token.
func (s *Store) LoginWithDelegatedSession(ctx context.Context) (Session, error) {
	const op = "session.LoginWithDelegatedSession"
	gen := s.begin()

	if s.delegated == nil {
		return s.fail(gen, op, domain.NewError(domain.KindNoDelegatedSession, msgNoDelegatedSession, nil))
	}
	profile, err := s.delegated.CurrentSession(ctx)
	if err != nil || profile == nil {
		return s.fail(gen, op, domain.NewError(domain.KindNoDelegatedSession, msgNoDelegatedSession, err))
	}

	ident := profile.Identity()
	return s.succeed(ctx, gen, op, Session{
		Identity: &ident,
		Method:   MethodDelegated,
	})
}

// RestoreSession re-validates a persisted credential token against the
// profile endpoint.
func (s *Store) RestoreSession(ctx context.Context, token string) (Session, error) {
	const op = "session.RestoreSession"
	gen := s.begin()

	if token == "" {
		return s.fail(gen, op, domain.NewError(domain.KindSessionExpired, msgSessionExpired, nil))
	}
	if s.tokenExpired(token) {
		return s.fail(gen, op, domain.NewError(domain.KindSessionExpired, msgSessionExpired, errors.New("token expired")))
	}
	user, err := s.api.Profile(ctx, token)
	if err != nil {
		return s.fail(gen, op, domain.NewError(domain.KindSessionExpired, msgSessionExpired, err))
	}

	ident := user.Identity()
	return s.succeed(ctx, gen, op, Session{
		Identity:        &ident,
		CredentialToken: &token,
		Method:          MethodCredentials,
	})
}

// Restore loads the persisted session at startup and re-establishes it the
// way it was obtained. With nothing persisted it returns an empty session
// and no error.
func (s *Store) Restore(ctx context.Context) (Session, error) {
	if s.persist == nil {
		return s.Snapshot(), nil
	}
	saved, ok, err := s.persist.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("load persisted session")
		return s.Snapshot(), nil
	}
	if !ok {
		return s.Snapshot(), nil
	}

	switch saved.Method {
	case MethodCredentials:
		return s.RestoreSession(ctx, saved.Token())
	case MethodDelegated:
		return s.LoginWithDelegatedSession(ctx)
	default:
		s.logger.Warn().Str("method", string(saved.Method)).Msg("ignoring persisted session with unknown method")
		return s.Snapshot(), nil
	}
}

// UpdateProfile applies a partial update to the signed-in account. Only
// credential sessions can authorize the write.
func (s *Store) UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (Session, error) {
	const op = "session.UpdateProfile"
	gen := s.begin()
	cur := s.Snapshot()

	if !cur.CanUpdateProfile() {
		return s.fail(gen, op, domain.NewError(domain.KindUnauthorized, msgNotAuthorized, nil))
	}
	if upd.IsEmpty() {
		return s.fail(gen, op, domain.NewError(domain.KindUpdateRejected, msgNothingChanged, nil))
	}
	id, err := strconv.Atoi(cur.Identity.ID)
	if err != nil {
		return s.fail(gen, op, domain.NewError(domain.KindUpdateRejected, msgUpdateFailed, err))
	}

	user, err := s.api.UpdateUser(ctx, *cur.CredentialToken, id, upd)
	switch {
	case client.IsAuthRejected(err):
		return s.fail(gen, op, domain.NewError(domain.KindUnauthorized, msgAuthRejected, err))
	case err != nil:
		return s.fail(gen, op, domain.NewError(domain.KindUpdateRejected, msgUpdateFailed, err))
	}

	ident := user.Identity()
	return s.succeed(ctx, gen, op, Session{
		Identity:        &ident,
		CredentialToken: cur.CredentialToken,
		Method:          cur.Method,
	})
}

// Logout clears the session. Delegated sessions are also signed out with the
// identity provider; that failure is logged, never returned.
func (s *Store) Logout(ctx context.Context) Session {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	prev := s.cur.Method
	s.cur = Session{}
	s.mu.Unlock()

	if prev == MethodDelegated && s.delegated != nil {
		if err := s.delegated.SignOut(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("delegated sign-out failed")
		}
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if s.persist != nil && s.current(gen) {
		if err := s.persist.Clear(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("clear persisted session")
		}
	}
	s.logger.Info().Str("method", string(prev)).Msg("logged out")
	return Session{}
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

func (s *Store) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// commit applies mutate if gen is still the latest generation.
func (s *Store) commit(gen uint64, mutate func(*Session)) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return s.cur.clone(), false
	}
	mutate(&s.cur)
	return s.cur.clone(), true
}

func (s *Store) fail(gen uint64, op string, e *domain.Error) (Session, error) {
	snap, ok := s.commit(gen, func(cur *Session) { cur.LastError = e })
	if !ok {
		s.logger.Debug().Str("op", op).Err(e).Msg("discarding superseded failure")
		return snap, fmt.Errorf("%s: %w", op, domain.ErrSuperseded)
	}
	s.logger.Warn().Str("op", op).Str("kind", string(e.Kind)).AnErr("cause", e.Err).Msg(e.Message)
	return snap, fmt.Errorf("%s: %w", op, e)
}

func (s *Store) succeed(ctx context.Context, gen uint64, op string, next Session) (Session, error) {
	snap, ok := s.commit(gen, func(cur *Session) {
		next.LastError = nil
		*cur = next
	})
	if !ok {
		s.logger.Debug().Str("op", op).Msg("discarding superseded result")
		return snap, fmt.Errorf("%s: %w", op, domain.ErrSuperseded)
	}
	s.logger.Info().Str("op", op).Str("method", string(snap.Method)).Str("user_id", snap.Identity.ID).Msg("session updated")
	s.save(ctx, gen, snap)
	return snap, nil
}

func (s *Store) save(ctx context.Context, gen uint64, snap Session) {
	if s.persist == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if !s.current(gen) {
		return
	}
	if err := s.persist.Save(ctx, snap); err != nil {
		s.logger.Warn().Err(err).Msg("persist session")
	}
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// The signature is not verified; the profile call is the real check.
func (s *Store) tokenExpired(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.now())
}
