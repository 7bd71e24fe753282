// Package session owns the client's authenticated identity. A Store is the
// only writer of Session state; every mutation goes through its methods.
package session

import (
	"context"

	"github.com/naveenspark/storefront/pkg/client"
	"github.com/naveenspark/storefront/pkg/domain"
)

// Method records how the current session was obtained.
type Method string

const (
	MethodNone        Method = ""
	MethodCredentials Method = "credentials"
	MethodDelegated   Method = "delegated"
)

// Session is a snapshot of who is using the client.
//
// Identity nil means not authenticated. CredentialToken is non-nil only for
// credential logins; delegated sessions never carry one.
type Session struct {
	Identity        *domain.Identity `json:"identity"`
	CredentialToken *string          `json:"credential_token"`
	Method          Method           `json:"method"`
	LastError       *domain.Error    `json:"-"`
}

// IsAuthenticated reports whether an identity is present.
func (s Session) IsAuthenticated() bool {
	return s.Identity != nil
}

// CanUpdateProfile reports whether the session can authorize a profile write.
func (s Session) CanUpdateProfile() bool {
	return s.Identity != nil && s.CredentialToken != nil
}

// Token returns the credential token or "".
func (s Session) Token() string {
	if s.CredentialToken == nil {
		return ""
	}
	return *s.CredentialToken
}

func (s Session) clone() Session {
	out := Session{Method: s.Method}
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	if s.CredentialToken != nil {
		tok := *s.CredentialToken
		out.CredentialToken = &tok
	}
	if s.LastError != nil {
		e := *s.LastError
		out.LastError = &e
	}
	return out
}

// API is the subset of the REST client the store calls.
type API interface {
	Login(ctx context.Context, email, password string) (*client.AuthTokens, error)
	Profile(ctx context.Context, token string) (*domain.User, error)
	UpdateUser(ctx context.Context, token string, id int, upd domain.ProfileUpdate) (*domain.User, error)
}

// Delegated is the external OAuth session owner.
type Delegated interface {
	// CurrentSession returns the signed-in profile or domain.ErrNoDelegatedSession.
	CurrentSession(ctx context.Context) (*domain.DelegatedProfile, error)
	SignOut(ctx context.Context) error
}

// Persister stores the session between runs.
type Persister interface {
	// Load returns the stored session and true, or false if nothing is stored.
	Load(ctx context.Context) (Session, bool, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}
