package domain

import (
	"strconv"
	"time"
)

// Roles assigned by the API.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// DefaultAvatar is used for new accounts that do not pick one.
const DefaultAvatar = "https://api.lorem.space/image/face?w=640&h=480"

// User is an account record from the users and profile endpoints.
type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"creationAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity returns the session-facing view of u.
func (u User) Identity() Identity {
	role := u.Role
	if role == "" {
		role = RoleCustomer
	}
	return Identity{
		ID:        strconv.Itoa(u.ID),
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.Avatar,
		Role:      role,
	}
}

// Identity is who is using the client right now.
// ID is the API user id for credential logins and the provider subject for
// delegated ones.
type Identity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Role      string `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// DelegatedProfile is the identity shape handed over by the OAuth provider.
type DelegatedProfile struct {
	Subject   string `json:"sub"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"picture,omitempty"`
}

// Identity maps a delegated profile into the session identity shape.
func (p DelegatedProfile) Identity() Identity {
	return Identity{
		ID:        p.Subject,
		Name:      p.Name,
		Email:     p.Email,
		AvatarURL: p.AvatarURL,
		Role:      RoleCustomer,
	}
}

// ProfileUpdate carries the fields a user may change on their own profile.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Password == nil && u.Avatar == nil
}
