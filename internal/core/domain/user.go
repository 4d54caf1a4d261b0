package domain

import "time"

// UserStatus is the lifecycle state of a user record.
type UserStatus string

const (
	StatusActive  UserStatus = "ACTIVE"
	StatusDeleted UserStatus = "DELETED"
)

// UserSource tells where a user's identity is managed.
type UserSource string

const (
	SourceInternal UserSource = "INTERNAL"
)

// MaxPasswordBytes is the longest plaintext the credential hasher accepts.
const MaxPasswordBytes = 72

// Role references an authorization entity managed elsewhere. Only the id is known here.
type Role struct {
	ID string `json:"id"`
}

// User is the identity aggregate.
//
// Password holds plaintext only between the transport layer and the identity
// service; every User returned by a repository carries a digest.
type User struct {
	ID         uint64     `json:"id"`
	TenantID   uint64     `json:"tenant_id"`
	Username   string     `json:"username"`
	Email      string     `json:"email,omitempty"`
	Password   string     `json:"-"`
	FirstName  string     `json:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	Status     UserStatus `json:"status"`
	Source     UserSource `json:"source"`
	Roles      []Role     `json:"roles,omitempty"`
	TotpSecret string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Roles != nil {
		c.Roles = make([]Role, len(u.Roles))
		copy(c.Roles, u.Roles)
	}
	return &c
}

// CanAuthenticate reports whether the user may log in with an internal password.
func (u *User) CanAuthenticate() bool {
	return u.Status == StatusActive && u.Source == SourceInternal
}

// RoleIDs flattens the role references.
func (u *User) RoleIDs() []string {
	ids := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		ids = append(ids, r.ID)
	}
	return ids
}

// Credentials is the input of an authentication attempt. It is never persisted.
type Credentials struct {
	Username string
	Password string
	Totp     string
}

// AuthenticationResult carries the bearer token minted for a successful login.
type AuthenticationResult struct {
	Token string
}
