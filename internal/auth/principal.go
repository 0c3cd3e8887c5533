// Package auth resolves the identity behind a request.  Two session systems
// exist side by side and never interoperate: end-user sessions (JWT access
// tokens carried in a cookie or bearer header) resolved by Resolver, and
// admin sessions (opaque bearer tokens) held by AdminSessionStore.  Each
// produces its own Principal variant.
package auth

import "strconv"

// Principal is the resolved caller of one request.  The set of
// implementations is closed: Anonymous, User and Admin.
type Principal interface {
	// ID returns the opaque identifier of the caller, empty for Anonymous.
	ID() string
	// Email returns the caller email, empty for Anonymous.
	Email() string
	principal()
}

// Anonymous is a caller without any valid identity.
type Anonymous struct{}

func (Anonymous) ID() string    { return "" }
func (Anonymous) Email() string { return "" }
func (Anonymous) principal()    {}

// User is an end-user resolved from a student session.  IsAdmin reflects the
// flag stored on that session and is never sufficient for admin actions.
type User struct {
	UserID    uint64
	UserEmail string
	IsAdmin   bool
}

func (u User) ID() string    { return strconv.FormatUint(u.UserID, 10) }
func (u User) Email() string { return u.UserEmail }
func (User) principal()      {}

// Admin is an administrator resolved from a valid admin session token.
type Admin struct {
	AdminID      uint64
	AdminEmail   string
	SessionToken string
}

func (a Admin) ID() string    { return strconv.FormatUint(a.AdminID, 10) }
func (a Admin) Email() string { return a.AdminEmail }
func (Admin) principal()      {}

// Kind returns a short label for logs and metrics.
func Kind(p Principal) string {
	switch p.(type) {
	case User:
		return "user"
	case Admin:
		return "admin"
	default:
		return "anonymous"
	}
}
