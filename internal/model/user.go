package model

import "time"

// User represents a student account as stored in the `users` table.
// IsAdmin mirrors the legacy users.is_admin column.  It is carried on
// end-user sessions for display only; the admin surface never trusts it
// and authenticates against the separate `admins` table instead.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  Name         – display name.
//  PasswordHash – bcrypt hashed password.
//  IsAdmin      – legacy flag, never used for authorization.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	Name         string    // users.name
	PasswordHash string    // users.password_hash
	IsAdmin      bool      // users.is_admin
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Admin is a row of the `admins` table.  Admin accounts log in through
// their own endpoint and receive opaque admin session tokens.
type Admin struct {
	ID           uint64    // admins.id
	Email        string    // admins.email
	Name         string    // admins.name
	PasswordHash string    // admins.password_hash
	IsActive     bool      // admins.is_active
	CreatedAt    time.Time // admins.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
