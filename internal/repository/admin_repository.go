package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/language-academy/internal/model"
)

// AdminRepo reads admin accounts.  Admins live in their own table and are
// provisioned out of band.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

const adminColumns = "id, email, name, password_hash, is_active, created_at"

func scanAdmin(row interface{ Scan(...any) error }) (model.Admin, error) {
	var a model.Admin
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.IsActive, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Admin{}, ErrAdminNotFound
	}
	return a, err
}

// GetByEmail fetches an admin by normalized email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (model.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanAdmin(r.DB.QueryRowContext(ctx,
		"SELECT "+adminColumns+" FROM admins WHERE email=? LIMIT 1", email))
}

// GetByID fetches an admin by id.
func (r *AdminRepo) GetByID(ctx context.Context, id uint64) (model.Admin, error) {
	return scanAdmin(r.DB.QueryRowContext(ctx,
		"SELECT "+adminColumns+" FROM admins WHERE id=? LIMIT 1", id))
}
