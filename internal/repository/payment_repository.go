package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/iliyamo/language-academy/internal/model"
)

// PaymentRepo stores verified checkout sessions.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

// Create records p.  The provider session id is unique, so verifying the
// same checkout twice returns ErrDuplicate.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO payments (user_id, course_id, provider_session_id, amount_cents, currency, status)
		 VALUES (?,?,?,?,?,?)`,
		p.UserID, p.CourseID, p.ProviderSessionID, p.AmountCents, p.Currency, p.Status)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// PaymentFilter pages the admin payment listing.  UserID narrows it to one
// user when non-zero.
type PaymentFilter struct {
	UserID uint64
	Limit  int
	Offset int
}

// List returns payments newest first together with the total count.
func (r *PaymentRepo) List(ctx context.Context, f PaymentFilter) ([]model.Payment, int64, error) {
	where := sq.And{}
	if f.UserID > 0 {
		where = append(where, sq.Eq{"user_id": f.UserID})
	}

	countQ, countArgs, err := sq.Select("COUNT(*)").From("payments").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.DB.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q, args, err := sq.Select("id, user_id, course_id, provider_session_id, amount_cents, currency, status, created_at").
		From("payments").Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(f.Limit)).Offset(uint64(f.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Payment, 0, f.Limit)
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.CourseID, &p.ProviderSessionID, &p.AmountCents, &p.Currency, &p.Status, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
