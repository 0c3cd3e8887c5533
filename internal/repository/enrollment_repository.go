package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/language-academy/internal/model"
)

// EnrollmentRepo stores (user, course) enrollments.  The table carries a
// unique key on (user_id, course_id).
type EnrollmentRepo struct{ DB *sql.DB }

func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo { return &EnrollmentRepo{DB: db} }

// Exists reports whether userID is enrolled in courseID.
func (r *EnrollmentRepo) Exists(ctx context.Context, userID, courseID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM enrollments WHERE user_id=? AND course_id=? LIMIT 1", userID, courseID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Create inserts one enrollment.  A concurrent or repeated insert for the
// same pair returns ErrDuplicate; callers decide whether that is success.
// A missing user or course returns ErrCourseNotFound.
func (r *EnrollmentRepo) Create(ctx context.Context, userID, courseID uint64) (model.Enrollment, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO enrollments (user_id, course_id, enrolled_at) VALUES (?,?,UTC_TIMESTAMP())",
		userID, courseID)
	if err != nil {
		switch {
		case isDuplicate(err):
			return model.Enrollment{}, ErrDuplicate
		case isForeignKey(err):
			return model.Enrollment{}, ErrCourseNotFound
		}
		return model.Enrollment{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Enrollment{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

func (r *EnrollmentRepo) GetByID(ctx context.Context, id uint64) (model.Enrollment, error) {
	var (
		e         model.Enrollment
		completed sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, course_id, enrolled_at, completed_at FROM enrollments WHERE id=?", id).
		Scan(&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt, &completed)
	if err != nil {
		return model.Enrollment{}, err
	}
	if completed.Valid {
		e.CompletedAt = &completed.Time
	}
	return e, nil
}

// ListByUser returns the courses a user is enrolled in, newest first.
func (r *EnrollmentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.EnrolledCourse, error) {
	const q = `SELECT e.id, e.user_id, e.course_id, e.enrolled_at, e.completed_at, c.title
	           FROM enrollments e
	           JOIN courses c ON c.id = e.course_id
	           WHERE e.user_id = ?
	           ORDER BY e.enrolled_at DESC, e.id DESC`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EnrolledCourse
	for rows.Next() {
		var (
			ec        model.EnrolledCourse
			completed sql.NullTime
		)
		if err := rows.Scan(&ec.ID, &ec.UserID, &ec.CourseID, &ec.EnrolledAt, &completed, &ec.CourseTitle); err != nil {
			return nil, err
		}
		if completed.Valid {
			t := completed.Time
			ec.CompletedAt = &t
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}
