package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/language-academy/internal/model"
)

// ModuleRepo stores course modules.
type ModuleRepo struct{ DB *sql.DB }

func NewModuleRepo(db *sql.DB) *ModuleRepo { return &ModuleRepo{DB: db} }

const moduleColumns = "id, course_id, title, order_index, created_at"

func scanModule(row interface{ Scan(...any) error }) (model.Module, error) {
	var m model.Module
	err := row.Scan(&m.ID, &m.CourseID, &m.Title, &m.OrderIndex, &m.CreatedAt)
	return m, err
}

// Create inserts m under its course and sets its ID.  A missing course
// surfaces as ErrCourseNotFound through the foreign key.
func (r *ModuleRepo) Create(ctx context.Context, m *model.Module) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO modules (course_id, title, order_index) VALUES (?,?,?)",
		m.CourseID, m.Title, m.OrderIndex)
	if err != nil {
		if isForeignKey(err) {
			return ErrCourseNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

func (r *ModuleRepo) GetByID(ctx context.Context, id uint64) (model.Module, error) {
	m, err := scanModule(r.DB.QueryRowContext(ctx,
		"SELECT "+moduleColumns+" FROM modules WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Module{}, ErrModuleNotFound
	}
	return m, err
}

// ListByCourse returns the course outline in display order.
func (r *ModuleRepo) ListByCourse(ctx context.Context, courseID uint64) ([]model.Module, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+moduleColumns+" FROM modules WHERE course_id=? ORDER BY order_index, id", courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ModuleRepo) Update(ctx context.Context, m model.Module) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE modules SET title=?, order_index=? WHERE id=?", m.Title, m.OrderIndex, m.ID)
	if err != nil {
		return err
	}
	return affected(res, ErrModuleNotFound)
}

func (r *ModuleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM modules WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res, ErrModuleNotFound)
}

// UpdateOrder moves one module of courseID.  It reports false when the
// module does not exist or belongs to another course.
func (r *ModuleRepo) UpdateOrder(ctx context.Context, courseID, id uint64, orderIndex int) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE modules SET order_index=? WHERE id=? AND course_id=?", orderIndex, id, courseID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
