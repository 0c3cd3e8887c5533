package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/language-academy/internal/model"
)

// LessonRepo stores lessons and resolves where a lesson sits in the
// catalog tree.
type LessonRepo struct{ DB *sql.DB }

func NewLessonRepo(db *sql.DB) *LessonRepo { return &LessonRepo{DB: db} }

const lessonColumns = "id, module_id, title, order_index, free_preview, created_at"

func scanLesson(row interface{ Scan(...any) error }) (model.Lesson, error) {
	var l model.Lesson
	err := row.Scan(&l.ID, &l.ModuleID, &l.Title, &l.OrderIndex, &l.FreePreview, &l.CreatedAt)
	return l, err
}

// Create inserts l under its module and sets its ID.
func (r *LessonRepo) Create(ctx context.Context, l *model.Lesson) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO lessons (module_id, title, order_index, free_preview) VALUES (?,?,?,?)",
		l.ModuleID, l.Title, l.OrderIndex, l.FreePreview)
	if err != nil {
		if isForeignKey(err) {
			return ErrModuleNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

func (r *LessonRepo) GetByID(ctx context.Context, id uint64) (model.Lesson, error) {
	l, err := scanLesson(r.DB.QueryRowContext(ctx,
		"SELECT "+lessonColumns+" FROM lessons WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Lesson{}, ErrLessonNotFound
	}
	return l, err
}

func (r *LessonRepo) ListByModule(ctx context.Context, moduleID uint64) ([]model.Lesson, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+lessonColumns+" FROM lessons WHERE module_id=? ORDER BY order_index, id", moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LessonRepo) Update(ctx context.Context, l model.Lesson) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE lessons SET title=?, order_index=?, free_preview=? WHERE id=?",
		l.Title, l.OrderIndex, l.FreePreview, l.ID)
	if err != nil {
		return err
	}
	return affected(res, ErrLessonNotFound)
}

func (r *LessonRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM lessons WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res, ErrLessonNotFound)
}

// UpdateOrder moves one lesson of moduleID; false when it is not there.
func (r *LessonRepo) UpdateOrder(ctx context.Context, moduleID, id uint64, orderIndex int) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE lessons SET order_index=? WHERE id=? AND module_id=?", orderIndex, id, moduleID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Locate walks Lesson -> Module -> Course in one query.
func (r *LessonRepo) Locate(ctx context.Context, lessonID uint64) (model.LessonLocation, error) {
	const q = `SELECT l.id, m.id, c.id, l.free_preview, c.is_published
	           FROM lessons l
	           JOIN modules m ON m.id = l.module_id
	           JOIN courses c ON c.id = m.course_id
	           WHERE l.id = ?`
	var loc model.LessonLocation
	err := r.DB.QueryRowContext(ctx, q, lessonID).
		Scan(&loc.LessonID, &loc.ModuleID, &loc.CourseID, &loc.FreePreview, &loc.CoursePublished)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LessonLocation{}, ErrLessonNotFound
	}
	return loc, err
}
