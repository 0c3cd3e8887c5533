package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/iliyamo/language-academy/internal/model"
)

const courseColumns = "id, title, description, language, level, is_published, created_at, updated_at"

// CourseRepo stores the top of the catalog tree.
type CourseRepo struct{ DB *sql.DB }

func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{DB: db} }

func scanCourse(row interface{ Scan(...any) error }) (model.Course, error) {
	var c model.Course
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Language, &c.Level, &c.IsPublished, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts c and sets its ID.
func (r *CourseRepo) Create(ctx context.Context, c *model.Course) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO courses (title, description, language, level, is_published) VALUES (?,?,?,?,?)",
		c.Title, c.Description, c.Language, c.Level, c.IsPublished)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID returns a course regardless of its published flag.
func (r *CourseRepo) GetByID(ctx context.Context, id uint64) (model.Course, error) {
	c, err := scanCourse(r.DB.QueryRowContext(ctx,
		"SELECT "+courseColumns+" FROM courses WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Course{}, ErrCourseNotFound
	}
	return c, err
}

// CourseFilter narrows List.  A zero Limit means no limit.
type CourseFilter struct {
	PublishedOnly bool
	Limit         int
	Offset        int
}

// List returns courses ordered by id.
func (r *CourseRepo) List(ctx context.Context, f CourseFilter) ([]model.Course, error) {
	qb := sq.Select(courseColumns).From("courses").OrderBy("id")
	if f.PublishedOnly {
		qb = qb.Where(sq.Eq{"is_published": true})
	}
	if f.Limit > 0 {
		qb = qb.Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	}
	q, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of c.
func (r *CourseRepo) Update(ctx context.Context, c model.Course) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE courses SET title=?, description=?, language=?, level=?, is_published=?, updated_at=UTC_TIMESTAMP()
		 WHERE id=?`,
		c.Title, c.Description, c.Language, c.Level, c.IsPublished, c.ID)
	if err != nil {
		return err
	}
	return affected(res, ErrCourseNotFound)
}

// Delete removes a course.  Modules, lessons and content cascade.
func (r *CourseRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM courses WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res, ErrCourseNotFound)
}

// affected maps a zero row count onto notFound.  The connection reports
// matched rows, so an UPDATE that changes nothing still counts.
func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
