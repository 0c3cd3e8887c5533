package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/language-academy/internal/model"
)

// ContentRepo stores the materials and quizzes hanging off lessons.
type ContentRepo struct{ DB *sql.DB }

func NewContentRepo(db *sql.DB) *ContentRepo { return &ContentRepo{DB: db} }

// CreateMaterial inserts m and sets its ID.
func (r *ContentRepo) CreateMaterial(ctx context.Context, m *model.LessonMaterial) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO lesson_materials (lesson_id, kind, title, body, url) VALUES (?,?,?,?,?)",
		m.LessonID, m.Kind, m.Title, m.Body, m.URL)
	if err != nil {
		if isForeignKey(err) {
			return ErrLessonNotFound
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

func (r *ContentRepo) ListMaterials(ctx context.Context, lessonID uint64) ([]model.LessonMaterial, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, lesson_id, kind, title, body, url, created_at FROM lesson_materials WHERE lesson_id=? ORDER BY id",
		lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LessonMaterial
	for rows.Next() {
		var m model.LessonMaterial
		if err := rows.Scan(&m.ID, &m.LessonID, &m.Kind, &m.Title, &m.Body, &m.URL, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ContentRepo) DeleteMaterial(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM lesson_materials WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res, ErrMaterialNotFound)
}

// CreateQuiz inserts q and sets its ID.  Options are stored as a JSON array.
func (r *ContentRepo) CreateQuiz(ctx context.Context, q *model.Quiz) error {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO quizzes (lesson_id, question, options, correct_index) VALUES (?,?,?,?)",
		q.LessonID, q.Question, opts, q.CorrectIndex)
	if err != nil {
		if isForeignKey(err) {
			return ErrLessonNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = uint64(id)
	return nil
}

func (r *ContentRepo) ListQuizzes(ctx context.Context, lessonID uint64) ([]model.Quiz, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, lesson_id, question, options, correct_index, created_at FROM quizzes WHERE lesson_id=? ORDER BY id",
		lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Quiz
	for rows.Next() {
		var (
			q    model.Quiz
			opts []byte
		)
		if err := rows.Scan(&q.ID, &q.LessonID, &q.Question, &opts, &q.CorrectIndex, &q.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(opts, &q.Options); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *ContentRepo) DeleteQuiz(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM quizzes WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res, ErrQuizNotFound)
}
