package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/language-academy/internal/model"
)

// ProgressRepo records completed lessons.
type ProgressRepo struct{ DB *sql.DB }

func NewProgressRepo(db *sql.DB) *ProgressRepo { return &ProgressRepo{DB: db} }

// MarkComplete records that userID finished lessonID.  Completing a lesson
// again keeps the first completion time.
func (r *ProgressRepo) MarkComplete(ctx context.Context, userID, lessonID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO lesson_progress (user_id, lesson_id, completed_at) VALUES (?,?,UTC_TIMESTAMP())
		 ON DUPLICATE KEY UPDATE completed_at=completed_at`,
		userID, lessonID)
	return err
}

// CourseProgress summarizes the lessons of courseID completed by userID.
func (r *ProgressRepo) CourseProgress(ctx context.Context, userID, courseID uint64) (model.CourseProgress, error) {
	out := model.CourseProgress{CourseID: courseID}

	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lessons l JOIN modules m ON m.id = l.module_id WHERE m.course_id = ?`,
		courseID).Scan(&out.TotalLessons)
	if err != nil {
		return model.CourseProgress{}, err
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.user_id, p.lesson_id, p.completed_at
		 FROM lesson_progress p
		 JOIN lessons l ON l.id = p.lesson_id
		 JOIN modules m ON m.id = l.module_id
		 WHERE p.user_id = ? AND m.course_id = ?
		 ORDER BY p.completed_at`, userID, courseID)
	if err != nil {
		return model.CourseProgress{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var p model.LessonProgress
		if err := rows.Scan(&p.UserID, &p.LessonID, &p.CompletedAt); err != nil {
			return model.CourseProgress{}, err
		}
		out.Completed = append(out.Completed, p)
	}
	if err := rows.Err(); err != nil {
		return model.CourseProgress{}, err
	}
	out.Percent = model.ProgressPercent(len(out.Completed), out.TotalLessons)
	return out, nil
}

