package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/language-academy/internal/model"
)

func TestCourseListPublishedOnly(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE is_published = ? ORDER BY id")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "language", "level", "is_published", "created_at", "updated_at"}).
			AddRow(1, "Spanish A1", "", "es", "A1", true, now, now))

	courses, err := NewCourseRepo(db).List(context.Background(), CourseFilter{PublishedOnly: true})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "es", courses[0].Language)
}

func TestCourseUpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE courses SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewCourseRepo(db).Update(context.Background(), model.Course{ID: 3, Title: "x"})
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM courses WHERE id=").WithArgs(uint64(5)).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewCourseRepo(db).GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestModuleCreateUnknownCourse(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO modules").
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "foreign key"})

	err := NewModuleRepo(db).Create(context.Background(), &model.Module{CourseID: 99, Title: "Intro"})
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestModuleUpdateOrder(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE modules SET order_index=? WHERE id=? AND course_id=?")).
		WithArgs(2, uint64(5), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE modules SET order_index=? WHERE id=? AND course_id=?")).
		WithArgs(1, uint64(9), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewModuleRepo(db)
	ok, err := repo.UpdateOrder(context.Background(), 1, 5, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateOrder(context.Background(), 1, 9, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLessonLocate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM lessons l\\s+JOIN modules m").
		WithArgs(uint64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"l.id", "m.id", "c.id", "free_preview", "is_published"}).
			AddRow(12, 4, 2, true, false))

	loc, err := NewLessonRepo(db).Locate(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, model.LessonLocation{LessonID: 12, ModuleID: 4, CourseID: 2, FreePreview: true}, loc)
}

func TestLessonLocateMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM lessons l").WillReturnRows(sqlmock.NewRows([]string{"l.id"}))

	_, err := NewLessonRepo(db).Locate(context.Background(), 12)
	assert.ErrorIs(t, err, ErrLessonNotFound)
}

func TestQuizOptionsRoundTripThroughJSONColumn(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContentRepo(db)

	mock.ExpectExec("INSERT INTO quizzes").
		WithArgs(uint64(3), "Hola means?", []byte(`["bye","hello"]`), 1).
		WillReturnResult(sqlmock.NewResult(8, 1))
	q := &model.Quiz{LessonID: 3, Question: "Hola means?", Options: []string{"bye", "hello"}, CorrectIndex: 1}
	require.NoError(t, repo.CreateQuiz(context.Background(), q))
	assert.Equal(t, uint64(8), q.ID)

	mock.ExpectQuery("FROM quizzes WHERE lesson_id=").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "lesson_id", "question", "options", "correct_index", "created_at"}).
			AddRow(8, 3, "Hola means?", []byte(`["bye","hello"]`), 1, time.Now()))
	quizzes, err := repo.ListQuizzes(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Equal(t, []string{"bye", "hello"}, quizzes[0].Options)
}

func TestDeleteMaterialMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("DELETE FROM lesson_materials").WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewContentRepo(db).DeleteMaterial(context.Background(), 1)
	assert.ErrorIs(t, err, ErrMaterialNotFound)
}
