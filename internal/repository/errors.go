// Package repository defines the MySQL gateways and the sentinel errors
// they share.  Handlers and services translate these sentinels into
// apperr values; raw driver errors are treated as infrastructure failures.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrDuplicate is returned when an insert hits a unique key.
	ErrDuplicate = errors.New("duplicate")

	ErrUserNotFound     = errors.New("user not found")
	ErrAdminNotFound    = errors.New("admin not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrModuleNotFound   = errors.New("module not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrMaterialNotFound = errors.New("material not found")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrRefreshNotFound  = errors.New("refresh token not found")
	ErrEmailExists      = errors.New("email already exists")
)

// MySQL server error numbers.
const (
	mysqlDuplicateEntry = 1062 // ER_DUP_ENTRY
	mysqlNoParentRow    = 1452 // ER_NO_REFERENCED_ROW_2
)

// isDuplicate reports whether err is a MySQL duplicate-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// isForeignKey reports whether err is an insert referencing a missing
// parent row.
func isForeignKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlNoParentRow
}
