package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/language-academy/internal/apperr"
	"github.com/iliyamo/language-academy/internal/policy"
	"github.com/iliyamo/language-academy/internal/repository"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// errorBody is the uniform error envelope.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ErrorHandler renders every error that reaches Echo as the error
// envelope.  Internal causes are logged with the request id and never
// sent to the client.
func ErrorHandler(log *charmlog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := render(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"method", c.Request().Method,
				"path", c.Path(),
				"err", err)
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Error("write error response", "err", werr)
		}
	}
}

func render(err error) (int, errorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		// router level errors: unknown route, wrong method, bad binding
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
			msg = s
		}
		return he.Code, errorBody{Error: msg, Code: httpCode(he.Code)}
	}
	e := apperr.From(err)
	return e.Status(), errorBody{Error: e.Message, Code: e.Code}
}

func httpCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusUnauthorized:
		return apperr.CodeUnauthorized
	case http.StatusBadRequest:
		return apperr.CodeInvalidBody
	case http.StatusRequestEntityTooLarge:
		return "BODY_TOO_LARGE"
	}
	if status >= http.StatusInternalServerError {
		return apperr.CodeInternal
	}
	return ""
}

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct{ v *validator.Validate }

func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *Validator) Validate(i any) error { return cv.v.Struct(i) }

// bind decodes the body into dst and validates it.  Decoding problems are
// INVALID_BODY, rule violations VALIDATION_FAILED naming the first field.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation(apperr.CodeInvalidBody, "invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			fe := ves[0]
			return apperr.Validation(apperr.CodeValidation, fe.Field()+" failed "+fe.Tag()+" validation")
		}
		return apperr.Validation(apperr.CodeValidation, "invalid request")
	}
	return nil
}

// pathID parses a positive id path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return policy.ParseID(c.Param(name))
}

var notFoundCodes = []struct {
	err  error
	code string
}{
	{repository.ErrCourseNotFound, "COURSE_NOT_FOUND"},
	{repository.ErrModuleNotFound, "MODULE_NOT_FOUND"},
	{repository.ErrLessonNotFound, "LESSON_NOT_FOUND"},
	{repository.ErrMaterialNotFound, "MATERIAL_NOT_FOUND"},
	{repository.ErrQuizNotFound, "QUIZ_NOT_FOUND"},
	{repository.ErrUserNotFound, "USER_NOT_FOUND"},
}

// storeErr maps repository not-found sentinels onto 404s and wraps
// everything else as an internal failure of op.
func storeErr(err error, op string) error {
	for _, nf := range notFoundCodes {
		if errors.Is(err, nf.err) {
			return apperr.NotFound(nf.code, nf.err.Error())
		}
	}
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}
