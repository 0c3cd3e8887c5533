package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/language-academy/internal/apperr"
	"github.com/iliyamo/language-academy/internal/repository"
)

func newContext(method, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var b errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b
}

func TestErrorHandlerHidesInternalCause(t *testing.T) {
	var logs bytes.Buffer
	log := charmlog.New(&logs)

	c, rec := newContext(http.MethodGet, "")
	ErrorHandler(log)(apperr.Internal(errors.New("dial tcp 10.0.0.3:3306: refused")), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	b := decodeBody(t, rec)
	assert.Equal(t, apperr.CodeInternal, b.Code)
	assert.NotContains(t, b.Error, "10.0.0.3")
	assert.Contains(t, logs.String(), "10.0.0.3", "cause is logged server side")
}

func TestErrorHandlerRendersAppErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.Validation(apperr.CodeInvalidID, "invalid id"), http.StatusBadRequest, apperr.CodeInvalidID},
		{apperr.Authentication(apperr.CodeAuthenticationRequired, "authentication required"), http.StatusUnauthorized, apperr.CodeAuthenticationRequired},
		{apperr.Authorization(apperr.CodeNotEnrolled, "not enrolled"), http.StatusForbidden, apperr.CodeNotEnrolled},
		{apperr.NotFound("COURSE_NOT_FOUND", "course not found"), http.StatusNotFound, "COURSE_NOT_FOUND"},
		{echo.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{echo.NewHTTPError(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "")
			ErrorHandler(charmlog.New(&bytes.Buffer{}))(tc.err, c)
			assert.Equal(t, tc.status, rec.Code)
			b := decodeBody(t, rec)
			assert.Equal(t, tc.code, b.Code)
			assert.NotEmpty(t, b.Error)
		})
	}
}

func TestErrorHandlerHeadHasNoBody(t *testing.T) {
	c, rec := newContext(http.MethodHead, "")
	ErrorHandler(charmlog.New(&bytes.Buffer{}))(echo.ErrNotFound, c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

type sampleReq struct {
	Email string `json:"email" validate:"required,email"`
	Count int    `json:"count" validate:"gte=1"`
}

func TestBind(t *testing.T) {
	var ok sampleReq
	c, _ := newContext(http.MethodPost, `{"email":"a@b.test","count":2}`)
	require.NoError(t, bind(c, &ok))
	assert.Equal(t, 2, ok.Count)

	c, _ = newContext(http.MethodPost, `{"email":`)
	assert.True(t, apperr.Is(bind(c, &sampleReq{}), apperr.CodeInvalidBody))

	c, _ = newContext(http.MethodPost, `{"email":"a@b.test","count":0}`)
	err := bind(c, &sampleReq{})
	require.True(t, apperr.Is(err, apperr.CodeValidation))
	assert.Equal(t, "Count failed gte validation", apperr.From(err).Message)
}

func TestStoreErr(t *testing.T) {
	err := storeErr(repository.ErrQuizNotFound, "delete quiz")
	assert.True(t, apperr.Is(err, "QUIZ_NOT_FOUND"))
	assert.Equal(t, http.StatusNotFound, apperr.From(err).Status())

	err = storeErr(errors.New("deadlock"), "delete quiz")
	assert.Equal(t, http.StatusInternalServerError, apperr.From(err).Status())
	assert.Contains(t, err.Error(), "delete quiz: deadlock")
}
