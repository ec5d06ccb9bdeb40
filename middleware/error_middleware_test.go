package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCustomHTTPErrorHandler(t *testing.T) {
	tests := map[string]struct {
		err        error
		wantStatus int
		wantBody   string
	}{
		"echo HTTP error keeps its status": {
			err:        echo.NewHTTPError(http.StatusNotFound, "author not found"),
			wantStatus: http.StatusNotFound,
			wantBody:   `"error":"author not found"`,
		},
		"unknown error becomes generic 500": {
			err:        errors.New("pgx: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `"error":"internal server error"`,
		},
		"bad request passes through": {
			err:        echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `"error":"limit must be a positive integer"`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/v1/judgments", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			CustomHTTPErrorHandler(testLogger())(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}

	t.Run("committed response is left alone", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		assert.NoError(t, c.NoContent(http.StatusOK))

		CustomHTTPErrorHandler(testLogger())(errors.New("late failure"), c)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
