package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		method   string
		handler  echo.HandlerFunc
		wantCode int
		wantLog  []string
		wantBody string
	}{
		{
			name:     "no panic passes through silently",
			method:   http.MethodGet,
			handler:  func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
			wantCode: http.StatusOK,
			wantBody: "ok",
		},
		{
			name:     "string panic",
			method:   http.MethodGet,
			handler:  func(echo.Context) error { panic("state store exploded") },
			wantCode: http.StatusInternalServerError,
			wantLog:  []string{"panic recovered", "state store exploded", "method=GET", "stack="},
			wantBody: "internal server error",
		},
		{
			name:     "error panic",
			method:   http.MethodPut,
			handler:  func(echo.Context) error { panic(errors.New("nil engine")) },
			wantCode: http.StatusInternalServerError,
			wantLog:  []string{"nil engine", "method=PUT"},
			wantBody: "internal server error",
		},
		{
			name:     "non error value",
			method:   http.MethodPost,
			handler:  func(echo.Context) error { panic(42) },
			wantCode: http.StatusInternalServerError,
			wantLog:  []string{"error=42"},
		},
		{
			name:   "panic after response started keeps original status",
			method: http.MethodGet,
			handler: func(c echo.Context) error {
				_ = c.String(http.StatusAccepted, "partial")
				panic("late")
			},
			wantCode: http.StatusAccepted,
			wantLog:  []string{"late"},
			wantBody: "partial",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			e := echo.New()
			req := httptest.NewRequest(tt.method, "/api/v1/state", http.NoBody)
			rec := httptest.NewRecorder()

			err := Recovery(slog.New(slog.NewTextHandler(&buf, nil)))(tt.handler)(e.NewContext(req, rec))
			require.NoError(t, err)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			if len(tt.wantLog) == 0 {
				assert.Empty(t, buf.String())
			}
			for _, want := range tt.wantLog {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestRecovery_RepanicsAbortHandler(t *testing.T) {
	t.Parallel()

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", http.NoBody), httptest.NewRecorder())
	handler := Recovery(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(func(echo.Context) error {
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() { _ = handler(c) })
}

func TestRecovery_LogsRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e := echo.New()
	e.Use(RequestLog(logger), Recovery(logger))
	e.POST("/api/v1/poll", func(_ echo.Context) error {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/poll", http.NoBody)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "request_id=req-42")
	assert.Contains(t, buf.String(), "status=500")
}
