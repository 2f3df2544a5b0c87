package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveSeq runs one request per status through mw and returns the log lines.
func serveSeq(t *testing.T, mw echo.MiddlewareFunc, buf *bytes.Buffer, method, path string, statuses ...int) []string {
	t.Helper()

	e := echo.New()
	for _, status := range statuses {
		handler := mw(func(c echo.Context) error {
			return c.NoContent(status)
		})
		req := httptest.NewRequest(method, path, http.NoBody)
		require.NoError(t, handler(e.NewContext(req, httptest.NewRecorder())))
	}
	return logLines(buf)
}

func logLines(buf *bytes.Buffer) []string {
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestRequestLog_Sequences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		method    string
		path      string
		statuses  []int
		wantLines int
		wantWarns int
	}{
		{
			name:      "api path logs every request",
			method:    http.MethodGet,
			path:      "/api/v1/status",
			statuses:  []int{200, 200, 200},
			wantLines: 3,
		},
		{
			name:      "healthz logs only first success",
			method:    http.MethodGet,
			path:      "/healthz",
			statuses:  []int{200, 200, 200},
			wantLines: 1,
		},
		{
			name:      "readyz failures always logged at warn",
			method:    http.MethodGet,
			path:      "/readyz",
			statuses:  []int{503, 503},
			wantLines: 2,
			wantWarns: 2,
		},
		{
			name:      "readyz success suppressed then failure logged",
			method:    http.MethodGet,
			path:      "/readyz",
			statuses:  []int{200, 200, 503},
			wantLines: 2,
			wantWarns: 1,
		},
		{
			name:      "poll failure logged at warn",
			method:    http.MethodPost,
			path:      "/api/v1/poll",
			statuses:  []int{502, 409},
			wantLines: 2,
			wantWarns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			mw := RequestLog(slog.New(slog.NewTextHandler(&buf, nil)))
			lines := serveSeq(t, mw, &buf, tt.method, tt.path, tt.statuses...)

			require.Len(t, lines, tt.wantLines, "log:\n%s", buf.String())
			warns := 0
			for _, l := range lines {
				assert.Contains(t, l, "path="+tt.path)
				assert.Contains(t, l, "method="+tt.method)
				assert.Contains(t, l, "duration_ms=")
				if strings.Contains(l, "level=WARN") {
					warns++
				}
			}
			assert.Equal(t, tt.wantWarns, warns)
		})
	}
}

func TestRequestLog_RequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provided string
	}{
		{name: "generated when absent"},
		{name: "propagated when provided", provided: "req-abc-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			e := echo.New()
			req := httptest.NewRequest(http.MethodPut, "/api/v1/state", http.NoBody)
			if tt.provided != "" {
				req.Header.Set(requestIDHeader, tt.provided)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := RequestLog(slog.New(slog.NewTextHandler(&buf, nil)))(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			require.NoError(t, handler(c))

			respID := rec.Header().Get(requestIDHeader)
			require.NotEmpty(t, respID)
			assert.Equal(t, respID, c.Get("request_id"))
			assert.Contains(t, buf.String(), "request_id="+respID)
			if tt.provided != "" {
				assert.Equal(t, tt.provided, respID)
			}
		})
	}
}

func TestRequestLog_ProbeSuppressionIsPerInstance(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	first := RequestLog(slog.New(slog.NewTextHandler(&a, nil)))
	second := RequestLog(slog.New(slog.NewTextHandler(&b, nil)))

	assert.Len(t, serveSeq(t, first, &a, http.MethodGet, "/healthz", 200, 200), 1)
	assert.Len(t, serveSeq(t, second, &b, http.MethodGet, "/healthz", 200), 1,
		"a fresh middleware logs its own first probe")
}
