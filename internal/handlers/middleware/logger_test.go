package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	entries []logEntry
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordingLogger) add(level string, msg string, args []any) {
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func TestRequestLogger(t *testing.T) {
	serve := func(t *testing.T, status int, path string, header http.Header) (*recordingLogger, *http.Response, string) {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, err := w.Write([]byte("hi"))
			require.NoError(t, err, "should write response")
		})

		l := &recordingLogger{}
		srv := httptest.NewServer(RequestLogger(l, "/api/health")(h))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		return l, resp, string(body)
	}

	t.Run("log served request", func(t *testing.T) {
		l, resp, body := serve(t, http.StatusTeapot, "/test?x=1", nil)

		require.Equal(t, http.StatusTeapot, resp.StatusCode)
		require.Equal(t, "hi", body)

		require.Len(t, l.entries, 1, "logger should be called once")
		entry := l.entries[0]
		require.Equal(t, "info", entry.level)
		require.Equal(t, "HTTP request served", entry.msg)
		require.Len(t, entry.args, 12, "logger should log 6 fields")

		requestID := resp.Header.Get(RequestIDHeader)
		require.NotEmpty(t, requestID, "request id should be generated")
		require.Equal(t, []any{
			"request_id", requestID,
			"method", "GET",
			"path", "/test",
			"status", http.StatusTeapot,
			"size", 2,
		}, entry.args[:10])
		require.Equal(t, "duration", entry.args[10])
	})

	t.Run("keep incoming request id", func(t *testing.T) {
		l, resp, _ := serve(t, http.StatusOK, "/test", http.Header{RequestIDHeader: {"req-1"}})

		require.Equal(t, "req-1", resp.Header.Get(RequestIDHeader))
		require.Equal(t, "req-1", l.entries[0].args[1])
	})

	t.Run("server error logged as error", func(t *testing.T) {
		l, _, _ := serve(t, http.StatusInternalServerError, "/test", nil)

		require.Equal(t, "error", l.entries[0].level)
		require.Equal(t, "HTTP request failed", l.entries[0].msg)
	})

	t.Run("quiet path logged at debug", func(t *testing.T) {
		l, _, _ := serve(t, http.StatusOK, "/api/health", nil)

		require.Equal(t, "debug", l.entries[0].level)
	})
}
