package errors

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/logging"
	"github.com/copyleftdev/atsp/internal/optimization"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"full", E("tsplib", "parse", ErrMalformed, "line %d", 3), "tsplib.parse: line 3: malformed input"},
		{"component only", &Error{Component: "export", Message: "bad format"}, "export: bad format"},
		{"operation only", &Error{Operation: "read", Err: ErrNotFound}, "read: not found"},
		{"no message", E("server", "cancel", ErrConflict, ""), "server.cancel: conflict"},
		{"bare", &Error{Message: "boom"}, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", E("storage", "get", ErrNotFound, "run %s", "abc"))

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrConflict))

	var e *Error
	require.True(t, As(err, &e))
	assert.Equal(t, "storage", e.Component)
	assert.Equal(t, "get", e.Operation)
}

func TestWrapf(t *testing.T) {
	assert.Nil(t, Wrapf(nil, "ignored"))

	_, openErr := os.Open("/nonexistent/instance.atsp")
	require.Error(t, openErr)

	wrapped := Wrapf(openErr, "open %s", "instance.atsp").WithComponent("tsplib").WithOperation("read")
	assert.True(t, Is(wrapped, os.ErrNotExist))
	assert.True(t, strings.HasPrefix(wrapped.Error(), "tsplib.read: open instance.atsp: "))
	assert.NotEmpty(t, wrapped.Stack)

	again := Wrapf(wrapped, "reopen")
	assert.Same(t, wrapped, again)
	assert.Equal(t, "reopen", again.Message)
}

func TestStackOf(t *testing.T) {
	err := E("export", "write", io.ErrShortWrite, "report")

	stack := StackOf(fmt.Errorf("cli: %w", err))
	require.NotEmpty(t, stack)
	assert.Contains(t, strings.Join(stack, "\n"), "testing.tRunner")
	for _, frame := range stack {
		assert.NotContains(t, frame, "internal/errors/")
	}

	assert.Nil(t, StackOf(io.EOF))
	assert.Nil(t, StackOf(nil))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", E("server", "status", ErrNotFound, "run x"), http.StatusNotFound},
		{"malformed", E("server", "solve", ErrMalformed, "body"), http.StatusBadRequest},
		{"invalid instance", fmt.Errorf("start: %w", atsp.ErrInvalidInstance), http.StatusBadRequest},
		{"invalid config", optimization.Invalidf("search", "validate", "bad"), http.StatusBadRequest},
		{"dimension", optimization.ErrDimension, http.StatusBadRequest},
		{"no move kinds", optimization.ErrNoMoveKinds, http.StatusBadRequest},
		{"conflict", E("server", "cancel", ErrConflict, "done"), http.StatusConflict},
		{"unsupported", E("tsplib", "parse", ErrUnsupported, "LOWER_ROW"), http.StatusUnprocessableEntity},
		{"unknown", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.ErrorLevel, &buf)

	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("explorer exploded")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "Recovered from panic")
	assert.Contains(t, buf.String(), "explorer exploded")
}

func TestErrorHandlerLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.WarnLevel, &buf)

	h := ErrorHandler(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Empty(t, buf.String())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Contains(t, buf.String(), "Request error")
	assert.Contains(t, buf.String(), "/missing")
}
