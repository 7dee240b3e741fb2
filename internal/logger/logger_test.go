package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriterJSON(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	var buf bytes.Buffer
	l := SetupWriter(&buf)
	l.Debug("mapcache_decode_done", "key", "bass")

	assert.Contains(t, buf.String(), `"msg":"mapcache_decode_done"`)
	assert.Contains(t, buf.String(), `"key":"bass"`)
	assert.Same(t, l, L())
}

func TestLevelFiltersDebug(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "")
	var buf bytes.Buffer
	l := SetupWriter(&buf)
	l.Info("ignored")
	l.Warn("kept")

	assert.NotContains(t, buf.String(), "ignored")
	assert.Contains(t, buf.String(), "kept")
}

func TestForAddsComponent(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	SetupWriter(&buf)
	For("graph").Info("graph_build_done")
	assert.Contains(t, buf.String(), `"component":"graph"`)
}

func TestAccessMiddlewareRecordsStatus(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	var buf bytes.Buffer
	l := SetupWriter(&buf)

	h := AccessMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/divisions?x=1", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"bytes":2`)
	assert.Contains(t, buf.String(), `"path":"/divisions"`)
}
