package ginkit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconops/crashkit"
	"github.com/beaconops/crashkit/ginkit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingSink struct {
	crashkit.NoopSink

	mu    sync.Mutex
	calls []notifyCall
}

type notifyCall struct {
	err   error
	extra map[string]any
}

func (s *recordingSink) Notify(_ context.Context, err error, extra map[string]any) (crashkit.EventID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, notifyCall{err: err, extra: extra})
	return "ev-1", nil
}

func (s *recordingSink) all() []notifyCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notifyCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func newNotifier(t *testing.T, sink crashkit.Sink) *crashkit.Notifier {
	t.Helper()
	n, err := crashkit.NewNotifier(crashkit.Config{}, crashkit.WithSink(sink))
	require.NoError(t, err)
	return n
}

func TestMiddleware_ReportsPanics(t *testing.T) {
	sink := &recordingSink{}
	r := gin.New()
	r.Use(ginkit.New(newNotifier(t, sink), ginkit.Options{}))
	r.GET("/panic", func(*gin.Context) {
		panic(errors.New("kaboom"))
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Request-ID", "r-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	calls := sink.all()
	require.Len(t, calls, 1)
	assert.EqualError(t, calls[0].err, "kaboom")
	assert.Equal(t, http.MethodGet, calls[0].extra["http_method"])
	assert.Equal(t, "/panic", calls[0].extra["http_path"])
	assert.Equal(t, "r-1", calls[0].extra["request_id"])
	assert.NotEmpty(t, calls[0].extra["client_ip"])
}

func TestMiddleware_WrapsNonErrorPanicValues(t *testing.T) {
	sink := &recordingSink{}
	r := gin.New()
	r.Use(ginkit.New(newNotifier(t, sink), ginkit.Options{}))
	r.GET("/panic", func(*gin.Context) {
		panic("out of cheese")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	calls := sink.all()
	require.Len(t, calls, 1)
	assert.EqualError(t, calls[0].err, "panic: out of cheese")
}

func TestMiddleware_RepanicLeavesResponseToOuterRecovery(t *testing.T) {
	sink := &recordingSink{}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginkit.New(newNotifier(t, sink), ginkit.Options{Repanic: true}))
	r.GET("/panic", func(*gin.Context) {
		panic(errors.New("kaboom"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, sink.all(), 1)
}

func TestMiddleware_ReportsRecordedErrors(t *testing.T) {
	sink := &recordingSink{}
	r := gin.New()
	r.Use(ginkit.New(newNotifier(t, sink), ginkit.Options{ReportErrors: true}))
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("first"))
		_ = c.Error(errors.New("second"))
		c.Status(http.StatusBadGateway)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)

	calls := sink.all()
	require.Len(t, calls, 2)
	assert.EqualError(t, calls[0].err, "first")
	assert.EqualError(t, calls[1].err, "second")
	assert.Equal(t, "/fail", calls[0].extra["http_path"])
}

func TestMiddleware_RecordedErrorsIgnoredByDefault(t *testing.T) {
	sink := &recordingSink{}
	r := gin.New()
	r.Use(ginkit.New(newNotifier(t, sink), ginkit.Options{}))
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("recorded"))
		c.Status(http.StatusBadGateway)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Empty(t, sink.all())
}

func TestMiddleware_QuietOnSuccess(t *testing.T) {
	sink := &recordingSink{}
	r := gin.New()
	r.Use(ginkit.New(newNotifier(t, sink), ginkit.Options{ReportErrors: true}))
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sink.all())
}
