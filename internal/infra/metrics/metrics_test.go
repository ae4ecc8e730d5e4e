package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()

	assert.Equal(t, float64(-1), testutil.ToFloat64(m.activeIndex))

	m.ObserveTransition("time", 2)
	m.ObserveTransition("time", 3)
	m.ObserveTransition("navigation", 1)
	m.ObserveLoad(LoadOK)
	m.ObserveLoad(LoadUnavailable)
	m.SetPlaylistLength(5)
	m.IncSamplesSkipped()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.transitions.WithLabelValues("time")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("navigation")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.activeIndex))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.loads.WithLabelValues(LoadUnavailable)))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.playlistLength))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.samplesSkipped))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	updated := false

	rec := httptest.NewRecorder()
	m.Handler(func() {
		updated = true
		m.SetSubscribers(4)
	}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, updated)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "tvchannel_subscribers 4")
}

func TestRequestMiddleware(t *testing.T) {
	m := New()
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errorsTotal))
}
