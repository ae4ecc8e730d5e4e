package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tvchannel/internal/app/channel"
	"github.com/osa030/tvchannel/internal/app/playback"
)

type stubFetcher map[string]string

func (f stubFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	doc, ok := f[ref]
	if !ok {
		return nil, errors.Newf("connection refused: %s", ref)
	}
	return []byte(doc), nil
}

func document(timecodes ...float64) string {
	parts := make([]string, len(timecodes))
	for i, tc := range timecodes {
		parts[i] = fmt.Sprintf(`{"title": "Talk %d", "description": "<p>About <b>%d</b></p>", "metadata": {"author": "A", "timecode": %g}}`, i, i, tc)
	}
	return `{"status": 200, "data": {"items": [` + strings.Join(parts, ",") + `]}}`
}

func newTestRouter(t *testing.T, fetcher stubFetcher, start bool) (*chi.Mux, *channel.Controller) {
	t.Helper()
	ch := channel.New(channel.Options{Name: "test", Source: "main", PollInterval: time.Hour},
		fetcher, playback.NewClockPlayer(playback.ClockConfig{Rate: 1}), nil)
	t.Cleanup(ch.Close)
	if start {
		require.NoError(t, ch.Start(context.Background()))
	}

	r := chi.NewRouter()
	NewHandler(ch).Routes(r)
	return r, ch
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_GetState(t *testing.T) {
	r, ch := newTestRouter(t, stubFetcher{"main": document(0, 30, 90)}, true)
	require.NoError(t, ch.Cursor().NavigateTo(1))

	rec := get(t, r, "/api/state")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var view StateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 1, view.ActiveIndex)
	assert.Equal(t, float64(30), view.LastTime)
	assert.Equal(t, 3, view.Length)
	assert.True(t, view.HasNext)
	assert.True(t, view.HasPrevious)
	assert.Equal(t, "playing", view.PlayerState)
	require.NotNil(t, view.Item)
	assert.Equal(t, "Talk 1", view.Item.Title)
	assert.Equal(t, "About 1", view.Item.Description)
}

func TestHandler_GetState_Empty(t *testing.T) {
	r, _ := newTestRouter(t, stubFetcher{}, false)

	rec := get(t, r, "/api/state")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active_index":-1`)
	assert.Contains(t, rec.Body.String(), `"item":null`)
}

func TestHandler_GetPlaylist(t *testing.T) {
	r, _ := newTestRouter(t, stubFetcher{"main": document(0, 30, 3700)}, true)

	rec := get(t, r, "/api/playlist")
	require.Equal(t, http.StatusOK, rec.Code)

	var view PlaylistView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "main", view.Source)
	require.Len(t, view.Items, 3)
	assert.Equal(t, 2, view.Items[2].Index)
	assert.Equal(t, "1:01:40", view.Items[2].TimecodeText)
	assert.Equal(t, float64(3700), view.LastTimecode)
}

func TestHandler_GetItem(t *testing.T) {
	r, _ := newTestRouter(t, stubFetcher{"main": document(0, 30)}, true)

	tests := []struct {
		path string
		want int
	}{
		{"/api/playlist/1", http.StatusOK},
		{"/api/playlist/2", http.StatusNotFound},
		{"/api/playlist/-1", http.StatusNotFound},
		{"/api/playlist/abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, get(t, r, tt.path).Code)
		})
	}
}

func TestHandler_Health(t *testing.T) {
	fetcher := stubFetcher{}
	r, ch := newTestRouter(t, fetcher, false)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, r, "/healthz").Code)

	fetcher["main"] = document(0)
	require.NoError(t, ch.Start(context.Background()))
	rec := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	ch.Close()
	assert.Equal(t, http.StatusServiceUnavailable, get(t, r, "/healthz").Code)
}

func TestHandler_Health_NotPolling(t *testing.T) {
	r, ch := newTestRouter(t, stubFetcher{"main": document(0)}, false)

	// Loaded without Start: the player is never sampled.
	_, err := ch.Reload(context.Background(), "")
	require.NoError(t, err)

	rec := get(t, r, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"not polling"`)
}
