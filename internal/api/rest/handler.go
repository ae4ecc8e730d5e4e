// Package rest provides read-only JSON endpoints for browser clients.
package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tvchannel/internal/app/channel"
	"github.com/osa030/tvchannel/internal/domain/item"
)

// ItemView is the JSON form of a playlist item.
type ItemView struct {
	Index        int     `json:"index"`
	Title        string  `json:"title"`
	Presenter    string  `json:"presenter"`
	Description  string  `json:"description,omitempty"`
	Timecode     float64 `json:"timecode"`
	TimecodeText string  `json:"timecode_text"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	MediaSource  string  `json:"media_source,omitempty"`
}

// StateView is the JSON form of the channel state.
type StateView struct {
	Channel     string    `json:"channel"`
	Source      string    `json:"source"`
	ActiveIndex int       `json:"active_index"`
	LastTime    float64   `json:"last_time"`
	Length      int       `json:"length"`
	HasNext     bool      `json:"has_next"`
	HasPrevious bool      `json:"has_previous"`
	PlayerState string    `json:"player_state"`
	Item        *ItemView `json:"item"`
}

// PlaylistView is the JSON form of the playlist.
type PlaylistView struct {
	Source       string     `json:"source"`
	LastTimecode float64    `json:"last_timecode"`
	Items        []ItemView `json:"items"`
}

// Handler exposes the channel over plain HTTP.
type Handler struct {
	channel *channel.Controller
}

// NewHandler returns a Handler for ch.
func NewHandler(ch *channel.Controller) *Handler {
	return &Handler{channel: ch}
}

// Routes mounts the endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Get("/playlist", h.GetPlaylist)
		r.Get("/playlist/{index}", h.GetItem)
	})
}

// GetState handles GET /api/state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	snap := h.channel.Snapshot()
	view := StateView{
		Channel:     snap.Name,
		Source:      snap.Source,
		ActiveIndex: snap.State.ActiveIndex,
		LastTime:    snap.State.LastTime,
		Length:      snap.Length,
		HasNext:     snap.HasNext,
		HasPrevious: snap.HasPrevious,
		PlayerState: snap.PlayerState.String(),
	}
	if snap.Item != nil {
		iv := newItemView(snap.State.ActiveIndex, *snap.Item)
		view.Item = &iv
	}
	writeJSON(w, http.StatusOK, view)
}

// GetPlaylist handles GET /api/playlist.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	p := h.channel.Cursor().Playlist()
	items := p.Items()
	view := PlaylistView{
		Source:       h.channel.Store().Source(),
		LastTimecode: p.LastTimecode(),
		Items:        make([]ItemView, len(items)),
	}
	for i, it := range items {
		view.Items[i] = newItemView(i, it)
	}
	writeJSON(w, http.StatusOK, view)
}

// GetItem handles GET /api/playlist/{index}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	it, ok := h.channel.Cursor().Playlist().At(index)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newItemView(index, it))
}

// Health handles GET /healthz.
// It reports 503 until a playlist has been loaded and while the player is
// not being polled.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.channel.Done():
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "closed"})
		return
	default:
	}

	if h.channel.Store().Source() == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	if !h.channel.Polling() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not polling"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"items":  h.channel.Cursor().Playlist().Len(),
	})
}

func newItemView(index int, it item.Item) ItemView {
	return ItemView{
		Index:        index,
		Title:        it.Title,
		Presenter:    it.Presenter,
		Description:  it.Description,
		Timecode:     it.Timecode,
		TimecodeText: it.FormatTimecode(),
		ThumbnailURL: it.ThumbnailURL,
		MediaSource:  it.MediaSource,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Debug().Msgf("rest: write response failed: %v", err)
	}
}
