package connect

import (
	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/tvchannel/internal/app/channel"
	"github.com/osa030/tvchannel/internal/app/cursor"
	"github.com/osa030/tvchannel/internal/app/playback"
	"github.com/osa030/tvchannel/internal/app/store"
	"github.com/osa030/tvchannel/internal/domain/item"
	"github.com/osa030/tvchannel/internal/domain/playlist"
)

// Stream message types.
const (
	MessageInitialState = "initial_state"
	MessageChange       = "change"
)

// itemFields converts an item to a struct-compatible map.
func itemFields(index int, it item.Item) map[string]any {
	fields := map[string]any{
		"index":         index,
		"title":         it.Title,
		"presenter":     it.Presenter,
		"description":   it.Description,
		"timecode":      it.Timecode,
		"timecode_text": it.FormatTimecode(),
		"thumbnail_url": it.ThumbnailURL,
	}
	if it.HasMediaSource() {
		fields["media_source"] = it.MediaSource
	}
	return fields
}

// stateFields converts a snapshot to a struct-compatible map.
func stateFields(snap channel.Snapshot) map[string]any {
	fields := map[string]any{
		"channel":      snap.Name,
		"source":       snap.Source,
		"active_index": snap.State.ActiveIndex,
		"last_time":    snap.State.LastTime,
		"length":       snap.Length,
		"has_next":     snap.HasNext,
		"has_previous": snap.HasPrevious,
		"player_state": snap.PlayerState.String(),
		"item":         nil,
	}
	if snap.Item != nil {
		fields["item"] = itemFields(snap.State.ActiveIndex, *snap.Item)
	}
	return fields
}

// newStateMessage builds the GetState response.
func newStateMessage(snap channel.Snapshot) (*structpb.Struct, error) {
	return newStruct(stateFields(snap))
}

// newPlaylistMessage builds the GetPlaylist response.
func newPlaylistMessage(source string, p *playlist.Playlist) (*structpb.Struct, error) {
	items := p.Items()
	list := make([]any, len(items))
	for i, it := range items {
		list[i] = itemFields(i, it)
	}
	return newStruct(map[string]any{
		"source":        source,
		"items":         list,
		"last_timecode": p.LastTimecode(),
	})
}

// newInitialMessage builds the first message of a subscription stream.
func newInitialMessage(seq uint64, snap channel.Snapshot) (*structpb.Struct, error) {
	return newStruct(map[string]any{
		"type":        MessageInitialState,
		"sequence_no": seq,
		"state":       stateFields(snap),
	})
}

// newChangeMessage builds a subscription stream message for a cursor change.
func newChangeMessage(seq uint64, change cursor.Change) (*structpb.Struct, error) {
	fields := map[string]any{
		"type":         MessageChange,
		"sequence_no":  seq,
		"cause":        change.Cause.String(),
		"active_index": change.State.ActiveIndex,
		"previous":     change.Previous,
		"last_time":    change.State.LastTime,
		"item":         nil,
	}
	if change.Item != nil {
		fields["item"] = itemFields(change.State.ActiveIndex, *change.Item)
	}
	return newStruct(fields)
}

// newCommandsMessage builds the ReportTime response.
func newCommandsMessage(cmds []playback.Command) (*structpb.Struct, error) {
	list := make([]any, len(cmds))
	for i, cmd := range cmds {
		list[i] = map[string]any{
			"type": cmd.Type.String(),
			"time": cmd.Time,
		}
	}
	return newStruct(map[string]any{"commands": list})
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, errors.Wrap(err, "encode message"))
	}
	return s, nil
}

// toConnectError maps domain errors to Connect codes.
func toConnectError(err error) error {
	var code connect.Code
	switch {
	case errors.Is(err, cursor.ErrOutOfRange):
		code = connect.CodeOutOfRange
	case errors.Is(err, store.ErrMalformedPayload):
		code = connect.CodeInvalidArgument
	case errors.Is(err, store.ErrSourceUnavailable):
		code = connect.CodeUnavailable
	case errors.Is(err, channel.ErrClosed):
		code = connect.CodeUnavailable
	case errors.Is(err, playback.ErrNegative):
		code = connect.CodeInvalidArgument
	default:
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}
