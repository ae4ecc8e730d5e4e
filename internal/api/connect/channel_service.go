// Package connect provides the Connect RPC channel service.
package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/osa030/tvchannel/internal/app/channel"
	"github.com/osa030/tvchannel/internal/app/cursor"
	"github.com/osa030/tvchannel/internal/app/playback"
)

// ChannelServiceName is the fully-qualified name of the channel service.
const ChannelServiceName = "tvchannel.v1.ChannelService"

// Procedure paths of the channel service.
const (
	GetStateProcedure    = "/" + ChannelServiceName + "/GetState"
	GetPlaylistProcedure = "/" + ChannelServiceName + "/GetPlaylist"
	NavigateProcedure    = "/" + ChannelServiceName + "/Navigate"
	NextProcedure        = "/" + ChannelServiceName + "/Next"
	PreviousProcedure    = "/" + ChannelServiceName + "/Previous"
	ReportTimeProcedure  = "/" + ChannelServiceName + "/ReportTime"
	ReloadProcedure      = "/" + ChannelServiceName + "/Reload"
	SubscribeProcedure   = "/" + ChannelServiceName + "/Subscribe"
)

// subscriberBuffer is the number of changes buffered per stream.
const subscriberBuffer = 64

// ChannelService implements the ChannelService RPC.
type ChannelService struct {
	channel *channel.Controller
}

// NewChannelService creates a new ChannelService.
func NewChannelService(ch *channel.Controller) *ChannelService {
	return &ChannelService{channel: ch}
}

// NewChannelServiceHandler builds an HTTP handler serving every procedure
// of svc. It returns the path prefix to mount the handler on.
func NewChannelServiceHandler(svc *ChannelService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, svc.GetState, opts...))
	mux.Handle(GetPlaylistProcedure, connect.NewUnaryHandler(GetPlaylistProcedure, svc.GetPlaylist, opts...))
	mux.Handle(NavigateProcedure, connect.NewUnaryHandler(NavigateProcedure, svc.Navigate, opts...))
	mux.Handle(NextProcedure, connect.NewUnaryHandler(NextProcedure, svc.Next, opts...))
	mux.Handle(PreviousProcedure, connect.NewUnaryHandler(PreviousProcedure, svc.Previous, opts...))
	mux.Handle(ReportTimeProcedure, connect.NewUnaryHandler(ReportTimeProcedure, svc.ReportTime, opts...))
	mux.Handle(ReloadProcedure, connect.NewUnaryHandler(ReloadProcedure, svc.Reload, opts...))
	mux.Handle(SubscribeProcedure, connect.NewServerStreamHandler(SubscribeProcedure, svc.Subscribe, opts...))
	return "/" + ChannelServiceName + "/", mux
}

// GetState returns the current channel state.
func (s *ChannelService) GetState(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return s.stateResponse()
}

// GetPlaylist returns every item of the current playlist.
func (s *ChannelService) GetPlaylist(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	msg, err := newPlaylistMessage(s.channel.Store().Source(), s.channel.Cursor().Playlist())
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(msg), nil
}

// Navigate makes the requested index active and seeks the player.
func (s *ChannelService) Navigate(
	ctx context.Context,
	req *connect.Request[wrapperspb.Int32Value],
) (*connect.Response[structpb.Struct], error) {
	if err := s.channel.Cursor().NavigateTo(int(req.Msg.GetValue())); err != nil {
		return nil, toConnectError(err)
	}
	return s.stateResponse()
}

// Next moves to the following item. At the last item it is a no-op.
func (s *ChannelService) Next(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.channel.Cursor().Next(); err != nil {
		return nil, toConnectError(err)
	}
	return s.stateResponse()
}

// Previous moves to the preceding item. At the first item it is a no-op.
func (s *ChannelService) Previous(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.channel.Cursor().Previous(); err != nil {
		return nil, toConnectError(err)
	}
	return s.stateResponse()
}

// ReportTime records the position of a remote player and returns the
// commands queued for it. Fields: time (seconds), paused (bool), and
// optionally state ("playing" or "paused"), which takes precedence over paused.
func (s *ChannelService) ReportTime(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	remote, ok := s.channel.Player().(*playback.RemotePlayer)
	if !ok {
		return nil, connect.NewError(connect.CodeFailedPrecondition,
			errors.Newf("player %T does not accept time reports", s.channel.Player()))
	}

	fields := req.Msg.GetFields()
	timeValue, ok := fields["time"]
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("time is required"))
	}
	if _, isNumber := timeValue.GetKind().(*structpb.Value_NumberValue); !isNumber {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("time must be a number"))
	}
	paused := fields["paused"].GetBoolValue()
	if v, ok := fields["state"]; ok {
		state, err := playback.ParseState(v.GetStringValue())
		if err != nil || state == playback.StateIdle {
			return nil, connect.NewError(connect.CodeInvalidArgument,
				errors.Newf("state must be playing or paused: %q", v.GetStringValue()))
		}
		paused = state == playback.StatePaused
	}

	if err := remote.ReportTime(timeValue.GetNumberValue(), paused); err != nil {
		return nil, toConnectError(err)
	}

	msg, err := newCommandsMessage(remote.TakeCommands())
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(msg), nil
}

// Reload loads the given source, or the current one when empty.
// On failure the current playlist is kept.
func (s *ChannelService) Reload(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	if _, err := s.channel.Reload(ctx, req.Msg.GetValue()); err != nil {
		zlog.Warn().Msgf("reload failed: ref=%q error=%v", req.Msg.GetValue(), err)
		return nil, toConnectError(err)
	}
	return s.stateResponse()
}

// Subscribe streams the initial state, then every cursor change after it.
// Sequence numbers on the stream are strictly increasing; a change already
// reflected in the initial state is not sent again.
func (s *ChannelService) Subscribe(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	notifier := s.channel.Notifier()

	// Listeners run under the cursor lock; buffer so a slow stream
	// never holds up a transition.
	changes := make(chan sequencedMessage, subscriberBuffer)
	unsubscribe := notifier.Subscribe(func(change cursor.Change) {
		seq := notifier.SequenceNo()
		msg, err := newChangeMessage(seq, change)
		if err != nil {
			zlog.Error().Msgf("subscribe: encode change failed: %v", err)
			return
		}
		select {
		case changes <- sequencedMessage{seq: seq, msg: msg}:
		default:
			zlog.Warn().Msgf("subscribe: stream buffer full, change dropped: seq=%d cause=%s index=%d",
				seq, change.Cause, change.State.ActiveIndex)
		}
	})
	defer unsubscribe()

	snap, initialSeq := s.channel.SequencedSnapshot()
	initial, err := newInitialMessage(initialSeq, snap)
	if err != nil {
		return err
	}
	if err := stream.Send(initial); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.channel.Done():
			return nil
		case m := <-changes:
			if m.seq <= initialSeq {
				continue
			}
			if err := stream.Send(m.msg); err != nil {
				return err
			}
		}
	}
}

type sequencedMessage struct {
	seq uint64
	msg *structpb.Struct
}

func (s *ChannelService) stateResponse() (*connect.Response[structpb.Struct], error) {
	msg, err := newStateMessage(s.channel.Snapshot())
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(msg), nil
}
