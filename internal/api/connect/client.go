package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ChannelClient is a client for the channel service.
type ChannelClient struct {
	getState    *connect.Client[emptypb.Empty, structpb.Struct]
	getPlaylist *connect.Client[emptypb.Empty, structpb.Struct]
	navigate    *connect.Client[wrapperspb.Int32Value, structpb.Struct]
	next        *connect.Client[emptypb.Empty, structpb.Struct]
	previous    *connect.Client[emptypb.Empty, structpb.Struct]
	reportTime  *connect.Client[structpb.Struct, structpb.Struct]
	reload      *connect.Client[wrapperspb.StringValue, structpb.Struct]
	subscribe   *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewChannelClient creates a client for the service at baseURL.
func NewChannelClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ChannelClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &ChannelClient{
		getState:    connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+GetStateProcedure, opts...),
		getPlaylist: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+GetPlaylistProcedure, opts...),
		navigate:    connect.NewClient[wrapperspb.Int32Value, structpb.Struct](httpClient, baseURL+NavigateProcedure, opts...),
		next:        connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+NextProcedure, opts...),
		previous:    connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+PreviousProcedure, opts...),
		reportTime:  connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ReportTimeProcedure, opts...),
		reload:      connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+ReloadProcedure, opts...),
		subscribe:   connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SubscribeProcedure, opts...),
	}
}

// GetState calls ChannelService.GetState.
func (c *ChannelClient) GetState(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.getState, &emptypb.Empty{})
}

// GetPlaylist calls ChannelService.GetPlaylist.
func (c *ChannelClient) GetPlaylist(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.getPlaylist, &emptypb.Empty{})
}

// Navigate calls ChannelService.Navigate.
func (c *ChannelClient) Navigate(ctx context.Context, index int32) (map[string]any, error) {
	return unary(ctx, c.navigate, wrapperspb.Int32(index))
}

// Next calls ChannelService.Next.
func (c *ChannelClient) Next(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.next, &emptypb.Empty{})
}

// Previous calls ChannelService.Previous.
func (c *ChannelClient) Previous(ctx context.Context) (map[string]any, error) {
	return unary(ctx, c.previous, &emptypb.Empty{})
}

// ReportTime calls ChannelService.ReportTime.
func (c *ChannelClient) ReportTime(ctx context.Context, t float64, paused bool) (map[string]any, error) {
	req, err := structpb.NewStruct(map[string]any{"time": t, "paused": paused})
	if err != nil {
		return nil, err
	}
	return unary(ctx, c.reportTime, req)
}

// Reload calls ChannelService.Reload. An empty ref reloads the current source.
func (c *ChannelClient) Reload(ctx context.Context, ref string) (map[string]any, error) {
	return unary(ctx, c.reload, wrapperspb.String(ref))
}

// Subscribe calls ChannelService.Subscribe.
func (c *ChannelClient) Subscribe(ctx context.Context) (*connect.ServerStreamForClient[structpb.Struct], error) {
	return c.subscribe.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
}

func unary[Req any](ctx context.Context, client *connect.Client[Req, structpb.Struct], msg *Req) (map[string]any, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg.AsMap(), nil
}
