package connect

import (
	"context"
	"time"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"
)

// NewLoggingInterceptor creates an interceptor that logs every unary call
// with its procedure, duration and resulting code.
func NewLoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			ev := zlog.Debug()
			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
				ev = zlog.Warn().Err(err)
			}
			ev.Str("procedure", req.Spec().Procedure).
				Str("code", code).
				Dur("duration", time.Since(start)).
				Msg("rpc")

			return resp, err
		}
	}
}
