package observability

import (
	"context"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"meeting-summary-service/internal/observability/logging"
	"meeting-summary-service/internal/observability/metrics"
)

// UnaryServerInterceptor records RPC metrics, logs failures and turns
// handler panics into codes.Internal.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = recovered(info.FullMethod, r)
			}
			observe(m, info.FullMethod, err, time.Since(start))
		}()
		return handler(ctx, req)
	}
}

// StreamServerInterceptor is the streaming counterpart of UnaryServerInterceptor.
// Health Watch streams are the only streams served today.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = recovered(info.FullMethod, r)
			}
			observe(m, info.FullMethod, err, time.Since(start))
		}()
		return handler(srv, ss)
	}
}

func observe(m *metrics.Metrics, method string, err error, elapsed time.Duration) {
	code := status.Code(err)
	m.RecordRPC(method, code.String(), elapsed.Seconds())

	logger := logging.WithComponent("grpc")
	ev := logger.Debug()
	switch code {
	case codes.OK, codes.Canceled:
	case codes.Internal, codes.Unknown, codes.DataLoss:
		ev = logger.Error().Err(err)
	default:
		ev = logger.Warn().Err(err)
	}
	ev.Str("method", method).
		Str("code", code.String()).
		Dur("elapsed", elapsed).
		Msg("gRPC call")
}

func recovered(method string, r any) error {
	logger := logging.WithComponent("grpc")
	logger.Error().
		Str("method", method).
		Interface("panic", r).
		Bytes("stack", debug.Stack()).
		Msg("gRPC handler panicked")
	return status.Errorf(codes.Internal, "internal error in %s", method)
}
