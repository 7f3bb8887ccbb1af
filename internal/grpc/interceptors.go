package grpc

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/amr-saas/gateway/internal/logging"
)

// loggingInterceptor logs every unary call with its duration.
func loggingInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	duration := time.Since(start)

	if err != nil {
		logging.Op().Warn("grpc request failed",
			zap.String("method", info.FullMethod),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	} else {
		logging.Op().Debug("grpc request completed",
			zap.String("method", info.FullMethod),
			zap.Duration("duration", duration),
		)
	}
	return resp, err
}

// recoveryInterceptor turns a handler panic into codes.Internal instead
// of tearing the process down.
func recoveryInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Op().Error("grpc handler panic",
				zap.String("method", info.FullMethod),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
