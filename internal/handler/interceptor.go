package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/khdiyz/image-gateway/internal/metrics"
	"github.com/khdiyz/image-gateway/internal/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDKey is the metadata key echoed back to clients
const RequestIDKey = "x-request-id"

// LoggingInterceptor tags each call with a request id and logs its outcome
func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		requestID := firstValue(md, RequestIDKey)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []any{
			"request_id", requestID,
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		}
		if err != nil {
			log.Errorw("gRPC request failed", append(fields, "error", err)...)
		} else {
			log.Infow("gRPC request handled", fields...)
		}
		return resp, err
	}
}

// MetricsInterceptor records request counts and latency
func MetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		metrics.RequestCounter.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		metrics.RequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		return resp, err
	}
}
