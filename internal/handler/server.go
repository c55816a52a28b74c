package handler

import (
	"github.com/khdiyz/image-gateway/internal/pkg/logger"
	"google.golang.org/grpc"
)

// envelope leaves room for the message framing around an image payload
const envelope = 1 << 20

// NewServer builds a gRPC server whose receive limit fits images up to maxSizeMB
func NewServer(log *logger.Logger, maxSizeMB float64) *grpc.Server {
	return grpc.NewServer(
		grpc.MaxRecvMsgSize(int(maxSizeMB*1024*1024)+envelope),
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor(log),
			MetricsInterceptor(),
		),
	)
}
