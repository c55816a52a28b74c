package handler

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/khdiyz/image-gateway/internal/metrics"
	"github.com/khdiyz/image-gateway/internal/pkg/logger"
	"github.com/khdiyz/image-gateway/internal/service"
	"github.com/khdiyz/image-gateway/internal/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ImageHandler implements ImageGatewayServer
type ImageHandler struct {
	service *service.ImageService
	log     *logger.Logger
}

// NewImageHandler creates a new ImageHandler
func NewImageHandler(service *service.ImageService, log *logger.Logger) *ImageHandler {
	return &ImageHandler{
		service: service,
		log:     log,
	}
}

// Validate checks a declared content type and size without storing anything
func (h *ImageHandler) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	size := fields["size"].GetNumberValue()
	if size < 0 || math.IsNaN(size) || math.IsInf(size, 0) || size != math.Trunc(size) {
		return nil, status.Error(codes.InvalidArgument, "size must be a non-negative whole number of bytes")
	}
	file := service.File{
		ContentType: fields["content_type"].GetStringValue(),
		Size:        int64(size),
	}

	result := h.service.Validate(file, fields["max_size_mb"].GetNumberValue())

	resp := map[string]any{"valid": result.Valid}
	if !result.Valid {
		resp["error"] = result.Error
	}
	return structpb.NewStruct(resp)
}

// Upload validates the payload and stores it, returning its public URL and key
func (h *ImageHandler) Upload(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	file := service.File{
		Name:        firstValue(md, MetadataFileName),
		ContentType: firstValue(md, MetadataContentType),
		Size:        int64(len(req.GetValue())),
		Content:     req.GetValue(),
	}
	bucket := firstValue(md, MetadataBucket)

	h.log.Infow("Upload request received", "file_name", file.Name, "content_type", file.ContentType, "bucket", bucket)

	if result := h.service.Validate(file, 0); !result.Valid {
		metrics.ValidationRejections.WithLabelValues(rejectionReason(result)).Inc()
		return nil, status.Error(codes.InvalidArgument, result.Error)
	}

	url, key, err := h.service.UploadWithKey(ctx, file, bucket)
	if err != nil {
		return nil, errorStatus(err)
	}
	metrics.UploadedBytes.Add(float64(file.Size))

	return structpb.NewStruct(map[string]any{
		"url":         url,
		"key":         key,
		"size":        file.Size,
		"uploaded_at": time.Now().Format(time.RFC3339),
	})
}

// Delete removes an image identified by its public URL or its storage key
func (h *ImageHandler) Delete(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	fields := req.GetFields()
	url := fields["url"].GetStringValue()
	key := fields["key"].GetStringValue()
	bucket := fields["bucket"].GetStringValue()

	h.log.Infow("Delete request received", "url", url, "key", key, "bucket", bucket)

	var err error
	switch {
	case url != "" && key != "":
		return nil, status.Error(codes.InvalidArgument, "only one of url or key may be set")
	case url != "":
		err = h.service.DeleteByURL(ctx, url, bucket)
	case key != "":
		err = h.service.DeleteByKey(ctx, key, bucket)
	default:
		return nil, status.Error(codes.InvalidArgument, "url or key is required")
	}
	if err != nil {
		return nil, errorStatus(err)
	}

	return &emptypb.Empty{}, nil
}

// GetURL returns the public URL for a stored key
func (h *ImageHandler) GetURL(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	fields := req.GetFields()
	key := fields["key"].GetStringValue()
	if key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	url, err := h.service.GetURL(key, fields["bucket"].GetStringValue())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to resolve url: %v", err)
	}
	return wrapperspb.String(url), nil
}

// errorStatus maps gateway errors onto gRPC codes
func errorStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, storage.ErrObjectExists):
		code = codes.AlreadyExists
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}

	var deleteErr *service.DeleteError
	if errors.As(err, &deleteErr) && deleteErr.Key == "" {
		code = codes.InvalidArgument
	}
	return status.Error(code, err.Error())
}

func rejectionReason(result service.ValidationResult) string {
	if result.Error == service.InvalidTypeMessage {
		return "type"
	}
	return "size"
}

func firstValue(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
