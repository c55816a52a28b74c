package handler_test

import (
	"context"
	"math"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/khdiyz/image-gateway/internal/handler"
	"github.com/khdiyz/image-gateway/internal/metrics"
	"github.com/khdiyz/image-gateway/internal/pkg/logger"
	"github.com/khdiyz/image-gateway/internal/service"
	"github.com/khdiyz/image-gateway/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const mb = 1024 * 1024

type testEnv struct {
	conn  *grpc.ClientConn
	store *storage.MemoryStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewNop()
	store := storage.NewMemoryStorage("https://cdn.example.com", log)
	svc := service.NewImageService(store, log,
		service.WithClock(func() time.Time { return time.UnixMilli(1700000000123) }),
		service.WithTokenSource(service.RandomToken),
	)

	lis := bufconn.Listen(1 << 20)
	srv := handler.NewServer(log, service.DefaultMaxSizeMB)
	handler.RegisterImageGatewayServer(srv, handler.NewImageHandler(svc, log))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testEnv{conn: conn, store: store}
}

func (e *testEnv) upload(t *testing.T, name, contentType string, content []byte) (*structpb.Struct, metadata.MD, error) {
	t.Helper()
	ctx := metadata.AppendToOutgoingContext(context.Background(),
		handler.MetadataFileName, name,
		handler.MetadataContentType, contentType,
	)
	var header metadata.MD
	resp := new(structpb.Struct)
	err := e.conn.Invoke(ctx, handler.UploadMethod, wrapperspb.Bytes(content), resp, grpc.Header(&header))
	return resp, header, err
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestValidateRPC(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		req       map[string]any
		wantValid bool
		wantError string
	}{
		{"accepted", map[string]any{"content_type": "image/png", "size": 5 * mb}, true, ""},
		{"too large", map[string]any{"content_type": "image/png", "size": 5*mb + 1}, false, "File size exceeds 5MB limit."},
		{"custom limit", map[string]any{"content_type": "image/webp", "size": 2 * mb, "max_size_mb": 1}, false, "File size exceeds 1MB limit."},
		{"bad type", map[string]any{"content_type": "image/bmp", "size": 1}, false, service.InvalidTypeMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := new(structpb.Struct)
			err := env.conn.Invoke(context.Background(), handler.ValidateMethod, mustStruct(t, tt.req), resp)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, resp.GetFields()["valid"].GetBoolValue())
			assert.Equal(t, tt.wantError, resp.GetFields()["error"].GetStringValue())
		})
	}
}

func TestValidateRPCRejectsBadSize(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		size float64
	}{
		{"negative", -1},
		{"fractional", 1.5},
		{"infinite", math.Inf(1)},
		{"nan", math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &structpb.Struct{Fields: map[string]*structpb.Value{
				"content_type": structpb.NewStringValue("image/png"),
				"size":         structpb.NewNumberValue(tt.size),
			}}
			err := env.conn.Invoke(context.Background(), handler.ValidateMethod, req, new(structpb.Struct))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestUploadRPC(t *testing.T) {
	env := newTestEnv(t)

	resp, header, err := env.upload(t, "banner.png", "image/png", []byte("\x89PNG"))
	require.NoError(t, err)

	key := resp.GetFields()["key"].GetStringValue()
	assert.True(t, strings.HasPrefix(key, "1700000000123-"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "https://cdn.example.com/user-uploads/"+key, resp.GetFields()["url"].GetStringValue())
	assert.Equal(t, float64(4), resp.GetFields()["size"].GetNumberValue())
	assert.NotEmpty(t, header.Get(handler.RequestIDKey))

	obj, ok := env.store.Get(service.DefaultBucket, key)
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, "max-age=3600", obj.CacheControl)
}

func TestUploadRPCRejectsInvalidFile(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.upload(t, "doc.pdf", "application/pdf", []byte("%PDF"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, service.InvalidTypeMessage, status.Convert(err).Message())

	_, _, err = env.upload(t, "big.png", "image/png", make([]byte, 5*mb+1))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "File size exceeds 5MB limit.", status.Convert(err).Message())

	assert.Equal(t, 0, env.store.Len(service.DefaultBucket))
}

func TestUploadRPCRecordsMetrics(t *testing.T) {
	env := newTestEnv(t)

	typeRejections := metrics.ValidationRejections.WithLabelValues("type")
	sizeRejections := metrics.ValidationRejections.WithLabelValues("size")
	invalidCalls := metrics.RequestCounter.WithLabelValues(handler.UploadMethod, codes.InvalidArgument.String())
	okCalls := metrics.RequestCounter.WithLabelValues(handler.UploadMethod, codes.OK.String())

	typeBefore := testutil.ToFloat64(typeRejections)
	sizeBefore := testutil.ToFloat64(sizeRejections)
	invalidBefore := testutil.ToFloat64(invalidCalls)
	okBefore := testutil.ToFloat64(okCalls)
	bytesBefore := testutil.ToFloat64(metrics.UploadedBytes)

	_, _, err := env.upload(t, "doc.pdf", "application/pdf", []byte("%PDF"))
	require.Error(t, err)
	_, _, err = env.upload(t, "banner.png", "image/png", []byte("\x89PNG"))
	require.NoError(t, err)

	assert.Equal(t, typeBefore+1, testutil.ToFloat64(typeRejections))
	assert.Equal(t, sizeBefore, testutil.ToFloat64(sizeRejections))
	assert.Equal(t, invalidBefore+1, testutil.ToFloat64(invalidCalls))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(okCalls))
	assert.Equal(t, bytesBefore+4, testutil.ToFloat64(metrics.UploadedBytes))
}

func TestDeleteRPC(t *testing.T) {
	env := newTestEnv(t)

	resp, _, err := env.upload(t, "banner.png", "image/png", []byte("\x89PNG"))
	require.NoError(t, err)
	url := resp.GetFields()["url"].GetStringValue()
	require.Equal(t, 1, env.store.Len(service.DefaultBucket))

	err = env.conn.Invoke(context.Background(), handler.DeleteMethod, mustStruct(t, map[string]any{"url": url}), new(emptypb.Empty))
	require.NoError(t, err)
	assert.Equal(t, 0, env.store.Len(service.DefaultBucket))
}

func TestDeleteRPCByKey(t *testing.T) {
	env := newTestEnv(t)

	resp, _, err := env.upload(t, "banner.gif", "image/gif", []byte("GIF89a"))
	require.NoError(t, err)
	key := resp.GetFields()["key"].GetStringValue()

	err = env.conn.Invoke(context.Background(), handler.DeleteMethod, mustStruct(t, map[string]any{"key": key}), new(emptypb.Empty))
	require.NoError(t, err)
	assert.Equal(t, 0, env.store.Len(service.DefaultBucket))
}

func TestDeleteRPCArguments(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  map[string]any
	}{
		{"empty", map[string]any{}},
		{"both set", map[string]any{"url": "https://x/user-uploads/a.png", "key": "a.png"}},
		{"url without key", map[string]any{"url": "https://x/user-uploads/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.conn.Invoke(context.Background(), handler.DeleteMethod, mustStruct(t, tt.req), new(emptypb.Empty))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestGetURLRPC(t *testing.T) {
	env := newTestEnv(t)

	resp := new(wrapperspb.StringValue)
	err := env.conn.Invoke(context.Background(), handler.GetURLMethod, mustStruct(t, map[string]any{"key": "a.png", "bucket": "avatars"}), resp)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/a.png", resp.GetValue())

	err = env.conn.Invoke(context.Background(), handler.GetURLMethod, mustStruct(t, map[string]any{}), resp)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
