package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "imagegateway.v1.ImageGateway"

// Full method names, usable with grpc.ClientConn.Invoke
const (
	ValidateMethod = "/" + ServiceName + "/Validate"
	UploadMethod   = "/" + ServiceName + "/Upload"
	DeleteMethod   = "/" + ServiceName + "/Delete"
	GetURLMethod   = "/" + ServiceName + "/GetURL"
)

// Metadata keys carried alongside the Upload payload
const (
	MetadataFileName    = "x-file-name"
	MetadataContentType = "x-content-type"
	MetadataBucket      = "x-bucket"
)

// ImageGatewayServer is the server API for the ImageGateway service.
// Messages are protobuf well-known types so no generated code is needed.
type ImageGatewayServer interface {
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Upload(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	GetURL(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
}

// RegisterImageGatewayServer registers srv on s
func RegisterImageGatewayServer(s grpc.ServiceRegistrar, srv ImageGatewayServer) {
	s.RegisterService(&ImageGatewayServiceDesc, srv)
}

var ImageGatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ImageGatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: validateHandler},
		{MethodName: "Upload", Handler: uploadHandler},
		{MethodName: "Delete", Handler: deleteHandler},
		{MethodName: "GetURL", Handler: getURLHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "imagegateway/v1/image_gateway.proto",
}

func validateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ImageGatewayServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ValidateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ImageGatewayServer).Validate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func uploadHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ImageGatewayServer).Upload(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: UploadMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ImageGatewayServer).Upload(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ImageGatewayServer).Delete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DeleteMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ImageGatewayServer).Delete(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getURLHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ImageGatewayServer).GetURL(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetURLMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ImageGatewayServer).GetURL(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
