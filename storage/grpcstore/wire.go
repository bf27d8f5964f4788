// Package grpcstore implements the storage.Backend contract over gRPC: a
// Client that talks to a remote store daemon, and a Server that exposes any
// local Backend to such clients.
//
// The wire layer is handcrafted over protobuf well-known types (wrappers,
// Struct, Empty) so the package does not require a protoc/codegen
// toolchain. Trees travel as deterministic tar archives together with
// their content digest (CIDv1 raw + sha2-256); both ends verify the digest
// so a corrupted transfer never lands silently.
package grpcstore

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "pacco.storage.v1.Store"

// StoreServer is the server API for the Store gRPC service.
type StoreServer interface {
	CreateRegistry(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	DropRegistry(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	Registries(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	Schema(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	Keys(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	PutTree(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	GetTree(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteTree(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// UnimplementedStoreServer can be embedded for forward compatibility.
type UnimplementedStoreServer struct{}

func (UnimplementedStoreServer) CreateRegistry(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateRegistry not implemented")
}
func (UnimplementedStoreServer) DropRegistry(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method DropRegistry not implemented")
}
func (UnimplementedStoreServer) Registries(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Registries not implemented")
}
func (UnimplementedStoreServer) Schema(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Schema not implemented")
}
func (UnimplementedStoreServer) Keys(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Keys not implemented")
}
func (UnimplementedStoreServer) PutTree(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method PutTree not implemented")
}
func (UnimplementedStoreServer) GetTree(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTree not implemented")
}
func (UnimplementedStoreServer) DeleteTree(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteTree not implemented")
}

// RegisterStoreServer registers the Store service on a gRPC server.
func RegisterStoreServer(s grpc.ServiceRegistrar, srv StoreServer) {
	s.RegisterService(&Store_ServiceDesc, srv)
}

// StoreClient is the client API for the Store gRPC service.
type StoreClient interface {
	CreateRegistry(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	DropRegistry(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Registries(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Schema(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Keys(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error)
	PutTree(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetTree(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	DeleteTree(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type storeClient struct{ cc grpc.ClientConnInterface }

func NewStoreClient(cc grpc.ClientConnInterface) StoreClient { return &storeClient{cc: cc} }

func (c *storeClient) CreateRegistry(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/CreateRegistry", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) DropRegistry(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/DropRegistry", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) Registries(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Registries", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) Schema(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Schema", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) Keys(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Keys", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) PutTree(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/PutTree", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) GetTree(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetTree", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) DeleteTree(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/DeleteTree", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Store_ServiceDesc is the grpc.ServiceDesc for the Store service.
var Store_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*StoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateRegistry", Handler: _Store_CreateRegistry_Handler},
		{MethodName: "DropRegistry", Handler: _Store_DropRegistry_Handler},
		{MethodName: "Registries", Handler: _Store_Registries_Handler},
		{MethodName: "Schema", Handler: _Store_Schema_Handler},
		{MethodName: "Keys", Handler: _Store_Keys_Handler},
		{MethodName: "PutTree", Handler: _Store_PutTree_Handler},
		{MethodName: "GetTree", Handler: _Store_GetTree_Handler},
		{MethodName: "DeleteTree", Handler: _Store_DeleteTree_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "store.proto",
}

func _Store_CreateRegistry_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).CreateRegistry(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/CreateRegistry"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).CreateRegistry(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_DropRegistry_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).DropRegistry(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/DropRegistry"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).DropRegistry(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_Registries_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).Registries(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Registries"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).Registries(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_Schema_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).Schema(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Schema"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).Schema(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_Keys_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).Keys(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Keys"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).Keys(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_PutTree_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).PutTree(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/PutTree"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).PutTree(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_GetTree_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).GetTree(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetTree"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).GetTree(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_DeleteTree_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).DeleteTree(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/DeleteTree"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).DeleteTree(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
