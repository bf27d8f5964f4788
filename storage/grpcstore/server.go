package grpcstore

import (
	"context"
	"encoding/base64"
	"os"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/pacco-io/pacco/internal/treeio"
	"github.com/pacco-io/pacco/storage"
)

// Server exposes a storage.Backend over the Store gRPC service.
type Server struct {
	UnimplementedStoreServer
	Backend storage.Backend
}

func (s *Server) CreateRegistry(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	_ = ctx
	if err := s.check(); err != nil {
		return nil, err
	}
	name, err := fieldString(in, "name")
	if err != nil {
		return nil, err
	}
	schema, err := fieldStrings(in, "schema")
	if err != nil {
		return nil, err
	}
	if err := s.Backend.CreateRegistry(name, schema); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) DropRegistry(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	_ = ctx
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := s.Backend.DropRegistry(in.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Registries(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error) {
	_, _ = ctx, in
	if err := s.check(); err != nil {
		return nil, err
	}
	names, err := s.Backend.Registries()
	if err != nil {
		return nil, toStatus(err)
	}
	return stringList(names)
}

func (s *Server) Schema(ctx context.Context, in *wrapperspb.StringValue) (*structpb.ListValue, error) {
	_ = ctx
	if err := s.check(); err != nil {
		return nil, err
	}
	schema, err := s.Backend.Schema(in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return stringList(schema)
}

func (s *Server) Keys(ctx context.Context, in *wrapperspb.StringValue) (*structpb.ListValue, error) {
	_ = ctx
	if err := s.check(); err != nil {
		return nil, err
	}
	keys, err := s.Backend.Keys(in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return stringList(keys)
}

func (s *Server) PutTree(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	_ = ctx
	if err := s.check(); err != nil {
		return nil, err
	}
	registry, err := fieldString(in, "registry")
	if err != nil {
		return nil, err
	}
	key, err := fieldString(in, "key")
	if err != nil {
		return nil, err
	}
	encoded, err := fieldString(in, "tree")
	if err != nil {
		return nil, err
	}
	digest, err := fieldString(in, "digest")
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "tree is not valid base64")
	}
	// Verify the advertised digest before anything touches the backend.
	got, err := treeio.Digest(data)
	if err != nil {
		return nil, status.Error(codes.Internal, "digest computation failed")
	}
	if got.String() != digest {
		return nil, status.Error(codes.DataLoss, storage.ErrDigestMismatch.Error())
	}

	tmp, err := os.MkdirTemp("", "pacco-recv-")
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	defer os.RemoveAll(tmp)
	if err := treeio.Unpack(data, tmp); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.Backend.PutTree(registry, key, tmp); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) GetTree(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_ = ctx
	if err := s.check(); err != nil {
		return nil, err
	}
	registry, err := fieldString(in, "registry")
	if err != nil {
		return nil, err
	}
	key, err := fieldString(in, "key")
	if err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp("", "pacco-send-")
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	defer os.RemoveAll(tmp)
	if err := s.Backend.GetTree(registry, key, tmp); err != nil {
		return nil, toStatus(err)
	}
	data, err := treeio.Pack(tmp)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	digest, err := treeio.Digest(data)
	if err != nil {
		return nil, status.Error(codes.Internal, "digest computation failed")
	}
	return structpb.NewStruct(map[string]any{
		"tree":   base64.StdEncoding.EncodeToString(data),
		"digest": digest.String(),
	})
}

func (s *Server) DeleteTree(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	_ = ctx
	if err := s.check(); err != nil {
		return nil, err
	}
	registry, err := fieldString(in, "registry")
	if err != nil {
		return nil, err
	}
	key, err := fieldString(in, "key")
	if err != nil {
		return nil, err
	}
	if err := s.Backend.DeleteTree(registry, key); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) check() error {
	if s == nil || s.Backend == nil {
		return status.Error(codes.Internal, "missing backend")
	}
	return nil
}

func fieldString(in *structpb.Struct, name string) (string, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "missing field %q", name)
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "field %q is not a string", name)
	}
	return sv.StringValue, nil
}

func fieldStrings(in *structpb.Struct, name string) ([]string, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "missing field %q", name)
	}
	lv := v.GetListValue()
	if lv == nil {
		return nil, status.Errorf(codes.InvalidArgument, "field %q is not a list", name)
	}
	out := make([]string, 0, len(lv.GetValues()))
	for _, item := range lv.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "field %q holds a non-string element", name)
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}

func stringList(values []string) (*structpb.ListValue, error) {
	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	lv, err := structpb.NewList(items)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return lv, nil
}
