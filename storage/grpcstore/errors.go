package grpcstore

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pacco-io/pacco/storage"
)

// errDecodeList reports a list reply holding a non-string element.
var errDecodeList = errors.New("grpcstore: non-string element in list reply")

// toStatus maps the storage error taxonomy onto gRPC status codes. The
// mapping must stay bijective with fromStatus so a sentinel survives the
// round trip through the wire.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case storage.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case storage.IsDuplicate(err):
		return status.Error(codes.AlreadyExists, err.Error())
	case storage.IsNotEmpty(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, storage.ErrDigestMismatch):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// fromStatus maps an RPC failure back onto the storage taxonomy.
// Unavailable and DeadlineExceeded are transient: the client retries them
// before letting them surface (as ErrBackendIO) at all.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return storage.IOError("rpc", err)
	}
	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.AlreadyExists:
		return storage.ErrDuplicate
	case codes.FailedPrecondition:
		return storage.ErrNotEmpty
	case codes.DataLoss:
		return storage.ErrDigestMismatch
	default:
		return storage.IOError("rpc "+st.Code().String(), err)
	}
}

// transient reports whether an RPC failure is worth retrying.
func transient(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}
