package grpcstore

import (
	"context"
	"encoding/base64"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/pacco-io/pacco/internal/treeio"
	"github.com/pacco-io/pacco/storage"
)

// Client implements storage.Backend over the Store gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client StoreClient

	// Timeout applies per RPC attempt when non-zero.
	Timeout time.Duration
	// Retries is the number of additional attempts for transient RPC
	// failures (Unavailable, DeadlineExceeded). Logical errors are never
	// retried.
	Retries int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
}

var _ storage.Backend = (*Client)(nil)

// DialOptions configures Dial.
type DialOptions struct {
	// Timeout applies to each RPC when non-zero.
	Timeout time.Duration
	// Retries bounds transient-failure retries. Zero means no retries;
	// the "grpc" backend type defaults it to 3 when the config field is
	// absent.
	Retries int
	// MaxMsgBytes sets both send/recv max sizes when non-zero. Trees ride
	// in unary messages, so this caps the transferable tree size.
	MaxMsgBytes int
}

// Dial connects to a Store daemon at target.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, storage.IOError("dial "+target, err)
	}
	return &Client{
		cc:      cc,
		client:  NewStoreClient(cc),
		Timeout: opts.Timeout,
		Retries: opts.Retries,
		Backoff: 100 * time.Millisecond,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) CreateRegistry(name string, schema []string) error {
	req, err := registrySpec(name, schema)
	if err != nil {
		return err
	}
	return c.call(func(ctx context.Context) error {
		_, err := c.client.CreateRegistry(ctx, req)
		return err
	})
}

func (c *Client) DropRegistry(name string) error {
	return c.call(func(ctx context.Context) error {
		_, err := c.client.DropRegistry(ctx, wrapperspb.String(name))
		return err
	})
}

func (c *Client) Registries() ([]string, error) {
	var out []string
	err := c.call(func(ctx context.Context) error {
		reply, err := c.client.Registries(ctx, &emptypb.Empty{})
		if err != nil {
			return err
		}
		out, err = stringsOf(reply)
		return err
	})
	return out, err
}

func (c *Client) Schema(registry string) ([]string, error) {
	var out []string
	err := c.call(func(ctx context.Context) error {
		reply, err := c.client.Schema(ctx, wrapperspb.String(registry))
		if err != nil {
			return err
		}
		out, err = stringsOf(reply)
		return err
	})
	return out, err
}

func (c *Client) Keys(registry string) ([]string, error) {
	var out []string
	err := c.call(func(ctx context.Context) error {
		reply, err := c.client.Keys(ctx, wrapperspb.String(registry))
		if err != nil {
			return err
		}
		out, err = stringsOf(reply)
		return err
	})
	return out, err
}

func (c *Client) PutTree(registry, key, srcDir string) error {
	data, err := treeio.Pack(srcDir)
	if err != nil {
		return storage.IOError("pack tree", err)
	}
	digest, err := treeio.Digest(data)
	if err != nil {
		return storage.IOError("digest tree", err)
	}
	req, err := structpb.NewStruct(map[string]any{
		"registry": registry,
		"key":      key,
		"tree":     base64.StdEncoding.EncodeToString(data),
		"digest":   digest.String(),
	})
	if err != nil {
		return storage.IOError("encode request", err)
	}
	return c.call(func(ctx context.Context) error {
		_, err := c.client.PutTree(ctx, req)
		return err
	})
}

func (c *Client) GetTree(registry, key, dstDir string) error {
	req, err := treeRef(registry, key)
	if err != nil {
		return err
	}
	var reply *structpb.Struct
	if err := c.call(func(ctx context.Context) error {
		var err error
		reply, err = c.client.GetTree(ctx, req)
		return err
	}); err != nil {
		return err
	}

	encoded, err := fieldString(reply, "tree")
	if err != nil {
		return storage.IOError("decode reply", err)
	}
	want, err := fieldString(reply, "digest")
	if err != nil {
		return storage.IOError("decode reply", err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return storage.IOError("decode tree", err)
	}
	got, err := treeio.Digest(data)
	if err != nil {
		return storage.IOError("digest tree", err)
	}
	if got.String() != want {
		return storage.ErrDigestMismatch
	}

	// Unpack to scratch first so a bad archive never leaves a partial
	// tree in the caller's destination.
	tmp, err := os.MkdirTemp("", "pacco-get-")
	if err != nil {
		return storage.IOError("unpack tree", err)
	}
	defer os.RemoveAll(tmp)
	if err := treeio.Unpack(data, tmp); err != nil {
		return storage.IOError("unpack tree", err)
	}
	if err := treeio.CopyTree(tmp, dstDir); err != nil {
		return storage.IOError("copy tree", err)
	}
	return nil
}

func (c *Client) DeleteTree(registry, key string) error {
	req, err := treeRef(registry, key)
	if err != nil {
		return err
	}
	return c.call(func(ctx context.Context) error {
		_, err := c.client.DeleteTree(ctx, req)
		return err
	})
}

// call runs one RPC with per-attempt timeout and bounded exponential
// backoff on transient failures.
func (c *Client) call(fn func(ctx context.Context) error) error {
	delay := c.Backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	var lastErr error
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
		}
		ctx, cancel := c.ctx()
		err := fn(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if !transient(err) {
			return fromStatus(err)
		}
		lastErr = err
	}
	return fromStatus(lastErr)
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}

func registrySpec(name string, schema []string) (*structpb.Struct, error) {
	items := make([]any, len(schema))
	for i, s := range schema {
		items[i] = s
	}
	req, err := structpb.NewStruct(map[string]any{
		"name":   name,
		"schema": items,
	})
	if err != nil {
		return nil, storage.IOError("encode request", err)
	}
	return req, nil
}

func treeRef(registry, key string) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(map[string]any{
		"registry": registry,
		"key":      key,
	})
	if err != nil {
		return nil, storage.IOError("encode request", err)
	}
	return req, nil
}

func stringsOf(lv *structpb.ListValue) ([]string, error) {
	out := make([]string, 0, len(lv.GetValues()))
	for _, v := range lv.GetValues() {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, storage.IOError("decode reply", errDecodeList)
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}
