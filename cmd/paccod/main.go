// Command paccod serves a local storage root to remote pacco clients over
// the Store gRPC service. A client reaches it with a remote of type
// "grpc" and config "target=<host:port>".
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/pacco-io/pacco/storage/grpcstore"
	"github.com/pacco-io/pacco/storage/localfs"
)

func main() {
	fs := flag.NewFlagSet("paccod", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7788", "listen address")
	root := fs.String("root", "", "storage root directory (required)")
	maxMsg := fs.Int("max-msg-bytes", 64<<20, "max gRPC message size in bytes (caps transferable tree size)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[1:])

	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if *root == "" {
		fmt.Fprintln(os.Stderr, "paccod: --root is required")
		os.Exit(2)
	}
	backend, err := localfs.New(*root)
	if err != nil {
		log.WithError(err).Fatal("open storage root")
	}
	defer backend.Close()

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.WithError(err).Fatal("listen")
	}
	defer lis.Close()

	s := grpc.NewServer(
		grpc.MaxRecvMsgSize(*maxMsg),
		grpc.MaxSendMsgSize(*maxMsg),
		grpc.UnaryInterceptor(logUnary(log)),
	)
	grpcstore.RegisterStoreServer(s, &grpcstore.Server{Backend: backend})

	log.WithFields(logrus.Fields{"addr": lis.Addr().String(), "root": *root}).Info("paccod listening")
	if err := s.Serve(lis); err != nil {
		log.WithError(err).Fatal("serve")
	}
}

func logUnary(log *logrus.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"method":  info.FullMethod,
			"elapsed": time.Since(start).Round(time.Microsecond).String(),
		})
		if err != nil {
			entry.WithError(err).Warn("rpc failed")
		} else {
			entry.Debug("rpc ok")
		}
		return resp, err
	}
}
