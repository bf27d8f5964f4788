package grpcstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pacco-io/pacco/storage"
	"github.com/pacco-io/pacco/storage/backendreg"
)

func init() {
	backendreg.MustRegister(backendreg.Entry{
		Name:         "grpc",
		Description:  "remote store over gRPC (config: target, timeout, retries; talks to paccod)",
		ConfigFields: []string{"target", "timeout", "retries"},
		Open: func(config map[string]string) (storage.Backend, error) {
			target := strings.TrimSpace(config["target"])
			if target == "" {
				return nil, fmt.Errorf("grpcstore: config field \"target\" is required")
			}
			opts := DialOptions{Retries: 3}
			if v := config["timeout"]; v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return nil, fmt.Errorf("grpcstore: invalid timeout %q: %w", v, err)
				}
				opts.Timeout = d
			}
			// An explicit retries=0 disables retrying; the default applies
			// only when the field is absent.
			if v := config["retries"]; v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("grpcstore: invalid retries %q", v)
				}
				opts.Retries = n
			}
			return Dial(target, opts)
		},
	})
}
