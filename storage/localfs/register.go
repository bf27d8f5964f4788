package localfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pacco-io/pacco/storage"
	"github.com/pacco-io/pacco/storage/backendreg"
)

func init() {
	backendreg.MustRegister(backendreg.Entry{
		Name:         "local",
		Description:  "local filesystem storage (config: path; empty path uses ~/.pacco/storage)",
		ConfigFields: []string{"path"},
		Open: func(config map[string]string) (storage.Backend, error) {
			path := config["path"]
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return nil, fmt.Errorf("localfs: no path configured and no home directory: %w", err)
				}
				path = filepath.Join(home, ".pacco", "storage")
			}
			return New(path)
		},
	})

	backendreg.MustRegister(backendreg.Entry{
		Name:         "mirror",
		Description:  "mirrored local filesystem roots kept in lockstep (config: paths, ';'-separated)",
		ConfigFields: []string{"paths"},
		Open: func(config map[string]string) (storage.Backend, error) {
			var named []storage.NamedBackend
			for _, p := range strings.Split(config["paths"], ";") {
				p = strings.TrimSpace(p)
				if p == "" {
					continue
				}
				b, err := New(p)
				if err != nil {
					return nil, err
				}
				named = append(named, storage.NamedBackend{Name: p, Backend: b})
			}
			if len(named) == 0 {
				return nil, fmt.Errorf(`localfs: config field "paths" needs at least one root`)
			}
			return &storage.Mirror{Backends: named}, nil
		},
	})
}
