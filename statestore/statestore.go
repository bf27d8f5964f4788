// Package statestore persists the process-spanning remote index: the list
// of configured remotes and the optional default-remote pointer.
//
// The contract is deliberately narrow: components receive a Store
// explicitly instead of reaching for ambient global state, and everything
// else (registry catalogues, schemas, trees) lives in the backends
// themselves.
package statestore

// RemoteRecord is one persisted remote: its unique name, backend type tag
// and backend-specific configuration.
type RemoteRecord struct {
	Name   string            `yaml:"name"`
	Type   string            `yaml:"type"`
	Config map[string]string `yaml:"config,omitempty"`
}

// Store is the persisted remote index.
//
// Contract:
//   - Remotes returns records in insertion order.
//   - PutRemote appends; replacing an existing name is the caller's
//     responsibility to forbid.
//   - Default returns (name, false, nil) when no default is set.
//   - Mutations are durable once the call returns.
type Store interface {
	Remotes() ([]RemoteRecord, error)
	PutRemote(rec RemoteRecord) error
	DeleteRemote(name string) error
	Default() (string, bool, error)
	SetDefault(name string) error
	ClearDefault() error
	Close() error
}
