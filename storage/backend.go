// Package storage defines the contract every binary-registry backend must
// satisfy, plus the shared error taxonomy and composite backends built on
// the contract.
package storage

// Backend is the pluggable storage medium behind one remote.
//
// Contract:
//   - Registry names are unique per backend; CreateRegistry MUST return
//     ErrDuplicate on reuse and DropRegistry MUST return ErrNotEmpty while
//     the registry still holds keys.
//   - Keys are opaque canonical-key strings; the backend never interprets
//     them beyond using them as identifiers.
//   - PutTree MUST replace any existing tree at the key as a single atomic
//     unit, and DeleteTree MUST remove it atomically: a concurrent reader
//     observes the old tree, the new tree, or absence and never a mixture.
//   - Registries and Keys MUST return sorted results, and NotFound/absence
//     MUST surface as ErrNotFound.
//   - Anything the medium cannot answer (disk fault, broken transport)
//     surfaces wrapped in ErrBackendIO.
type Backend interface {
	// CreateRegistry declares a registry with its immutable property schema.
	CreateRegistry(name string, schema []string) error
	// DropRegistry removes an empty registry.
	DropRegistry(name string) error
	// Registries lists registry names, sorted.
	Registries() ([]string, error)
	// Schema returns the property schema the registry was created with.
	Schema(registry string) ([]string, error)
	// Keys lists the canonical keys stored in a registry, sorted.
	Keys(registry string) ([]string, error)
	// PutTree stores the directory tree rooted at srcDir under key,
	// atomically replacing any previous tree.
	PutTree(registry, key, srcDir string) error
	// GetTree copies the stored tree into dstDir, creating it if needed.
	GetTree(registry, key, dstDir string) error
	// DeleteTree removes the tree at key atomically.
	DeleteTree(registry, key string) error
	// Close releases any resources held by the backend.
	Close() error
}

// NamedBackend associates a Backend with a stable name for multi-backend
// orchestration (reporting, error attribution).
type NamedBackend struct {
	Name    string
	Backend Backend
}
