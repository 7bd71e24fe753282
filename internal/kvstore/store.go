// Package kvstore persists small client-side state blobs (session, delegated
// login) keyed by namespace and key.
package kvstore

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Store is a namespaced key-value store of opaque blobs.
type Store interface {
	// Get returns the stored value and true, or nil and false if the key is absent.
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, namespace, key string) error
	Close() error
}

var validName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func checkName(namespace, key string) error {
	if !validName.MatchString(namespace) || namespace == "." || namespace == ".." {
		return fmt.Errorf("kvstore: invalid namespace %q", namespace)
	}
	if !validName.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("kvstore: invalid key %q", key)
	}
	return nil
}

// Open returns the store for backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(dir), nil
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, "state.db"))
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", backend)
	}
}
