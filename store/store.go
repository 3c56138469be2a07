// Package store is a content-addressed artifact store on a local filesystem.
//
// Artifacts are immutable and named by the SHA-256 of their own bytes, so a
// final path that exists is already correct: duplicates are the fast path and
// nothing is ever read back or re-hashed. New artifacts are written to a temp
// file under <root>/tmp and atomically renamed onto the final path; the
// rename is the only operation that makes an artifact visible, so readers
// never observe partial contents and concurrent publishers of the same key
// race benignly (byte-identical last-rename-wins). The temp directory lives
// inside the store root so the rename never crosses a filesystem boundary;
// cross-device renames are not atomic.
//
// There is no locking, no delete, and no in-place update. Retention/GC is the
// operator's concern. A crash mid-write strands a temp file, never a visible
// partial artifact.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultExt is the artifact file extension when Config.Ext is empty.
const DefaultExt = ".feather"

const tmpDirName = "tmp"

// Reference locates a published artifact.
type Reference struct {
	// Key is the lowercase hex SHA-256 of the artifact bytes.
	Key string `json:"key"`
	// Path is the absolute-or-as-configured final path on disk.
	Path string `json:"path"`
	// Size is the artifact length in bytes.
	Size int64 `json:"size"`
}

// URI returns a file:// locator for the client surface.
func (r Reference) URI() string {
	return "file://" + filepath.ToSlash(r.Path)
}

// Config configures a Store. Only Root is required.
type Config struct {
	// Root is the store directory. Created on demand.
	Root string
	// Ext is the artifact extension including the dot; "" => DefaultExt.
	Ext string
}

// Store publishes byte blobs under content-derived names. Safe for
// concurrent use by any number of goroutines and processes sharing Root.
type Store struct {
	root string
	ext  string
}

// New validates cfg and returns a Store. The root directory is not touched
// until the first publish.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("store: root is required")
	}
	ext := cfg.Ext
	if ext == "" {
		ext = DefaultExt
	}
	return &Store{root: cfg.Root, ext: ext}, nil
}

// Key returns the content key for data: lowercase hex SHA-256.
func (s *Store) Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PathFor returns the final artifact path for a content key.
func (s *Store) PathFor(key string) string {
	return filepath.Join(s.root, key+s.ext)
}

// Publish makes data available under its content-derived name and returns a
// Reference to it. created reports whether this call wrote a new artifact;
// false means the key was already published (by anyone, ever) and the
// existing artifact was trusted as-is.
//
// Unrecoverable filesystem errors surface as *IOError. Publish never fails
// because of a duplicate, and a failed call leaves nothing visible under the
// final path. No internal retries; callers may retry the whole publish.
func (s *Store) Publish(ctx context.Context, data []byte) (Reference, bool, error) {
	if err := ctx.Err(); err != nil {
		return Reference{}, false, err
	}

	key := s.Key(data)
	final := s.PathFor(key)
	ref := Reference{Key: key, Path: final, Size: int64(len(data))}

	if _, err := os.Stat(final); err == nil {
		return ref, false, nil
	} else if !os.IsNotExist(err) {
		return Reference{}, false, &IOError{Op: "stat", Path: final, Err: err}
	}

	tmpDir := filepath.Join(s.root, tmpDirName)
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return Reference{}, false, &IOError{Op: "mkdir", Path: tmpDir, Err: err}
	}

	f, err := os.CreateTemp(tmpDir, key+"-*"+s.ext)
	if err != nil {
		return Reference{}, false, &IOError{Op: "create", Path: tmpDir, Err: err}
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return Reference{}, false, &IOError{Op: "write", Path: tmp, Err: err}
	}
	// Flush file contents before the rename so a crash cannot surface the
	// final name with missing data.
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return Reference{}, false, &IOError{Op: "sync", Path: tmp, Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return Reference{}, false, &IOError{Op: "close", Path: tmp, Err: err}
	}

	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return Reference{}, false, &IOError{Op: "rename", Path: final, Err: err}
	}
	return ref, true, nil
}
