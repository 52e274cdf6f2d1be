package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/Skryldev/image-server/errors"
)

// Disk persists cache entries on the local filesystem.  Keys are hashed so
// arbitrary request strings map to safe filenames, fanned out over a
// two-character prefix directory to keep directories small.
type Disk struct {
	rootDir     string
	permissions os.FileMode
}

// NewDisk creates a Disk cache rooted at dir.
func NewDisk(dir string, perm os.FileMode) (*Disk, error) {
	if perm == 0 {
		perm = 0o644
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("disk cache: mkdir %s: %w", dir, err)
	}
	return &Disk{rootDir: dir, permissions: perm}, nil
}

func (d *Disk) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(d.rootDir, name[:2], name)
}

func (d *Disk) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, apperrors.Wrap(apperrors.CategoryCache, "disk.get", err)
	}
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, apperrors.Wrap(apperrors.CategoryCache, "disk.get", err)
	}
	return data, true, nil
}

func (d *Disk) Put(ctx context.Context, key string, value []byte) error {
	const op = "disk.put"
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryCache, op, err)
	}
	path := d.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CategoryCache, op, err)
	}
	// Write via a temp file and rename so concurrent readers never observe a
	// partial entry.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryCache, op, err)
	}
	if _, err = tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return apperrors.Wrap(apperrors.CategoryCache, op, err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return apperrors.Wrap(apperrors.CategoryCache, op, err)
	}
	if err = os.Chmod(tmp.Name(), d.permissions); err != nil {
		os.Remove(tmp.Name())
		return apperrors.Wrap(apperrors.CategoryCache, op, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return apperrors.Wrap(apperrors.CategoryCache, op, err)
	}
	return nil
}
