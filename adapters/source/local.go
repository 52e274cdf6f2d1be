// Package source provides ByteSource implementations for local and remote
// request paths.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/Skryldev/image-server/errors"
)

// Local reads source images from a base directory.  Request paths are
// cleaned and rooted so they cannot escape it.
type Local struct {
	baseDir string
}

// NewLocal creates a Local source rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{baseDir: dir}
}

func (l *Local) Fetch(ctx context.Context, location string) ([]byte, error) {
	const op = "local.fetch"
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategorySource, op, err)
	}

	path := filepath.Join(l.baseDir, filepath.Clean("/"+location))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.CategorySource, op,
				fmt.Errorf("%w: %s", apperrors.ErrSourceNotFound, location))
		}
		return nil, apperrors.Wrap(apperrors.CategorySource, op, err)
	}
	return data, nil
}
