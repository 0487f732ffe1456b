package fileutil

import (
	"fmt"
	"io/fs"
	"strings"
)

// FindFileCaseInsensitive searches dir of fsys for a file whose name
// matches filename ignoring case, and returns its path inside fsys.
// Scripts written on Windows often refer to files with a different case
// than the one on disk.
//
// Example:
//
//	path, err := FindFileCaseInsensitive(fsys, "scripts", "Bullet.BS")
//	// finds "scripts/bullet.bs", "scripts/BULLET.bs", ...
func FindFileCaseInsensitive(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), filename) {
			if dir == "." {
				return entry.Name(), nil
			}
			return dir + "/" + entry.Name(), nil
		}
	}

	return "", fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, fs.ErrNotExist)
}
