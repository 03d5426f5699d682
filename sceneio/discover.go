package sceneio

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	bin "github.com/robert-malhotra/go-sceneio/internal/binary"
	"github.com/robert-malhotra/go-sceneio/internal/fsutil"
)

// isDir reports whether path is an existing directory.
func isDir(fsys fsutil.FileSystem, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && info.IsDir()
}

// isFile reports whether path is an existing non-directory.
func isFile(fsys fsutil.FileSystem, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && !info.IsDir()
}

// productDir returns path if it is a directory and its parent otherwise.
func productDir(fsys fsutil.FileSystem, path string) string {
	if isDir(fsys, path) {
		return path
	}
	return filepath.Dir(path)
}

// globFiles returns the regular files matching pattern, in lexical order.
func globFiles(fsys fsutil.FileSystem, pattern string) []string {
	matches, err := fsys.Glob(pattern)
	if err != nil {
		return nil
	}
	files := matches[:0]
	for _, m := range matches {
		if isFile(fsys, m) {
			files = append(files, m)
		}
	}
	return files
}

// findProduct resolves path to a product file: path itself when it is a
// file, else the first match of pattern inside the directory path.
func findProduct(fsys fsutil.FileSystem, path, pattern string) (string, bool) {
	if isFile(fsys, path) {
		return path, true
	}
	if !isDir(fsys, path) {
		return "", false
	}
	files := globFiles(fsys, filepath.Join(path, pattern))
	if len(files) == 0 {
		return "", false
	}
	return files[0], true
}

// readHeader reads up to n bytes from the start of path.
func readHeader(fsys fsutil.FileSystem, path string, n int) ([]byte, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if size := f.Size(); size < int64(n) {
		n = int(size)
	}
	buf := make([]byte, n)
	got, err := f.ReadAt(buf, 0)
	if got == n {
		return buf, nil
	}
	return nil, err
}

// decodeGrid opens path and decodes a single-band grid.
func decodeGrid(fsys fsutil.FileSystem, f Format, path string, spec bin.GridSpec) (*mat.Dense, int, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, 0, openError(f, path, err)
	}
	defer file.Close()

	m, padded, err := bin.DecodeGrid(file, spec)
	if err != nil {
		return nil, 0, structural(f, path, err)
	}
	return m, padded, nil
}

// decodeInterleaved opens path and decodes a dual-band grid.
func decodeInterleaved(fsys fsutil.FileSystem, f Format, path string, spec bin.GridSpec) (left, right *mat.Dense, err error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, nil, openError(f, path, err)
	}
	defer file.Close()

	left, right, _, err = bin.DecodeInterleaved(file, spec)
	if err != nil {
		return nil, nil, structural(f, path, err)
	}
	return left, right, nil
}

func openError(f Format, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return missingArtifact(f, path, err)
	}
	return structural(f, path, err)
}

// foreignArtifact reports whether name belongs to a product layout other
// than a bare Gamma grid.
func foreignArtifact(name string) bool {
	base := strings.ToLower(filepath.Base(name))
	switch filepath.Ext(base) {
	case ".mat", ".grd", ".xml":
		return true
	}
	return strings.HasSuffix(base, "par") ||
		strings.Contains(base, ".unw.geo") ||
		strings.Contains(base, ".rdr.geo") ||
		strings.Contains(base, ".los.")
}
