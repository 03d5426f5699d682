package sceneio

import (
	"io/fs"
	"path/filepath"
)

// WalkFunc is called for each product found during a walk.
// Return nil to continue, filepath.SkipDir to skip the product's
// directory, or any other error to stop.
type WalkFunc func(path string, r FormatReader) error

// Walk visits root and everything below it in lexical order and calls fn
// for every path one of the Importer's readers accepts. Directories that are
// themselves products are reported before their contents; files inside a
// product directory are still probed individually.
//
// Example:
//
//	imp.Walk("/data", func(path string, r FormatReader) error {
//	    fmt.Println(r.Format(), path)
//	    return nil
//	})
func (imp *Importer) Walk(root string, fn WalkFunc) error {
	info, err := imp.o.fsys.Stat(root)
	if err != nil {
		return err
	}
	return walkPath(imp.o.fsys, root, info, imp, fn)
}

func walkPath(fsys FileSystem, path string, info fs.FileInfo, imp *Importer, fn WalkFunc) error {
	if r, err := imp.Detect(path); err == nil {
		if err := fn(path, r); err != nil {
			if err == filepath.SkipDir && info.IsDir() {
				return nil
			}
			return err
		}
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := fsys.ReadDir(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		childInfo, err := e.Info()
		if err != nil {
			return err
		}
		if err := walkPath(fsys, filepath.Join(path, e.Name()), childInfo, imp, fn); err != nil {
			if err == filepath.SkipDir {
				// SkipDir returned for a file skips the rest of its directory.
				return nil
			}
			return err
		}
	}
	return nil
}
