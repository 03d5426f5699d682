package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_MkdirAll(t *testing.T) {
	fs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "a", "b")

	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	info, err := fs.Stat(dir)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", dir)
	}

	if _, err := fs.Stat("nonexistent_file_xyz.go"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestOSFileSystem_OpenMapped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4, 5}, 0644))

	fs := OSFileSystem{}
	f, err := fs.Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, int64(5), f.Size())
	buf := make([]byte, 2)
	n, err := f.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{4, 5}, buf)
}

func TestOSFileSystem_GlobSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.par", "a.par", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	matches, err := OSFileSystem{}.Glob(filepath.Join(dir, "*par"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.par"), filepath.Join(dir, "b.par")}, matches)
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	err := mfs.WriteFile("/test.txt", testData, 0644)
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}
}

func TestMemoryFileSystem_CreateAndOpen(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/created.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte{9, 8, 7})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := mfs.Open("/out/created.bin")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(3), f.Size())

	buf := make([]byte, 3)
	_, err = f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		t.Fatalf("ReadAt failed: %v", err)
	}
	assert.Equal(t, []byte{9, 8, 7}, buf)
	info, err := mfs.Stat("/out")
	require.NoError(t, err, "parent directory should exist")
	assert.True(t, info.IsDir())
}

func TestMemoryFileSystem_OpenMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_, err := mfs.Open("/missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryFileSystem_Glob(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, name := range []string{"/data/z.par", "/data/a.par", "/data/sub/x.par", "/data/disp"} {
		require.NoError(t, mfs.WriteFile(name, nil, 0644))
	}

	matches, err := mfs.Glob("/data/*par")
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/a.par", "/data/z.par"}, matches)

	_, err = mfs.Glob("/data/[")
	assert.Error(t, err, "malformed pattern")
}

func TestMemoryFileSystem_StatAndReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/p/b.grd", []byte{1, 2}, 0644))
	require.NoError(t, mfs.WriteFile("/p/a.grd", nil, 0644))
	require.NoError(t, mfs.MkdirAll("/p/nested", 0755))

	info, err := mfs.Stat("/p")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = mfs.Stat("/p/b.grd")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, int64(2), info.Size())

	entries, err := mfs.ReadDir("/p")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a.grd", "b.grd", "nested"}, names)
	assert.True(t, entries[2].IsDir())
}

func TestMemoryFileSystem_Snapshot(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/f", []byte("abc"), 0644))

	snap := mfs.Snapshot()
	snap["/f"][0] = 'x'

	data, err := mfs.ReadFile("/f")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data), "snapshot must not alias file contents")
}
