package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-sceneio/internal/dtype"
	"github.com/robert-malhotra/go-sceneio/internal/matfile"
	"github.com/robert-malhotra/go-sceneio/sceneio"
)

const parTemplate = `title: synthetic
width:        %d
nlines:       %d
corner_lat:    46.0  decimal degrees
corner_lon:    9.5  decimal degrees
post_lat:    -0.25  decimal degrees
post_lon:     0.5  decimal degrees
`

// writeGamma writes a 2x3 Gamma product under dir and returns the grid path.
func writeGamma(t *testing.T, dir string) string {
	t.Helper()
	raw, err := dtype.Encode(dtype.Float32, binary.BigEndian, []float64{1, 2, math.Copysign(0, -1), 4, 5, 6})
	require.NoError(t, err)
	path := filepath.Join(dir, "geo.disp")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	par := fmt.Sprintf(parTemplate, 3, 2)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geo.dem_par"), []byte(par), 0o644))
	return path
}

func runArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestSummarize(t *testing.T) {
	path := writeGamma(t, t.TempDir())

	code, out, errOut := runArgs(t, "-log-level", "off", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Format:       gamma")
	assert.Contains(t, out, "Shape:        2 x 3")
	assert.Contains(t, out, "NaN cells:    1 of 6")
	assert.Contains(t, out, "min 0.01 m, max 0.06 m")
	assert.Contains(t, out, "Fallback:")
}

func TestSummarizeFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nothing.bin")
	code, _, errOut := runArgs(t, "-log-level", "off", missing)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "ERROR:")
}

func TestUsage(t *testing.T) {
	code, _, errOut := runArgs(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Usage: sceneinfo")
}

func TestInvalidFormatFlag(t *testing.T) {
	code, _, errOut := runArgs(t, "-format", "roipac", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "formats")
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	product := filepath.Join(root, "track_a")
	require.NoError(t, os.Mkdir(product, 0o755))
	writeGamma(t, product)

	code, out, errOut := runArgs(t, "-log-level", "off", "-scan", root)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "gamma")
	assert.Contains(t, out, filepath.Join(product, "geo.disp"))
}

func TestDumpAndExport(t *testing.T) {
	dir := t.TempDir()
	path := writeGamma(t, dir)
	dump := filepath.Join(dir, "out.bin")
	export := filepath.Join(dir, "out.mat")

	code, _, errOut := runArgs(t, "-log-level", "off", "-format", "gamma", "-dump", dump, "-export", export, path)
	require.Equal(t, 0, code, errOut)

	raw, err := os.ReadFile(dump)
	require.NoError(t, err)
	vals, err := dtype.Decode(dtype.Float32, binary.LittleEndian, raw)
	require.NoError(t, err)
	require.Len(t, vals, 6)
	assert.InDelta(t, 0.01, vals[0], 1e-6)
	assert.True(t, math.IsNaN(vals[2]))

	data, err := os.ReadFile(export)
	require.NoError(t, err)
	f, err := matfile.Read(bytes.NewReader(data))
	require.NoError(t, err)
	for _, name := range []string{"displacement", "theta", "phi", "xx", "yy", "geo"} {
		require.NotNil(t, f.Lookup(name), name)
	}
	assert.Equal(t, []int{2, 3}, f.Lookup("theta").Dims)
	assert.Equal(t, []float64{45.5, 9.5, -0.25, 0.5}, f.Lookup("geo").Data)
}

func TestDumpCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := writeGamma(t, dir)
	dump := filepath.Join(dir, "out", "nested", "disp.bin")

	code, out, errOut := runArgs(t, "-log-level", "off", "-dump", dump, path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "2 x 3 float32")

	info, err := os.Stat(dump)
	require.NoError(t, err)
	assert.Equal(t, int64(6*4), info.Size())
}

func TestExportReimports(t *testing.T) {
	dir := t.TempDir()
	path := writeGamma(t, dir)
	export := filepath.Join(dir, "scene.mat")

	code, _, errOut := runArgs(t, "-log-level", "off", "-export", export, path)
	require.Equal(t, 0, code, errOut)

	orig, err := sceneio.NewGammaReader().Decode(path)
	require.NoError(t, err)
	s, err := sceneio.NewMatlabReader().Decode(export)
	require.NoError(t, err)

	assert.Equal(t, sceneio.FormatMatlab, s.Format)
	rows, cols := s.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, 3, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			want, got := orig.Displacement.At(i, j), s.Displacement.At(i, j)
			if math.IsNaN(want) {
				assert.True(t, math.IsNaN(got), "(%d,%d)", i, j)
				continue
			}
			assert.Equal(t, want, got, "(%d,%d)", i, j)
		}
	}

	// Exported coordinates reference the grid to the origin and keep the
	// pixel spacing.
	g := s.GeoTransform()
	assert.Zero(t, g.LLLat)
	assert.Zero(t, g.LLLon)
	assert.InDelta(t, -0.25, g.DLat, 1e-9)
	assert.InDelta(t, 0.5, g.DLon, 1e-9)
	require.Len(t, s.Diagnostics, 1)
	assert.Equal(t, sceneio.FallbackOriginReference, s.Diagnostics[0].Kind)
}

func TestCoordinateVariable(t *testing.T) {
	tests := []struct {
		name string
		n    int
		step float64
		want []float64
	}{
		{"ascending", 3, 10, []float64{1e6, 1e6 + 10, 1e6 + 20}},
		{"descending", 3, -10, []float64{1e6 + 20, 1e6 + 10, 1e6}},
		{"single column", 1, 5, []float64{1e6, 1e6 + 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := coordinateVariable("xx", tt.n, tt.step)
			assert.Equal(t, []int{1, len(tt.want)}, v.Dims)
			assert.Equal(t, tt.want, v.Data)
		})
	}
}
