package sceneio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/go-sceneio/internal/dtype"
	"github.com/robert-malhotra/go-sceneio/internal/fsutil"
	"github.com/robert-malhotra/go-sceneio/internal/matfile"
)

var negZero = math.Copysign(0, -1)

// float32Grid encodes vals as float32 in the given order.
func float32Grid(t *testing.T, order binary.ByteOrder, vals ...float64) []byte {
	t.Helper()
	raw, err := dtype.Encode(dtype.Float32, order, vals)
	require.NoError(t, err)
	return raw
}

func seq(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

const gammaParTemplate = `Gamma DIFF&GEO DEM/MAP parameter file
title:     synthetic
DEM_projection:     EQA
data_format:        REAL*4
width:        %d
nlines:       %d
corner_lat:    46.0  decimal degrees
corner_lon:    9.5  decimal degrees
post_lat:    -0.25  decimal degrees
post_lon:     0.5  decimal degrees
`

// gammaFixture writes a Gamma product into a memory filesystem and returns
// the displacement path.
func gammaFixture(t *testing.T, fsys *fsutil.MemoryFileSystem, dir string, nlines, width int, disp []float64) string {
	t.Helper()
	path := filepath.Join(dir, "geo.disp")
	require.NoError(t, fsys.WriteFile(path, float32Grid(t, binary.BigEndian, disp...), 0644))
	par := fmt.Sprintf(gammaParTemplate, width, nlines)
	require.NoError(t, fsys.WriteFile(filepath.Join(dir, "geo.dem_par"), []byte(par), 0644))
	return path
}

const isceXMLTemplate = `<imageFile>
  <property name="width"><value>%d</value></property>
  <component name="coordinate1">
    <property name="delta"><value>0.000833333</value></property>
    <property name="size"><value>%d</value></property>
    <property name="startingvalue"><value>12.1</value></property>
  </component>
  <component name="coordinate2">
    <property name="delta"><value>-0.000833333</value></property>
    <property name="size"><value>%d</value></property>
    <property name="startingvalue"><value>41.7</value></property>
  </component>
</imageFile>
`

// isceFixture writes an ISCE product with nlat x nlon pixels. Each row of
// the displacement file holds an amplitude band followed by disp.
func isceFixture(t *testing.T, fsys *fsutil.MemoryFileSystem, dir string, nlat, nlon int, disp, phi, theta []float64, withLOS bool) string {
	t.Helper()
	interleave := func(left, right []float64) []float64 {
		out := make([]float64, 0, 2*len(left))
		for r := 0; r < nlat; r++ {
			out = append(out, left[r*nlon:(r+1)*nlon]...)
			out = append(out, right[r*nlon:(r+1)*nlon]...)
		}
		return out
	}
	amp := seq(nlat*nlon, 100)
	path := filepath.Join(dir, "filt_topophase.unw.geo")
	require.NoError(t, fsys.WriteFile(path, float32Grid(t, binary.LittleEndian, interleave(amp, disp)...), 0644))
	xml := fmt.Sprintf(isceXMLTemplate, nlon, nlon, nlat)
	require.NoError(t, fsys.WriteFile(path+".xml", []byte(xml), 0644))
	if withLOS {
		los := filepath.Join(dir, "los.rdr.geo")
		require.NoError(t, fsys.WriteFile(los, float32Grid(t, binary.LittleEndian, interleave(phi, theta)...), 0644))
	}
	return path
}

// matlabFixture writes a MAT file with the given variables.
func matlabFixture(t *testing.T, fsys *fsutil.MemoryFileSystem, path string, vars ...*matfile.Variable) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, matfile.Write(&buf, vars, matfile.WithCompression(6)))
	require.NoError(t, fsys.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func matVar(name string, rows, cols int, data []float64) *matfile.Variable {
	return &matfile.Variable{Name: name, Class: matfile.ClassDouble, Dims: []int{rows, cols}, Data: data}
}

// gmtsarFixture writes a netCDF grid with lat, lon and z(lat, lon) into
// dir on the real filesystem and returns its path.
func gmtsarFixture(t *testing.T, dir string, lat, lon, z []float64) string {
	t.Helper()
	path := filepath.Join(dir, "unwrap_ll.grd")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	h := cdf.NewHeader([]string{"lat", "lon"}, []int{len(lat), len(lon)})
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddVariable("z", []string{"lat", "lon"}, []float32{0})
	h.Define()

	nc, err := cdf.Create(f, h)
	require.NoError(t, err)

	write := func(name string, vals interface{}) {
		end := nc.Header.Lengths(name)
		w := nc.Writer(name, make([]int, len(end)), end)
		_, err := w.Write(vals)
		require.NoError(t, err)
	}
	write("lat", lat)
	write("lon", lon)
	z32 := make([]float32, len(z))
	for i, v := range z {
		z32[i] = float32(v)
	}
	write("z", z32)
	require.NoError(t, cdf.UpdateNumRecs(f))
	return path
}

// losRecords builds a look-vector file body: six floats per pixel with
// east, north, up last.
func losRecords(enu ...[3]float64) []float64 {
	out := make([]float64, 0, 6*len(enu))
	for _, v := range enu {
		out = append(out, 0, 0, 0, v[0], v[1], v[2])
	}
	return out
}

// sameBits reports bit-identical float64 slices, treating NaNs with equal
// payloads as equal.
func sameBits(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

// denseComparer compares matrices bit for bit.
func denseComparer(a, b *mat.Dense) bool {
	if a == nil || b == nil {
		return a == b
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false
	}
	return sameBits(mat.DenseCopyOf(a).RawMatrix().Data, mat.DenseCopyOf(b).RawMatrix().Data)
}
