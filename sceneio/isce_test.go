package sceneio

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-sceneio/internal/fsutil"
)

func TestISCEDecode(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	disp := []float64{1, 0, 3, negZero, 5, 6}
	phi := seq(6, 10)
	theta := seq(6, -50)
	isceFixture(t, fsys, "/isce", 2, 3, disp, phi, theta, true)

	s, err := NewISCEReader(WithFileSystem(fsys)).Decode("/isce")
	require.NoError(t, err)

	rows, cols := s.Dims()
	assert.Equal(t, []int{2, 3}, []int{rows, cols})
	assert.InDelta(t, 0.01, s.Displacement.At(0, 0), 1e-9)
	assert.True(t, math.IsNaN(s.Displacement.At(0, 1)), "zero is no data")
	assert.True(t, math.IsNaN(s.Displacement.At(1, 0)), "negative zero is no data")
	assert.InDelta(t, 0.06, s.Displacement.At(1, 2), 1e-9)
	assert.Equal(t, 2, s.NaNCount())

	assert.Equal(t, 14.0, s.Phi.At(1, 1))
	assert.Equal(t, -46.0+90, s.Theta.At(1, 1))
	assert.Empty(t, s.Diagnostics)
}

func TestISCELowerLeftLatitudeExact(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	isceFixture(t, fsys, "/isce", 2, 3, seq(6, 1), seq(6, 1), seq(6, 1), true)

	s, err := NewISCEReader(WithFileSystem(fsys)).Decode("/isce/filt_topophase.unw.geo")
	require.NoError(t, err)

	startingValue, size, delta := 41.7, 2.0, -0.000833333
	assert.Equal(t, startingValue+size*delta, s.LLLat)
	assert.Equal(t, 12.1, s.LLLon)
	assert.Equal(t, 0.000833333, s.DLat)
	assert.Equal(t, 0.000833333, s.DLon)
}

func TestISCEMissingLookVector(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	path := isceFixture(t, fsys, "/isce", 2, 3, seq(6, 1), nil, nil, false)
	// A displacement file that cannot be reshaped proves discovery fails
	// before any grid is read.
	require.NoError(t, fsys.WriteFile(path, float32Grid(t, binary.LittleEndian, 1, 2, 3), 0644))

	s, err := NewISCEReader(WithFileSystem(fsys)).Decode("/isce")
	assert.Nil(t, s)
	require.ErrorIs(t, err, ErrMissingArtifact)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.True(t, strings.HasSuffix(de.Artifact, "*.rdr.geo"), "artifact %q", de.Artifact)
}

func TestISCEMissingMetadata(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	path := isceFixture(t, fsys, "/isce", 2, 3, seq(6, 1), seq(6, 1), seq(6, 1), true)
	fsys2 := fsutil.NewMemoryFileSystem()
	for name, data := range fsys.Snapshot() {
		if name != path+".xml" {
			require.NoError(t, fsys2.WriteFile(name, data, 0644))
		}
	}

	_, err := NewISCEReader(WithFileSystem(fsys2)).Decode("/isce")
	require.ErrorIs(t, err, ErrMissingArtifact)
	assert.Contains(t, err.Error(), ".unw.geo.xml")
}

func TestISCEMissingCoordinateKeys(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	path := isceFixture(t, fsys, "/isce", 2, 3, seq(6, 1), seq(6, 1), seq(6, 1), true)
	xml := `<imageFile><component name="coordinate1">
  <property name="delta"><value>0.1</value></property>
</component></imageFile>`
	require.NoError(t, fsys.WriteFile(path+".xml", []byte(xml), 0644))

	_, err := NewISCEReader(WithFileSystem(fsys)).Decode("/isce")
	require.ErrorIs(t, err, ErrStructural)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t,
		"coordinate1.size, coordinate1.startingvalue, coordinate2.delta, coordinate2.size, coordinate2.startingvalue",
		de.Artifact)
}

func TestISCEShapeMismatch(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	isceFixture(t, fsys, "/isce", 2, 3, seq(6, 1), seq(6, 1), seq(6, 1), true)
	// Three rows of interleaved data for a two-row scene.
	require.NoError(t, fsys.WriteFile("/isce/filt_topophase.unw.geo",
		float32Grid(t, binary.LittleEndian, seq(18, 1)...), 0644))

	_, err := NewISCEReader(WithFileSystem(fsys)).Decode("/isce")
	assert.ErrorIs(t, err, ErrStructural)
}

func TestISCEProbe(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	path := isceFixture(t, fsys, "/isce", 2, 3, seq(6, 1), seq(6, 1), seq(6, 1), true)
	r := NewISCEReader(WithFileSystem(fsys))

	assert.True(t, r.Probe("/isce"))
	assert.True(t, r.Probe(path))
	assert.False(t, r.Probe("/isce/los.rdr.geo"))
	assert.False(t, r.Probe(path+".xml"))
	assert.False(t, r.Probe("/elsewhere"))
}

func TestISCEIdempotent(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	isceFixture(t, fsys, "/isce", 2, 3, []float64{0, 1, 2, 3, 4, 5}, seq(6, 1), seq(6, 1), true)
	r := NewISCEReader(WithFileSystem(fsys))

	a, err := r.Decode("/isce")
	require.NoError(t, err)
	b, err := r.Decode("/isce")
	require.NoError(t, err)
	if diff := cmp.Diff(a, b, cmp.Comparer(denseComparer)); diff != "" {
		t.Errorf("decodes differ (-first +second):\n%s", diff)
	}
}
