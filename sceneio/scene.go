package sceneio

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Scene is one decoded displacement product.
//
// Displacement is line-of-sight displacement in meters. Theta is the look
// orientation (azimuth from east) and Phi the look elevation, both in
// degrees and always with the displacement shape. Every reader fills the
// slots this way: GMTSAR derives them from east/north/up look vectors,
// ISCE from its two-band look file, and Matlab takes them as stored.
// Gamma keeps only the cosine of its orientation grid in Theta. NaN
// marks cells without data. The grid is placed by its
// lower-left corner and signed per-pixel steps in decimal degrees.
type Scene struct {
	Format       Format
	Displacement *mat.Dense
	Theta        *mat.Dense
	Phi          *mat.Dense

	LLLat, LLLon float64
	DLat, DLon   float64

	Diagnostics []Diagnostic
}

// Dims returns the number of rows and columns.
func (s *Scene) Dims() (rows, cols int) {
	return s.Displacement.Dims()
}

// GeoTransform returns the scene's geographic reference.
func (s *Scene) GeoTransform() GeoTransform {
	return GeoTransform{LLLat: s.LLLat, LLLon: s.LLLon, DLat: s.DLat, DLon: s.DLon}
}

// NaNCount returns the number of displacement cells without data.
func (s *Scene) NaNCount() int {
	return countNaN(s.Displacement)
}

// Degraded reports whether any fallback was taken.
func (s *Scene) Degraded() bool { return len(s.Diagnostics) > 0 }

func countNaN(m *mat.Dense) int {
	if m == nil {
		return 0
	}
	raw := m.RawMatrix()
	n := 0
	for i := 0; i < raw.Rows; i++ {
		for _, v := range raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols] {
			if math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}

// GeoTransform places a grid on the globe: the lower-left corner and the
// signed per-pixel step, all in decimal degrees.
type GeoTransform struct {
	LLLat, LLLon float64
	DLat, DLon   float64
}

var errGeoTransform = errors.New("invalid geo transform")

// Validate checks that the corner is finite and the steps are finite and
// non-zero.
func (g GeoTransform) Validate() error {
	for _, c := range []struct {
		name    string
		v       float64
		nonZero bool
	}{
		{"llLat", g.LLLat, false},
		{"llLon", g.LLLon, false},
		{"dLat", g.DLat, true},
		{"dLon", g.DLon, true},
	} {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return fmt.Errorf("%w: %s is %v", errGeoTransform, c.name, c.v)
		}
		if c.nonZero && c.v == 0 {
			return fmt.Errorf("%w: %s is zero", errGeoTransform, c.name)
		}
	}
	return nil
}

// sceneBuilder collects the parts of a scene during one decode. Nothing
// is published until build succeeds.
type sceneBuilder struct {
	format       Format
	log          zerolog.Logger
	displacement *mat.Dense
	theta, phi   *mat.Dense
	geo          GeoTransform
	diagnostics  []Diagnostic
}

func newSceneBuilder(f Format, log zerolog.Logger) *sceneBuilder {
	return &sceneBuilder{format: f, log: log}
}

// degrade records a fallback and logs it at warn level.
func (b *sceneBuilder) degrade(kind DiagnosticKind, artifact, format string, args ...any) {
	d := Diagnostic{
		Format:   b.format,
		Kind:     kind,
		Artifact: artifact,
		Message:  fmt.Sprintf(format, args...),
	}
	b.diagnostics = append(b.diagnostics, d)
	b.log.Warn().Str("fallback", kind.String()).Str("artifact", artifact).Msg(d.Message)
}

func (b *sceneBuilder) build() (*Scene, error) {
	if b.displacement == nil {
		return nil, structuralf(b.format, "displacement", "no displacement grid decoded")
	}
	if err := b.geo.Validate(); err != nil {
		return nil, structural(b.format, "geo transform", err)
	}

	rows, cols := b.displacement.Dims()
	theta, err := fitAngle(b.theta, rows, cols)
	if err != nil {
		return nil, structural(b.format, "theta", err)
	}
	phi, err := fitAngle(b.phi, rows, cols)
	if err != nil {
		return nil, structural(b.format, "phi", err)
	}

	return &Scene{
		Format:       b.format,
		Displacement: b.displacement,
		Theta:        theta,
		Phi:          phi,
		LLLat:        b.geo.LLLat,
		LLLon:        b.geo.LLLon,
		DLat:         b.geo.DLat,
		DLon:         b.geo.DLon,
		Diagnostics:  b.diagnostics,
	}, nil
}

// fitAngle broadcasts nil (zero) and 1x1 angles to rows x cols and checks
// that any other angle grid has exactly that shape.
func fitAngle(m *mat.Dense, rows, cols int) (*mat.Dense, error) {
	if m == nil {
		return mat.NewDense(rows, cols, nil), nil
	}
	r, c := m.Dims()
	if r == 1 && c == 1 && (rows != 1 || cols != 1) {
		return filled(rows, cols, m.At(0, 0)), nil
	}
	if r != rows || c != cols {
		return nil, fmt.Errorf("angle grid is %dx%d, displacement is %dx%d", r, c, rows, cols)
	}
	return m, nil
}

func filled(rows, cols int, v float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(rows, cols, data)
}
