package sceneio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	bin "github.com/robert-malhotra/go-sceneio/internal/binary"
	"github.com/robert-malhotra/go-sceneio/internal/dtype"
)

const (
	gmtsarGridPattern = "*.grd"
	gmtsarLOSPattern  = "*.los.*"

	// Values per look-vector record; east, north and up are the last three.
	losStride = 6
)

var (
	netCDFClassic  = []byte("CDF\x01")
	netCDF64Offset = []byte("CDF\x02")

	// Axis variable names, preferred first. GMT writes x/y for
	// projected grids.
	gmtsarLatNames = []string{"lat", "y"}
	gmtsarLonNames = []string{"lon", "x"}
)

// GMTSARReader reads GMTSAR products: a netCDF classic *.grd displacement
// grid in centimeters and an optional *.los.* east/north/up look-vector
// file produced by SAT_look.
type GMTSARReader struct {
	o   *options
	log zerolog.Logger
}

// NewGMTSARReader creates a GMTSAR reader.
func NewGMTSARReader(opts ...Option) *GMTSARReader {
	return newGMTSARReader(newOptions(opts))
}

func newGMTSARReader(o *options) *GMTSARReader {
	return &GMTSARReader{o: o, log: o.log.With().Str("reader", FormatGMTSAR.String()).Logger()}
}

// Format returns FormatGMTSAR.
func (r *GMTSARReader) Format() Format { return FormatGMTSAR }

// Probe accepts a .grd file, or a directory containing one, that starts
// with the netCDF classic magic.
func (r *GMTSARReader) Probe(path string) bool {
	grd, ok := findProduct(r.o.fsys, path, gmtsarGridPattern)
	if !ok || !strings.EqualFold(filepath.Ext(grd), ".grd") {
		return false
	}
	header, err := readHeader(r.o.fsys, grd, 4)
	if err != nil {
		return false
	}
	return string(header) == string(netCDFClassic) || string(header) == string(netCDF64Offset)
}

// Decode reads the GMTSAR product at path.
func (r *GMTSARReader) Decode(path string) (*Scene, error) {
	return r.decode(path, r.log.With().Str("path", path).Logger())
}

func (r *GMTSARReader) decode(path string, log zerolog.Logger) (*Scene, error) {
	fsys := r.o.fsys

	grd, ok := findProduct(fsys, path, gmtsarGridPattern)
	if !ok {
		return nil, missingArtifact(FormatGMTSAR, filepath.Join(path, gmtsarGridPattern),
			fmt.Errorf("displacement grid not found"))
	}
	var los string
	if matches := globFiles(fsys, filepath.Join(filepath.Dir(grd), gmtsarLOSPattern)); len(matches) > 0 {
		los = matches[0]
	}

	file, err := fsys.Open(grd)
	if err != nil {
		return nil, openError(FormatGMTSAR, grd, err)
	}
	defer file.Close()

	nc, err := cdf.Open(readOnly{file})
	if err != nil {
		return nil, structural(FormatGMTSAR, grd, err)
	}
	z, lat, lon, err := gmtsarVariables(nc)
	if err != nil {
		return nil, structural(FormatGMTSAR, grd, err)
	}
	rows, cols := len(lat), len(lon)
	if lengths := nc.Header.Lengths(z); len(lengths) != 2 || lengths[0] != rows || lengths[1] != cols {
		return nil, structuralf(FormatGMTSAR, grd, "z has dimensions %v, axes are %d x %d", lengths, rows, cols)
	}
	latVals, err := readVariable(nc, lat)
	if err != nil {
		return nil, structural(FormatGMTSAR, grd, err)
	}
	lonVals, err := readVariable(nc, lon)
	if err != nil {
		return nil, structural(FormatGMTSAR, grd, err)
	}
	zVals, err := readVariable(nc, z)
	if err != nil {
		return nil, structural(FormatGMTSAR, grd, err)
	}
	if len(latVals) != rows || len(lonVals) != cols || len(zVals) != rows*cols {
		return nil, structuralf(FormatGMTSAR, grd, "variable lengths do not match dimensions")
	}

	b := newSceneBuilder(FormatGMTSAR, log)
	disp := mat.NewDense(rows, cols, zVals)
	disp.Scale(1e-2, disp)
	b.displacement = disp

	minLat, minLon := floats.Min(latVals), floats.Min(lonVals)
	b.geo = GeoTransform{
		LLLat: minLat,
		LLLon: minLon,
		DLat:  (floats.Max(latVals) - minLat) / float64(rows),
		DLon:  (floats.Max(lonVals) - minLon) / float64(cols),
	}

	if los == "" {
		b.degrade(FallbackMissingLookVector, gmtsarLOSPattern,
			"no look-vector file found, defaulting theta and phi to 0; create one with SAT_look")
	} else {
		log.Debug().Str("los", los).Msg("found look-vector file")
		if b.theta, b.phi, err = r.lookAngles(los, rows, cols); err != nil {
			return nil, err
		}
	}
	return b.build()
}

// gmtsarVariables picks the value and axis variable names.
func gmtsarVariables(nc *cdf.File) (z, lat, lon string, err error) {
	have := make(map[string]bool)
	for _, v := range nc.Header.Variables() {
		have[v] = true
	}
	pick := func(names []string) string {
		for _, n := range names {
			if have[n] {
				return n
			}
		}
		return ""
	}
	lat, lon = pick(gmtsarLatNames), pick(gmtsarLonNames)

	var missing []string
	if !have["z"] {
		missing = append(missing, "z")
	}
	if lat == "" {
		missing = append(missing, strings.Join(gmtsarLatNames, "|"))
	}
	if lon == "" {
		missing = append(missing, strings.Join(gmtsarLonNames, "|"))
	}
	if len(missing) > 0 {
		return "", "", "", fmt.Errorf("missing variables %s", strings.Join(missing, ", "))
	}
	if len(nc.Header.Lengths(lat)) != 1 || len(nc.Header.Lengths(lon)) != 1 {
		return "", "", "", errors.New("axis variables must be one-dimensional")
	}
	return "z", lat, lon, nil
}

// readVariable reads a whole numeric variable as float64.
func readVariable(nc *cdf.File, name string) ([]float64, error) {
	n := 1
	for _, l := range nc.Header.Lengths(name) {
		n *= l
	}
	r := nc.Reader(name, nil, nil)
	buf := r.Zero(n)
	got, err := r.Read(buf)
	if err != nil && !(errors.Is(err, io.EOF) && got == n) {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if got != n {
		return nil, fmt.Errorf("reading %s: got %d of %d values", name, got, n)
	}

	out := make([]float64, n)
	switch vals := buf.(type) {
	case []float32:
		for i, v := range vals {
			out[i] = float64(v)
		}
	case []float64:
		copy(out, vals)
	case []int32:
		for i, v := range vals {
			out[i] = float64(v)
		}
	case []int16:
		for i, v := range vals {
			out[i] = float64(v)
		}
	case []int8:
		for i, v := range vals {
			out[i] = float64(v)
		}
	case []uint8:
		for i, v := range vals {
			out[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("variable %s has non-numeric type %T", name, buf)
	}
	return out, nil
}

// lookAngles converts the east/north/up look vectors to orientation
// (theta, azimuth from east) and elevation (phi) in degrees.
func (r *GMTSARReader) lookAngles(path string, rows, cols int) (theta, phi *mat.Dense, err error) {
	file, err := r.o.fsys.Open(path)
	if err != nil {
		return nil, nil, openError(FormatGMTSAR, path, err)
	}
	defer file.Close()

	vals, err := bin.ReadElements(file, dtype.Float32, binary.LittleEndian)
	if err != nil {
		return nil, nil, structural(FormatGMTSAR, path, err)
	}
	if len(vals) != losStride*rows*cols {
		return nil, nil, structuralf(FormatGMTSAR, path,
			"%d values, want %d records of %d for a %dx%d grid", len(vals), rows*cols, losStride, rows, cols)
	}
	e := bin.Strided(vals, losStride, 3)
	n := bin.Strided(vals, losStride, 4)
	u := bin.Strided(vals, losStride, 5)

	azimuth := make([]float64, rows*cols)
	elevation := make([]float64, rows*cols)
	for i := range azimuth {
		azimuth[i] = math.Atan(n[i]/e[i]) * 180 / math.Pi
		if n[i] < 0 {
			azimuth[i] += 180
		}
		elevation[i] = math.Acos(u[i]) * 180 / math.Pi
	}
	return mat.NewDense(rows, cols, azimuth), mat.NewDense(rows, cols, elevation), nil
}

// readOnly adapts a read-only file to the ReaderWriterAt that cdf.Open
// requires.
type readOnly struct {
	io.ReaderAt
}

func (readOnly) WriteAt([]byte, int64) (int, error) {
	return 0, errors.New("read-only file")
}
