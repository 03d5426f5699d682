package sceneio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	bin "github.com/robert-malhotra/go-sceneio/internal/binary"
	"github.com/robert-malhotra/go-sceneio/internal/dtype"
	"github.com/robert-malhotra/go-sceneio/internal/partext"
)

// gammaRequired are the parameter keys a Gamma *par file must provide.
var gammaRequired = []string{"corner_lat", "corner_lon", "nlines", "width", "post_lat", "post_lon"}

const gammaParPattern = "*par"

// GammaReader reads geocoded Gamma products: a headerless big-endian
// float32 displacement grid in centimeters, a sibling *par parameter file,
// and optional *phi* and *theta* angle grids.
type GammaReader struct {
	o   *options
	log zerolog.Logger
}

// NewGammaReader creates a Gamma reader.
func NewGammaReader(opts ...Option) *GammaReader {
	return newGammaReader(newOptions(opts))
}

func newGammaReader(o *options) *GammaReader {
	return &GammaReader{o: o, log: o.log.With().Str("reader", FormatGamma.String()).Logger()}
}

// Format returns FormatGamma.
func (r *GammaReader) Format() Format { return FormatGamma }

// Probe accepts a regular file that is not another chain's artifact and
// has a usable parameter file.
func (r *GammaReader) Probe(path string) bool {
	if !isFile(r.o.fsys, path) || foreignArtifact(path) {
		return false
	}
	_, _, err := r.parameters(path, zerolog.Nop())
	return err == nil
}

// Decode reads the Gamma product whose displacement grid is path.
func (r *GammaReader) Decode(path string) (*Scene, error) {
	return r.decode(path, r.log.With().Str("path", path).Logger())
}

func (r *GammaReader) decode(path string, log zerolog.Logger) (*Scene, error) {
	fsys := r.o.fsys

	if !isFile(fsys, path) {
		return nil, missingArtifact(FormatGamma, path, fmt.Errorf("displacement grid not found"))
	}
	parFile, par, err := r.parameters(path, log)
	if err != nil {
		return nil, err
	}
	width, ok := par.Int("width")
	if !ok || width <= 0 {
		return nil, structuralf(FormatGamma, parFile, "width must be a positive integer")
	}
	nlines, ok := par.Int("nlines")
	if !ok || nlines <= 0 {
		return nil, structuralf(FormatGamma, parFile, "nlines must be a positive integer")
	}
	geo, err := gammaGeo(par, nlines)
	if err != nil {
		return nil, structural(FormatGamma, parFile, err)
	}

	b := newSceneBuilder(FormatGamma, log)
	b.geo = geo

	dir := filepath.Dir(path)
	phiFile := r.sideFile(b, dir, "*phi*", path)
	thetaFile := r.sideFile(b, dir, "*theta*", path)

	spec := bin.GridSpec{Kind: dtype.Float32, Order: binary.BigEndian, Rows: nlines, Cols: width}
	disp, padded, err := decodeGrid(fsys, FormatGamma, path, spec)
	if err != nil {
		return nil, err
	}
	if padded > 0 {
		log.Debug().Int("cells", padded).Msg("padded incomplete last line")
	}
	if n := bin.Recode(disp, bin.NegativeZero); n > 0 {
		log.Debug().Int("cells", n).Msg("recoded -0 to NaN")
	}
	disp.Scale(1e-2, disp)
	b.displacement = disp

	if phiFile != "" {
		b.phi, _, err = decodeGrid(fsys, FormatGamma, phiFile, spec)
		if err != nil {
			return nil, err
		}
	}
	if thetaFile != "" {
		theta, _, err := decodeGrid(fsys, FormatGamma, thetaFile, spec)
		if err != nil {
			return nil, err
		}
		theta.Apply(func(_, _ int, v float64) float64 { return math.Cos(v) }, theta)
		b.theta = theta
	}

	return b.build()
}

// parameters locates and parses the parameter file for the grid at path.
func (r *GammaReader) parameters(path string, log zerolog.Logger) (string, partext.ParameterSet, error) {
	fsys := r.o.fsys
	if r.o.parFile != "" {
		data, err := fsys.ReadFile(r.o.parFile)
		if err != nil {
			return "", nil, openError(FormatGamma, r.o.parFile, err)
		}
		par, err := partext.Parse(bytes.NewReader(data))
		if err != nil {
			return "", nil, structural(FormatGamma, r.o.parFile, err)
		}
		if missing := par.Missing(gammaRequired...); len(missing) > 0 {
			return "", nil, structuralf(FormatGamma, strings.Join(missing, ", "),
				"parameter file %s lacks required keys", r.o.parFile)
		}
		return r.o.parFile, par, nil
	}

	pattern := filepath.Join(filepath.Dir(path), gammaParPattern)
	for _, candidate := range globFiles(fsys, pattern) {
		data, err := fsys.ReadFile(candidate)
		if err != nil {
			continue
		}
		par, err := partext.Parse(bytes.NewReader(data))
		if err != nil {
			continue
		}
		if missing := par.Missing(gammaRequired...); len(missing) > 0 {
			log.Debug().Str("candidate", candidate).Strs("missing", missing).Msg("skipping parameter file")
			continue
		}
		log.Debug().Str("parameter_file", candidate).Msg("found parameter file")
		return candidate, par, nil
	}
	return "", nil, missingArtifact(FormatGamma, pattern, fmt.Errorf("no parameter file with keys %s", strings.Join(gammaRequired, ", ")))
}

// sideFile returns the single angle grid matching pattern, or "" after
// recording a fallback when there are none or several.
func (r *GammaReader) sideFile(b *sceneBuilder, dir, pattern, dataFile string) string {
	var matches []string
	for _, m := range globFiles(r.o.fsys, filepath.Join(dir, pattern)) {
		if m == dataFile || strings.HasSuffix(strings.ToLower(m), "par") {
			continue
		}
		matches = append(matches, m)
	}
	switch len(matches) {
	case 0:
		b.degrade(FallbackMissingAngle, pattern, "no %s file found, defaulting to 0", pattern)
		return ""
	case 1:
		b.log.Debug().Str("file", matches[0]).Msgf("found %s file", pattern)
		return matches[0]
	default:
		b.degrade(FallbackAmbiguousAngle, pattern, "found %d %s files, defaulting to 0", len(matches), pattern)
		return ""
	}
}

func gammaGeo(par partext.ParameterSet, nlines int) (GeoTransform, error) {
	var v [4]float64
	for i, key := range []string{"corner_lat", "corner_lon", "post_lat", "post_lon"} {
		f, ok := par.Float(key)
		if !ok {
			return GeoTransform{}, fmt.Errorf("%s is not numeric", key)
		}
		v[i] = f
	}
	cornerLat, cornerLon, postLat, postLon := v[0], v[1], v[2], v[3]
	return GeoTransform{
		LLLat: cornerLat + postLat*float64(nlines),
		LLLon: cornerLon,
		DLat:  postLat,
		DLon:  postLon,
	}, nil
}
