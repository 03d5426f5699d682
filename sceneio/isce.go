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
	"github.com/robert-malhotra/go-sceneio/internal/iscexml"
)

const (
	isceDisplacementPattern = "*.unw.geo"
	isceLOSPattern          = "*.rdr.geo"
)

var isceCoordinateKeys = []string{"delta", "size", "startingvalue"}

// ISCEReader reads geocoded ISCE products: an interleaved two-band
// *.unw.geo grid with its .xml metadata, and a *.rdr.geo look-vector grid
// in the same directory.
type ISCEReader struct {
	o   *options
	log zerolog.Logger
}

// NewISCEReader creates an ISCE reader.
func NewISCEReader(opts ...Option) *ISCEReader {
	return newISCEReader(newOptions(opts))
}

func newISCEReader(o *options) *ISCEReader {
	return &ISCEReader{o: o, log: o.log.With().Str("reader", FormatISCE.String()).Logger()}
}

// Format returns FormatISCE.
func (r *ISCEReader) Format() Format { return FormatISCE }

// Probe accepts a *.unw.geo file, or a directory containing one, when the
// metadata and look-vector files are present.
func (r *ISCEReader) Probe(path string) bool {
	if isFile(r.o.fsys, path) {
		if ok, _ := filepath.Match(isceDisplacementPattern, filepath.Base(path)); !ok {
			return false
		}
	}
	_, err := r.discover(path)
	return err == nil
}

// Decode reads the ISCE product at path.
func (r *ISCEReader) Decode(path string) (*Scene, error) {
	return r.decode(path, r.log.With().Str("path", path).Logger())
}

type isceFiles struct {
	displacement string
	metadata     string
	los          string
}

// discover resolves all three files before anything is read.
func (r *ISCEReader) discover(path string) (isceFiles, error) {
	fsys := r.o.fsys
	disp, ok := findProduct(fsys, path, isceDisplacementPattern)
	if !ok {
		return isceFiles{}, missingArtifact(FormatISCE, filepath.Join(path, isceDisplacementPattern),
			fmt.Errorf("displacement file not found"))
	}
	files := isceFiles{displacement: disp, metadata: disp + ".xml"}
	if !isFile(fsys, files.metadata) {
		return isceFiles{}, missingArtifact(FormatISCE, files.metadata, fmt.Errorf("displacement metadata not found"))
	}

	pattern := filepath.Join(filepath.Dir(disp), isceLOSPattern)
	los := globFiles(fsys, pattern)
	if len(los) == 0 {
		return isceFiles{}, missingArtifact(FormatISCE, pattern, fmt.Errorf("look-vector file not found"))
	}
	files.los = los[0]
	return files, nil
}

func (r *ISCEReader) decode(path string, log zerolog.Logger) (*Scene, error) {

	files, err := r.discover(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("displacement", files.displacement).Str("los", files.los).Msg("found ISCE files")

	data, err := r.o.fsys.ReadFile(files.metadata)
	if err != nil {
		return nil, openError(FormatISCE, files.metadata, err)
	}
	doc, err := iscexml.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, structural(FormatISCE, files.metadata, err)
	}
	lon, lat, err := isceCoordinates(doc)
	if err != nil {
		return nil, err
	}

	nlon, okLon := wholePositive(lon["size"].Number)
	nlat, okLat := wholePositive(lat["size"].Number)
	if !okLon || !okLat {
		return nil, structuralf(FormatISCE, "coordinate1.size, coordinate2.size",
			"sizes must be positive integers, have %v and %v", lon["size"].Number, lat["size"].Number)
	}

	b := newSceneBuilder(FormatISCE, log)
	b.geo = GeoTransform{
		LLLat: lat["startingvalue"].Number + lat["size"].Number*lat["delta"].Number,
		LLLon: lon["startingvalue"].Number,
		DLat:  math.Abs(lat["delta"].Number),
		DLon:  math.Abs(lon["delta"].Number),
	}

	spec := bin.GridSpec{Kind: dtype.Float32, Order: binary.LittleEndian, Rows: nlat, Cols: nlon}
	_, disp, err := decodeInterleaved(r.o.fsys, FormatISCE, files.displacement, spec)
	if err != nil {
		return nil, err
	}
	if n := bin.Recode(disp, bin.Zero); n > 0 {
		log.Debug().Int("cells", n).Msg("recoded zero to NaN")
	}
	disp.Scale(1e-2, disp)
	b.displacement = disp

	phi, theta, err := decodeInterleaved(r.o.fsys, FormatISCE, files.los, spec)
	if err != nil {
		return nil, err
	}
	theta.Apply(func(_, _ int, v float64) float64 { return v + 90 }, theta)
	b.phi, b.theta = phi, theta

	return b.build()
}

// isceCoordinates returns the longitude (coordinate1) and latitude
// (coordinate2) components, naming every missing key on failure.
func isceCoordinates(doc *iscexml.Document) (lon, lat iscexml.Values, err error) {
	var missing []string
	lookup := func(name string) iscexml.Values {
		c, ok := doc.Component(name)
		if !ok {
			for _, k := range isceCoordinateKeys {
				missing = append(missing, name+"."+k)
			}
			return nil
		}
		for _, k := range c.Missing(isceCoordinateKeys...) {
			missing = append(missing, name+"."+k)
		}
		return c
	}
	lon = lookup("coordinate1")
	lat = lookup("coordinate2")
	if len(missing) > 0 {
		return nil, nil, structuralf(FormatISCE, strings.Join(missing, ", "), "metadata lacks required keys")
	}
	return lon, lat, nil
}

func wholePositive(v float64) (int, bool) {
	if v <= 0 || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}
