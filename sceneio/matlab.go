package sceneio

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/robert-malhotra/go-sceneio/internal/matfile"
)

type matlabSlot uint8

const (
	slotDisplacement matlabSlot = iota
	slotTheta
	slotPhi
	slotEasting
	slotNorthing
	numMatlabSlots
)

var matlabSlotNames = [numMatlabSlots]string{"displacement", "theta", "phi", "xx", "yy"}

// matlabRules maps variable names to scene slots. Rules are tried in
// order; the first rule whose substring occurs in a variable name decides
// its slot.
var matlabRules = []struct {
	substr string
	slot   matlabSlot
}{
	{"displacement", slotDisplacement},
	{"ig_", slotDisplacement},
	{"theta", slotTheta},
	{"phi", slotPhi},
	{"xx", slotEasting},
	{"yy", slotNorthing},
}

// matlabPatterns names the variables each slot accepts, for error messages.
var matlabPatterns = [numMatlabSlots]string{
	"*displacement* or *ig_*", "*theta*", "*phi*", "*xx*", "*yy*",
}

// UTM validity limits.
const (
	utmMinEasting  = 100e3
	utmMaxEasting  = 1000e3
	utmMinNorthing = 0
	utmMaxNorthing = 10000e3

	// Coordinates below this are taken to be kilometers.
	kilometerThreshold = 1e4
)

// MatlabReader reads MAT-file level 5 containers holding a displacement
// matrix, look angles, and UTM coordinate vectors.
type MatlabReader struct {
	o   *options
	log zerolog.Logger
}

// NewMatlabReader creates a Matlab reader.
func NewMatlabReader(opts ...Option) *MatlabReader {
	return newMatlabReader(newOptions(opts))
}

func newMatlabReader(o *options) *MatlabReader {
	return &MatlabReader{o: o, log: o.log.With().Str("reader", FormatMatlab.String()).Logger()}
}

// Format returns FormatMatlab.
func (r *MatlabReader) Format() Format { return FormatMatlab }

// Probe accepts a .mat file with a level 5 header.
func (r *MatlabReader) Probe(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".mat") || !isFile(r.o.fsys, path) {
		return false
	}
	header, err := readHeader(r.o.fsys, path, 128)
	return err == nil && matfile.IsMAT(header)
}

// Decode reads the MAT file at path.
func (r *MatlabReader) Decode(path string) (*Scene, error) {
	return r.decode(path, r.log.With().Str("path", path).Logger())
}

func (r *MatlabReader) decode(path string, log zerolog.Logger) (*Scene, error) {

	file, err := r.o.fsys.Open(path)
	if err != nil {
		return nil, openError(FormatMatlab, path, err)
	}
	mf, err := matfile.Read(file)
	file.Close()
	if err != nil {
		return nil, structural(FormatMatlab, path, err)
	}
	for _, s := range mf.Skipped {
		log.Debug().Str("variable", s.Name).Stringer("class", s.Class).Msg("skipping non-numeric variable")
	}

	slots := assignMatlabSlots(mf.Variables, log)
	var missing []string
	for i, v := range slots {
		if v == nil {
			missing = append(missing, matlabPatterns[i])
		}
	}
	if len(missing) > 0 {
		return nil, missingArtifact(FormatMatlab, "variable "+strings.Join(missing, ", "),
			fmt.Errorf("not found in %s", path))
	}

	b := newSceneBuilder(FormatMatlab, log)
	disp, err := slots[slotDisplacement].Matrix()
	if err != nil {
		return nil, structural(FormatMatlab, slots[slotDisplacement].Name, err)
	}
	b.displacement = disp
	if b.theta, err = slots[slotTheta].Matrix(); err != nil {
		return nil, structural(FormatMatlab, slots[slotTheta].Name, err)
	}
	if b.phi, err = slots[slotPhi].Matrix(); err != nil {
		return nil, structural(FormatMatlab, slots[slotPhi].Name, err)
	}

	rows, cols := disp.Dims()
	geo, err := r.geoTransform(b, slots[slotEasting].Data, slots[slotNorthing].Data, rows, cols)
	if err != nil {
		return nil, err
	}
	b.geo = geo
	return b.build()
}

// assignMatlabSlots visits variables in lexical name order and gives each
// slot to its first claimant.
func assignMatlabSlots(vars []*matfile.Variable, log zerolog.Logger) [numMatlabSlots]*matfile.Variable {
	sorted := append([]*matfile.Variable(nil), vars...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var slots [numMatlabSlots]*matfile.Variable
	for _, v := range sorted {
		slot, ok := matchMatlabRule(v.Name)
		if !ok {
			log.Debug().Str("variable", v.Name).Msg("ignoring unrecognized variable")
			continue
		}
		if slots[slot] != nil {
			log.Debug().Str("variable", v.Name).Str("slot", matlabSlotNames[slot]).
				Str("kept", slots[slot].Name).Msg("slot already assigned")
			continue
		}
		slots[slot] = v
	}
	return slots
}

func matchMatlabRule(name string) (matlabSlot, bool) {
	for _, rule := range matlabRules {
		if strings.Contains(name, rule.substr) {
			return rule.slot, true
		}
	}
	return 0, false
}

// geoTransform converts UTM coordinate vectors to a lat/lon reference,
// falling back to an origin reference when they are out of range.
func (r *MatlabReader) geoTransform(b *sceneBuilder, easting, northing []float64, rows, cols int) (GeoTransform, error) {
	if len(easting) == 0 || len(northing) == 0 {
		return GeoTransform{}, structuralf(FormatMatlab, "xx, yy", "empty coordinate vector")
	}
	e := append([]float64(nil), easting...)
	n := append([]float64(nil), northing...)

	if floats.Min(e) < kilometerThreshold || floats.Min(n) < kilometerThreshold {
		floats.Scale(1e3, e)
		floats.Scale(1e3, n)
		b.degrade(FallbackUnitRescale, "xx, yy", "coordinates below %g taken as kilometers, scaled by 1000", kilometerThreshold)
	}

	minE, maxE := floats.Min(e), floats.Max(e)
	minN, maxN := floats.Min(n), floats.Max(n)
	if utmInRange(minE, minN) && utmInRange(maxE, maxN) {
		toLatLon, err := r.utmTransform()
		if err != nil {
			return GeoTransform{}, structural(FormatMatlab, "utm projection", err)
		}
		llLon, llLat, err := toLatLon(minE, minN)
		if err == nil {
			var urLon, urLat float64
			urLon, urLat, err = toLatLon(maxE, maxN)
			if err == nil {
				return GeoTransform{
					LLLat: llLat,
					LLLon: llLon,
					DLat:  (urLat - llLat) / float64(rows),
					DLon:  (urLon - llLon) / float64(cols),
				}, nil
			}
		}
		b.log.Debug().Err(err).Msg("UTM conversion failed")
	}

	b.degrade(FallbackOriginReference, "xx, yy",
		"could not interpret coordinate vectors as UTM zone %d, referencing to 0, 0 (lat, lon)", r.o.utmZone)
	if len(e) < 2 || len(n) < 2 {
		return GeoTransform{}, structuralf(FormatMatlab, "xx, yy", "need two coordinate samples for origin reference")
	}
	geo := GeoTransform{
		DLat: (n[1] - n[0]) / r.o.metersPerDegree,
		DLon: (e[1] - e[0]) / r.o.metersPerDegree,
	}
	if geo.DLat == 0 || geo.DLon == 0 {
		return GeoTransform{}, structuralf(FormatMatlab, "xx, yy", "zero coordinate spacing")
	}
	return geo, nil
}

func utmInRange(e, n float64) bool {
	return e >= utmMinEasting && e < utmMaxEasting && n >= utmMinNorthing && n <= utmMaxNorthing
}

// utmTransform returns a transform from the configured UTM zone to
// longitude/latitude in degrees.
func (r *MatlabReader) utmTransform() (proj.Transformer, error) {
	def := fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", r.o.utmZone)
	if r.o.utmSouth {
		def = fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", r.o.utmZone)
	}
	src, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", def, err)
	}
	dst, err := proj.Parse("+proj=longlat +datum=WGS84 +no_defs")
	if err != nil {
		return nil, err
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, err
	}
	return func(x, y float64) (float64, float64, error) {
		lon, lat, err := t(x, y)
		if err != nil {
			return 0, 0, err
		}
		if math.IsNaN(lon) || math.IsNaN(lat) {
			return 0, 0, fmt.Errorf("no lat/lon for (%g, %g)", x, y)
		}
		return lon, lat, nil
	}, nil
}
