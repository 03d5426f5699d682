package sceneio

import (
	"github.com/rs/zerolog"

	"github.com/robert-malhotra/go-sceneio/internal/fsutil"
)

// FileSystem is the filesystem used for discovery and grid access.
type FileSystem = fsutil.FileSystem

// OSFileSystem reads from the local filesystem, memory-mapping grids.
type OSFileSystem = fsutil.OSFileSystem

// NewMemoryFileSystem returns an empty in-memory FileSystem.
func NewMemoryFileSystem() *fsutil.MemoryFileSystem {
	return fsutil.NewMemoryFileSystem()
}

// Option configures readers and the Importer.
type Option func(*options)

type options struct {
	log             zerolog.Logger
	fsys            FileSystem
	parFile         string
	utmZone         int
	utmSouth        bool
	metersPerDegree float64
	formats         []Format
}

const (
	defaultUTMZone         = 32
	defaultMetersPerDegree = 110e3
)

func defaultOptions() *options {
	return &options{
		log:             zerolog.Nop(),
		fsys:            fsutil.OSFileSystem{},
		utmZone:         defaultUTMZone,
		metersPerDegree: defaultMetersPerDegree,
		formats:         DefaultFormats,
	}
}

func newOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithFileSystem sets the filesystem used for discovery and reading.
func WithFileSystem(fsys FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fsys = fsys
		}
	}
}

// WithParameterFile makes the Gamma reader use path instead of searching
// for a *par sibling.
func WithParameterFile(path string) Option {
	return func(o *options) {
		o.parFile = path
	}
}

// WithUTMZone sets the UTM zone (1-60) assumed for Matlab coordinate
// vectors. The default is zone 32 north.
func WithUTMZone(zone int, south bool) Option {
	return func(o *options) {
		if zone >= 1 && zone <= 60 {
			o.utmZone = zone
			o.utmSouth = south
		}
	}
}

// WithMetersPerDegree sets the scale used when Matlab coordinates fall
// back to an origin reference.
func WithMetersPerDegree(m float64) Option {
	return func(o *options) {
		if m > 0 {
			o.metersPerDegree = m
		}
	}
}

// WithFormats restricts the Importer to the given formats, probed in the
// order given.
func WithFormats(formats ...Format) Option {
	return func(o *options) {
		if len(formats) > 0 {
			o.formats = append([]Format(nil), formats...)
		}
	}
}
