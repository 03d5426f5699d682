package sceneio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// decoder is implemented by the built-in readers so the Importer can pass
// a logger carrying the import id.
type decoder interface {
	decode(path string, log zerolog.Logger) (*Scene, error)
}

// Importer probes readers in order and decodes with the first that
// accepts a path.
type Importer struct {
	o       *options
	readers []FormatReader
}

// NewImporter creates an Importer for the configured formats.
func NewImporter(opts ...Option) *Importer {
	o := newOptions(opts)
	imp := &Importer{o: o}
	for _, f := range o.formats {
		if r := newReader(f, o); r != nil {
			imp.readers = append(imp.readers, r)
		}
	}
	return imp
}

func newReader(f Format, o *options) FormatReader {
	switch f {
	case FormatGamma:
		return newGammaReader(o)
	case FormatMatlab:
		return newMatlabReader(o)
	case FormatISCE:
		return newISCEReader(o)
	case FormatGMTSAR:
		return newGMTSARReader(o)
	}
	return nil
}

// Readers returns the readers in probe order.
func (imp *Importer) Readers() []FormatReader {
	return append([]FormatReader(nil), imp.readers...)
}

// Reader returns the reader for f.
func (imp *Importer) Reader(f Format) (FormatReader, error) {
	for _, r := range imp.readers {
		if r.Format() == f {
			return r, nil
		}
	}
	if r := newReader(f, imp.o); r != nil {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, f)
}

// Detect returns the first reader whose Probe accepts path.
func (imp *Importer) Detect(path string) (FormatReader, error) {
	for _, r := range imp.readers {
		if r.Probe(path) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoFormat, path)
}

// Import detects the format of path and decodes it.
func (imp *Importer) Import(path string) (*Scene, error) {
	log := imp.importLogger(path)
	r, err := imp.Detect(path)
	if err != nil {
		log.Debug().Msg("no reader accepted path")
		return nil, err
	}
	return imp.run(r, path, log)
}

// ImportAs decodes path with the reader for f, skipping detection.
func (imp *Importer) ImportAs(f Format, path string) (*Scene, error) {
	r, err := imp.Reader(f)
	if err != nil {
		return nil, err
	}
	return imp.run(r, path, imp.importLogger(path))
}

func (imp *Importer) importLogger(path string) zerolog.Logger {
	return imp.o.log.With().Str("import_id", uuid.NewString()).Str("path", path).Logger()
}

func (imp *Importer) run(r FormatReader, path string, log zerolog.Logger) (*Scene, error) {
	log = log.With().Str("reader", r.Format().String()).Logger()
	log.Debug().Msg("decoding")

	var (
		s   *Scene
		err error
	)
	if d, ok := r.(decoder); ok {
		s, err = d.decode(path, log)
	} else {
		s, err = r.Decode(path)
	}
	if err != nil {
		log.Debug().Err(err).Msg("decode failed")
		return nil, err
	}
	rows, cols := s.Dims()
	log.Info().Int("rows", rows).Int("cols", cols).Int("diagnostics", len(s.Diagnostics)).Msg("decoded scene")
	return s, nil
}

// Result is the outcome of one path in ImportAll.
type Result struct {
	Path  string
	Scene *Scene
	Err   error
}

// ImportAll imports paths concurrently with at most workers decodes in
// flight (workers <= 0 means one per path). Results are in input order.
// A failed import does not stop the others; cancelling ctx stops new
// decodes from starting and marks them with ctx.Err().
func (imp *Importer) ImportAll(ctx context.Context, paths []string, workers int) []Result {
	results := make([]Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, p := range paths {
		i, p := i, p
		results[i].Path = p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Scene, results[i].Err = imp.Import(p)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
