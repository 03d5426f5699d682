// Command sceneinfo detects, imports and summarizes InSAR displacement
// products.
//
// Usage:
//
//	sceneinfo [flags] <path>...
//	sceneinfo -scan <root>
//	sceneinfo -dump out.bin <path>
//	sceneinfo -export out.mat <path>
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	bin "github.com/robert-malhotra/go-sceneio/internal/binary"
	"github.com/robert-malhotra/go-sceneio/internal/config"
	"github.com/robert-malhotra/go-sceneio/internal/dtype"
	"github.com/robert-malhotra/go-sceneio/internal/fsutil"
	"github.com/robert-malhotra/go-sceneio/internal/logging"
	"github.com/robert-malhotra/go-sceneio/internal/matfile"
	"github.com/robert-malhotra/go-sceneio/sceneio"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	config    string
	format    string
	workers   int
	logLevel  string
	logFormat string
	scan      bool
	dump      string
	export    string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sceneinfo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var f flags
	fs.StringVar(&f.config, "config", "", "YAML configuration file")
	fs.StringVar(&f.format, "format", "", "force a format (matlab, gmtsar, isce, gamma)")
	fs.IntVar(&f.workers, "workers", 0, "concurrent imports (overrides config)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (overrides config)")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text or json (overrides config)")
	fs.BoolVar(&f.scan, "scan", false, "walk the given roots and list detected products")
	fs.StringVar(&f.dump, "dump", "", "write the displacement grid as little-endian float32 to this file")
	fs.StringVar(&f.export, "export", "", "write displacement, theta and phi to this MAT file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: sceneinfo [flags] <path>...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	log, err := logging.FromStrings(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	opts, err := cfg.Options()
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	imp := sceneio.NewImporter(append(opts, sceneio.WithLogger(log))...)

	switch {
	case f.scan:
		return scan(imp, fs.Args(), stdout, stderr)
	case f.dump != "" || f.export != "":
		if fs.NArg() != 1 {
			fmt.Fprintln(stderr, "ERROR: -dump and -export take exactly one path")
			return 2
		}
		return write(imp, f, fs.Arg(0), cfg.MetersPerDegree, stdout, stderr, log)
	default:
		return summarize(ctx, imp, f.format, fs.Args(), cfg.Workers, stdout, stderr)
	}
}

func loadConfig(f flags) (*config.Config, error) {
	cfg := config.Default()
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return nil, err
		}
	}
	if f.workers > 0 {
		cfg.Workers = f.workers
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	if f.format != "" {
		cfg.Formats = []string{f.format}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func scan(imp *sceneio.Importer, roots []string, stdout, stderr io.Writer) int {
	code := 0
	for _, root := range roots {
		err := imp.Walk(root, func(path string, r sceneio.FormatReader) error {
			fmt.Fprintf(stdout, "%-7s %s\n", r.Format(), path)
			return filepath.SkipDir
		})
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: scanning %s: %v\n", root, err)
			code = 1
		}
	}
	return code
}

func summarize(ctx context.Context, imp *sceneio.Importer, format string, paths []string, workers int, stdout, stderr io.Writer) int {
	var results []sceneio.Result
	if format != "" {
		// A forced format bypasses detection.
		f, _ := sceneio.ParseFormat(format)
		for _, p := range paths {
			s, err := imp.ImportAs(f, p)
			results = append(results, sceneio.Result{Path: p, Scene: s, Err: err})
		}
	} else {
		results = imp.ImportAll(ctx, paths, workers)
	}

	code := 0
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(stderr, "ERROR: %s: %v\n", r.Path, r.Err)
			code = 1
			continue
		}
		printScene(stdout, r.Path, r.Scene)
	}
	return code
}

func printScene(w io.Writer, path string, s *sceneio.Scene) {
	rows, cols := s.Dims()
	lo, hi := finiteRange(s.Displacement)
	g := s.GeoTransform()

	fmt.Fprintf(w, "=== %s ===\n", path)
	fmt.Fprintf(w, "Format:       %s\n", s.Format)
	fmt.Fprintf(w, "Shape:        %d x %d\n", rows, cols)
	fmt.Fprintf(w, "Lower-left:   lat %.6f, lon %.6f\n", g.LLLat, g.LLLon)
	fmt.Fprintf(w, "Pixel size:   dlat %.6g, dlon %.6g\n", g.DLat, g.DLon)
	fmt.Fprintf(w, "NaN cells:    %d of %d\n", s.NaNCount(), rows*cols)
	if math.IsNaN(lo) {
		fmt.Fprintln(w, "Displacement: no data")
	} else {
		fmt.Fprintf(w, "Displacement: min %.4g m, max %.4g m\n", lo, hi)
	}
	for _, d := range s.Diagnostics {
		fmt.Fprintf(w, "Fallback:     %s\n", d)
	}
	fmt.Fprintln(w)
}

// finiteRange returns the minimum and maximum non-NaN values of m, or NaN
// twice if there are none.
func finiteRange(m *mat.Dense) (lo, hi float64) {
	lo, hi = math.NaN(), math.NaN()
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			if math.IsNaN(lo) || v < lo {
				lo = v
			}
			if math.IsNaN(hi) || v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}

func write(imp *sceneio.Importer, f flags, path string, metersPerDegree float64, stdout, stderr io.Writer, log zerolog.Logger) int {
	var (
		s   *sceneio.Scene
		err error
	)
	if f.format != "" {
		format, _ := sceneio.ParseFormat(f.format)
		s, err = imp.ImportAs(format, path)
	} else {
		s, err = imp.Import(path)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %s: %v\n", path, err)
		return 1
	}

	if f.dump != "" {
		if err := writeFile(f.dump, func(w io.Writer) error {
			return bin.WriteGrid(w, s.Displacement, dtype.Float32, binary.LittleEndian)
		}); err != nil {
			fmt.Fprintf(stderr, "ERROR: dump: %v\n", err)
			return 1
		}
		rows, cols := s.Dims()
		log.Info().Str("file", f.dump).Int("rows", rows).Int("cols", cols).Msg("wrote displacement grid")
		fmt.Fprintf(stdout, "%s: %d x %d float32 little-endian\n", f.dump, rows, cols)
	}
	if f.export != "" {
		if err := writeFile(f.export, func(w io.Writer) error {
			return matfile.Write(w, sceneVariables(s, metersPerDegree), matfile.WithCompression(-1))
		}); err != nil {
			fmt.Fprintf(stderr, "ERROR: export: %v\n", err)
			return 1
		}
		log.Info().Str("file", f.export).Msg("exported scene")
		fmt.Fprintf(stdout, "%s: displacement, theta, phi, xx, yy, geo\n", f.export)
	}
	return 0
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	var fsys fsutil.FileSystem = fsutil.OSFileSystem{}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := fsys.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			err = errors.Join(err, os.Remove(path))
		}
	}()
	return fn(out)
}

// exportOffset places exported coordinates at or beyond 1000 km so they
// are neither rescaled from kilometers nor read as UTM. A re-import then
// references the grid to 0, 0 with the original pixel spacing.
const exportOffset = 1e6

// sceneVariables lays the scene out as MAT variables that the Matlab
// reader accepts. geo holds [llLat llLon dLat dLon].
func sceneVariables(s *sceneio.Scene, metersPerDegree float64) []*matfile.Variable {
	g := s.GeoTransform()
	rows, cols := s.Dims()
	return []*matfile.Variable{
		denseVariable("displacement", s.Displacement),
		denseVariable("theta", s.Theta),
		denseVariable("phi", s.Phi),
		coordinateVariable("xx", cols, g.DLon*metersPerDegree),
		coordinateVariable("yy", rows, g.DLat*metersPerDegree),
		{
			Name:  "geo",
			Class: matfile.ClassDouble,
			Dims:  []int{1, 4},
			Data:  []float64{g.LLLat, g.LLLon, g.DLat, g.DLon},
		},
	}
}

func denseVariable(name string, m *mat.Dense) *matfile.Variable {
	rows, cols := m.Dims()
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return &matfile.Variable{
		Name:  name,
		Class: matfile.ClassDouble,
		Dims:  []int{rows, cols},
		Data:  data,
	}
}

// coordinateVariable returns a 1 x max(n, 2) vector of evenly spaced
// coordinates in meters, shifted so the smallest is exportOffset.
func coordinateVariable(name string, n int, step float64) *matfile.Variable {
	n = max(n, 2)
	base := exportOffset - min(0, float64(n-1)*step)
	data := make([]float64, n)
	for i := range data {
		data[i] = base + float64(i)*step
	}
	return &matfile.Variable{
		Name:  name,
		Class: matfile.ClassDouble,
		Dims:  []int{1, n},
		Data:  data,
	}
}
