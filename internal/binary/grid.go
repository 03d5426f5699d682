package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/go-sceneio/internal/dtype"
)

// chunkBytes is the read granularity when streaming a grid.
const chunkBytes = 1 << 16

var (
	// ErrShape is returned when the element count cannot be reshaped to the
	// requested dimensions.
	ErrShape = errors.New("grid shape mismatch")

	// ErrPartialElement is returned when the data length is not a whole
	// number of elements.
	ErrPartialElement = errors.New("trailing partial element")
)

// Source is a sized random-access byte source. *bytes.Reader and
// memory-mapped files both satisfy it.
type Source interface {
	io.ReaderAt
	Size() int64
}

// GridSpec describes a flat binary grid.
type GridSpec struct {
	Kind  dtype.Kind
	Order binary.ByteOrder
	Rows  int
	// Cols is the width of one logical band. Interleaved grids store two
	// bands per row, so their rows are 2*Cols elements wide.
	Cols int
}

// Sentinel reports whether a decoded value means "no data".
type Sentinel func(v float64) bool

// NegativeZero matches -0.0 only; +0.0 is a valid measurement.
func NegativeZero(v float64) bool {
	return v == 0 && math.Signbit(v)
}

// Zero matches +0.0 and -0.0.
func Zero(v float64) bool {
	return v == 0
}

// ReadElements streams every element of src and converts it to float64.
func ReadElements(src Source, kind dtype.Kind, order binary.ByteOrder) ([]float64, error) {
	size := kind.Size()
	if size == 0 {
		return nil, fmt.Errorf("unsupported element kind: %v", kind)
	}
	total := src.Size()
	if total%int64(size) != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrPartialElement, total, size)
	}

	out := make([]float64, total/int64(size))
	step := (chunkBytes / size) * size
	buf := make([]byte, step)

	var off int64
	for off < total {
		n := int64(step)
		if rem := total - off; rem < n {
			n = rem
		}
		got, err := src.ReadAt(buf[:n], off)
		if int64(got) != n {
			if err == nil || err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("reading grid at offset %d: %w", off, err)
		}
		if _, err := dtype.DecodeInto(kind, order, buf[:n], out[off/int64(size):]); err != nil {
			return nil, err
		}
		off += n
	}
	return out, nil
}

// Pad extends vals with NaN up to the next multiple of cols and returns the
// number of cells added. Incomplete trailing scan lines are common in
// processed products; padding keeps the geometry of the complete lines.
func Pad(vals []float64, cols int) ([]float64, int) {
	if cols <= 0 || len(vals)%cols == 0 {
		return vals, 0
	}
	missing := cols - len(vals)%cols
	for i := 0; i < missing; i++ {
		vals = append(vals, math.NaN())
	}
	return vals, missing
}

// Reshape wraps vals as a rows x cols matrix. The element count must match
// exactly; vals is not copied.
func Reshape(vals []float64, rows, cols int) (*mat.Dense, error) {
	if err := checkDims(rows, cols); err != nil {
		return nil, err
	}
	if len(vals) != rows*cols {
		return nil, fmt.Errorf("%w: %d elements cannot form %dx%d", ErrShape, len(vals), rows, cols)
	}
	return mat.NewDense(rows, cols, vals), nil
}

func checkDims(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrShape, rows, cols)
	}
	if cols > math.MaxInt/rows {
		return fmt.Errorf("%w: %dx%d overflows", ErrShape, rows, cols)
	}
	return nil
}

// CheckElements reports whether n elements can fill a rows x cols grid
// after padding the last row, that is n in ((rows-1)*cols, rows*cols].
func CheckElements(n int64, rows, cols int) error {
	if err := checkDims(rows, cols); err != nil {
		return err
	}
	total := int64(rows) * int64(cols)
	if n > total || n <= total-int64(cols) {
		return fmt.Errorf("%w: %d elements cannot fill %dx%d", ErrShape, n, rows, cols)
	}
	return nil
}

// checkSource runs CheckElements on the element count of src before any
// data is read.
func checkSource(src Source, kind dtype.Kind, rows, cols int) error {
	size := int64(kind.Size())
	if size == 0 {
		return fmt.Errorf("unsupported element kind: %v", kind)
	}
	return CheckElements(src.Size()/size, rows, cols)
}

// DecodeGrid reads a single-band grid, pads an incomplete last row with NaN
// and reshapes it to spec.Rows x spec.Cols. It returns the number of padded
// cells.
func DecodeGrid(src Source, spec GridSpec) (*mat.Dense, int, error) {
	if err := checkSource(src, spec.Kind, spec.Rows, spec.Cols); err != nil {
		return nil, 0, err
	}
	vals, err := ReadElements(src, spec.Kind, spec.Order)
	if err != nil {
		return nil, 0, err
	}
	vals, padded := Pad(vals, spec.Cols)
	m, err := Reshape(vals, spec.Rows, spec.Cols)
	if err != nil {
		return nil, 0, err
	}
	return m, padded, nil
}

// DecodeInterleaved reads a dual-band grid whose rows hold spec.Cols values
// of the first band followed by spec.Cols values of the second. The rows are
// split at their midpoint.
func DecodeInterleaved(src Source, spec GridSpec) (left, right *mat.Dense, padded int, err error) {
	if spec.Cols > math.MaxInt/2 {
		return nil, nil, 0, fmt.Errorf("%w: band width %d overflows", ErrShape, spec.Cols)
	}
	width := 2 * spec.Cols
	if err := checkSource(src, spec.Kind, spec.Rows, width); err != nil {
		return nil, nil, 0, err
	}
	vals, err := ReadElements(src, spec.Kind, spec.Order)
	if err != nil {
		return nil, nil, 0, err
	}
	vals, padded = Pad(vals, width)
	m, err := Reshape(vals, spec.Rows, width)
	if err != nil {
		return nil, nil, 0, err
	}
	left = mat.DenseCopyOf(m.Slice(0, spec.Rows, 0, spec.Cols))
	right = mat.DenseCopyOf(m.Slice(0, spec.Rows, spec.Cols, width))
	return left, right, padded, nil
}

// Recode replaces every element matching pred with NaN and returns the
// number of replaced elements.
func Recode(m *mat.Dense, pred Sentinel) int {
	if m == nil || pred == nil {
		return 0
	}
	raw := m.RawMatrix()
	count := 0
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j, v := range row {
			if pred(v) {
				row[j] = math.NaN()
				count++
			}
		}
	}
	return count
}

// Strided returns vals[offset], vals[offset+stride], ...
func Strided(vals []float64, stride, offset int) []float64 {
	if stride <= 0 || offset < 0 || offset >= len(vals) {
		return nil
	}
	out := make([]float64, 0, (len(vals)-offset+stride-1)/stride)
	for i := offset; i < len(vals); i += stride {
		out = append(out, vals[i])
	}
	return out
}

// WriteGrid writes m row by row as elements of kind k.
func WriteGrid(w io.Writer, m mat.Matrix, k dtype.Kind, order binary.ByteOrder) error {
	rows, cols := m.Dims()
	row := make([]float64, cols)
	bw := NewWriter(w, order)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, m)
		raw, err := dtype.Encode(k, order, row)
		if err != nil {
			return err
		}
		if err := bw.WriteBytes(raw); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	return nil
}
