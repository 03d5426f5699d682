package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	bin "github.com/robert-malhotra/go-sceneio/internal/binary"
	"github.com/robert-malhotra/go-sceneio/internal/dtype"
)

const headerSize = 128

// Data element types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
	miUTF8       = 16
)

// Class is a MAT array class.
type Class uint8

// Array classes.
const (
	ClassCell   Class = 1
	ClassStruct Class = 2
	ClassObject Class = 3
	ClassChar   Class = 4
	ClassSparse Class = 5
	ClassDouble Class = 6
	ClassSingle Class = 7
	ClassInt8   Class = 8
	ClassUint8  Class = 9
	ClassInt16  Class = 10
	ClassUint16 Class = 11
	ClassInt32  Class = 12
	ClassUint32 Class = 13
	ClassInt64  Class = 14
	ClassUint64 Class = 15
)

var classNames = map[Class]string{
	ClassCell: "cell", ClassStruct: "struct", ClassObject: "object",
	ClassChar: "char", ClassSparse: "sparse", ClassDouble: "double",
	ClassSingle: "single", ClassInt8: "int8", ClassUint8: "uint8",
	ClassInt16: "int16", ClassUint16: "uint16", ClassInt32: "int32",
	ClassUint32: "uint32", ClassInt64: "int64", ClassUint64: "uint64",
}

func (c Class) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Numeric reports whether arrays of class c are decoded.
func (c Class) Numeric() bool {
	return c >= ClassDouble && c <= ClassUint64
}

var (
	// ErrNotMAT is returned when the header is not a level 5 MAT header.
	ErrNotMAT = errors.New("not a MAT-file level 5")

	// ErrMalformed is returned for structurally invalid elements.
	ErrMalformed = errors.New("malformed MAT element")
)

// Variable is one decoded numeric array.
type Variable struct {
	Name  string
	Class Class
	Dims  []int
	// Data holds the real part in row-major order.
	Data []float64
}

// Rows returns the first dimension.
func (v *Variable) Rows() int {
	if len(v.Dims) == 0 {
		return 0
	}
	return v.Dims[0]
}

// Cols returns the product of all dimensions after the first.
func (v *Variable) Cols() int {
	if len(v.Dims) < 2 {
		return 0
	}
	n := 1
	for _, d := range v.Dims[1:] {
		n *= d
	}
	return n
}

// Len returns the number of elements.
func (v *Variable) Len() int { return len(v.Data) }

// Matrix returns a copy of the variable as a dense matrix.
func (v *Variable) Matrix() (*mat.Dense, error) {
	r, c := v.Rows(), v.Cols()
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("variable %q is empty", v.Name)
	}
	return mat.NewDense(r, c, append([]float64(nil), v.Data...)), nil
}

// Skipped names a variable whose class is not decoded.
type Skipped struct {
	Name  string
	Class Class
}

// File is a parsed MAT file.
type File struct {
	// Text is the descriptive header text with trailing padding removed.
	Text      string
	ByteOrder binary.ByteOrder
	Variables []*Variable
	Skipped   []Skipped
}

// Lookup returns the variable with the given name, or nil.
func (f *File) Lookup(name string) *Variable {
	for _, v := range f.Variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// IsMAT reports whether header looks like a level 5 MAT header. It needs
// at least 128 bytes.
func IsMAT(header []byte) bool {
	_, err := parseHeader(header)
	return err == nil
}

func parseHeader(h []byte) (binary.ByteOrder, error) {
	if len(h) < headerSize {
		return nil, fmt.Errorf("%w: header truncated", ErrNotMAT)
	}
	var order binary.ByteOrder
	switch string(h[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad endian indicator %q", ErrNotMAT, h[126:128])
	}
	if v := order.Uint16(h[124:126]); v != 0x0100 {
		return nil, fmt.Errorf("%w: version 0x%04x", ErrNotMAT, v)
	}
	return order, nil
}

// Read parses every top-level element of src.
func Read(src bin.Source) (*File, error) {
	if src.Size() < headerSize {
		return nil, fmt.Errorf("%w: file is %d bytes", ErrNotMAT, src.Size())
	}
	r := bin.NewReader(src, bin.Config{ByteOrder: binary.LittleEndian, Size: src.Size()})
	header, err := r.ReadBytes(headerSize)
	if err != nil {
		return nil, err
	}
	order, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	f := &File{
		Text:      string(bytes.TrimRight(header[:116], " \x00")),
		ByteOrder: order,
	}
	r = r.WithByteOrder(order)
	for r.Remaining() > 0 {
		if r.Remaining() < 8 {
			// Trailing padding.
			break
		}
		typ, data, err := readElement(r)
		if err != nil {
			return nil, err
		}
		if err := f.addElement(typ, data, order); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// readElement reads one tagged element and leaves r at the next one.
func readElement(r *bin.Reader) (uint32, []byte, error) {
	start := r.Pos()
	word, err := r.ReadUint32()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: tag at %d: %v", ErrMalformed, start, err)
	}
	if word>>16 != 0 {
		typ, n := word&0xFFFF, word>>16
		if n > 4 {
			return 0, nil, fmt.Errorf("%w: small element of %d bytes at %d", ErrMalformed, n, start)
		}
		payload, err := r.ReadBytes(4)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: small element at %d: %v", ErrMalformed, start, err)
		}
		return typ, payload[:n], nil
	}

	n, err := r.ReadUint32()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: tag at %d: %v", ErrMalformed, start, err)
	}
	if rem := r.Remaining(); rem >= 0 && int64(n) > rem {
		return 0, nil, fmt.Errorf("%w: element at %d claims %d bytes, %d remain", ErrMalformed, start, n, rem)
	}
	data, err := r.ReadBytes(int(n))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: element at %d: %v", ErrMalformed, start, err)
	}
	if word != miCOMPRESSED {
		r.Align(8)
	}
	return word, data, nil
}

func (f *File) addElement(typ uint32, data []byte, order binary.ByteOrder) error {
	switch typ {
	case miCOMPRESSED:
		inner, err := inflate(data)
		if err != nil {
			return err
		}
		r := bin.NewReader(bytes.NewReader(inner), bin.Config{ByteOrder: order, Size: int64(len(inner))})
		innerTyp, innerData, err := readElement(r)
		if err != nil {
			return err
		}
		if innerTyp == miCOMPRESSED {
			return fmt.Errorf("%w: nested compression", ErrMalformed)
		}
		return f.addElement(innerTyp, innerData, order)
	case miMATRIX:
		if len(data) == 0 {
			return nil
		}
		v, skipped, err := parseMatrix(data, order)
		if err != nil {
			return err
		}
		if v != nil {
			f.Variables = append(f.Variables, v)
		} else {
			f.Skipped = append(f.Skipped, skipped)
		}
		return nil
	default:
		// Top-level elements other than matrices carry no variables.
		return nil
	}
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	return out, nil
}

// parseMatrix decodes the sub-elements of an miMATRIX payload. It returns
// a nil Variable and a Skipped entry for classes that are not decoded.
func parseMatrix(data []byte, order binary.ByteOrder) (*Variable, Skipped, error) {
	r := bin.NewReader(bytes.NewReader(data), bin.Config{ByteOrder: order, Size: int64(len(data))})

	typ, flags, err := readElement(r)
	if err != nil {
		return nil, Skipped{}, err
	}
	if typ != miUINT32 || len(flags) < 8 {
		return nil, Skipped{}, fmt.Errorf("%w: array flags", ErrMalformed)
	}
	class := Class(order.Uint32(flags[:4]) & 0xFF)

	typ, rawDims, err := readElement(r)
	if err != nil {
		return nil, Skipped{}, err
	}
	if typ != miINT32 || len(rawDims) < 8 || len(rawDims)%4 != 0 {
		return nil, Skipped{}, fmt.Errorf("%w: dimensions", ErrMalformed)
	}
	dims := make([]int, len(rawDims)/4)
	total := 1
	for i := range dims {
		d := int(int32(order.Uint32(rawDims[4*i:])))
		if d < 0 {
			return nil, Skipped{}, fmt.Errorf("%w: negative dimension %d", ErrMalformed, d)
		}
		if d > 0 && total > math.MaxInt/d {
			return nil, Skipped{}, fmt.Errorf("%w: dimensions overflow", ErrMalformed)
		}
		dims[i] = d
		total *= d
	}

	typ, rawName, err := readElement(r)
	if err != nil {
		return nil, Skipped{}, err
	}
	if typ != miINT8 && typ != miUINT8 && typ != miUTF8 {
		return nil, Skipped{}, fmt.Errorf("%w: array name type %d", ErrMalformed, typ)
	}
	name := string(rawName)

	if !class.Numeric() {
		return nil, Skipped{Name: name, Class: class}, nil
	}

	v := &Variable{Name: name, Class: class, Dims: dims}
	if total == 0 {
		return v, Skipped{}, nil
	}

	typ, raw, err := readElement(r)
	if err != nil {
		return nil, Skipped{}, fmt.Errorf("variable %q: %w", name, err)
	}
	kind, ok := elementKind(typ)
	if !ok {
		return nil, Skipped{}, fmt.Errorf("%w: variable %q has data type %d", ErrMalformed, name, typ)
	}
	colMajor, err := dtype.Decode(kind, order, raw)
	if err != nil {
		return nil, Skipped{}, fmt.Errorf("variable %q: %w", name, err)
	}
	if len(colMajor) != total {
		return nil, Skipped{}, fmt.Errorf("%w: variable %q has %d elements, dims %v", ErrMalformed, name, len(colMajor), dims)
	}
	v.Data = toRowMajor(colMajor, v.Rows(), v.Cols())
	return v, Skipped{}, nil
}

func elementKind(typ uint32) (dtype.Kind, bool) {
	switch typ {
	case miINT8:
		return dtype.Int8, true
	case miUINT8:
		return dtype.Uint8, true
	case miINT16:
		return dtype.Int16, true
	case miUINT16:
		return dtype.Uint16, true
	case miINT32:
		return dtype.Int32, true
	case miUINT32:
		return dtype.Uint32, true
	case miSINGLE:
		return dtype.Float32, true
	case miDOUBLE:
		return dtype.Float64, true
	case miINT64:
		return dtype.Int64, true
	case miUINT64:
		return dtype.Uint64, true
	}
	return dtype.Invalid, false
}

func toRowMajor(src []float64, rows, cols int) []float64 {
	out := make([]float64, len(src))
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			out[r*cols+c] = src[c*rows+r]
		}
	}
	return out
}
