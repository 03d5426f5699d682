package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	bin "github.com/robert-malhotra/go-sceneio/internal/binary"
	"github.com/robert-malhotra/go-sceneio/internal/dtype"
)

const headerText = "MATLAB 5.0 MAT-file, written by go-sceneio"

// WriteOption configures Write.
type WriteOption func(*writeConfig)

type writeConfig struct {
	compress bool
	level    int
}

// WithCompression stores every variable as a zlib-compressed element.
func WithCompression(level int) WriteOption {
	return func(c *writeConfig) {
		c.compress = true
		c.level = level
	}
}

// Write writes vars to w as a little-endian level 5 MAT file. Variables
// must be of class double or single; Data is taken in row-major order.
func Write(w io.Writer, vars []*Variable, opts ...WriteOption) error {
	cfg := writeConfig{level: zlib.DefaultCompression}
	for _, opt := range opts {
		opt(&cfg)
	}

	order := binary.LittleEndian
	bw := bin.NewWriter(w, order)

	header := bytes.Repeat([]byte{' '}, 116)
	copy(header, headerText)
	if err := bw.WriteBytes(header); err != nil {
		return err
	}
	if err := bw.WriteZeros(8); err != nil {
		return err
	}
	if err := bw.WriteUint16(0x0100); err != nil {
		return err
	}
	if err := bw.WriteBytes([]byte("IM")); err != nil {
		return err
	}

	for _, v := range vars {
		elem, err := encodeMatrix(v, order)
		if err != nil {
			return err
		}
		if cfg.compress {
			elem, err = deflate(elem, cfg.level)
			if err != nil {
				return fmt.Errorf("compressing %q: %w", v.Name, err)
			}
			if err := writeTag(bw, miCOMPRESSED, len(elem)); err != nil {
				return err
			}
		}
		if err := bw.WriteBytes(elem); err != nil {
			return fmt.Errorf("writing %q: %w", v.Name, err)
		}
	}
	return nil
}

func writeTag(w *bin.Writer, typ uint32, n int) error {
	if err := w.WriteUint32(typ); err != nil {
		return err
	}
	return w.WriteUint32(uint32(n))
}

// writeElement writes a tagged, 8-byte aligned element, using the packed
// form for payloads of one to four bytes.
func writeElement(w *bin.Writer, typ uint32, data []byte) error {
	if len(data) > 0 && len(data) <= 4 {
		if err := w.WriteUint32(uint32(len(data))<<16 | typ); err != nil {
			return err
		}
		if err := w.WriteBytes(data); err != nil {
			return err
		}
		return w.WriteZeros(4 - len(data))
	}
	if err := writeTag(w, typ, len(data)); err != nil {
		return err
	}
	if err := w.WriteBytes(data); err != nil {
		return err
	}
	return w.WritePadding(8)
}

// encodeMatrix returns a complete miMATRIX element for v.
func encodeMatrix(v *Variable, order binary.ByteOrder) ([]byte, error) {
	var kind dtype.Kind
	var miType uint32
	switch v.Class {
	case ClassDouble:
		kind, miType = dtype.Float64, miDOUBLE
	case ClassSingle:
		kind, miType = dtype.Float32, miSINGLE
	default:
		return nil, fmt.Errorf("variable %q: writing class %v is not supported", v.Name, v.Class)
	}
	if len(v.Dims) != 2 {
		return nil, fmt.Errorf("variable %q: need 2 dimensions, have %d", v.Name, len(v.Dims))
	}
	rows, cols := v.Dims[0], v.Dims[1]
	if rows*cols != len(v.Data) {
		return nil, fmt.Errorf("variable %q: %d elements do not fill %dx%d", v.Name, len(v.Data), rows, cols)
	}
	if v.Name == "" {
		return nil, fmt.Errorf("variable has no name")
	}

	colMajor := make([]float64, len(v.Data))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			colMajor[c*rows+r] = v.Data[r*cols+c]
		}
	}
	raw, err := dtype.Encode(kind, order, colMajor)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	bw := bin.NewWriter(&body, order)

	flags := make([]byte, 8)
	order.PutUint32(flags, uint32(v.Class))
	if err := writeElement(bw, miUINT32, flags); err != nil {
		return nil, err
	}
	dims := make([]byte, 8)
	order.PutUint32(dims, uint32(rows))
	order.PutUint32(dims[4:], uint32(cols))
	if err := writeElement(bw, miINT32, dims); err != nil {
		return nil, err
	}
	if err := writeElement(bw, miINT8, []byte(v.Name)); err != nil {
		return nil, err
	}
	if err := writeElement(bw, miType, raw); err != nil {
		return nil, err
	}

	var elem bytes.Buffer
	ew := bin.NewWriter(&elem, order)
	if err := writeTag(ew, miMATRIX, body.Len()); err != nil {
		return nil, err
	}
	if err := ew.WriteBytes(body.Bytes()); err != nil {
		return nil, err
	}
	return elem.Bytes(), nil
}

func deflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
