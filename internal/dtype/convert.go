package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Decode converts raw bytes of kind k into a newly allocated []float64.
// len(data) must be a multiple of the element size.
func Decode(k Kind, order binary.ByteOrder, data []byte) ([]float64, error) {
	size := k.Size()
	if size == 0 {
		return nil, fmt.Errorf("unsupported element kind: %v", k)
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%d bytes is not a whole number of %v elements", len(data), k)
	}
	out := make([]float64, len(data)/size)
	if _, err := DecodeInto(k, order, data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeInto converts as many whole elements of data as fit into dst and
// returns the number converted. Trailing bytes that do not form a whole
// element are ignored.
func DecodeInto(k Kind, order binary.ByteOrder, data []byte, dst []float64) (int, error) {
	size := k.Size()
	if size == 0 {
		return 0, fmt.Errorf("unsupported element kind: %v", k)
	}
	if order == nil {
		return 0, fmt.Errorf("nil byte order")
	}

	n := len(data) / size
	if n > len(dst) {
		n = len(dst)
	}

	for i := 0; i < n; i++ {
		elem := data[i*size : (i+1)*size]
		switch k {
		case Int8:
			dst[i] = float64(int8(elem[0]))
		case Uint8:
			dst[i] = float64(elem[0])
		case Int16:
			dst[i] = float64(int16(order.Uint16(elem)))
		case Uint16:
			dst[i] = float64(order.Uint16(elem))
		case Int32:
			dst[i] = float64(int32(order.Uint32(elem)))
		case Uint32:
			dst[i] = float64(order.Uint32(elem))
		case Int64:
			dst[i] = float64(int64(order.Uint64(elem)))
		case Uint64:
			dst[i] = float64(order.Uint64(elem))
		case Float32:
			dst[i] = float64(math.Float32frombits(order.Uint32(elem)))
		case Float64:
			dst[i] = math.Float64frombits(order.Uint64(elem))
		}
	}
	return n, nil
}
