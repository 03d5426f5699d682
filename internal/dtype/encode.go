package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode converts values to raw bytes of kind k. Integer kinds truncate
// toward zero; float32 rounds to nearest.
func Encode(k Kind, order binary.ByteOrder, values []float64) ([]byte, error) {
	size := k.Size()
	if size == 0 {
		return nil, fmt.Errorf("unsupported element kind: %v", k)
	}
	if order == nil {
		return nil, fmt.Errorf("nil byte order")
	}

	buf := make([]byte, len(values)*size)
	for i, v := range values {
		elem := buf[i*size : (i+1)*size]
		switch k {
		case Int8:
			elem[0] = byte(int8(v))
		case Uint8:
			elem[0] = uint8(v)
		case Int16:
			order.PutUint16(elem, uint16(int16(v)))
		case Uint16:
			order.PutUint16(elem, uint16(v))
		case Int32:
			order.PutUint32(elem, uint32(int32(v)))
		case Uint32:
			order.PutUint32(elem, uint32(v))
		case Int64:
			order.PutUint64(elem, uint64(int64(v)))
		case Uint64:
			order.PutUint64(elem, uint64(v))
		case Float32:
			order.PutUint32(elem, math.Float32bits(float32(v)))
		case Float64:
			order.PutUint64(elem, math.Float64bits(v))
		}
	}
	return buf, nil
}
