package dtype

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestKindSize(t *testing.T) {
	tests := []struct {
		kind Kind
		size int
	}{
		{Invalid, 0},
		{Int8, 1},
		{Uint8, 1},
		{Int16, 2},
		{Uint16, 2},
		{Int32, 4},
		{Uint32, 4},
		{Float32, 4},
		{Int64, 8},
		{Uint64, 8},
		{Float64, 8},
		{Kind(200), 0},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Size(); got != tt.size {
				t.Errorf("expected size %d, got %d", tt.size, got)
			}
		})
	}
}

func TestDecodeIntegers(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		order binary.ByteOrder
		data  []byte
		want  []float64
	}{
		{"int8", Int8, binary.LittleEndian, []byte{0xFF, 0x7F}, []float64{-1, 127}},
		{"uint8", Uint8, binary.LittleEndian, []byte{0xFF, 0x01}, []float64{255, 1}},
		{"int16 be", Int16, binary.BigEndian, []byte{0xFF, 0xFE, 0x01, 0x00}, []float64{-2, 256}},
		{"uint16 le", Uint16, binary.LittleEndian, []byte{0x02, 0x01}, []float64{0x0102}},
		{"int32 le", Int32, binary.LittleEndian, []byte{0xFF, 0xFF, 0xFF, 0xFF}, []float64{-1}},
		{"uint32 be", Uint32, binary.BigEndian, []byte{0x12, 0x34, 0x56, 0x78}, []float64{0x12345678}},
		{"int64 le", Int64, binary.LittleEndian, []byte{0xFE, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, []float64{-2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.kind, tt.order, tt.data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d values, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("value %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestDecodeFloatKeepsNegativeZero(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		raw, err := Encode(Float32, order, []float64{math.Copysign(0, -1), 0, 1.5})
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		got, err := Decode(Float32, order, raw)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if !math.Signbit(got[0]) || got[0] != 0 {
			t.Errorf("%v: expected -0, got %v (signbit %v)", order, got[0], math.Signbit(got[0]))
		}
		if math.Signbit(got[1]) {
			t.Errorf("%v: expected +0 to keep a clear sign bit", order)
		}
		if got[2] != 1.5 {
			t.Errorf("%v: expected 1.5, got %v", order, got[2])
		}
	}
}

func TestDecodeFloat64NaN(t *testing.T) {
	raw, err := Encode(Float64, binary.BigEndian, []float64{math.NaN(), math.Inf(-1)})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(Float64, binary.BigEndian, raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !math.IsNaN(got[0]) {
		t.Errorf("expected NaN, got %v", got[0])
	}
	if !math.IsInf(got[1], -1) {
		t.Errorf("expected -Inf, got %v", got[1])
	}
}

func TestDecodeRejectsPartialElement(t *testing.T) {
	if _, err := Decode(Float32, binary.LittleEndian, []byte{1, 2, 3}); err == nil {
		t.Error("expected error for 3 bytes of float32")
	}
	if _, err := Decode(Invalid, binary.LittleEndian, []byte{1}); err == nil {
		t.Error("expected error for invalid kind")
	}
}

func TestDecodeIntoShortDestination(t *testing.T) {
	raw, _ := Encode(Int16, binary.LittleEndian, []float64{1, 2, 3, 4})
	dst := make([]float64, 2)
	n, err := DecodeInto(Int16, binary.LittleEndian, raw, dst)
	if err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}
	if n != 2 || dst[0] != 1 || dst[1] != 2 {
		t.Errorf("expected [1 2] (n=2), got %v (n=%d)", dst, n)
	}
}
