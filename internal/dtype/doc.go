// Package dtype describes the fixed-width numeric element kinds found in flat
// binary grids and MAT-file data elements, and converts raw bytes of those
// kinds into float64 samples.
//
// # Element Kinds
//
// Every kind has a fixed size and decodes to float64:
//
//	Kind    | Size | Notes
//	--------|------|-----------------------------------------
//	Int8    | 1    |
//	Uint8   | 1    |
//	Int16   | 2    | SRTM-style elevation grids
//	Uint16  | 2    |
//	Int32   | 4    | MAT dimension arrays
//	Uint32  | 4    |
//	Int64   | 8    | values beyond 2^53 lose precision
//	Uint64  | 8    | values beyond 2^53 lose precision
//	Float32 | 4    | Gamma, ISCE and GMTSAR grids
//	Float64 | 8    | MAT double arrays
//
// # Byte Order
//
// Conversion always takes an explicit [encoding/binary.ByteOrder]. Gamma
// writes big-endian grids, ISCE and GMTSAR little-endian ones, and MAT files
// declare their order in the file header.
//
// Floating-point conversion goes through the IEEE 754 bit patterns, so the
// sign of zero and NaN payloads survive decoding. Sentinel recoding relies on
// this: a stored -0.0 must still be distinguishable from +0.0 after
// conversion.
//
// # Key Functions
//
//   - [Decode]: raw bytes to a freshly allocated []float64
//   - [DecodeInto]: raw bytes into a caller-supplied slice
//   - [Encode]: []float64 to raw bytes (used by writers and fixtures)
package dtype
