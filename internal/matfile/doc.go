// Package matfile reads and writes MAT-file level 5 containers, the named
// variable format written by MATLAB's save command and by SciPy.
//
// # File Layout
//
// A level 5 file starts with a 128-byte header followed by a stream of data
// elements:
//
//	Offset | Size | Field
//	-------|------|---------------------------------------------
//	0      | 116  | descriptive text
//	116    | 8    | subsystem data offset (ignored)
//	124    | 2    | version, 0x0100
//	126    | 2    | endian indicator: "IM" little, "MI" big
//
// Each element carries an 8-byte tag (data type, byte count) and a payload
// padded to an 8-byte boundary. Payloads of four bytes or less may use the
// packed small-element form, where type and count share the first word and
// the data occupies the second. miCOMPRESSED elements wrap a zlib stream
// holding exactly one further element and are not padded.
//
// # Variables
//
// Top-level miMATRIX elements hold, in order: array flags, dimensions,
// the variable name and the real part. Only numeric classes are decoded
// (double, single and the integer classes). Character, cell, structure,
// sparse and object arrays are listed in [File.Skipped] without being
// decoded. The imaginary part of a complex array is ignored.
//
// MAT stores arrays in column-major order. [Variable.Data] is row-major so
// that it can back a gonum matrix directly; arrays with more than two
// dimensions are flattened to dims[0] rows.
//
// # Writing
//
// [Write] produces little-endian files with double or single precision
// matrices, optionally zlib-compressed. It exists for test fixtures and
// for exporting decoded scenes.
package matfile
