package sceneio

import (
	"fmt"
	"strings"
)

// Format identifies a processing chain.
type Format uint8

// Supported formats, in default probe order.
const (
	FormatMatlab Format = iota + 1
	FormatGMTSAR
	FormatISCE
	FormatGamma
)

var formatNames = map[Format]string{
	FormatMatlab: "matlab",
	FormatGMTSAR: "gmtsar",
	FormatISCE:   "isce",
	FormatGamma:  "gamma",
}

// DefaultFormats is the probe order used by NewImporter. Gamma comes last
// because it accepts any binary file that has a usable parameter file
// next to it.
var DefaultFormats = []Format{FormatMatlab, FormatGMTSAR, FormatISCE, FormatGamma}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat converts a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatReader decodes one processing chain's products.
type FormatReader interface {
	// Format returns the chain this reader handles.
	Format() Format

	// Probe reports whether path looks like a product of this chain. It
	// only inspects names and small headers, never writes and never
	// fails.
	Probe(path string) bool

	// Decode fully reads the product at path. It returns a complete Scene
	// or nil and an error.
	Decode(path string) (*Scene, error)
}
