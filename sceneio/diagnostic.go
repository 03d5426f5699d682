package sceneio

import (
	"fmt"

	"github.com/rs/zerolog"
)

// DiagnosticKind names a degraded fallback taken during decoding.
type DiagnosticKind uint8

const (
	// FallbackMissingAngle: no optional angle side file was found; the
	// angle defaults to 0. A zero look angle is scientifically wrong for
	// any real acquisition, so scenes carrying this diagnostic need
	// review before modelling.
	FallbackMissingAngle DiagnosticKind = iota + 1
	// FallbackAmbiguousAngle: several candidate angle files matched; the
	// angle defaults to 0.
	FallbackAmbiguousAngle
	// FallbackUnitRescale: coordinate vectors looked like kilometers and
	// were multiplied by 1000.
	FallbackUnitRescale
	// FallbackOriginReference: coordinates could not be converted to
	// lat/lon; the scene is referenced to (0, 0) with spacing derived from
	// the raw coordinate step.
	FallbackOriginReference
	// FallbackMissingLookVector: no look-vector file was found; both
	// angles default to 0.
	FallbackMissingLookVector
)

var diagnosticNames = map[DiagnosticKind]string{
	FallbackMissingAngle:      "missing-angle",
	FallbackAmbiguousAngle:    "ambiguous-angle",
	FallbackUnitRescale:       "unit-rescale",
	FallbackOriginReference:   "origin-reference",
	FallbackMissingLookVector: "missing-look-vector",
}

func (k DiagnosticKind) String() string {
	if s, ok := diagnosticNames[k]; ok {
		return s
	}
	return fmt.Sprintf("DiagnosticKind(%d)", uint8(k))
}

// Diagnostic records a degraded fallback. It never aborts a decode.
type Diagnostic struct {
	Format   Format
	Kind     DiagnosticKind
	Artifact string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s (%s): %s", d.Format, d.Kind, d.Artifact, d.Message)
}

// MarshalZerologObject lets a diagnostic be logged as an object.
func (d Diagnostic) MarshalZerologObject(e *zerolog.Event) {
	e.Str("format", d.Format.String()).
		Str("kind", d.Kind.String()).
		Str("artifact", d.Artifact).
		Str("message", d.Message)
}
