// Package sceneio decodes InSAR displacement products written by Gamma,
// Matlab, ISCE and GMTSAR into one canonical Scene.
//
// Each processing chain has a FormatReader that can cheaply Probe a path
// and fully Decode it. An Importer tries the readers in a fixed order and
// dispatches to the first one that accepts the path:
//
//	imp := sceneio.NewImporter(sceneio.WithLogger(log))
//	scene, err := imp.Import("/data/track_12/")
//	if errors.Is(err, sceneio.ErrMissingArtifact) {
//	    // a sibling file is absent
//	}
//
// Decoding either yields a complete Scene or an error. Recoverable
// problems (a missing optional angle file, an ambiguous coordinate unit)
// are recorded in Scene.Diagnostics instead.
package sceneio

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrMissingArtifact = errors.New("missing artifact")
	ErrStructural      = errors.New("structural decode error")
	ErrNoFormat        = errors.New("no reader accepts path")
	ErrUnknownFormat   = errors.New("unknown format")
)

// ErrorKind classifies a DecodeError.
type ErrorKind uint8

const (
	// KindMissingArtifact means a required sibling, metadata or side file
	// is absent.
	KindMissingArtifact ErrorKind = iota + 1
	// KindStructural means the data cannot be reshaped, a required key is
	// absent, or the binary length cannot be repaired by padding.
	KindStructural
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingArtifact:
		return "missing artifact"
	case KindStructural:
		return "structural"
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// DecodeError reports a fatal decode failure. Artifact names the offending
// path, glob pattern, or comma-separated list of keys.
type DecodeError struct {
	Format   Format
	Kind     ErrorKind
	Artifact string
	Err      error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s reader: %s: %s", e.Format, e.Kind, e.Artifact)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches ErrMissingArtifact and ErrStructural against Kind.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrMissingArtifact:
		return e.Kind == KindMissingArtifact
	case ErrStructural:
		return e.Kind == KindStructural
	}
	return false
}

func missingArtifact(f Format, artifact string, err error) error {
	return &DecodeError{Format: f, Kind: KindMissingArtifact, Artifact: artifact, Err: err}
}

func structural(f Format, artifact string, err error) error {
	return &DecodeError{Format: f, Kind: KindStructural, Artifact: artifact, Err: err}
}

func structuralf(f Format, artifact, format string, args ...any) error {
	return structural(f, artifact, fmt.Errorf(format, args...))
}
