// Package build executes a formula's build procedure in an isolated child
// process and relays failures back to the installer as structured errors.
package build

import (
	"encoding/json"

	"github.com/winordie-47/linuxbrew1/pkg/errors"
)

// EnvErrorPipe names the environment variable carrying the file descriptor
// number of the child-to-parent error channel.
const EnvErrorPipe = "LBREW_ERROR_PIPE"

// Distinguished child exit statuses.
const (
	// ExitSerializedFailure signals that a failure record was written
	// down the error pipe before exiting.
	ExitSerializedFailure = 70

	// ExitInterrupted signals the child observed an interrupt and shut
	// the build down itself.
	ExitInterrupted = 130
)

// Record kinds.
const (
	KindBuild     = "build"
	KindInterrupt = "interrupt"
	KindInternal  = "internal"
)

// Record is the tagged failure written over the error pipe. The parent
// deserializes it into its own error taxonomy rather than reconstructing an
// arbitrary child error.
type Record struct {
	Kind    string                 `json:"kind"`
	Message string                 `json:"message"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
}

// Encode serializes the record for the pipe.
func (r Record) Encode() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		// A record is flat strings; this cannot happen with valid input.
		return []byte(`{"kind":"internal","message":"failed to encode failure record"}`)
	}
	return data
}

// DecodeRecord parses bytes received on the pipe into the installer's
// error taxonomy.
func DecodeRecord(data []byte, formulaName string) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return errors.Newf(errors.ErrBuildFailed,
			"build of %s failed with an unreadable failure record", formulaName).
			WithDetail("raw", string(data))
	}
	switch r.Kind {
	case KindInterrupt:
		return errors.Newf(errors.ErrBuildInterrupted, "build of %s interrupted", formulaName).
			WithDetails(r.Detail)
	case KindBuild, KindInternal:
		return errors.Newf(errors.ErrBuildFailed, "build of %s failed: %s", formulaName, r.Message).
			WithDetails(r.Detail)
	default:
		return errors.Newf(errors.ErrBuildFailed,
			"build of %s failed: %s (unknown failure kind %q)", formulaName, r.Message, r.Kind).
			WithDetails(r.Detail)
	}
}
