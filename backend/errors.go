package backend

import (
	"fmt"

	"github.com/shaderforge/slangchain/compiler"
)

// UnsupportedTargetError reports a Target this Emitter implementation
// cannot produce (spec.md §4.4 lists MSL as reserved).
type UnsupportedTargetError struct {
	Target Target
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("backend: target %s is not supported by this emitter", e.Target)
}

// TranspileError wraps a spirv-cross failure with its combined output.
type TranspileError struct {
	Target      Target
	Stage       compiler.Stage
	Diagnostics string
}

func (e *TranspileError) Error() string {
	return fmt.Sprintf("backend: spirv-cross %s transpile of %s stage failed:\n%s", e.Target, e.Stage, e.Diagnostics)
}
