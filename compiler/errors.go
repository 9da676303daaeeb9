package compiler

import "fmt"

// CompileError wraps a front-end compiler failure, keeping the tool's
// diagnostics verbatim (spec.md §7: "includes compiler diagnostics verbatim").
type CompileError struct {
	Stage       Stage
	Tool        string
	Diagnostics string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s compile failed:\n%s", e.Tool, e.Stage, e.Diagnostics)
}
