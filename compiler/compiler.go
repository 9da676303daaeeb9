// Package compiler turns a preprocessed ShaderSource into SPIR-V for the
// vertex and fragment stages. The actual compiler (glslang/shaderc) is
// consumed as an opaque library contract (spec.md §1d): FrontEnd is the
// interface the rest of the core depends on, and ExecFrontEnd is the one
// concrete implementation, shelling out to glslc/glslangValidator the same
// way other_examples' gorenderengine renderer does.
package compiler

import (
	"github.com/shaderforge/slangchain/preprocess"
)

// Stage identifies which shader stage is being compiled.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	if s == StageFragment {
		return "fragment"
	}
	return "vertex"
}

// Module is one stage's compiled SPIR-V, as a stream of 32-bit words.
type Module struct {
	Words []uint32
}

// Compiled holds both compiled stages of a pass.
type Compiled struct {
	Vertex   Module
	Fragment Module
}

// FrontEnd compiles a preprocessed ShaderSource to SPIR-V. Implementations
// must return *CompileError (or a wrapped one) on failure so diagnostics
// survive to the caller verbatim.
type FrontEnd interface {
	Compile(src *preprocess.ShaderSource) (*Compiled, error)
}
