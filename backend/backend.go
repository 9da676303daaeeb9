// Package backend transpiles reflected SPIR-V to a concrete shading
// language per pass (spec.md §4.4). The cross-compiler itself is a library
// contract (spirv-cross, consumed via os/exec); this package owns only the
// target selection and per-target option shaping.
package backend

import "github.com/shaderforge/slangchain/compiler"

// Target names a transpilation target.
type Target int

const (
	TargetSPIRV Target = iota
	TargetGLSL
	TargetHLSL
	TargetDXIL
	TargetMSL
)

func (t Target) String() string {
	switch t {
	case TargetSPIRV:
		return "SPIRV"
	case TargetGLSL:
		return "GLSL"
	case TargetHLSL:
		return "HLSL"
	case TargetDXIL:
		return "DXIL"
	case TargetMSL:
		return "MSL"
	default:
		return "unknown"
	}
}

// Options configures a single Emit call. Only the fields relevant to
// Target are consulted; the rest are ignored.
type Options struct {
	Target Target

	// GLSLVersion is the `#version` to emit, e.g. 330 or 460.
	GLSLVersion int
	// GLSLEs selects the OpenGL ES profile instead of desktop GL.
	GLSLEs bool

	// HLSLShaderModel, e.g. "50" or "60".
	HLSLShaderModel string
}

// Context carries backend-private bookkeeping produced alongside a
// transpile, such as GLSL's renaming of combined image samplers into
// separate texture/sampler pairs.
type Context struct {
	// SamplerRenames maps an original combined-sampler name to the name
	// spirv-cross chose for it in the emitted source, when the target
	// requires splitting (GLSL ES, HLSL).
	SamplerRenames map[string]string
}

// Shader is one transpiled pass: vertex and fragment source (or, for
// TargetSPIRV, the untouched binary re-encoded as text is not produced --
// Words is populated instead and Vertex/Fragment are left empty).
type Shader struct {
	Vertex   string
	Fragment string
	Words    *compiler.Compiled
	Context  Context
}

// Emitter transpiles a reflected SPIR-V pair to Options.Target.
type Emitter interface {
	Emit(compiled *compiler.Compiled, opts Options) (*Shader, error)
}
