package reflect

import "github.com/shaderforge/slangchain/compiler"

// MemberInfo is one uniform member discovered inside a UBO or push-constant
// block by introspecting compiled SPIR-V.
type MemberInfo struct {
	Name   string
	Offset uint32
	Type   UniformType
}

// SamplerInfo is one combined-image-sampler binding.
type SamplerInfo struct {
	Name    string
	Binding uint32
}

// BlockInfo describes a UBO or push-constant block as seen in one stage.
type BlockInfo struct {
	Binding uint32 // meaningless for push constants
	Size    uint32
	Members []MemberInfo
}

// StageIntrospection is everything Introspector extracts from one compiled
// SPIR-V stage.
type StageIntrospection struct {
	UBO      *BlockInfo
	Push     *BlockInfo
	Samplers []SamplerInfo
}

// Introspector extracts uniform/sampler layout from a compiled SPIR-V
// module. The real cross-compiler (spirv-cross) is a library contract the
// core depends on but does not implement (spec.md §1d); ExecIntrospector is
// the concrete adapter that shells out to it, the same way backend.Emitter
// does for transpilation.
type Introspector interface {
	Introspect(module compiler.Module) (*StageIntrospection, error)
}
