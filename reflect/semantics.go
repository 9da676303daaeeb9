// Package reflect classifies the uniform members, push constants, and
// sampler bindings of a compiled shader pass against a closed, chain-wide
// semantic vocabulary (spec.md §4.3), and builds that vocabulary from a
// preset's passes and lookup textures (spec.md §4.5).
//
// The probe order and naming rules mirror librashader-reflect's
// reflect/semantics.rs one-for-one; see original_source/librashader-reflect
// for the upstream this is grounded on.
package reflect

import "fmt"

// MaxBindingsCount is the maximum number of sampler bindings a single pass
// may declare (spec.md §4.3 "Limits").
const MaxBindingsCount = 16

// MaxPushBufferSize is the maximum size, in bytes, of a pass's push
// constant range (spec.md §4.3 "Limits").
const MaxPushBufferSize = 128

// UniformType is the scalar/vector/matrix shape a binding is expected to have.
type UniformType int

const (
	TypeMat4 UniformType = iota
	TypeVec4
	TypeUnsigned
	TypeSigned
	TypeFloat
)

func (t UniformType) String() string {
	switch t {
	case TypeMat4:
		return "mat4"
	case TypeVec4:
		return "vec4"
	case TypeUnsigned:
		return "uint"
	case TypeSigned:
		return "int"
	case TypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// UniqueSemantics are builtin uniforms every pass may reference, each with a
// fixed expected type.
type UniqueSemantics int

const (
	SemanticMVP UniqueSemantics = iota
	SemanticOutput
	SemanticFinalViewport
	SemanticFrameCount
	SemanticFrameDirection
	SemanticFloatParameter
)

func (u UniqueSemantics) BindingType() UniformType {
	switch u {
	case SemanticMVP:
		return TypeMat4
	case SemanticOutput, SemanticFinalViewport:
		return TypeVec4
	case SemanticFrameCount:
		return TypeUnsigned
	case SemanticFrameDirection:
		return TypeSigned
	case SemanticFloatParameter:
		return TypeFloat
	default:
		return TypeFloat
	}
}

func (u UniqueSemantics) String() string {
	switch u {
	case SemanticMVP:
		return "MVP"
	case SemanticOutput:
		return "OutputSize"
	case SemanticFinalViewport:
		return "FinalViewportSize"
	case SemanticFrameCount:
		return "FrameCount"
	case SemanticFrameDirection:
		return "FrameDirection"
	case SemanticFloatParameter:
		return "FloatParameter"
	default:
		return "Unknown"
	}
}

// TextureSemantics relate both texture samplers and their *Size companion
// uniforms to a role in the chain.
type TextureSemantics int

const (
	TextureOriginal TextureSemantics = iota
	TextureSource
	TextureOriginalHistory
	TexturePassOutput
	TexturePassFeedback
	TextureUser
)

// ProbeOrder is the order texture-companion names are tested against,
// deliberately placing OriginalHistory before Original so that
// "OriginalHistory2" is not shadowed by a prefix match on "Original"
// (spec.md §4.3, §9 Open Question — do not reorder without updating the
// test suite that exercises this).
var ProbeOrder = [...]TextureSemantics{
	TextureSource,
	TextureOriginalHistory,
	TextureOriginal,
	TexturePassOutput,
	TexturePassFeedback,
	TextureUser,
}

func (t TextureSemantics) SizeUniformName() string {
	switch t {
	case TextureOriginal:
		return "OriginalSize"
	case TextureSource:
		return "SourceSize"
	case TextureOriginalHistory:
		return "OriginalHistorySize"
	case TexturePassOutput:
		return "PassOutputSize"
	case TexturePassFeedback:
		return "PassFeedbackSize"
	case TextureUser:
		return "UserSize"
	default:
		return ""
	}
}

func (t TextureSemantics) TextureName() string {
	switch t {
	case TextureOriginal:
		return "Original"
	case TextureSource:
		return "Source"
	case TextureOriginalHistory:
		return "OriginalHistory"
	case TexturePassOutput:
		return "PassOutput"
	case TexturePassFeedback:
		return "PassFeedback"
	case TextureUser:
		return "User"
	default:
		return ""
	}
}

// IsIndexed reports whether this semantic is addressed by a numeric index
// (everything except Original and Source, which are unique per pass).
func (t TextureSemantics) IsIndexed() bool {
	return t != TextureOriginal && t != TextureSource
}

func (t TextureSemantics) String() string { return t.TextureName() }

// Semantic pairs a TextureSemantics with its index (0 for unique semantics).
type Semantic struct {
	Kind  TextureSemantics
	Index int
}

func (s Semantic) String() string {
	if !s.Kind.IsIndexed() {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s%d", s.Kind, s.Index)
}

// UniformSemantic is either a builtin Unique semantic or a texture-companion
// *Size semantic; exactly one of the two fields is meaningful, selected by
// IsTexture.
type UniformSemantic struct {
	IsTexture bool
	Unique    UniqueSemantics
	Texture   Semantic
}

func UniqueSemanticOf(u UniqueSemantics) UniformSemantic {
	return UniformSemantic{IsTexture: false, Unique: u}
}

func TextureSemanticOf(s Semantic) UniformSemantic {
	return UniformSemantic{IsTexture: true, Texture: s}
}

// ShaderSemantics is the chain-wide vocabulary built once per filter chain
// (spec.md §4.5): every recognized uniform name and every recognized
// texture name, mapped to its semantic.
type ShaderSemantics struct {
	UniformSemantics map[string]UniformSemantic
	TextureSemantics map[string]Semantic
}

func NewShaderSemantics() *ShaderSemantics {
	return &ShaderSemantics{
		UniformSemantics: make(map[string]UniformSemantic),
		TextureSemantics: make(map[string]Semantic),
	}
}

// BindingStage is a bitmask of which shader stages a binding is used from.
type BindingStage uint8

const (
	StageNone     BindingStage = 0
	StageVertex   BindingStage = 1 << 0
	StageFragment BindingStage = 1 << 1
)

// UboReflection describes a pass's UBO block, if it declares one.
type UboReflection struct {
	Binding   uint32
	Size      uint32 // 16-byte aligned
	StageMask BindingStage
}

// PushReflection describes a pass's push-constant range, if it declares one.
type PushReflection struct {
	Size      uint32 // 16-byte aligned
	StageMask BindingStage
}

// UniformMemberBlock selects which arena a MemberOffset's value applies to.
type UniformMemberBlock int

const (
	BlockUBO UniformMemberBlock = iota
	BlockPushConstant
)

// MemberOffset is where a uniform lives: in the UBO, the push-constant
// range, or both, in which case the chain writes the value to both.
type MemberOffset struct {
	UBO  *uint32
	Push *uint32
}

func (m MemberOffset) Offset(block UniformMemberBlock) *uint32 {
	if block == BlockUBO {
		return m.UBO
	}
	return m.Push
}

// UniformMeta is implemented by both VariableMeta and TextureSizeMeta so
// the planner can walk all writable bindings uniformly.
type UniformMeta interface {
	Offset() MemberOffset
	ID() string
}

// VariableMeta is reflection metadata for a non-texture uniform (a builtin
// semantic or a user parameter).
type VariableMeta struct {
	MemberOffset MemberOffset
	Size         uint32
	Name         string
}

func (v VariableMeta) Offset() MemberOffset { return v.MemberOffset }
func (v VariableMeta) ID() string           { return v.Name }

// TextureSizeMeta is reflection metadata for a texture's *Size companion uniform.
type TextureSizeMeta struct {
	MemberOffset MemberOffset
	StageMask    BindingStage
	Name         string
}

func (t TextureSizeMeta) Offset() MemberOffset { return t.MemberOffset }
func (t TextureSizeMeta) ID() string           { return t.Name }

// TextureBinding is reflection metadata for a sampler's binding slot.
type TextureBinding struct {
	Binding uint32
}

// BindingMeta collects every classified binding in a pass.
type BindingMeta struct {
	ParameterMeta   map[string]VariableMeta
	UniqueMeta      map[UniqueSemantics]VariableMeta
	TextureMeta     map[Semantic]TextureBinding
	TextureSizeMeta map[Semantic]TextureSizeMeta
}

func newBindingMeta() BindingMeta {
	return BindingMeta{
		ParameterMeta:   make(map[string]VariableMeta),
		UniqueMeta:      make(map[UniqueSemantics]VariableMeta),
		TextureMeta:     make(map[Semantic]TextureBinding),
		TextureSizeMeta: make(map[Semantic]TextureSizeMeta),
	}
}

// ShaderReflection is a pass's fully classified binding layout.
type ShaderReflection struct {
	UBO           *UboReflection
	PushConstant  *PushReflection
	Meta          BindingMeta
}

// UniformBinding names a single binding slot for logging/debugging.
type UniformBinding struct {
	IsParameter bool
	IsTexture   bool
	Parameter   string
	Unique      UniqueSemantics
	Texture     Semantic
}
