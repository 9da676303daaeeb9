// Package preset parses the quirky, shell-variable-expanding .slangp text
// format into a ShaderPreset: an ordered list of passes, lookup textures,
// and user parameter overrides. It is pure data — nothing in this package
// touches the filesystem beyond reading the preset file and resolving and
// stat-ing shader/texture paths.
package preset

import "github.com/shaderforge/slangchain/common"

// ShaderPassConfig is one pass entry of a preset. Id always equals the
// pass's position in ShaderPreset.Shaders (spec.md §3 invariant).
type ShaderPassConfig struct {
	ID              int
	Name            string // filesystem path to the .slang source
	Alias           string // empty means "no alias"
	Filter          common.FilterMode
	WrapMode        common.WrapMode
	FrameCountMod   uint64
	SRGBFramebuffer bool
	FloatFramebuffer bool
	MipmapInput     bool
	Scaling         common.Scale2D
}

// HasAlias reports whether this pass has a usable (non-empty-after-trim) alias.
func (p ShaderPassConfig) HasAlias() bool { return p.Alias != "" }

// TextureConfig is one lookup texture entry ("textures" roster).
type TextureConfig struct {
	Name     string
	Path     string
	Filter   common.FilterMode
	WrapMode common.WrapMode
	Mipmap   bool
}

// ParameterConfig is a named float override applied to the chain.
type ParameterConfig struct {
	Name  string
	Value float64
}

// ShaderPreset is the parsed, immutable representation of a .slangp file.
type ShaderPreset struct {
	ShaderCount int
	Shaders     []ShaderPassConfig
	Textures    []TextureConfig
	Parameters  []ParameterConfig

	// FeedbackPass holds the preset's feedback_pass value, or nil when the
	// key is absent. It is parsed and re-emitted by Stringify; the chain
	// does not read it (it keeps one feedback slot per pass regardless).
	FeedbackPass *int

	// BasePath is the directory every relative path in this preset was
	// resolved against; Stringify emits paths relative to it.
	BasePath string
}
