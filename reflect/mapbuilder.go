package reflect

import (
	"strings"

	"github.com/shaderforge/slangchain/core"
	"github.com/shaderforge/slangchain/preprocess"
	"github.com/shaderforge/slangchain/preset"
)

// BuildSemantics constructs the chain-wide ShaderSemantics from the parsed
// passes (with their preprocessed sources, for parameter discovery) and
// lookup texture roster, per spec.md §4.5.
func BuildSemantics(passes []preset.ShaderPassConfig, sources []*preprocess.ShaderSource, textures []preset.TextureConfig) *ShaderSemantics {
	sem := NewShaderSemantics()

	for _, src := range sources {
		for _, id := range src.SortedParameterIDs() {
			sem.UniformSemantics[id] = UniqueSemanticOf(SemanticFloatParameter)
		}
	}

	for _, pass := range passes {
		insertPassSemantics(sem, pass)
	}

	insertLUTSemantics(sem, textures)

	return sem
}

// insertPassSemantics registers the four alias-derived bindings for a pass
// with a non-empty alias (spec.md §4.5 step 2, testable property 2).
func insertPassSemantics(sem *ShaderSemantics, pass preset.ShaderPassConfig) {
	alias := strings.TrimSpace(pass.Alias)
	if alias == "" {
		return
	}

	index := pass.ID

	if existing, ok := sem.TextureSemantics[alias]; ok {
		core.LogWarn("alias %q collides with an existing texture semantic %s; explicit alias wins", alias, existing)
	} else if builtin, ok := probeTextureName(alias); ok {
		core.LogWarn("alias %q collides with builtin texture semantic %s; explicit alias wins", alias, builtin)
	}

	sem.TextureSemantics[alias] = Semantic{Kind: TexturePassOutput, Index: index}
	sem.UniformSemantics[alias+"Size"] = TextureSemanticOf(Semantic{Kind: TexturePassOutput, Index: index})

	sem.TextureSemantics[alias+"Feedback"] = Semantic{Kind: TexturePassFeedback, Index: index}
	sem.UniformSemantics[alias+"FeedbackSize"] = TextureSemanticOf(Semantic{Kind: TexturePassFeedback, Index: index})
}

// insertLUTSemantics registers each lookup texture by its listing order
// (spec.md §4.5 step 3).
func insertLUTSemantics(sem *ShaderSemantics, textures []preset.TextureConfig) {
	for index, tex := range textures {
		sem.TextureSemantics[tex.Name] = Semantic{Kind: TextureUser, Index: index}
		sem.UniformSemantics[tex.Name+"Size"] = TextureSemanticOf(Semantic{Kind: TextureUser, Index: index})
	}
}
