package reflect

import (
	"github.com/shaderforge/slangchain/compiler"
	"github.com/shaderforge/slangchain/core"
	"github.com/shaderforge/slangchain/preprocess"
	"github.com/shaderforge/slangchain/preset"
)

// ShaderPassArtifact bundles one pass's config, preprocessed source, and
// compiled+reflected SPIR-V -- the unit the pass planner consumes.
type ShaderPassArtifact struct {
	Config     preset.ShaderPassConfig
	Source     *preprocess.ShaderSource
	Compiled   *compiler.Compiled
	Reflection *ShaderReflection
}

// CompilePresetPasses preprocesses, compiles and reflects every pass of a
// parsed preset, building the chain-wide semantics alongside it. Parameter
// semantics from every pass's source must be seeded into the map before any
// pass is reflected against it, so loading and compiling happens in one
// pass over the list before reflection happens in a second.
func CompilePresetPasses(passes []preset.ShaderPassConfig, textures []preset.TextureConfig, frontend compiler.FrontEnd, introspector Introspector) ([]ShaderPassArtifact, *ShaderSemantics, error) {
	artifacts := make([]ShaderPassArtifact, 0, len(passes))
	sources := make([]*preprocess.ShaderSource, 0, len(passes))

	for _, pass := range passes {
		source, err := preprocess.Load(pass.Name)
		if err != nil {
			return nil, nil, err
		}
		compiled, err := frontend.Compile(source)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, source)
		artifacts = append(artifacts, ShaderPassArtifact{Config: pass, Source: source, Compiled: compiled})
	}

	semantics := BuildSemantics(passes, sources, textures)

	for i := range artifacts {
		compiled := artifacts[i].Compiled
		vertexInfo, err := introspector.Introspect(compiled.Vertex)
		if err != nil {
			return nil, nil, err
		}
		fragmentInfo, err := introspector.Introspect(compiled.Fragment)
		if err != nil {
			return nil, nil, err
		}
		refl, err := Reflect(vertexInfo, fragmentInfo, semantics)
		if err != nil {
			return nil, nil, err
		}
		artifacts[i].Reflection = refl
		core.LogDebug("reflected pass %d (%s)", artifacts[i].Config.ID, artifacts[i].Source.Name)
	}

	return artifacts, semantics, nil
}
