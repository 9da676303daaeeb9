package reflect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shaderforge/slangchain/compiler"
	"github.com/shaderforge/slangchain/preprocess"
	"github.com/shaderforge/slangchain/preset"
)

// stubFrontEnd returns a fixed, tiny SPIR-V-shaped module regardless of
// source; good enough to drive CompilePresetPasses without real tools.
type stubFrontEnd struct{}

func (stubFrontEnd) Compile(src *preprocess.ShaderSource) (*compiler.Compiled, error) {
	return &compiler.Compiled{
		Vertex:   compiler.Module{Words: []uint32{1, 2, 3}},
		Fragment: compiler.Module{Words: []uint32{4, 5, 6}},
	}, nil
}

// stubIntrospector reports a single MVP uniform and a Source sampler for
// every module it's handed, regardless of content.
type stubIntrospector struct{}

func (stubIntrospector) Introspect(module compiler.Module) (*StageIntrospection, error) {
	return &StageIntrospection{
		UBO: &BlockInfo{
			Binding: 0,
			Size:    64,
			Members: []MemberInfo{{Name: "MVP", Offset: 0, Type: TypeMat4}},
		},
		Samplers: []SamplerInfo{{Name: "Source", Binding: 0}},
	}, nil
}

func TestCompilePresetPasses(t *testing.T) {
	dir := t.TempDir()
	shaderPath := filepath.Join(dir, "pass0.slang")
	if err := os.WriteFile(shaderPath, []byte("#pragma stage vertex\nvoid main(){}\n#pragma stage fragment\nvoid main(){}\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	passes := []preset.ShaderPassConfig{{ID: 0, Name: shaderPath, Alias: "BLUR"}}

	artifacts, semantics, err := CompilePresetPasses(passes, nil, stubFrontEnd{}, stubIntrospector{})
	if err != nil {
		t.Fatalf("CompilePresetPasses: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(artifacts))
	}
	if artifacts[0].Reflection == nil {
		t.Fatalf("expected a reflection to be attached")
	}
	if _, ok := artifacts[0].Reflection.Meta.UniqueMeta[SemanticMVP]; !ok {
		t.Fatalf("expected MVP to be classified")
	}
	if _, ok := semantics.TextureSemantics["BLUR"]; !ok {
		t.Fatalf("expected BLUR alias registered in chain semantics")
	}
}
