package cpu

import (
	"testing"

	"github.com/shaderforge/slangchain/backend"
	"github.com/shaderforge/slangchain/chain"
	"github.com/shaderforge/slangchain/common"
	"github.com/shaderforge/slangchain/compiler"
	"github.com/shaderforge/slangchain/preprocess"
	"github.com/shaderforge/slangchain/preset"
	"github.com/shaderforge/slangchain/reflect"
)

type noopEmitter struct{}

func (noopEmitter) Emit(compiled *compiler.Compiled, opts backend.Options) (*backend.Shader, error) {
	return &backend.Shader{Vertex: "vertex", Fragment: "fragment"}, nil
}

func twoPassArtifacts() []reflect.ShaderPassArtifact {
	source := func(name string) *preprocess.ShaderSource {
		return &preprocess.ShaderSource{Name: name, Format: common.ImageFormatR8G8B8A8Unorm, Parameters: map[string]preprocess.ShaderParameter{}}
	}
	reflOf := func(kind reflect.TextureSemantics, binding uint32) *reflect.ShaderReflection {
		return &reflect.ShaderReflection{
			Meta: reflect.BindingMeta{
				ParameterMeta: map[string]reflect.VariableMeta{},
				UniqueMeta:    map[reflect.UniqueSemantics]reflect.VariableMeta{},
				TextureMeta: map[reflect.Semantic]reflect.TextureBinding{
					{Kind: kind, Index: 0}: {Binding: binding},
				},
				TextureSizeMeta: map[reflect.Semantic]reflect.TextureSizeMeta{},
			},
		}
	}
	return []reflect.ShaderPassArtifact{
		{
			Config:     preset.ShaderPassConfig{ID: 0, Scaling: common.DefaultScale2D()},
			Source:     source("pass0"),
			Compiled:   &compiler.Compiled{},
			Reflection: reflOf(reflect.TextureSource, 0),
		},
		{
			Config: preset.ShaderPassConfig{ID: 1, Scaling: common.Scale2D{
				X: common.ScaleAxis{Kind: common.ScaleSource, Factor: 0.5},
				Y: common.ScaleAxis{Kind: common.ScaleSource, Factor: 0.5},
			}},
			Source:     source("pass1"),
			Compiled:   &compiler.Compiled{},
			Reflection: reflOf(reflect.TextureSource, 0),
		},
	}
}

func TestFilterChainTwoPassFrameWithCPUDriver(t *testing.T) {
	artifacts := twoPassArtifacts()
	pr := &preset.ShaderPreset{Shaders: []preset.ShaderPassConfig{artifacts[0].Config, artifacts[1].Config}}

	driver := New()
	fc, err := chain.New(pr, artifacts, noopEmitter{}, backend.Options{Target: backend.TargetGLSL}, driver)
	if err != nil {
		t.Fatalf("chain.New: %v", err)
	}

	input := &Texture{Size: common.Size{Width: 4, Height: 4}, Pixels: make([]byte, 4*4*4)}
	for i := range input.Pixels {
		input.Pixels[i] = byte(i % 256)
	}
	outputFB, err := driver.AllocateFramebuffer(nil, common.Size{Width: 2, Height: 2}, common.ImageFormatR8G8B8A8Unorm)
	if err != nil {
		t.Fatalf("AllocateFramebuffer: %v", err)
	}

	viewport := common.Viewport{Width: 4, Height: 4}
	if err := fc.Frame(input, input.Size, viewport, outputFB, 0, chain.FrameOptions{}); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if driver.DrawCount() != 2 {
		t.Fatalf("expected 2 draw calls (one per pass), got %d", driver.DrawCount())
	}

	// Pass 1 scales its source (pass 0's 4x4 output) by 0.5, so the final
	// framebuffer should end up 2x2 and contain the rescaled input.
	fb := outputFB.(*Framebuffer)
	if fb.Tex.Size.Width != 2 || fb.Tex.Size.Height != 2 {
		t.Fatalf("expected final framebuffer 2x2, got %dx%d", fb.Tex.Size.Width, fb.Tex.Size.Height)
	}

	if err := fc.Frame(input, input.Size, viewport, outputFB, 1, chain.FrameOptions{}); err != nil {
		t.Fatalf("second Frame: %v", err)
	}
	if driver.DrawCount() != 4 {
		t.Fatalf("expected 4 cumulative draw calls after two frames, got %d", driver.DrawCount())
	}
}
