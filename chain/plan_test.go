package chain

import (
	"testing"

	"github.com/shaderforge/slangchain/common"
	"github.com/shaderforge/slangchain/preset"
	"github.com/shaderforge/slangchain/reflect"
)

func TestComputeOutputSizesAbsoluteAndSource(t *testing.T) {
	passes := []preset.ShaderPassConfig{
		{
			ID: 0,
			Scaling: common.Scale2D{
				X: common.ScaleAxis{Kind: common.ScaleAbsolute, Factor: 256},
				Y: common.ScaleAxis{Kind: common.ScaleSource, Factor: 2.0},
			},
		},
	}
	sizes := computeOutputSizes(passes, common.Size{Width: 320, Height: 240}, common.Viewport{Width: 1920, Height: 1080})
	if sizes[0].Width != 256 || sizes[0].Height != 480 {
		t.Fatalf("expected 256x480, got %dx%d", sizes[0].Width, sizes[0].Height)
	}
}

func TestComputeOutputSizesChainsPreviousPassOutput(t *testing.T) {
	passes := []preset.ShaderPassConfig{
		{ID: 0, Scaling: common.DefaultScale2D()},
		{
			ID: 1,
			Scaling: common.Scale2D{
				X: common.ScaleAxis{Kind: common.ScaleSource, Factor: 0.5},
				Y: common.ScaleAxis{Kind: common.ScaleSource, Factor: 0.5},
			},
		},
	}
	sizes := computeOutputSizes(passes, common.Size{Width: 100, Height: 100}, common.Viewport{Width: 100, Height: 100})
	if sizes[0].Width != 100 || sizes[0].Height != 100 {
		t.Fatalf("pass 0 should match input at scale 1.0, got %dx%d", sizes[0].Width, sizes[0].Height)
	}
	if sizes[1].Width != 50 || sizes[1].Height != 50 {
		t.Fatalf("pass 1 should be half of pass 0's output, got %dx%d", sizes[1].Width, sizes[1].Height)
	}
}

func TestMaxHistoryIndex(t *testing.T) {
	artifacts := []reflect.ShaderPassArtifact{
		{
			Reflection: &reflect.ShaderReflection{
				Meta: reflect.BindingMeta{
					TextureMeta: map[reflect.Semantic]reflect.TextureBinding{
						{Kind: reflect.TextureOriginalHistory, Index: 2}: {Binding: 0},
						{Kind: reflect.TextureSource, Index: 0}:           {Binding: 1},
					},
				},
			},
		},
	}
	if got := maxHistoryIndex(artifacts); got != 2 {
		t.Fatalf("expected max history index 2, got %d", got)
	}
}

func TestEffectiveFrameCount(t *testing.T) {
	if got := effectiveFrameCount(10, 4); got != 2 {
		t.Fatalf("expected 10%%4=2, got %d", got)
	}
	if got := effectiveFrameCount(10, 0); got != 10 {
		t.Fatalf("expected passthrough when mod is 0, got %d", got)
	}
}
