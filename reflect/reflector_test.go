package reflect

import (
	"strconv"
	"testing"

	"github.com/shaderforge/slangchain/preset"
)

func TestReflectBuiltinsAndAlias(t *testing.T) {
	passes := []preset.ShaderPassConfig{{ID: 0, Alias: "BLUR"}}
	sem := BuildSemantics(passes, nil, nil)

	vertex := &StageIntrospection{
		UBO: &BlockInfo{
			Binding: 0,
			Size:    96,
			Members: []MemberInfo{
				{Name: "MVP", Offset: 0, Type: TypeMat4},
				{Name: "BLURSize", Offset: 64, Type: TypeVec4},
				{Name: "strength", Offset: 80, Type: TypeFloat},
			},
		},
		Samplers: []SamplerInfo{{Name: "BLUR", Binding: 0}},
	}

	refl, err := Reflect(vertex, nil, sem)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}

	if _, ok := refl.Meta.UniqueMeta[SemanticMVP]; !ok {
		t.Fatalf("expected MVP to be recognized as a builtin")
	}
	sizeSem := Semantic{Kind: TexturePassOutput, Index: 0}
	if _, ok := refl.Meta.TextureSizeMeta[sizeSem]; !ok {
		t.Fatalf("expected BLURSize to resolve to PassOutput{0} size meta")
	}
	if _, ok := refl.Meta.TextureMeta[sizeSem]; !ok {
		t.Fatalf("expected BLUR sampler to resolve to PassOutput{0}")
	}
	if _, ok := refl.Meta.ParameterMeta["strength"]; !ok {
		t.Fatalf("expected strength to fall through to a user parameter")
	}
}

func TestReflectProbeOrderHistoryBeforeOriginal(t *testing.T) {
	sem := BuildSemantics(nil, nil, nil)
	vertex := &StageIntrospection{
		Samplers: []SamplerInfo{
			{Name: "OriginalHistory2", Binding: 0},
			{Name: "Original", Binding: 1},
		},
	}
	refl, err := Reflect(vertex, nil, sem)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if _, ok := refl.Meta.TextureMeta[Semantic{Kind: TextureOriginalHistory, Index: 2}]; !ok {
		t.Fatalf("expected OriginalHistory2 to resolve to OriginalHistory{2}, not shadowed by Original")
	}
	if _, ok := refl.Meta.TextureMeta[Semantic{Kind: TextureOriginal, Index: 0}]; !ok {
		t.Fatalf("expected Original to resolve exactly")
	}
}

func TestReflectInvalidType(t *testing.T) {
	sem := BuildSemantics(nil, nil, nil)
	vertex := &StageIntrospection{
		UBO: &BlockInfo{
			Members: []MemberInfo{{Name: "MVP", Offset: 0, Type: TypeVec4}},
		},
	}
	_, err := Reflect(vertex, nil, sem)
	if err == nil {
		t.Fatalf("expected InvalidTypeError for MVP declared as vec4")
	}
	typeErr, ok := err.(*InvalidTypeError)
	if !ok {
		t.Fatalf("expected *InvalidTypeError, got %T", err)
	}
	if typeErr.Expected != TypeMat4 || typeErr.Found != TypeVec4 {
		t.Fatalf("unexpected type error: %+v", typeErr)
	}
}

func TestReflectPushBufferTooLarge(t *testing.T) {
	sem := BuildSemantics(nil, nil, nil)
	vertex := &StageIntrospection{
		Push: &BlockInfo{Size: MaxPushBufferSize + 16},
	}
	_, err := Reflect(vertex, nil, sem)
	if err != ErrPushBufferTooLarge {
		t.Fatalf("expected ErrPushBufferTooLarge, got %v", err)
	}
}

func TestReflectTooManyBindings(t *testing.T) {
	sem := BuildSemantics(nil, nil, nil)
	samplers := make([]SamplerInfo, 0, MaxBindingsCount+1)
	for i := 0; i < MaxBindingsCount+1; i++ {
		samplers = append(samplers, SamplerInfo{Name: "User" + strconv.Itoa(i), Binding: uint32(i)})
	}
	vertex := &StageIntrospection{Samplers: samplers}
	_, err := Reflect(vertex, nil, sem)
	if err != ErrTooManyBindings {
		t.Fatalf("expected ErrTooManyBindings, got %v", err)
	}
}
