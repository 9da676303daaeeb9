package chain

import (
	"testing"

	"github.com/shaderforge/slangchain/backend"
	"github.com/shaderforge/slangchain/common"
	"github.com/shaderforge/slangchain/compiler"
	"github.com/shaderforge/slangchain/preprocess"
	"github.com/shaderforge/slangchain/preset"
	"github.com/shaderforge/slangchain/reflect"
)

// fbHandle is a fake framebuffer: an id plus the size it was allocated at.
type fbHandle struct {
	id   int
	size common.Size
}

type stubDriver struct {
	nextFB     int
	boundTex   map[uint32]TextureHandle
	drawCalls  int
	clearCalls int
	copies     []copyCall
}

type copyCall struct {
	src, dst FramebufferHandle
}

func newStubDriver() *stubDriver {
	return &stubDriver{boundTex: make(map[uint32]TextureHandle)}
}

func (d *stubDriver) LoadLUT(path string, mipmap bool, filter common.FilterMode, wrap common.WrapMode) (TextureHandle, common.Size, error) {
	return "lut:" + path, common.Size{Width: 4, Height: 4}, nil
}

func (d *stubDriver) CreateProgram(vertex, fragment string) (ProgramHandle, error) {
	return "program", nil
}

func (d *stubDriver) DestroyProgram(program ProgramHandle) {}

func (d *stubDriver) AllocateFramebuffer(existing FramebufferHandle, size common.Size, format common.ImageFormat) (FramebufferHandle, error) {
	if fb, ok := existing.(*fbHandle); ok && fb.size == size {
		return fb, nil
	}
	d.nextFB++
	return &fbHandle{id: d.nextFB, size: size}, nil
}

func (d *stubDriver) DestroyFramebuffer(fb FramebufferHandle) {}

func (d *stubDriver) ClearFramebuffer(fb FramebufferHandle) { d.clearCalls++ }

func (d *stubDriver) FramebufferTexture(fb FramebufferHandle) TextureHandle {
	f := fb.(*fbHandle)
	return "tex:fb" + string(rune('0'+f.id))
}

func (d *stubDriver) BindTexture(slot uint32, tex TextureHandle, filter common.FilterMode, wrap common.WrapMode) {
	d.boundTex[slot] = tex
}

func (d *stubDriver) BindUniforms(ubo, push []byte) {}

func (d *stubDriver) DrawFullscreenQuad(program ProgramHandle, target FramebufferHandle) error {
	d.drawCalls++
	return nil
}

func (d *stubDriver) CopyFramebuffer(src, dst FramebufferHandle) error {
	d.copies = append(d.copies, copyCall{src: src, dst: dst})
	return nil
}

type noopFrontEnd struct{}

func (noopFrontEnd) Compile(src *preprocess.ShaderSource) (*compiler.Compiled, error) {
	return &compiler.Compiled{}, nil
}

type noopEmitter struct{}

func (noopEmitter) Emit(compiled *compiler.Compiled, opts backend.Options) (*backend.Shader, error) {
	return &backend.Shader{Vertex: "vertex", Fragment: "fragment"}, nil
}

func singlePassArtifact(alias string, samplerName string) reflect.ShaderPassArtifact {
	cfg := preset.ShaderPassConfig{ID: 0, Alias: alias, Scaling: common.DefaultScale2D()}
	source := &preprocess.ShaderSource{Name: "pass0", Format: common.ImageFormatR8G8B8A8Unorm, Parameters: map[string]preprocess.ShaderParameter{}}
	refl := &reflect.ShaderReflection{
		Meta: reflect.BindingMeta{
			ParameterMeta: map[string]reflect.VariableMeta{},
			UniqueMeta:    map[reflect.UniqueSemantics]reflect.VariableMeta{},
			TextureMeta: map[reflect.Semantic]reflect.TextureBinding{
				{Kind: reflect.TextureSource, Index: 0}: {Binding: 0},
			},
			TextureSizeMeta: map[reflect.Semantic]reflect.TextureSizeMeta{},
		},
	}
	return reflect.ShaderPassArtifact{
		Config:     cfg,
		Source:     source,
		Compiled:   &compiler.Compiled{},
		Reflection: refl,
	}
}

func TestFilterChainFrameSinglePassthrough(t *testing.T) {
	artifacts := []reflect.ShaderPassArtifact{singlePassArtifact("", "Source")}
	pr := &preset.ShaderPreset{Shaders: []preset.ShaderPassConfig{artifacts[0].Config}}

	driver := newStubDriver()
	fc, err := New(pr, artifacts, noopEmitter{}, backend.Options{Target: backend.TargetGLSL}, driver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = fc.Frame("input-tex", common.Size{Width: 4, Height: 4}, common.Viewport{Width: 4, Height: 4}, &fbHandle{id: 999, size: common.Size{Width: 4, Height: 4}}, 0, FrameOptions{})
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if driver.drawCalls != 1 {
		t.Fatalf("expected 1 draw call, got %d", driver.drawCalls)
	}
	if driver.boundTex[0] != "input-tex" {
		t.Fatalf("expected pass 0's Source sampler to bind the frame input, got %v", driver.boundTex[0])
	}
}

// historyPassArtifact builds a single pass whose only sampler reads
// OriginalHistoryN.
func historyPassArtifact(index int) reflect.ShaderPassArtifact {
	cfg := preset.ShaderPassConfig{ID: 0, Scaling: common.DefaultScale2D()}
	source := &preprocess.ShaderSource{Name: "pass0", Format: common.ImageFormatR8G8B8A8Unorm, Parameters: map[string]preprocess.ShaderParameter{}}
	refl := &reflect.ShaderReflection{
		Meta: reflect.BindingMeta{
			ParameterMeta: map[string]reflect.VariableMeta{},
			UniqueMeta:    map[reflect.UniqueSemantics]reflect.VariableMeta{},
			TextureMeta: map[reflect.Semantic]reflect.TextureBinding{
				{Kind: reflect.TextureOriginalHistory, Index: index}: {Binding: 0},
			},
			TextureSizeMeta: map[reflect.Semantic]reflect.TextureSizeMeta{},
		},
	}
	return reflect.ShaderPassArtifact{
		Config:     cfg,
		Source:     source,
		Compiled:   &compiler.Compiled{},
		Reflection: refl,
	}
}

// TestFilterChainHistoryIndexing exercises S3: a single pass referencing
// OriginalHistory2 must see frame 1's input by frame 3.
func TestFilterChainHistoryIndexing(t *testing.T) {
	artifacts := []reflect.ShaderPassArtifact{historyPassArtifact(2)}
	pr := &preset.ShaderPreset{Shaders: []preset.ShaderPassConfig{artifacts[0].Config}}

	driver := newStubDriver()
	fc, err := New(pr, artifacts, noopEmitter{}, backend.Options{Target: backend.TargetGLSL}, driver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	size := common.Size{Width: 4, Height: 4}
	viewport := common.Viewport{Width: 4, Height: 4}
	out := &fbHandle{id: 999, size: size}

	for frame, in := range []TextureHandle{"A", "B", "C"} {
		if err := fc.Frame(in, size, viewport, out, uint64(frame), FrameOptions{}); err != nil {
			t.Fatalf("Frame %d: %v", frame, err)
		}
	}

	if got := driver.boundTex[0]; got != "A" {
		t.Fatalf("expected OriginalHistory2 to read frame 1's input \"A\" during frame 3, got %v", got)
	}
}

// feedbackPassArtifacts builds a two-pass chain where pass 1 reads its own
// PassFeedback1.
func feedbackPassArtifacts() []reflect.ShaderPassArtifact {
	pass0 := singlePassArtifact("", "Source")

	cfg := preset.ShaderPassConfig{ID: 1, Scaling: common.DefaultScale2D()}
	source := &preprocess.ShaderSource{Name: "pass1", Format: common.ImageFormatR8G8B8A8Unorm, Parameters: map[string]preprocess.ShaderParameter{}}
	refl := &reflect.ShaderReflection{
		Meta: reflect.BindingMeta{
			ParameterMeta: map[string]reflect.VariableMeta{},
			UniqueMeta:    map[reflect.UniqueSemantics]reflect.VariableMeta{},
			TextureMeta: map[reflect.Semantic]reflect.TextureBinding{
				{Kind: reflect.TexturePassFeedback, Index: 1}: {Binding: 0},
			},
			TextureSizeMeta: map[reflect.Semantic]reflect.TextureSizeMeta{},
		},
	}
	pass1 := reflect.ShaderPassArtifact{
		Config:     cfg,
		Source:     source,
		Compiled:   &compiler.Compiled{},
		Reflection: refl,
	}
	return []reflect.ShaderPassArtifact{pass0, pass1}
}

// TestFilterChainFeedbackAlternates exercises S6: pass 1's PassFeedback1
// must resolve to two distinct framebuffer objects across successive
// frames, and the last pass's output must be captured at all (not nil).
func TestFilterChainFeedbackAlternates(t *testing.T) {
	artifacts := feedbackPassArtifacts()
	pr := &preset.ShaderPreset{Shaders: []preset.ShaderPassConfig{artifacts[0].Config, artifacts[1].Config}}

	driver := newStubDriver()
	fc, err := New(pr, artifacts, noopEmitter{}, backend.Options{Target: backend.TargetGLSL}, driver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	size := common.Size{Width: 4, Height: 4}
	viewport := common.Viewport{Width: 4, Height: 4}
	out := &fbHandle{id: 999, size: size}

	var seen []TextureHandle
	for frame := 0; frame < 3; frame++ {
		if err := fc.Frame("input", size, viewport, out, uint64(frame), FrameOptions{}); err != nil {
			t.Fatalf("Frame %d: %v", frame, err)
		}
		seen = append(seen, driver.boundTex[0])
	}

	if seen[0] != nil {
		t.Fatalf("expected PassFeedback1 to resolve to nil on frame 0 (no prior output yet), got %v", seen[0])
	}
	if seen[1] == nil {
		t.Fatalf("expected PassFeedback1 to capture pass 1's frame-0 output by frame 1, got nil")
	}
	if seen[2] == nil {
		t.Fatalf("expected PassFeedback1 to capture pass 1's frame-1 output by frame 2, got nil")
	}
	if seen[1] == seen[2] {
		t.Fatalf("expected PassFeedback1 to alternate between two distinct framebuffer objects, got the same %v both times", seen[1])
	}
}

func TestFilterChainParameters(t *testing.T) {
	artifacts := []reflect.ShaderPassArtifact{singlePassArtifact("", "Source")}
	pr := &preset.ShaderPreset{
		Shaders:    []preset.ShaderPassConfig{artifacts[0].Config},
		Parameters: []preset.ParameterConfig{{Name: "strength", Value: 0.5}},
	}
	driver := newStubDriver()
	fc, err := New(pr, artifacts, noopEmitter{}, backend.Options{Target: backend.TargetGLSL}, driver)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if v, ok := fc.GetParameter("strength"); !ok || v != 0.5 {
		t.Fatalf("expected strength=0.5, got %v ok=%v", v, ok)
	}
	prev, existed := fc.SetParameter("strength", 0.9)
	if !existed || prev != 0.5 {
		t.Fatalf("expected previous value 0.5, got %v existed=%v", prev, existed)
	}
	if v, _ := fc.GetParameter("strength"); v != 0.9 {
		t.Fatalf("expected updated value 0.9, got %v", v)
	}
	if fc.ParametersCount() != 1 {
		t.Fatalf("expected 1 parameter, got %d", fc.ParametersCount())
	}
}
