package preset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shaderforge/slangchain/common"
	"github.com/shaderforge/slangchain/preset"
)

func TestParseBasic(t *testing.T) {
	p, err := preset.Parse(filepath.Join("testdata", "basic.slangp"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.ShaderCount != 2 || len(p.Shaders) != 2 {
		t.Fatalf("expected 2 shaders, got %d (%d parsed)", p.ShaderCount, len(p.Shaders))
	}
	for i, s := range p.Shaders {
		if s.ID != i {
			t.Errorf("shader %d: ID = %d, want %d", i, s.ID, i)
		}
	}

	pass0 := p.Shaders[0]
	if pass0.Alias != "BLUR" {
		t.Errorf("pass0 alias = %q, want BLUR", pass0.Alias)
	}
	if pass0.Filter != common.FilterLinear {
		t.Errorf("pass0 filter = %v, want Linear", pass0.Filter)
	}
	if pass0.Scaling.X.Kind != common.ScaleAbsolute || pass0.Scaling.X.Factor != 256 {
		t.Errorf("pass0 scale x = %+v, want Absolute(256)", pass0.Scaling.X)
	}

	pass1 := p.Shaders[1]
	if pass1.HasAlias() {
		t.Errorf("pass1 should have no alias, got %q", pass1.Alias)
	}
	if pass1.WrapMode != common.WrapModeRepeat {
		t.Errorf("pass1 wrap mode = %v, want Repeat", pass1.WrapMode)
	}
	if pass1.FrameCountMod != 4 {
		t.Errorf("pass1 frame_count_mod = %d, want 4", pass1.FrameCountMod)
	}
	// Unspecified defaults per spec.md §4.1 step 5.
	if pass1.Filter != common.FilterNearest {
		t.Errorf("pass1 filter default = %v, want Nearest", pass1.Filter)
	}
	if pass1.Scaling.X.Kind != common.ScaleSource || pass1.Scaling.X.Factor != 1.0 {
		t.Errorf("pass1 scale default = %+v, want Source(1.0)", pass1.Scaling.X)
	}

	if len(p.Textures) != 1 || p.Textures[0].Name != "lut" {
		t.Fatalf("expected one texture named lut, got %+v", p.Textures)
	}
	if p.Textures[0].Filter != common.FilterLinear {
		t.Errorf("lut filter = %v, want Linear", p.Textures[0].Filter)
	}

	if len(p.Parameters) != 1 || p.Parameters[0].Name != "strength" || p.Parameters[0].Value != 0.5 {
		t.Fatalf("expected parameter strength=0.5, got %+v", p.Parameters)
	}
}

func TestParseMissingPresetFile(t *testing.T) {
	if _, err := preset.Parse(filepath.Join("testdata", "does-not-exist.slangp")); err == nil {
		t.Fatal("expected error for missing preset file")
	}
}

func TestParseShaderCountDropsOutOfRangeIndices(t *testing.T) {
	dir := t.TempDir()
	shaderPath := filepath.Join("testdata", "shaders", "pass0.slang")
	abs, err := filepath.Abs(shaderPath)
	if err != nil {
		t.Fatal(err)
	}
	content := "shader_count = 1\nshader0 = " + abs + "\nshader1 = " + abs + "\n"
	presetPath := filepath.Join(dir, "drop.slangp")
	if err := writeFile(presetPath, content); err != nil {
		t.Fatal(err)
	}

	p, err := preset.Parse(presetPath)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Shaders) != 1 {
		t.Fatalf("expected shader1 to be dropped, got %d shaders", len(p.Shaders))
	}
}

func TestStringifyRoundTrip(t *testing.T) {
	p, err := preset.Parse(filepath.Join("testdata", "basic.slangp"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "roundtrip.slangp")
	if err := writeFile(out, preset.Stringify(p)); err != nil {
		t.Fatal(err)
	}

	p2, err := preset.Parse(out)
	if err != nil {
		t.Fatalf("Parse(Stringify(p)): %v", err)
	}

	if len(p2.Shaders) != len(p.Shaders) {
		t.Fatalf("round trip shader count mismatch: %d vs %d", len(p2.Shaders), len(p.Shaders))
	}
	for i := range p.Shaders {
		a, b := p.Shaders[i], p2.Shaders[i]
		if a.Alias != b.Alias || a.Filter != b.Filter || a.WrapMode != b.WrapMode ||
			a.Scaling != b.Scaling || a.FrameCountMod != b.FrameCountMod {
			t.Errorf("pass %d mismatch after round trip: %+v vs %+v", i, a, b)
		}
	}
	if len(p2.Parameters) != len(p.Parameters) {
		t.Fatalf("round trip parameter count mismatch")
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
