package preprocess_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaderforge/slangchain/common"
	"github.com/shaderforge/slangchain/preprocess"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestLoadBasic(t *testing.T) {
	src, err := preprocess.Load(filepath.Join("testdata", "blur.slang"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if src.Name != "Blur Pass" {
		t.Errorf("Name = %q, want %q", src.Name, "Blur Pass")
	}
	if src.Format != common.ImageFormatR16G16B16A16Sfloat {
		t.Errorf("Format = %v, want R16G16B16A16_SFLOAT", src.Format)
	}
	if !strings.Contains(src.Vertex, "gl_Position") {
		t.Errorf("vertex text missing vertex-only code:\n%s", src.Vertex)
	}
	if strings.Contains(src.Vertex, "FragColor") {
		t.Errorf("vertex text leaked fragment-only code:\n%s", src.Vertex)
	}
	if !strings.Contains(src.Fragment, "FragColor") {
		t.Errorf("fragment text missing fragment-only code:\n%s", src.Fragment)
	}
	if !strings.Contains(src.Vertex, "tint(vec4 c)") {
		t.Errorf("included common.inc missing from vertex text:\n%s", src.Vertex)
	}
	if !strings.Contains(src.Vertex, "vTexCoord") {
		t.Errorf("stage-agnostic line missing from vertex text:\n%s", src.Vertex)
	}

	param, ok := src.Parameters["strength"]
	if !ok {
		t.Fatalf("expected parameter \"strength\", got %+v", src.Parameters)
	}
	if param.Initial != 0.5 || param.Min != 0.0 || param.Max != 1.0 || param.Step != 0.1 {
		t.Errorf("parameter strength = %+v, want {0.5 0.0 1.0 0.1 ...}", param)
	}
}

func TestIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.slang")
	bPath := filepath.Join(dir, "b.slang")
	mustWrite(t, aPath, "#include \"b.slang\"\n")
	mustWrite(t, bPath, "#include \"a.slang\"\n")

	if _, err := preprocess.Load(aPath); err == nil {
		t.Fatal("expected include cycle error")
	}
}

func TestDuplicateParameterMustAgree(t *testing.T) {
	dir := t.TempDir()
	incPath := filepath.Join(dir, "shared.inc")
	mainPath := filepath.Join(dir, "main.slang")
	mustWrite(t, incPath, "#pragma parameter strength \"Strength\" 0.5 0.0 1.0 0.1\n")
	mustWrite(t, mainPath, "#include \"shared.inc\"\n#pragma parameter strength \"Strength\" 0.9 0.0 1.0 0.1\n")

	if _, err := preprocess.Load(mainPath); err == nil {
		t.Fatal("expected disagreement error for conflicting parameter redeclaration")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := writeFile(path, content); err != nil {
		t.Fatal(err)
	}
}
