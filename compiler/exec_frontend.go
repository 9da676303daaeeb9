package compiler

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/shaderforge/slangchain/core"
	"github.com/shaderforge/slangchain/preprocess"
)

// ExecFrontEnd compiles GLSL to SPIR-V by shelling out to glslc (preferred)
// or glslangValidator, mirroring other_examples' gorenderengine
// CompileShaderGLSL: write the stage source to a temp file, invoke the
// tool, read the resulting .spv back as a little-endian []uint32 stream.
type ExecFrontEnd struct {
	// WorkDir is where temp GLSL/SPIR-V files are written. Defaults to
	// os.TempDir() when empty.
	WorkDir string
}

var _ FrontEnd = (*ExecFrontEnd)(nil)

func (e *ExecFrontEnd) Compile(src *preprocess.ShaderSource) (*Compiled, error) {
	vert, err := e.compileStage(src.Vertex, StageVertex, src.Name)
	if err != nil {
		return nil, err
	}
	frag, err := e.compileStage(src.Fragment, StageFragment, src.Name)
	if err != nil {
		return nil, err
	}
	return &Compiled{Vertex: Module{Words: vert}, Fragment: Module{Words: frag}}, nil
}

func (e *ExecFrontEnd) compileStage(source string, stage Stage, name string) ([]uint32, error) {
	dir := e.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}
	ext := "vert"
	if stage == StageFragment {
		ext = "frag"
	}
	base := filepath.Join(dir, fmt.Sprintf("slangchain-%s-%s", name, ext))
	srcPath := base + "." + ext
	outPath := srcPath + ".spv"
	defer os.Remove(srcPath)
	defer os.Remove(outPath)

	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("compiler: write temp source: %w", err)
	}

	tool, cmd := e.buildCommand(srcPath, outPath, stage)
	if cmd == nil {
		return nil, fmt.Errorf("compiler: neither glslc nor glslangValidator found on PATH")
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &CompileError{Stage: stage, Tool: tool, Diagnostics: string(out)}
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("compiler: read compiled SPIR-V: %w", err)
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("compiler: SPIR-V output size %d is not word-aligned", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	core.LogDebug("compiled %s stage of %q to %d SPIR-V words via %s", stage, name, len(words), tool)
	return words, nil
}

func (e *ExecFrontEnd) buildCommand(srcPath, outPath string, stage Stage) (string, *exec.Cmd) {
	stageFlag := "vert"
	if stage == StageFragment {
		stageFlag = "frag"
	}
	if _, err := exec.LookPath("glslc"); err == nil {
		return "glslc", exec.Command("glslc", "-fshader-stage="+stageFlag, srcPath, "-o", outPath)
	}
	if _, err := exec.LookPath("glslangValidator"); err == nil {
		return "glslangValidator", exec.Command("glslangValidator", "-V", "-S", stageFlag, srcPath, "-o", outPath)
	}
	return "", nil
}
