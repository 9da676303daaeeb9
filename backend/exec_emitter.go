package backend

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/shaderforge/slangchain/compiler"
	"github.com/shaderforge/slangchain/core"
)

// ExecEmitter transpiles SPIR-V by shelling out to spirv-cross, mirroring
// the gio convertshaders SPIRVCross.Convert shape: write the stage binary
// to a temp file, invoke the tool with target-specific flags, capture
// stdout as the emitted source.
type ExecEmitter struct {
	// WorkDir is where temp SPIR-V files are written. Defaults to
	// os.TempDir() when empty.
	WorkDir string
}

var _ Emitter = (*ExecEmitter)(nil)

func (e *ExecEmitter) Emit(compiled *compiler.Compiled, opts Options) (*Shader, error) {
	if opts.Target == TargetSPIRV {
		return &Shader{Words: compiled}, nil
	}
	if opts.Target == TargetMSL {
		return nil, &UnsupportedTargetError{Target: opts.Target}
	}

	vertex, err := e.transpile(compiled.Vertex, compiler.StageVertex, opts)
	if err != nil {
		return nil, err
	}
	fragment, err := e.transpile(compiled.Fragment, compiler.StageFragment, opts)
	if err != nil {
		return nil, err
	}

	return &Shader{
		Vertex:   vertex,
		Fragment: fragment,
		Context:  Context{SamplerRenames: map[string]string{}},
	}, nil
}

func (e *ExecEmitter) transpile(module compiler.Module, stage compiler.Stage, opts Options) (string, error) {
	dir := e.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}

	path, err := e.writeModule(dir, module)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	args, err := e.buildArgs(opts)
	if err != nil {
		return "", err
	}
	args = append(args, path)

	out, err := exec.Command("spirv-cross", args...).CombinedOutput()
	if err != nil {
		return "", &TranspileError{Target: opts.Target, Stage: stage, Diagnostics: string(out)}
	}
	core.LogDebug("transpiled %s stage to %s (%d bytes)", stage, opts.Target, len(out))
	return string(out), nil
}

func (e *ExecEmitter) buildArgs(opts Options) ([]string, error) {
	switch opts.Target {
	case TargetGLSL:
		if opts.GLSLEs {
			return []string{"--es", "--version", strconv.Itoa(opts.GLSLVersion)}, nil
		}
		return []string{"--no-es", "--version", strconv.Itoa(opts.GLSLVersion)}, nil
	case TargetHLSL:
		shaderModel := opts.HLSLShaderModel
		if shaderModel == "" {
			shaderModel = "50"
		}
		return []string{"--hlsl", "--shader-model", shaderModel}, nil
	case TargetDXIL:
		// spirv-cross has no DXIL output, so this target emits the same HLSL
		// text as TargetHLSL; no DXIL lowering (e.g. dxc) is run here.
		shaderModel := opts.HLSLShaderModel
		if shaderModel == "" {
			shaderModel = "50"
		}
		return []string{"--hlsl", "--shader-model", shaderModel}, nil
	default:
		return nil, fmt.Errorf("backend: no spirv-cross invocation known for target %s", opts.Target)
	}
}

func (e *ExecEmitter) writeModule(dir string, module compiler.Module) (string, error) {
	f, err := os.CreateTemp(dir, "slangchain-emit-*.spv")
	if err != nil {
		return "", fmt.Errorf("backend: create temp SPIR-V file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 4*len(module.Words))
	for i, w := range module.Words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	if _, err := f.Write(buf); err != nil {
		return "", fmt.Errorf("backend: write temp SPIR-V file: %w", err)
	}
	return f.Name(), nil
}
