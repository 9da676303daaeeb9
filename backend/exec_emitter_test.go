package backend

import (
	"testing"

	"github.com/shaderforge/slangchain/compiler"
)

func TestEmitSPIRVPassthrough(t *testing.T) {
	e := &ExecEmitter{}
	compiled := &compiler.Compiled{
		Vertex:   compiler.Module{Words: []uint32{1, 2, 3}},
		Fragment: compiler.Module{Words: []uint32{4, 5, 6}},
	}
	shader, err := e.Emit(compiled, Options{Target: TargetSPIRV})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if shader.Words != compiled {
		t.Fatalf("expected SPIR-V target to pass the compiled module through untouched")
	}
}

func TestEmitMSLUnsupported(t *testing.T) {
	e := &ExecEmitter{}
	_, err := e.Emit(&compiler.Compiled{}, Options{Target: TargetMSL})
	if err == nil {
		t.Fatalf("expected MSL to be rejected as unsupported")
	}
	if _, ok := err.(*UnsupportedTargetError); !ok {
		t.Fatalf("expected *UnsupportedTargetError, got %T", err)
	}
}

func TestBuildArgsGLSL(t *testing.T) {
	e := &ExecEmitter{}
	args, err := e.buildArgs(Options{Target: TargetGLSL, GLSLVersion: 330})
	if err != nil {
		t.Fatalf("buildArgs: %v", err)
	}
	want := []string{"--no-es", "--version", "330"}
	if len(args) != len(want) {
		t.Fatalf("unexpected args: %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d: got %q want %q", i, args[i], want[i])
		}
	}
}

func TestBuildArgsHLSLDefaultsShaderModel(t *testing.T) {
	e := &ExecEmitter{}
	args, err := e.buildArgs(Options{Target: TargetHLSL})
	if err != nil {
		t.Fatalf("buildArgs: %v", err)
	}
	if args[len(args)-1] != "50" {
		t.Fatalf("expected default shader model 50, got %v", args)
	}
}
