// Command slangc parses a shader preset, compiles and reflects every pass,
// and either prints the resulting binding layout or drives a handful of
// frames through a real BackendDriver (cpu, or opengl via a hidden GLFW
// window) to exercise the full pipeline end to end.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/shaderforge/slangchain/backend"
	"github.com/shaderforge/slangchain/chain"
	"github.com/shaderforge/slangchain/common"
	"github.com/shaderforge/slangchain/compiler"
	"github.com/shaderforge/slangchain/core"
	"github.com/shaderforge/slangchain/drivers/cpu"
	"github.com/shaderforge/slangchain/drivers/opengl"
	"github.com/shaderforge/slangchain/preset"
	"github.com/shaderforge/slangchain/reflect"
)

func main() {
	presetPath := flag.String("preset", "", "path to a .slangp preset file")
	target := flag.String("target", "glsl", "transpile target: spirv, glsl, hlsl, dxil")
	glslVersion := flag.Int("glsl-version", 330, "GLSL #version to emit")
	glslEs := flag.Bool("glsl-es", false, "emit GLSL ES instead of desktop GL")
	frames := flag.Int("frames", 0, "render this many frames after compiling (0 skips rendering)")
	width := flag.Int("width", 256, "input/viewport width for rendering")
	height := flag.Int("height", 256, "input/viewport height for rendering")
	backendName := flag.String("backend", "cpu", "rendering backend for -frames: cpu, opengl")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *presetPath == "" {
		fmt.Fprintln(os.Stderr, "slangc: -preset is required")
		os.Exit(2)
	}
	if *verbose {
		core.SetLevel(core.LevelDebug)
	}

	if err := run(*presetPath, *target, *glslVersion, *glslEs, *frames, *width, *height, *backendName); err != nil {
		fmt.Fprintf(os.Stderr, "slangc: %v\n", err)
		os.Exit(1)
	}
}

func run(presetPath, targetName string, glslVersion int, glslEs bool, frames, width, height int, backendName string) error {
	pr, err := preset.Parse(presetPath)
	if err != nil {
		return fmt.Errorf("parsing preset: %w", err)
	}

	target, err := parseTarget(targetName)
	if err != nil {
		return err
	}

	frontend := &compiler.ExecFrontEnd{}
	introspector := &reflect.ExecIntrospector{}
	artifacts, semantics, err := reflect.CompilePresetPasses(pr.Shaders, pr.Textures, frontend, introspector)
	if err != nil {
		return fmt.Errorf("compiling passes: %w", err)
	}

	core.LogInfo("compiled %d pass(es), %d recognized texture semantic(s)", len(artifacts), len(semantics.TextureSemantics))
	for _, a := range artifacts {
		printArtifact(a)
	}

	if frames <= 0 {
		return nil
	}

	emitter := &backend.ExecEmitter{}
	opts := backend.Options{Target: target, GLSLVersion: glslVersion, GLSLEs: glslEs, HLSLShaderModel: "50"}

	var driver chain.BackendDriver
	var input chain.TextureHandle
	var closeFn func()

	size := common.Size{Width: uint32(width), Height: uint32(height)}
	switch backendName {
	case "cpu":
		d := cpu.New()
		driver = d
		input = &cpu.Texture{Size: size, Pixels: make([]byte, int(size.Width)*int(size.Height)*4)}
	case "opengl":
		ctx, err := opengl.NewHiddenContext(int(size.Width), int(size.Height))
		if err != nil {
			return fmt.Errorf("creating GL context: %w", err)
		}
		closeFn = ctx.Close
		d, err := opengl.New()
		if err != nil {
			closeFn()
			return fmt.Errorf("constructing opengl driver: %w", err)
		}
		driver = d
		fbh, err := d.AllocateFramebuffer(nil, size, common.ImageFormatR8G8B8A8Unorm)
		if err != nil {
			closeFn()
			return fmt.Errorf("allocating input texture: %w", err)
		}
		input = d.FramebufferTexture(fbh)
	default:
		return fmt.Errorf("unknown backend %q (want cpu, opengl)", backendName)
	}
	if closeFn != nil {
		defer closeFn()
	}

	fc, err := chain.New(pr, artifacts, emitter, opts, driver)
	if err != nil {
		return fmt.Errorf("constructing filter chain: %w", err)
	}

	viewport := common.Viewport{Width: size.Width, Height: size.Height}
	output, err := driver.AllocateFramebuffer(nil, size, common.ImageFormatR8G8B8A8Unorm)
	if err != nil {
		return fmt.Errorf("allocating output framebuffer: %w", err)
	}

	for i := 0; i < frames; i++ {
		if err := fc.Frame(input, size, viewport, output, uint64(i), chain.FrameOptions{}); err != nil {
			return fmt.Errorf("rendering frame %d: %w", i, err)
		}
	}
	core.LogInfo("rendered %d %s frame(s) at %dx%d", frames, backendName, width, height)
	return nil
}

func parseTarget(name string) (backend.Target, error) {
	switch name {
	case "spirv":
		return backend.TargetSPIRV, nil
	case "glsl":
		return backend.TargetGLSL, nil
	case "hlsl":
		return backend.TargetHLSL, nil
	case "dxil":
		return backend.TargetDXIL, nil
	default:
		return backend.TargetSPIRV, fmt.Errorf("unknown target %q (want spirv, glsl, hlsl, dxil)", name)
	}
}

func printArtifact(a reflect.ShaderPassArtifact) {
	fmt.Printf("pass %d (%s):\n", a.Config.ID, a.Source.Name)
	if a.Reflection.UBO != nil {
		fmt.Printf("  UBO: binding=%d size=%d\n", a.Reflection.UBO.Binding, a.Reflection.UBO.Size)
	}
	if a.Reflection.PushConstant != nil {
		fmt.Printf("  push constant: size=%d\n", a.Reflection.PushConstant.Size)
	}
	for sem, binding := range a.Reflection.Meta.TextureMeta {
		fmt.Printf("  sampler %s -> binding %d\n", sem, binding.Binding)
	}
}
