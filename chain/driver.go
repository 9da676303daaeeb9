// Package chain assembles the backend-independent pieces -- preset,
// preprocess, compiler, reflect, backend -- into a runnable filter chain:
// the pass planner (C8), uniform storage (C9), and the abstract backend
// driver contract (C10) a concrete graphics API plugs into.
package chain

import "github.com/shaderforge/slangchain/common"

// TextureHandle is an opaque, backend-owned sampleable image.
type TextureHandle interface{}

// FramebufferHandle is an opaque, backend-owned render target.
type FramebufferHandle interface{}

// ProgramHandle is an opaque, backend-owned linked shader program (a GL
// program object, or a pipeline state object for Vulkan/D3D).
type ProgramHandle interface{}

// BackendDriver is the collaborator the chain depends on but never
// implements (spec.md §6.2, C10): LUT loading, program compilation,
// framebuffer lifecycle, sampler binding, the UBO/push-constant upload,
// and the fullscreen-quad draw call are all backend-specific.
type BackendDriver interface {
	// LoadLUT decodes and uploads a lookup texture image file, reporting
	// its decoded dimensions alongside the handle so the chain can write
	// its *Size companion uniform without re-querying the backend.
	LoadLUT(path string, mipmap bool, filter common.FilterMode, wrap common.WrapMode) (TextureHandle, common.Size, error)

	// CreateProgram compiles/links one pass's transpiled vertex+fragment
	// source into a backend program object.
	CreateProgram(vertex, fragment string) (ProgramHandle, error)
	DestroyProgram(program ProgramHandle)

	// AllocateFramebuffer creates a render target of the given size and
	// format, or returns existing unchanged if its size already matches.
	// existing may be nil.
	AllocateFramebuffer(existing FramebufferHandle, size common.Size, format common.ImageFormat) (FramebufferHandle, error)
	DestroyFramebuffer(fb FramebufferHandle)
	ClearFramebuffer(fb FramebufferHandle)

	// FramebufferTexture returns the sampleable view of a render target's
	// color attachment, for chaining one pass's output into the next
	// pass's input.
	FramebufferTexture(fb FramebufferHandle) TextureHandle

	// BindTexture binds a texture to a numbered sampler slot for the
	// upcoming draw, with the given filter/wrap applied.
	BindTexture(slot uint32, tex TextureHandle, filter common.FilterMode, wrap common.WrapMode)

	// BindUniforms uploads one pass's UBO and push-constant byte arenas
	// for the upcoming draw.
	BindUniforms(ubo, push []byte)

	// DrawFullscreenQuad records the pass's draw call into target, sourcing
	// from the program/samplers/uniforms already bound.
	DrawFullscreenQuad(program ProgramHandle, target FramebufferHandle) error

	// CopyFramebuffer copies src's rendered contents into dst. The chain
	// uses this to flush the last pass's chain-owned framebuffer (which it
	// must render into so the pass's output can also be captured as this
	// frame's feedback source) into the caller-loaned output target. src
	// and dst are assumed to be the same size.
	CopyFramebuffer(src, dst FramebufferHandle) error
}
