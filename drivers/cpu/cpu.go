// Package cpu is a software BackendDriver: every texture and framebuffer is
// a plain RGBA8 byte buffer, and a "draw" nearest-neighbor samples binding 0
// into the target. It exists for the deterministic, headless testing
// scenarios (history/feedback/scaled-size correctness) that a chain test
// can exercise without a GPU, the way engine/renderer/backend.go's
// interface lets the teacher swap Vulkan for a null backend in tests.
package cpu

import (
	"fmt"

	"github.com/shaderforge/slangchain/chain"
	"github.com/shaderforge/slangchain/common"
	"github.com/shaderforge/slangchain/lut"
)

// Texture is a decoded or rendered-to RGBA8 image living entirely in
// process memory.
type Texture struct {
	Size   common.Size
	Pixels []byte // len == Size.Width*Size.Height*4, row-major RGBA8
}

// Framebuffer owns the Texture it renders into.
type Framebuffer struct {
	Format common.ImageFormat
	Tex    *Texture
}

// Program records a pass's transpiled source; the CPU driver never
// actually executes it; DrawFullscreenQuad instead blits the bound
// source sampler so the chain's sizing/history/feedback bookkeeping can
// be exercised deterministically.
type Program struct {
	Vertex   string
	Fragment string
}

// Driver implements chain.BackendDriver entirely in process memory.
type Driver struct {
	bound map[uint32]*Texture

	lastUBO  []byte
	lastPush []byte

	drawCount int
}

func New() *Driver {
	return &Driver{bound: make(map[uint32]*Texture)}
}

func (d *Driver) LoadLUT(path string, mipmap bool, filter common.FilterMode, wrap common.WrapMode) (chain.TextureHandle, common.Size, error) {
	img, err := lut.Decode(path)
	if err != nil {
		return nil, common.Size{}, err
	}
	tex := &Texture{Size: img.Size, Pixels: img.Pixels}
	return tex, img.Size, nil
}

func (d *Driver) CreateProgram(vertex, fragment string) (chain.ProgramHandle, error) {
	return &Program{Vertex: vertex, Fragment: fragment}, nil
}

func (d *Driver) DestroyProgram(program chain.ProgramHandle) {}

func (d *Driver) AllocateFramebuffer(existing chain.FramebufferHandle, size common.Size, format common.ImageFormat) (chain.FramebufferHandle, error) {
	if fb, ok := existing.(*Framebuffer); ok && fb.Tex.Size == size {
		return fb, nil
	}
	if size.Width == 0 || size.Height == 0 {
		return nil, fmt.Errorf("cpu: invalid framebuffer size %dx%d", size.Width, size.Height)
	}
	return &Framebuffer{
		Format: format,
		Tex:    &Texture{Size: size, Pixels: make([]byte, int(size.Width)*int(size.Height)*4)},
	}, nil
}

func (d *Driver) DestroyFramebuffer(fb chain.FramebufferHandle) {}

func (d *Driver) ClearFramebuffer(fb chain.FramebufferHandle) {
	f := fb.(*Framebuffer)
	for i := range f.Tex.Pixels {
		f.Tex.Pixels[i] = 0
	}
}

func (d *Driver) FramebufferTexture(fb chain.FramebufferHandle) chain.TextureHandle {
	return fb.(*Framebuffer).Tex
}

func (d *Driver) BindTexture(slot uint32, tex chain.TextureHandle, filter common.FilterMode, wrap common.WrapMode) {
	if tex == nil {
		delete(d.bound, slot)
		return
	}
	d.bound[slot] = tex.(*Texture)
}

func (d *Driver) BindUniforms(ubo, push []byte) {
	d.lastUBO = ubo
	d.lastPush = push
}

// DrawFullscreenQuad nearest-neighbor samples binding slot 0 into target,
// the CPU driver's stand-in for running a fragment shader.
func (d *Driver) DrawFullscreenQuad(program chain.ProgramHandle, target chain.FramebufferHandle) error {
	d.drawCount++
	fb := target.(*Framebuffer)
	src, ok := d.bound[0]
	if !ok || src == nil {
		return nil
	}
	blit(src, fb.Tex)
	return nil
}

// DrawCount reports how many draw calls have been recorded, for test
// assertions.
func (d *Driver) DrawCount() int { return d.drawCount }

func (d *Driver) CopyFramebuffer(src, dst chain.FramebufferHandle) error {
	s := src.(*Framebuffer)
	t := dst.(*Framebuffer)
	blit(s.Tex, t.Tex)
	return nil
}

func blit(src, dst *Texture) {
	if src.Size == dst.Size {
		copy(dst.Pixels, src.Pixels)
		return
	}
	sw, sh := int(src.Size.Width), int(src.Size.Height)
	dw, dh := int(dst.Size.Width), int(dst.Size.Height)
	if sw == 0 || sh == 0 || dw == 0 || dh == 0 {
		return
	}
	for y := 0; y < dh; y++ {
		sy := y * sh / dh
		for x := 0; x < dw; x++ {
			sx := x * sw / dw
			si := (sy*sw + sx) * 4
			di := (y*dw + x) * 4
			copy(dst.Pixels[di:di+4], src.Pixels[si:si+4])
		}
	}
}
