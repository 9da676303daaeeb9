// Package opengl is a chain.BackendDriver backed by desktop OpenGL 3.3
// core, grounded on soypat-glgl/v4.6-core/glgl's shader compile/link and
// texture/buffer management shape, retargeted at the narrower surface a
// post-processing filter chain needs (no compute, no SSBOs). The caller
// owns context creation (glfw.MakeContextCurrent or equivalent) before
// calling New -- this driver only issues GL calls against whatever context
// is current.
package opengl

import (
	"fmt"
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v3.3-core/gl"

	"github.com/shaderforge/slangchain/chain"
	"github.com/shaderforge/slangchain/common"
	"github.com/shaderforge/slangchain/core"
	"github.com/shaderforge/slangchain/lut"
)

// Texture is a GL texture name plus the size it was allocated at.
type Texture struct {
	id   uint32
	Size common.Size
}

// Framebuffer is a GL framebuffer object and its single color attachment.
type Framebuffer struct {
	fbo uint32
	Tex *Texture
}

// Program is a linked GL shader program.
type Program struct {
	id uint32
}

// Driver implements chain.BackendDriver against the OpenGL context current
// on the calling thread.
type Driver struct {
	quadVAO uint32
	quadVBO uint32
}

// New allocates the fullscreen-quad geometry every pass's draw call reuses.
// Must be called with a GL context current on the calling thread, which
// must also be the thread every later BackendDriver call runs on (OpenGL
// contexts are not safe to use from multiple goroutines).
func New() (*Driver, error) {
	d := &Driver{}
	gl.GenVertexArrays(1, &d.quadVAO)
	gl.GenBuffers(1, &d.quadVBO)

	verts := []float32{
		-1, -1, 0, 0,
		1, -1, 1, 0,
		-1, 1, 0, 1,
		1, 1, 1, 1,
	}
	gl.BindVertexArray(d.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.STATIC_DRAW)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 4*4, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, 4*4, 2*4)
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	if err := glErr(); err != nil {
		return nil, fmt.Errorf("opengl: initializing quad geometry: %w", err)
	}
	return d, nil
}

func (d *Driver) LoadLUT(path string, mipmap bool, filter common.FilterMode, wrap common.WrapMode) (chain.TextureHandle, common.Size, error) {
	img, err := lut.Decode(path)
	if err != nil {
		return nil, common.Size{}, err
	}
	tex := d.uploadTexture(img.Pixels, img.Size, filter, wrap, mipmap)
	return tex, img.Size, nil
}

func (d *Driver) uploadTexture(pixels []byte, size common.Size, filter common.FilterMode, wrap common.WrapMode, mipmap bool) *Texture {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	var ptr unsafe.Pointer
	if pixels != nil {
		ptr = gl.Ptr(pixels)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(size.Width), int32(size.Height), 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr)
	applySamplerParams(filter, wrap, mipmap)
	if mipmap {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return &Texture{id: id, Size: size}
}

func applySamplerParams(filter common.FilterMode, wrap common.WrapMode, mipmap bool) {
	magFilter, minFilter := int32(gl.NEAREST), int32(gl.NEAREST)
	if filter == common.FilterLinear {
		magFilter = gl.LINEAR
		minFilter = gl.LINEAR
		if mipmap {
			minFilter = gl.LINEAR_MIPMAP_LINEAR
		}
	} else if mipmap {
		minFilter = gl.NEAREST_MIPMAP_NEAREST
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, magFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)

	wrapMode := int32(gl.CLAMP_TO_EDGE)
	switch wrap {
	case common.WrapModeRepeat:
		wrapMode = gl.REPEAT
	case common.WrapModeMirroredRepeat:
		wrapMode = gl.MIRRORED_REPEAT
	case common.WrapModeClampToBorder:
		wrapMode = gl.CLAMP_TO_BORDER
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapMode)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapMode)
}

func (d *Driver) CreateProgram(vertex, fragment string) (chain.ProgramHandle, error) {
	vid, err := compileShader(gl.VERTEX_SHADER, vertex)
	if err != nil {
		return nil, fmt.Errorf("opengl: vertex shader: %w", err)
	}
	defer gl.DeleteShader(vid)

	fid, err := compileShader(gl.FRAGMENT_SHADER, fragment)
	if err != nil {
		return nil, fmt.Errorf("opengl: fragment shader: %w", err)
	}
	defer gl.DeleteShader(fid)

	id := gl.CreateProgram()
	gl.AttachShader(id, vid)
	gl.AttachShader(id, fid)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		logLen := programInfoLogLength(id)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(id, logLen, nil, gl.Str(log))
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("opengl: program link failed: %s", log)
	}
	return &Program{id: id}, nil
}

func compileShader(kind uint32, source string) (uint32, error) {
	id := gl.CreateShader(kind)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(id, 1, csource, nil)
	free()
	gl.CompileShader(id)

	var status int32
	gl.GetShaderiv(id, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(id, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(id, logLen, nil, gl.Str(log))
		gl.DeleteShader(id)
		return 0, fmt.Errorf("%s", log)
	}
	return id, nil
}

func programInfoLogLength(id uint32) int32 {
	var logLen int32
	gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLen)
	return logLen
}

func (d *Driver) DestroyProgram(program chain.ProgramHandle) {
	p := program.(*Program)
	gl.DeleteProgram(p.id)
}

func (d *Driver) AllocateFramebuffer(existing chain.FramebufferHandle, size common.Size, format common.ImageFormat) (chain.FramebufferHandle, error) {
	if fb, ok := existing.(*Framebuffer); ok && fb.Tex.Size == size {
		return fb, nil
	}
	if fb, ok := existing.(*Framebuffer); ok {
		d.DestroyFramebuffer(fb)
	}

	tex := d.uploadTexture(nil, size, common.FilterLinear, common.WrapModeClampToEdge, false)

	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex.id, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return nil, fmt.Errorf("opengl: framebuffer incomplete: status 0x%x", status)
	}
	return &Framebuffer{fbo: fbo, Tex: tex}, nil
}

func (d *Driver) DestroyFramebuffer(fb chain.FramebufferHandle) {
	f := fb.(*Framebuffer)
	gl.DeleteTextures(1, &f.Tex.id)
	gl.DeleteFramebuffers(1, &f.fbo)
}

func (d *Driver) ClearFramebuffer(fb chain.FramebufferHandle) {
	f := fb.(*Framebuffer)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	gl.Viewport(0, 0, int32(f.Tex.Size.Width), int32(f.Tex.Size.Height))
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (d *Driver) FramebufferTexture(fb chain.FramebufferHandle) chain.TextureHandle {
	return fb.(*Framebuffer).Tex
}

func (d *Driver) BindTexture(slot uint32, tex chain.TextureHandle, filter common.FilterMode, wrap common.WrapMode) {
	gl.ActiveTexture(gl.TEXTURE0 + slot)
	if tex == nil {
		gl.BindTexture(gl.TEXTURE_2D, 0)
		return
	}
	t := tex.(*Texture)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	applySamplerParams(filter, wrap, false)
}

// BindUniforms is a no-op on this driver: CreateProgram does not currently
// reflect uniform block layout into GL uniform buffer bindings, so the raw
// byte arenas have nowhere to go yet.
func (d *Driver) BindUniforms(ubo, push []byte) {
	core.LogDebug("opengl driver: BindUniforms called with %d UBO bytes, %d push bytes (no-op, UBO binding not wired)", len(ubo), len(push))
}

func (d *Driver) DrawFullscreenQuad(program chain.ProgramHandle, target chain.FramebufferHandle) error {
	p := program.(*Program)
	f := target.(*Framebuffer)

	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	gl.Viewport(0, 0, int32(f.Tex.Size.Width), int32(f.Tex.Size.Height))
	gl.UseProgram(p.id)
	gl.BindVertexArray(d.quadVAO)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)
	gl.UseProgram(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	return glErr()
}

// CopyFramebuffer blits src's color attachment into dst via the core
// FBO blit path, letting the chain flush a chain-owned render target into
// a caller-loaned one without sampling it through a program.
func (d *Driver) CopyFramebuffer(src, dst chain.FramebufferHandle) error {
	s := src.(*Framebuffer)
	t := dst.(*Framebuffer)

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, s.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, t.fbo)
	gl.BlitFramebuffer(
		0, 0, int32(s.Tex.Size.Width), int32(s.Tex.Size.Height),
		0, 0, int32(t.Tex.Size.Width), int32(t.Tex.Size.Height),
		gl.COLOR_BUFFER_BIT, gl.NEAREST,
	)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)

	return glErr()
}

func glErr() error {
	var errs []string
	for i := 0; i < 16; i++ {
		code := gl.GetError()
		if code == gl.NO_ERROR {
			break
		}
		errs = append(errs, fmt.Sprintf("0x%x", code))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("opengl: %s", strings.Join(errs, ", "))
}
