package opengl

import (
	"testing"

	"github.com/shaderforge/slangchain/chain"
	"github.com/shaderforge/slangchain/common"
)

// Driving real GL calls needs a current context (a visible or pbuffer
// surface), which isn't available in a plain `go test` run -- nothing in
// the wrapped library's own test suite exercises GL calls directly either.
// What's checked here is the part that doesn't need a context: the shape
// of the driver satisfies chain.BackendDriver and handle values round-trip
// through the boxed interface types without panicking on type assertion.

var _ chain.BackendDriver = (*Driver)(nil)

func TestHandleTypesRoundTrip(t *testing.T) {
	tex := &Texture{id: 7, Size: common.Size{Width: 4, Height: 4}}
	var th chain.TextureHandle = tex
	got, ok := th.(*Texture)
	if !ok || got.id != 7 {
		t.Fatalf("texture handle did not round-trip: %#v", th)
	}

	fb := &Framebuffer{fbo: 3, Tex: tex}
	var fh chain.FramebufferHandle = fb
	gotFB, ok := fh.(*Framebuffer)
	if !ok || gotFB.fbo != 3 {
		t.Fatalf("framebuffer handle did not round-trip: %#v", fh)
	}

	prog := &Program{id: 9}
	var ph chain.ProgramHandle = prog
	gotProg, ok := ph.(*Program)
	if !ok || gotProg.id != 9 {
		t.Fatalf("program handle did not round-trip: %#v", ph)
	}
}
