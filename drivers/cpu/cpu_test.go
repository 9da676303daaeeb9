package cpu

import (
	"testing"

	"github.com/shaderforge/slangchain/common"
)

func TestAllocateFramebufferReusesMatchingSize(t *testing.T) {
	d := New()
	fb1, err := d.AllocateFramebuffer(nil, common.Size{Width: 4, Height: 4}, common.ImageFormatR8G8B8A8Unorm)
	if err != nil {
		t.Fatalf("AllocateFramebuffer: %v", err)
	}
	fb2, err := d.AllocateFramebuffer(fb1, common.Size{Width: 4, Height: 4}, common.ImageFormatR8G8B8A8Unorm)
	if err != nil {
		t.Fatalf("AllocateFramebuffer: %v", err)
	}
	if fb1 != fb2 {
		t.Fatal("expected same-size reallocation to reuse the existing framebuffer")
	}
}

func TestAllocateFramebufferRejectsZeroSize(t *testing.T) {
	d := New()
	if _, err := d.AllocateFramebuffer(nil, common.Size{Width: 0, Height: 4}, common.ImageFormatR8G8B8A8Unorm); err == nil {
		t.Fatal("expected error for zero-width framebuffer")
	}
}

func TestDrawFullscreenQuadBlitsBoundTexture(t *testing.T) {
	d := New()
	src := &Texture{Size: common.Size{Width: 2, Height: 2}, Pixels: []byte{
		10, 20, 30, 255, 11, 21, 31, 255,
		12, 22, 32, 255, 13, 23, 33, 255,
	}}
	d.BindTexture(0, src, common.FilterNearest, common.WrapModeClampToEdge)

	fbIface, err := d.AllocateFramebuffer(nil, common.Size{Width: 2, Height: 2}, common.ImageFormatR8G8B8A8Unorm)
	if err != nil {
		t.Fatalf("AllocateFramebuffer: %v", err)
	}
	if err := d.DrawFullscreenQuad(nil, fbIface); err != nil {
		t.Fatalf("DrawFullscreenQuad: %v", err)
	}
	fb := fbIface.(*Framebuffer)
	for i, v := range src.Pixels {
		if fb.Tex.Pixels[i] != v {
			t.Fatalf("expected identical-size blit to copy pixels verbatim, byte %d: got %d want %d", i, fb.Tex.Pixels[i], v)
		}
	}
	if d.DrawCount() != 1 {
		t.Fatalf("expected draw count 1, got %d", d.DrawCount())
	}
}

func TestDrawFullscreenQuadRescalesOnSizeMismatch(t *testing.T) {
	d := New()
	src := &Texture{Size: common.Size{Width: 1, Height: 1}, Pixels: []byte{200, 100, 50, 255}}
	d.BindTexture(0, src, common.FilterNearest, common.WrapModeClampToEdge)

	fbIface, err := d.AllocateFramebuffer(nil, common.Size{Width: 3, Height: 3}, common.ImageFormatR8G8B8A8Unorm)
	if err != nil {
		t.Fatalf("AllocateFramebuffer: %v", err)
	}
	if err := d.DrawFullscreenQuad(nil, fbIface); err != nil {
		t.Fatalf("DrawFullscreenQuad: %v", err)
	}
	fb := fbIface.(*Framebuffer)
	for i := 0; i < len(fb.Tex.Pixels); i += 4 {
		if fb.Tex.Pixels[i] != 200 || fb.Tex.Pixels[i+1] != 100 || fb.Tex.Pixels[i+2] != 50 {
			t.Fatalf("expected every pixel to sample the single source texel, got %v at offset %d", fb.Tex.Pixels[i:i+4], i)
		}
	}
}
