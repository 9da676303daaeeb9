package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/shaderforge/slangchain/chain"
	"github.com/shaderforge/slangchain/common"
)

// Same rationale as the opengl driver's test file: driving a real headless
// Vulkan instance needs a loader and an ICD present on the machine running
// the test, which a plain `go test` invocation can't assume. What's checked
// here is the part that doesn't touch the Vulkan API: the driver's shape
// satisfies chain.BackendDriver and handle values round-trip through the
// boxed interface types without panicking on type assertion.

var _ chain.BackendDriver = (*Driver)(nil)

func TestHandleTypesRoundTrip(t *testing.T) {
	tex := &Texture{Size: common.Size{Width: 4, Height: 4}}
	var th chain.TextureHandle = tex
	got, ok := th.(*Texture)
	if !ok || got.Size.Width != 4 {
		t.Fatalf("texture handle did not round-trip: %#v", th)
	}

	fb := &Framebuffer{fbo: tex}
	var fh chain.FramebufferHandle = fb
	gotFB, ok := fh.(*Framebuffer)
	if !ok || gotFB.fbo != tex {
		t.Fatalf("framebuffer handle did not round-trip: %#v", fh)
	}

	prog := &Program{}
	var ph chain.ProgramHandle = prog
	if _, ok := ph.(*Program); !ok {
		t.Fatalf("program handle did not round-trip: %#v", ph)
	}
}

func TestVulkanResultString(t *testing.T) {
	cases := map[vk.Result]string{
		vk.Success:              "VK_SUCCESS",
		vk.ErrorOutOfHostMemory: "VK_ERROR_OUT_OF_HOST_MEMORY",
		vk.ErrorDeviceLost:      "VK_ERROR_DEVICE_LOST",
	}
	for code, want := range cases {
		got := vulkanResultString(code)
		if got != want {
			t.Errorf("vulkanResultString(%v) = %q, want %q", code, got, want)
		}
	}
}

func TestVulkanSafeString(t *testing.T) {
	if got := vulkanSafeString("main"); got != "main\x00" {
		t.Fatalf("vulkanSafeString did not null-terminate: %q", got)
	}
	if got := vulkanSafeString("main\x00"); got != "main\x00" {
		t.Fatalf("vulkanSafeString double-terminated an already-terminated string: %q", got)
	}
}
