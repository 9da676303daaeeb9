package opengl

import (
	"fmt"
	"runtime"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	// GLFW must be initialized and driven from the thread that locked it.
	runtime.LockOSThread()
}

// HiddenContext is an offscreen OpenGL 3.3 core context backed by a hidden
// GLFW window, the same glfw.Init/WindowHint/CreateWindow sequence
// engine/platform's Platform.Startup uses for its visible window, minus the
// show/input-callback wiring a headless render loop has no use for.
type HiddenContext struct {
	window *glfw.Window
}

// NewHiddenContext creates a context of the given size and makes it current
// on the calling goroutine. The caller must keep calling goroutine and OS
// thread fixed for the lifetime of the returned context (see New's doc
// comment on Driver) and call Close when done.
func NewHiddenContext(width, height int) (*HiddenContext, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("opengl: glfw.Init: %w", err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(width, height, "slangc", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("opengl: glfw.CreateWindow: %w", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("opengl: gl.Init: %w", err)
	}
	return &HiddenContext{window: window}, nil
}

// Close destroys the window and terminates GLFW. Safe to call once.
func (c *HiddenContext) Close() {
	c.window.Destroy()
	glfw.Terminate()
}
