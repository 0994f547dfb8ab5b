// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"github.com/devblok/kryos/core"
	"github.com/devblok/kryos/device"
	"github.com/devblok/kryos/input"
)

// GLFWWindow is a Vulkan window backed by GLFW.
type GLFWWindow struct {
	log    *logrus.Entry
	window *glfw.Window
	flags  Flags

	// state receives callbacks while PollEvents runs.
	state *input.State
}

// NewGLFWWindow initializes GLFW and opens a window without a client API.
func NewGLFWWindow(log *logrus.Entry, cfg core.WindowConfiguration, flags Flags) (*GLFWWindow, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "glfw.Init()")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.WithHint(errors.New("glfw: Vulkan is not supported"), "install a Vulkan loader, for example the LunarG Vulkan SDK")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfwBool(flags.Has(FlagResizable)))
	glfw.WindowHint(glfw.Decorated, glfwBool(!flags.Has(FlagBorderless)))
	glfw.WindowHint(glfw.TransparentFramebuffer, glfwBool(flags.Has(FlagTransparentBuffer)))

	var monitor *glfw.Monitor
	if flags.Has(FlagFullscreen) {
		monitor = glfw.GetPrimaryMonitor()
	}

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "glfw.CreateWindow()")
	}

	w := &GLFWWindow{
		log:    log,
		window: window,
		flags:  flags,
	}
	window.SetKeyCallback(w.onKey)
	window.SetMouseButtonCallback(w.onMouseButton)
	window.SetCursorPosCallback(w.onCursorPos)

	log.WithFields(logrus.Fields{
		"backend": BackendGLFW,
		"width":   cfg.Width,
		"height":  cfg.Height,
		"flags":   flags.String(),
	}).Info("Window created")
	if rest := flags.Unapplied(glfwAppliedFlags); rest != FlagNone {
		log.WithField("flags", rest.String()).Debug("Window flags left to the swapchain")
	}

	return w, nil
}

func glfwBool(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}

// RequiredInstanceExtensions implements device.SurfaceSource
func (w *GLFWWindow) RequiredInstanceExtensions() []string {
	return w.window.GetRequiredInstanceExtensions()
}

// CreateSurface implements device.SurfaceSource
func (w *GLFWWindow) CreateSurface(instance device.InstanceHandle) (device.Surface, error) {
	srf, err := w.window.CreateWindowSurface(device.VulkanInstance(instance), nil)
	if err != nil {
		return device.NullSurface, errors.Wrap(err, "glfw.CreateWindowSurface()")
	}
	return device.SurfaceFromPointer(srf), nil
}

// ProcAddr implements Window
func (w *GLFWWindow) ProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

// Size implements Window
func (w *GLFWWindow) Size() glm.Vec2 {
	width, height := w.window.GetFramebufferSize()
	return glm.Vec2{float32(width), float32(height)}
}

// Flags implements Window
func (w *GLFWWindow) Flags() Flags {
	return w.flags
}

// PollEvents implements Window
func (w *GLFWWindow) PollEvents(state *input.State) bool {
	w.state = state
	glfw.PollEvents()
	w.state = nil
	return !w.window.ShouldClose()
}

// Destroy implements Window
func (w *GLFWWindow) Destroy() {
	if w.window == nil {
		return
	}
	w.window.Destroy()
	w.window = nil
	glfw.Terminate()
}

func (w *GLFWWindow) onKey(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if w.state == nil || action == glfw.Repeat || key == glfw.KeyUnknown {
		return
	}
	// input.Key shares the GLFW key values.
	w.state.SetKey(input.Key(key), action == glfw.Press)
}

func (w *GLFWWindow) onMouseButton(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	if w.state == nil {
		return
	}
	switch button {
	case glfw.MouseButtonLeft:
		w.state.SetMouseButton(input.MouseButtonLeft, action == glfw.Press)
	case glfw.MouseButtonRight:
		w.state.SetMouseButton(input.MouseButtonRight, action == glfw.Press)
	case glfw.MouseButtonMiddle:
		w.state.SetMouseButton(input.MouseButtonMiddle, action == glfw.Press)
	}
}

func (w *GLFWWindow) onCursorPos(_ *glfw.Window, x, y float64) {
	if w.state == nil {
		return
	}
	w.state.SetCursor(glm.Vec2{float32(x), float32(y)})
}
