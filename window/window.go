// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package window opens the main engine window and feeds its events into
// the input state. Two backends exist: SDL, the default, and GLFW.
// Windows must be created and polled from the main OS thread.
package window

import (
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/kryos/core"
	"github.com/devblok/kryos/device"
	"github.com/devblok/kryos/input"
)

// Window backends
const (
	BackendSDL  = "sdl"
	BackendGLFW = "glfw"
)

// Window is a native window that can host a Vulkan surface.
type Window interface {
	device.SurfaceSource

	// ProcAddr returns the vkGetInstanceProcAddr found by the window
	// system, to be handed to device.NewVulkanDriver.
	ProcAddr() unsafe.Pointer

	// Size returns the drawable size in pixels.
	Size() glm.Vec2

	// Flags returns the handle options the window was created with.
	Flags() Flags

	// PollEvents drains pending events into state. It returns false
	// once the window was asked to close.
	PollEvents(state *input.State) bool

	// Destroy closes the window and shuts the backend down.
	Destroy()
}

// New creates a window with the backend named in cfg.
func New(ctx *core.Context, cfg core.WindowConfiguration) (Window, error) {
	flags, err := ParseFlags(cfg.Flags)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", core.KeyWindowFlags)
	}

	log := ctx.Tagged(core.WindowTag)
	switch strings.ToLower(cfg.Backend) {
	case "", BackendSDL:
		return NewSDLWindow(log, cfg, flags)
	case BackendGLFW:
		return NewGLFWWindow(log, cfg, flags)
	default:
		return nil, errors.WithHintf(
			errors.Newf("unknown window backend %q", cfg.Backend),
			"set %s to %q or %q", core.KeyWindowBackend, BackendSDL, BackendGLFW)
	}
}
