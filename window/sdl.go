// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/kryos/core"
	"github.com/devblok/kryos/device"
	"github.com/devblok/kryos/input"
)

// SDLWindow is a Vulkan window backed by SDL2.
type SDLWindow struct {
	log    *logrus.Entry
	window *sdl.Window
	flags  Flags
}

// NewSDLWindow initializes SDL with its Vulkan loader and opens a window.
func NewSDLWindow(log *logrus.Entry, cfg core.WindowConfiguration, flags Flags) (*SDLWindow, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, errors.Wrap(err, "sdl.Init()")
	}
	if err := sdl.VulkanLoadLibrary(""); err != nil {
		sdl.Quit()
		return nil, errors.WithHint(errors.Wrap(err, "sdl.VulkanLoadLibrary()"), "install a Vulkan loader, for example the LunarG Vulkan SDK")
	}

	window, err := sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.Width),
		int32(cfg.Height),
		sdlWindowFlags(flags))
	if err != nil {
		sdl.VulkanUnloadLibrary()
		sdl.Quit()
		return nil, errors.Wrap(err, "sdl.CreateWindow()")
	}

	log.WithFields(logrus.Fields{
		"backend": BackendSDL,
		"width":   cfg.Width,
		"height":  cfg.Height,
		"flags":   flags.String(),
	}).Info("Window created")
	if rest := flags.Unapplied(sdlAppliedFlags); rest != FlagNone {
		log.WithField("flags", rest.String()).Debug("Window flags left to the swapchain")
	}

	return &SDLWindow{
		log:    log,
		window: window,
		flags:  flags,
	}, nil
}

func sdlWindowFlags(flags Flags) uint32 {
	var f uint32 = sdl.WINDOW_VULKAN
	if flags.Has(FlagBorderless) {
		f |= sdl.WINDOW_BORDERLESS
	}
	if flags.Has(FlagFullscreen) {
		f |= sdl.WINDOW_FULLSCREEN
	}
	if flags.Has(FlagResizable) {
		f |= sdl.WINDOW_RESIZABLE
	}
	return f
}

// RequiredInstanceExtensions implements device.SurfaceSource
func (w *SDLWindow) RequiredInstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// CreateSurface implements device.SurfaceSource
func (w *SDLWindow) CreateSurface(instance device.InstanceHandle) (device.Surface, error) {
	srf, err := w.window.VulkanCreateSurface(device.VulkanInstance(instance))
	if err != nil {
		return device.NullSurface, errors.Wrap(err, "sdl.VulkanCreateSurface()")
	}
	return device.SurfaceFromPointer(uintptr(srf)), nil
}

// ProcAddr implements Window
func (w *SDLWindow) ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

// Size implements Window
func (w *SDLWindow) Size() glm.Vec2 {
	width, height := w.window.GetSize()
	return glm.Vec2{float32(width), float32(height)}
}

// Flags implements Window
func (w *SDLWindow) Flags() Flags {
	return w.flags
}

// PollEvents implements Window
func (w *SDLWindow) PollEvents(state *input.State) bool {
	open := true
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch et := event.(type) {
		case *sdl.QuitEvent:
			open = false
		case *sdl.KeyboardEvent:
			if et.Repeat != 0 {
				continue
			}
			if key := sdlKey(et.Keysym.Sym); key != input.KeyUnknown {
				state.SetKey(key, et.State == sdl.PRESSED)
			}
		case *sdl.MouseButtonEvent:
			if button, ok := sdlMouseButton(et.Button); ok {
				state.SetMouseButton(button, et.State == sdl.PRESSED)
			}
		case *sdl.MouseMotionEvent:
			state.SetCursor(glm.Vec2{float32(et.X), float32(et.Y)})
		}
	}
	return open
}

// Destroy implements Window
func (w *SDLWindow) Destroy() {
	if w.window == nil {
		return
	}
	if err := w.window.Destroy(); err != nil {
		w.log.WithError(err).Warn("Window destroy failed")
	}
	w.window = nil
	sdl.VulkanUnloadLibrary()
	sdl.Quit()
}

var sdlKeys = map[sdl.Keycode]input.Key{
	sdl.K_SPACE:        input.KeySpace,
	sdl.K_QUOTE:        input.KeyApostrophe,
	sdl.K_COMMA:        input.KeyComma,
	sdl.K_MINUS:        input.KeyMinus,
	sdl.K_PERIOD:       input.KeyPeriod,
	sdl.K_SLASH:        input.KeySlash,
	sdl.K_SEMICOLON:    input.KeySemicolon,
	sdl.K_EQUALS:       input.KeyEqual,
	sdl.K_LEFTBRACKET:  input.KeyLeftBracket,
	sdl.K_BACKSLASH:    input.KeyBackslash,
	sdl.K_RIGHTBRACKET: input.KeyRightBracket,
	sdl.K_BACKQUOTE:    input.KeyGraveAccent,
	sdl.K_ESCAPE:       input.KeyEscape,
	sdl.K_RETURN:       input.KeyEnter,
	sdl.K_TAB:          input.KeyTab,
	sdl.K_BACKSPACE:    input.KeyBackspace,
	sdl.K_INSERT:       input.KeyInsert,
	sdl.K_DELETE:       input.KeyDelete,
	sdl.K_RIGHT:        input.KeyRight,
	sdl.K_LEFT:         input.KeyLeft,
	sdl.K_DOWN:         input.KeyDown,
	sdl.K_UP:           input.KeyUp,
	sdl.K_PAGEUP:       input.KeyPageUp,
	sdl.K_PAGEDOWN:     input.KeyPageDown,
	sdl.K_HOME:         input.KeyHome,
	sdl.K_END:          input.KeyEnd,
	sdl.K_CAPSLOCK:     input.KeyCapsLock,
	sdl.K_F1:           input.KeyF1,
	sdl.K_F12:          input.KeyF12,
	sdl.K_LSHIFT:       input.KeyLeftShift,
	sdl.K_LCTRL:        input.KeyLeftControl,
	sdl.K_LALT:         input.KeyLeftAlt,
	sdl.K_RSHIFT:       input.KeyRightShift,
	sdl.K_RCTRL:        input.KeyRightControl,
	sdl.K_RALT:         input.KeyRightAlt,
}

// sdlKey maps an SDL keycode to a Key. SDL letters are lower case ASCII
// and digits are plain ASCII.
func sdlKey(code sdl.Keycode) input.Key {
	switch {
	case code >= sdl.K_a && code <= sdl.K_z:
		return input.KeyA + input.Key(code-sdl.K_a)
	case code >= sdl.K_0 && code <= sdl.K_9:
		return input.Key0 + input.Key(code-sdl.K_0)
	}
	if key, ok := sdlKeys[code]; ok {
		return key
	}
	return input.KeyUnknown
}

func sdlMouseButton(button uint8) (input.MouseButton, bool) {
	switch button {
	case sdl.BUTTON_LEFT:
		return input.MouseButtonLeft, true
	case sdl.BUTTON_RIGHT:
		return input.MouseButtonRight, true
	case sdl.BUTTON_MIDDLE:
		return input.MouseButtonMiddle, true
	}
	return 0, false
}
