// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package window

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/kryos/input"
)

func TestParseFlags(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		names []string
		want  Flags
		err   string
	}{
		{names: nil, want: DefaultFlags},
		{names: []string{"windowed"}, want: FlagWindowed},
		{names: []string{" Borderless ", "VSYNC"}, want: FlagBorderless | FlagVSync},
		{names: []string{"fullscreen", "transparent"}, want: FlagFullscreen | FlagTransparentBuffer},
		{names: []string{"windowed", "fullscreen"}, err: "window flags windowed and fullscreen are exclusive"},
		{names: []string{"maximized"}, err: `unknown window flag "maximized"`},
	}

	for _, test := range tests {
		flags, err := ParseFlags(test.names)
		if test.err != "" {
			c.Assert(err, qt.ErrorMatches, test.err, qt.Commentf("%v", test.names))
			c.Assert(flags, qt.Equals, FlagNone)
			continue
		}
		c.Assert(err, qt.IsNil, qt.Commentf("%v", test.names))
		c.Assert(flags, qt.Equals, test.want, qt.Commentf("%v", test.names))
	}
}

func TestFlagsString(t *testing.T) {
	c := qt.New(t)
	c.Assert(FlagNone.String(), qt.Equals, "none")
	c.Assert(DefaultFlags.String(), qt.Equals, "resizable,vsync,windowed")
	c.Assert(FlagBorderless.Has(FlagBorderless|FlagVSync), qt.IsFalse)
}

func TestSDLWindowFlags(t *testing.T) {
	c := qt.New(t)

	f := sdlWindowFlags(FlagWindowed)
	c.Assert(f&sdl.WINDOW_VULKAN, qt.Not(qt.Equals), uint32(0))
	c.Assert(f&sdl.WINDOW_RESIZABLE, qt.Equals, uint32(0))

	f = sdlWindowFlags(FlagFullscreen | FlagBorderless | FlagResizable)
	c.Assert(f&sdl.WINDOW_FULLSCREEN, qt.Not(qt.Equals), uint32(0))
	c.Assert(f&sdl.WINDOW_BORDERLESS, qt.Not(qt.Equals), uint32(0))
	c.Assert(f&sdl.WINDOW_RESIZABLE, qt.Not(qt.Equals), uint32(0))
}

func TestUnappliedFlags(t *testing.T) {
	c := qt.New(t)

	c.Assert(DefaultFlags.Unapplied(sdlAppliedFlags), qt.Equals, FlagVSync)
	c.Assert(DefaultFlags.Unapplied(glfwAppliedFlags), qt.Equals, FlagVSync)
	c.Assert((FlagTransparentBuffer | FlagBorderless).Unapplied(sdlAppliedFlags), qt.Equals, FlagTransparentBuffer)
	c.Assert((FlagTransparentBuffer | FlagBorderless).Unapplied(glfwAppliedFlags), qt.Equals, FlagNone)

	// Flags left unapplied do not leak into the SDL window flags.
	c.Assert(sdlWindowFlags(FlagVSync|FlagTransparentBuffer), qt.Equals, uint32(sdl.WINDOW_VULKAN))
}

func TestSDLKey(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		code sdl.Keycode
		want input.Key
	}{
		{sdl.K_a, input.KeyA},
		{sdl.K_z, input.KeyZ},
		{sdl.K_0, input.Key0},
		{sdl.K_9, input.Key9},
		{sdl.K_ESCAPE, input.KeyEscape},
		{sdl.K_RETURN, input.KeyEnter},
		{sdl.K_SPACE, input.KeySpace},
		{sdl.K_LSHIFT, input.KeyLeftShift},
		{sdl.K_F5, input.KeyUnknown},
	}
	for _, test := range tests {
		c.Assert(sdlKey(test.code), qt.Equals, test.want, qt.Commentf("keycode %d", test.code))
	}
}

func TestSDLMouseButton(t *testing.T) {
	c := qt.New(t)

	b, ok := sdlMouseButton(sdl.BUTTON_RIGHT)
	c.Assert(ok, qt.IsTrue)
	c.Assert(b, qt.Equals, input.MouseButtonRight)

	_, ok = sdlMouseButton(sdl.BUTTON_X1)
	c.Assert(ok, qt.IsFalse)
}
