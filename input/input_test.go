// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package input_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/devblok/kryos/core"
	"github.com/devblok/kryos/input"
)

func newState(t *testing.T) (*input.State, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return input.NewState(core.NewContextWithLogger(core.Configuration{}, logger)), hook
}

func TestKeyLevelState(t *testing.T) {
	c := qt.New(t)
	s, _ := newState(t)

	c.Assert(s.KeyDown(input.KeyA), qt.IsFalse)
	c.Assert(s.KeyUp(input.KeyA), qt.IsTrue)

	s.SetKey(input.KeyA, true)
	c.Assert(s.KeyDown(input.KeyA), qt.IsTrue)
	c.Assert(s.KeyUp(input.KeyA), qt.IsFalse)
	c.Assert(s.KeyDown(input.KeyB), qt.IsFalse)
}

func TestKeyPressedFiresOnce(t *testing.T) {
	c := qt.New(t)
	s, _ := newState(t)

	s.SetKey(input.KeySpace, true)
	c.Assert(s.KeyPressed(input.KeySpace), qt.IsTrue)
	c.Assert(s.KeyPressed(input.KeySpace), qt.IsFalse)

	// Held and queried every frame: stays registered.
	for i := 0; i < 5; i++ {
		s.EndFrame()
		c.Assert(s.KeyPressed(input.KeySpace), qt.IsFalse)
	}

	s.SetKey(input.KeySpace, false)
	c.Assert(s.KeyPressed(input.KeySpace), qt.IsFalse)
	s.EndFrame()
	s.EndFrame()

	s.SetKey(input.KeySpace, true)
	c.Assert(s.KeyPressed(input.KeySpace), qt.IsTrue)
}

func TestKeyReleasedFiresOnce(t *testing.T) {
	c := qt.New(t)
	s, _ := newState(t)

	s.SetKey(input.KeyEscape, true)
	c.Assert(s.KeyReleased(input.KeyEscape), qt.IsFalse)

	s.SetKey(input.KeyEscape, false)
	c.Assert(s.KeyReleased(input.KeyEscape), qt.IsTrue)
	c.Assert(s.KeyReleased(input.KeyEscape), qt.IsFalse)
}

func TestPressAndReleaseAreSeparate(t *testing.T) {
	c := qt.New(t)
	s, _ := newState(t)

	s.SetMouseButton(input.MouseButtonLeft, true)
	c.Assert(s.MousePressed(input.MouseButtonLeft), qt.IsTrue)
	s.SetMouseButton(input.MouseButtonLeft, false)
	c.Assert(s.MouseReleased(input.MouseButtonLeft), qt.IsTrue)
	c.Assert(s.MouseReleased(input.MouseButtonLeft), qt.IsFalse)
	c.Assert(s.MouseUp(input.MouseButtonLeft), qt.IsTrue)

	// Keyboard and mouse codes do not collide.
	s.SetKey(input.Key(input.MouseButtonLeft), false)
	c.Assert(s.KeyReleased(input.Key(input.MouseButtonLeft)), qt.IsTrue)
}

func TestEndFrameAgesEveryEntry(t *testing.T) {
	c := qt.New(t)
	s, _ := newState(t)

	keys := []input.Key{input.KeyA, input.KeyB, input.KeyC}
	for _, k := range keys {
		s.SetKey(k, true)
		c.Assert(s.KeyPressed(k), qt.IsTrue)
	}

	s.EndFrame()
	s.EndFrame()

	for _, k := range keys {
		c.Assert(s.KeyPressed(k), qt.IsTrue)
	}
}

func TestRegisterOnceBufferFull(t *testing.T) {
	c := qt.New(t)
	s, hook := newState(t)

	for i := 0; i < input.RegisterOnceBufferSize; i++ {
		k := input.KeyA + input.Key(i)
		s.SetKey(k, true)
		c.Assert(s.KeyPressed(k), qt.IsTrue)
	}

	s.SetKey(input.KeyZ, true)
	c.Assert(s.KeyPressed(input.KeyZ), qt.IsFalse)

	entry := hook.LastEntry()
	c.Assert(entry, qt.Not(qt.IsNil))
	c.Assert(entry.Level, qt.Equals, logrus.ErrorLevel)
	c.Assert(entry.Data[core.ContextField], qt.Equals, core.InputTag)
	c.Assert(entry.Data["type"], qt.Equals, "Keyboard")

	// Two frames without queries free the buffer.
	s.EndFrame()
	s.EndFrame()
	c.Assert(s.KeyPressed(input.KeyZ), qt.IsTrue)
}

func TestCursor(t *testing.T) {
	c := qt.New(t)
	s, _ := newState(t)

	c.Assert(s.Cursor(), qt.Equals, glm.Vec2{})
	s.SetCursor(glm.Vec2{12.5, 40})
	c.Assert(s.Cursor(), qt.Equals, glm.Vec2{12.5, 40})
}

func TestTypeString(t *testing.T) {
	c := qt.New(t)
	c.Assert(input.TypeKeyboard.String(), qt.Equals, "Keyboard")
	c.Assert(input.TypeMouse.String(), qt.Equals, "Mouse")
	c.Assert(input.TypeGamepad.String(), qt.Equals, "Game Pad")
	c.Assert(input.TypeUnknown.String(), qt.Equals, "Unknown")
}
