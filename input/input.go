// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package input keeps keyboard and mouse state fed by the window backends.
//
// KeyDown and MouseDown report the level state. KeyPressed and MousePressed
// (and their released counterparts) fire once per transition: the first
// query while the state holds returns true and later queries return false
// until the state has been left for at least one frame.
package input

import (
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"github.com/devblok/kryos/core"
)

// RegisterOnceBufferSize is the number of transitions tracked at once.
const RegisterOnceBufferSize = 16

type registered struct {
	kind            Type
	code            int
	pressed         bool
	removeNextFrame bool
}

// State is the input state of one window. It is not safe for concurrent
// use; feed and query it from the main thread.
type State struct {
	log *logrus.Entry

	keys    map[Key]bool
	buttons map[MouseButton]bool
	cursor  glm.Vec2

	regCount int
	regOnce  [RegisterOnceBufferSize]registered
}

// NewState creates an empty input state.
func NewState(ctx *core.Context) *State {
	s := &State{
		log:     ctx.Tagged(core.InputTag),
		keys:    make(map[Key]bool),
		buttons: make(map[MouseButton]bool),
	}
	for i := range s.regOnce {
		s.regOnce[i].kind = TypeUnknown
	}
	return s
}

// SetKey records a key transition.
func (s *State) SetKey(key Key, down bool) {
	s.keys[key] = down
}

// SetMouseButton records a mouse button transition.
func (s *State) SetMouseButton(button MouseButton, down bool) {
	s.buttons[button] = down
}

// SetCursor records the cursor position in window coordinates.
func (s *State) SetCursor(pos glm.Vec2) {
	s.cursor = pos
}

// Cursor returns the last cursor position.
func (s *State) Cursor() glm.Vec2 {
	return s.cursor
}

// KeyDown reports whether key is held.
func (s *State) KeyDown(key Key) bool {
	return s.keys[key]
}

// KeyUp reports whether key is not held.
func (s *State) KeyUp(key Key) bool {
	return !s.keys[key]
}

// KeyPressed reports a key press once.
func (s *State) KeyPressed(key Key) bool {
	return s.KeyDown(key) && s.registerOnce(TypeKeyboard, int(key), true)
}

// KeyReleased reports a key release once.
func (s *State) KeyReleased(key Key) bool {
	return s.KeyUp(key) && s.registerOnce(TypeKeyboard, int(key), false)
}

// MouseDown reports whether button is held.
func (s *State) MouseDown(button MouseButton) bool {
	return s.buttons[button]
}

// MouseUp reports whether button is not held.
func (s *State) MouseUp(button MouseButton) bool {
	return !s.buttons[button]
}

// MousePressed reports a button press once.
func (s *State) MousePressed(button MouseButton) bool {
	return s.MouseDown(button) && s.registerOnce(TypeMouse, int(button), true)
}

// MouseReleased reports a button release once.
func (s *State) MouseReleased(button MouseButton) bool {
	return s.MouseUp(button) && s.registerOnce(TypeMouse, int(button), false)
}

// EndFrame ages the registered transitions. A registration that was not
// queried again during a whole frame is dropped.
func (s *State) EndFrame() {
	counted, total := 0, s.regCount
	for i := range s.regOnce {
		if counted == total {
			break
		}
		reg := &s.regOnce[i]
		if reg.kind == TypeUnknown {
			continue
		}
		counted++

		if !reg.removeNextFrame {
			reg.removeNextFrame = true
		} else {
			reg.kind = TypeUnknown
			s.regCount--
		}
	}
}

func (s *State) registerOnce(kind Type, code int, pressed bool) bool {
	free := -1
	for i := range s.regOnce {
		reg := &s.regOnce[i]
		if reg.kind == TypeUnknown {
			if free == -1 {
				free = i
			}
			continue
		}
		if reg.kind == kind && reg.code == code && reg.pressed == pressed {
			reg.removeNextFrame = false
			return false
		}
	}
	if free == -1 {
		s.log.WithFields(logrus.Fields{
			"type": kind.String(),
			"code": code,
		}).Error("Register once buffer full")
		return false
	}

	s.regOnce[free] = registered{
		kind:    kind,
		code:    code,
		pressed: pressed,
	}
	s.regCount++
	return true
}
