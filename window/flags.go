// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package window

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Flags are window handle options.
type Flags int

// Window handle options
const (
	FlagNone              Flags = 0
	FlagWindowed          Flags = 1 << 0
	FlagBorderless        Flags = 1 << 1
	FlagFullscreen        Flags = 1 << 2
	FlagVSync             Flags = 1 << 3
	FlagResizable         Flags = 1 << 4
	FlagTransparentBuffer Flags = 1 << 5
)

// DefaultFlags is a resizable vsync window.
const DefaultFlags = FlagResizable | FlagVSync | FlagWindowed

var flagNames = map[string]Flags{
	"windowed":    FlagWindowed,
	"borderless":  FlagBorderless,
	"fullscreen":  FlagFullscreen,
	"vsync":       FlagVSync,
	"resizable":   FlagResizable,
	"transparent": FlagTransparentBuffer,
}

// ParseFlags parses a list of flag names. An empty list gives DefaultFlags.
func ParseFlags(names []string) (Flags, error) {
	if len(names) == 0 {
		return DefaultFlags, nil
	}
	var f Flags
	for _, name := range names {
		flag, ok := flagNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return FlagNone, errors.Newf("unknown window flag %q", name)
		}
		f |= flag
	}
	if f.Has(FlagWindowed) && f.Has(FlagFullscreen) {
		return FlagNone, errors.New("window flags windowed and fullscreen are exclusive")
	}
	return f, nil
}

// Flags each backend turns into window system options. FlagVSync belongs
// to the swapchain present mode and no window system applies it.
const (
	sdlAppliedFlags  = FlagWindowed | FlagBorderless | FlagFullscreen | FlagResizable
	glfwAppliedFlags = sdlAppliedFlags | FlagTransparentBuffer
)

// Unapplied returns the flags of f outside applied.
func (f Flags) Unapplied(applied Flags) Flags {
	return f &^ applied
}

// Has reports whether every bit of flag is set.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

func (f Flags) String() string {
	var names []string
	for name, flag := range flagNames {
		if f.Has(flag) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
