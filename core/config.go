// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gobuffalo/envy"
	"github.com/gobuffalo/packr"
	"github.com/joho/godotenv"
)

// Configuration keys read from the environment.
const (
	KeyAppName           = "KORU_APP_NAME"
	KeyReportPath        = "KORU_REPORT_PATH"
	KeyValidation        = "KORU_VALIDATION"
	KeyAllowIntegrated   = "KORU_ALLOW_INTEGRATED"
	KeyRequiredQueues    = "KORU_REQUIRED_QUEUES"
	KeyWindowBackend     = "KORU_WINDOW_BACKEND"
	KeyWindowTitle       = "KORU_WINDOW_TITLE"
	KeyWindowWidth       = "KORU_WINDOW_WIDTH"
	KeyWindowHeight      = "KORU_WINDOW_HEIGHT"
	KeyWindowFlags       = "KORU_WINDOW_FLAGS"
	KeyFramesPerSecond   = "KORU_FPS"
	KeyEventPollDelay    = "KORU_EVENT_POLL_DELAY"
	KeyLogLevel          = "KORU_LOG_LEVEL"
	KeyLogFormat         = "KORU_LOG_FORMAT"
	defaultsResourceName = "default.env"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	App      AppConfiguration
	Window   WindowConfiguration
	Renderer RendererConfiguration
	Time     TimeConfiguration
	Log      LogConfiguration
}

// AppConfiguration describes the running application.
type AppConfiguration struct {
	Name string

	// ReportPath is where a diagnostic bundle is written when
	// bring-up fails. Empty disables the bundle.
	ReportPath string
}

// WindowConfiguration is used to configure the main window
type WindowConfiguration struct {
	// Backend is either "sdl" or "glfw".
	Backend string
	Title   string
	Width   int
	Height  int

	// Flags is the list of window handle options, like
	// "windowed", "resizable" or "vsync".
	Flags []string
}

// RendererConfiguration is used to configure the render hardware bring-up
type RendererConfiguration struct {
	// Validation requests the validation layers. Defaults to
	// DefaultValidation, which depends on the build mode.
	Validation bool

	// AllowIntegrated lets integrated GPUs through the device score gate.
	AllowIntegrated bool

	// RequiredQueues lists queue kinds that must resolve on top of
	// graphics and present, like "compute" or "transfer".
	RequiredQueues []string
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between event polls in milliseconds
	EventPollDelay int
}

// LogConfiguration is used to configure the engine logger
type LogConfiguration struct {
	Level  string
	Format string
}

// LoadConfiguration builds the engine configuration. Defaults come from the
// embedded resources, then every existing file in files is loaded as a dotenv
// file, and finally the process environment takes precedence over both.
func LoadConfiguration(files ...string) (Configuration, error) {
	defaults, err := defaultValues()
	if err != nil {
		return Configuration{}, err
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return Configuration{}, errors.Wrapf(err, "godotenv.Load(%s)", strings.Join(existing, ", "))
		}
	}
	envy.Reload()

	get := func(key string) string {
		return strings.TrimSpace(envy.Get(key, defaults[key]))
	}

	cfg := Configuration{
		App: AppConfiguration{
			Name:       get(KeyAppName),
			ReportPath: get(KeyReportPath),
		},
		Window: WindowConfiguration{
			Backend: strings.ToLower(get(KeyWindowBackend)),
			Title:   get(KeyWindowTitle),
			Flags:   splitList(get(KeyWindowFlags)),
		},
		Renderer: RendererConfiguration{
			RequiredQueues: splitList(get(KeyRequiredQueues)),
		},
		Log: LogConfiguration{
			Level:  get(KeyLogLevel),
			Format: get(KeyLogFormat),
		},
	}

	if cfg.Renderer.Validation, err = parseBool(KeyValidation, envy.Get(KeyValidation, strconv.FormatBool(DefaultValidation))); err != nil {
		return Configuration{}, err
	}
	if cfg.Renderer.AllowIntegrated, err = parseBool(KeyAllowIntegrated, get(KeyAllowIntegrated)); err != nil {
		return Configuration{}, err
	}
	if cfg.Window.Width, err = parseInt(KeyWindowWidth, get(KeyWindowWidth)); err != nil {
		return Configuration{}, err
	}
	if cfg.Window.Height, err = parseInt(KeyWindowHeight, get(KeyWindowHeight)); err != nil {
		return Configuration{}, err
	}
	if cfg.Time.FramesPerSecond, err = parseInt(KeyFramesPerSecond, get(KeyFramesPerSecond)); err != nil {
		return Configuration{}, err
	}
	if cfg.Time.EventPollDelay, err = parseInt(KeyEventPollDelay, get(KeyEventPollDelay)); err != nil {
		return Configuration{}, err
	}

	return cfg, nil
}

func defaultValues() (map[string]string, error) {
	box := packr.NewBox("./resources")
	raw, err := box.FindString(defaultsResourceName)
	if err != nil {
		return nil, errors.Wrapf(err, "packr.FindString(%s)", defaultsResourceName)
	}
	values, err := godotenv.Unmarshal(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "godotenv.Unmarshal(%s)", defaultsResourceName)
	}
	return values, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, errors.Wrapf(err, "config %s", key)
	}
	return b, nil
}

func parseInt(key, value string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.Wrapf(err, "config %s", key)
	}
	if i < 0 {
		return 0, errors.Newf("config %s: negative value %d", key, i)
	}
	return i, nil
}

func splitList(value string) []string {
	var list []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return list
}
