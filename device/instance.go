// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/devblok/kryos/core"
	"github.com/sirupsen/logrus"
)

// EngineName is reported to the driver as the engine name.
const EngineName = "Kryos Engine"

// InstanceConfiguration is the input of NewInstance.
type InstanceConfiguration struct {
	ApplicationName string

	// Validation requests the validation layers and the debug messenger.
	// It is dropped when the layers are not installed.
	Validation bool

	// WindowExtensions are the instance extensions the window system
	// needs to create a surface.
	WindowExtensions []string

	// GOOS selects the platform extensions, runtime.GOOS when empty.
	GOOS string
}

// Instance owns the driver instance and, when validation is enabled,
// the debug messenger.
type Instance struct {
	driver Driver
	log    *logrus.Entry

	handle     InstanceHandle
	messenger  DebugMessenger
	validation bool
	extensions []string
	layers     []string
	destroyed  bool
}

// DebugMessengerConfiguration returns the messenger filter used on
// instance creation and for the persistent messenger.
func DebugMessengerConfiguration(callback func(DebugMessage)) DebugMessengerConfig {
	return DebugMessengerConfig{
		Severities: SeverityVerbose | SeverityWarning | SeverityError,
		Types:      MessageGeneral | MessageValidation | MessagePerformance,
		Callback:   callback,
	}
}

// NewInstance negotiates extensions and layers with the host and creates
// the instance. A missing extension fails before the driver is asked to
// create anything. Missing validation layers only disable validation.
func NewInstance(ctx *core.Context, driver Driver, cfg InstanceConfiguration) (*Instance, error) {
	log := ctx.Vulkan()
	probe := NewProbe(ctx, driver)

	goos := cfg.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	validation := cfg.Validation
	var layers []string
	if validation {
		layers = RequiredValidationLayers()
		if missing := Missing(layers, probe.ValidationLayers()); len(missing) > 0 {
			log.WithError(errors.Wrapf(ErrMissingValidationLayer, "%s", strings.Join(missing, ", "))).
				Warn("Validation layers are disabled: not all required layers are available")
			validation = false
			layers = nil
		}
	}

	extensions := probe.RequiredInstanceExtensions(cfg.WindowExtensions, goos, validation)
	if missing := Missing(extensions, probe.InstanceExtensions()); len(missing) > 0 {
		err := errors.Wrapf(ErrMissingExtension, "%s", strings.Join(missing, ", "))
		return nil, errors.WithHint(err, "install a Vulkan driver and loader that provide the listed instance extensions")
	}

	inst := &Instance{
		driver:     driver,
		log:        log,
		validation: validation,
		extensions: extensions,
		layers:     layers,
	}

	info := InstanceCreateInfo{
		ApplicationName:    cfg.ApplicationName,
		ApplicationVersion: MakeVersion(1, 0, 0),
		EngineName:         EngineName,
		EngineVersion:      MakeVersion(1, 0, 0),
		APIVersion:         MakeVersion(1, 0, 0),
		Extensions:         extensions,
		Layers:             layers,
	}
	if validation {
		debug := DebugMessengerConfiguration(inst.debugMessage)
		info.Debug = &debug
	}

	handle, err := driver.CreateInstance(info)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "create instance"), ErrInstanceCreationFailed)
	}
	inst.handle = handle

	if validation {
		messenger, err := driver.CreateDebugMessenger(handle, DebugMessengerConfiguration(inst.debugMessage))
		if err != nil {
			log.WithError(errors.Mark(err, ErrDebugMessengerUnavailable)).
				Warn("Validation enabled without a debug messenger")
		} else {
			inst.messenger = messenger
		}
	}

	log.WithFields(logrus.Fields{
		"extensions": strings.Join(extensions, ","),
		"validation": validation,
	}).Debug("Instance created")

	return inst, nil
}

// Handle returns the driver instance handle.
func (i *Instance) Handle() InstanceHandle {
	return i.handle
}

// ValidationLayersEnabled reports whether the instance was created with
// the validation layers.
func (i *Instance) ValidationLayersEnabled() bool {
	return i.validation
}

// DebugMessengerActive reports whether the persistent debug messenger exists.
func (i *Instance) DebugMessengerActive() bool {
	return i.messenger != 0
}

// Extensions returns the enabled instance extensions.
func (i *Instance) Extensions() []string {
	return i.extensions
}

// Layers returns the enabled instance layers.
func (i *Instance) Layers() []string {
	return i.layers
}

// Destroy destroys the debug messenger, then the instance. A messenger
// that cannot be destroyed is reported but does not keep the instance
// alive. Calls after the first do nothing.
func (i *Instance) Destroy() error {
	if i.destroyed {
		return nil
	}
	i.destroyed = true

	var err error
	if i.messenger != 0 {
		if derr := i.driver.DestroyDebugMessenger(i.handle, i.messenger); derr != nil {
			err = errors.Mark(errors.Wrap(derr, "destroy debug messenger"), ErrDebugMessengerUnavailable)
			i.log.WithError(err).Error("Failed to destroy debug messenger")
		}
		i.messenger = 0
	}

	i.driver.DestroyInstance(i.handle)
	i.handle = 0
	return err
}

func (i *Instance) debugMessage(msg DebugMessage) {
	entry := i.log.WithFields(logrus.Fields{
		"type":  msg.Type.String(),
		"layer": msg.Layer,
		"code":  msg.Code,
	})
	switch {
	case msg.Severity&SeverityError != 0:
		entry.Error(msg.Text)
	case msg.Severity&SeverityWarning != 0:
		entry.Warn(msg.Text)
	case msg.Severity&SeverityInfo != 0:
		entry.Info(msg.Text)
	default:
		entry.Debug(msg.Text)
	}
}
