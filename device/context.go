// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/devblok/kryos/core"
	"github.com/loov/hrtime"
	"github.com/sirupsen/logrus"
)

// SurfaceSource is the window system side of the bring-up.
type SurfaceSource interface {
	// RequiredInstanceExtensions returns the instance extensions needed
	// to create a surface for the window.
	RequiredInstanceExtensions() []string

	// CreateSurface creates the window surface on instance.
	CreateSurface(instance InstanceHandle) (Surface, error)
}

// Context is the live render hardware: instance, surface, selected
// physical device and logical device.
type Context struct {
	driver Driver
	log    *logrus.Entry

	Instance *Instance
	Surface  Surface
	Selected Candidate
	Device   *Device
}

// NewContext runs the whole bring-up. When window is nil no surface is
// created and present support is not required. Failures are returned as
// *StageError, and everything created up to the failure is destroyed.
func NewContext(ctx *core.Context, driver Driver, window SurfaceSource) (*Context, error) {
	c := &Context{
		driver: driver,
		log:    ctx.Vulkan(),
	}
	cfg := ctx.Config

	required, err := ParseQueueKinds(cfg.Renderer.RequiredQueues)
	if err != nil {
		return nil, &StageError{Stage: StageQueueResolution, Err: errors.Wrapf(err, "config %s", core.KeyRequiredQueues)}
	}

	var windowExtensions []string
	if window != nil {
		windowExtensions = window.RequiredInstanceExtensions()
	}

	start := hrtime.Now()
	c.Instance, err = NewInstance(ctx, driver, InstanceConfiguration{
		ApplicationName:  cfg.App.Name,
		Validation:       cfg.Renderer.Validation,
		WindowExtensions: windowExtensions,
	})
	if err != nil {
		return nil, &StageError{Stage: StageInstance, Err: err}
	}
	c.timed(StageInstance, start)

	if window != nil {
		start = hrtime.Now()
		c.Surface, err = window.CreateSurface(c.Instance.Handle())
		if err != nil {
			c.Destroy()
			return nil, &StageError{Stage: StageSurface, Err: errors.Wrap(err, "create surface")}
		}
		c.timed(StageSurface, start)
	}

	start = hrtime.Now()
	selector := NewSelector(ctx, driver, SelectionConfiguration{
		AllowIntegrated: cfg.Renderer.AllowIntegrated,
		RequiredQueues:  required,
	})
	candidate, families, err := selector.Pick(selector.Candidates(c.Instance.Handle()), c.Surface)
	if err != nil {
		c.Destroy()
		return nil, &StageError{Stage: StageDeviceSelection, Err: err}
	}
	c.Selected = candidate
	c.timed(StageDeviceSelection, start)

	probe := NewProbe(ctx, driver)
	if missing := Missing(RequiredDeviceExtensions(), probe.DeviceExtensions(candidate.Handle)); len(missing) > 0 {
		c.log.WithField("missing", missing).Warn("Selected device lacks extensions needed for presentation")
	}

	start = hrtime.Now()
	c.Device, err = NewDevice(ctx, driver, c.Instance, candidate, families)
	if err != nil {
		c.Destroy()
		return nil, &StageError{Stage: StageLogicalDevice, Err: err}
	}
	c.timed(StageLogicalDevice, start)

	if !c.Device.Queues().Validate() {
		c.Destroy()
		return nil, &StageError{
			Stage: StageQueueInitialized,
			Err:   errors.Wrap(ErrQueueResolutionIncomplete, "device returned null queues"),
		}
	}

	return c, nil
}

func (c *Context) timed(stage Stage, start time.Duration) {
	c.log.WithFields(logrus.Fields{
		core.StageField: string(stage),
		"elapsed":       hrtime.Since(start).String(),
	}).Debug("Stage complete")
}

// Queues returns the live queue families of the logical device.
func (c *Context) Queues() QueueFamilies {
	if c.Device == nil {
		return QueueFamilies{}
	}
	return c.Device.Queues()
}

// Destroy tears down in reverse creation order: device, surface, then
// the instance with its debug messenger.
func (c *Context) Destroy() error {
	if c.Device != nil {
		c.Device.Destroy()
		c.Device = nil
	}
	if c.Instance == nil {
		return nil
	}
	if c.Surface != NullSurface {
		c.driver.DestroySurface(c.Instance.Handle(), c.Surface)
		c.Surface = NullSurface
	}
	err := c.Instance.Destroy()
	c.Instance = nil
	return err
}
