// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	qt "github.com/frankban/quicktest"

	"github.com/devblok/kryos/core"
	"github.com/devblok/kryos/device"
)

func bringUpConfig(validation bool) core.Configuration {
	return core.Configuration{
		App: core.AppConfiguration{Name: "test"},
		Renderer: core.RendererConfiguration{
			Validation:     validation,
			RequiredQueues: []string{"compute"},
		},
	}
}

func TestNewContext(t *testing.T) {
	c := qt.New(t)

	driver := newFakeDriver(integratedGPU("igpu"), discreteGPU("discrete", 1))
	ctx, _ := newTestContext(t, bringUpConfig(true))

	rhi, err := device.NewContext(ctx, driver, fakeWindow{extensions: windowExtensions})
	c.Assert(err, qt.IsNil)
	c.Assert(rhi.Surface, qt.Equals, fakeSurface)
	c.Assert(rhi.Selected.Properties.Name, qt.Equals, "discrete")
	c.Assert(rhi.Instance.ValidationLayersEnabled(), qt.IsTrue)
	c.Assert(rhi.Queues().Validate(), qt.IsTrue)
	c.Assert(rhi.Queues().Family(device.QueuePresent), qt.Equals, uint32(0))
	c.Assert(driver.instanceInfo.ApplicationName, qt.Equals, "test")

	c.Assert(rhi.Destroy(), qt.IsNil)
	c.Assert(driver.calls, qt.DeepEquals, []string{
		"CreateInstance", "CreateDebugMessenger", "CreateDevice",
		"DestroyDevice", "DestroySurface", "DestroyDebugMessenger", "DestroyInstance",
	})
	c.Assert(rhi.Destroy(), qt.IsNil)
	c.Assert(driver.calls, qt.HasLen, 7)
}

func TestNewContextHeadless(t *testing.T) {
	c := qt.New(t)

	gpu := discreteGPU("discrete", 1)
	gpu.present = nil
	driver := newFakeDriver(gpu)
	ctx, _ := newTestContext(t, bringUpConfig(false))

	rhi, err := device.NewContext(ctx, driver, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(rhi.Surface, qt.Equals, device.NullSurface)
	_, ok := rhi.Queues().Get(device.QueuePresent)
	c.Assert(ok, qt.IsFalse)
	c.Assert(rhi.Destroy(), qt.IsNil)
	c.Assert(driver.calls, qt.DeepEquals, []string{"CreateInstance", "CreateDevice", "DestroyDevice", "DestroyInstance"})
}

func TestNewContextStages(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeDriver, *fakeWindow, *core.Configuration)
		stage device.Stage
		kind  error
		fatal bool
		calls []string
	}{{
		name: "missing extension",
		setup: func(d *fakeDriver, w *fakeWindow, _ *core.Configuration) {
			w.extensions = append(w.extensions, "VK_KHR_wayland_surface")
		},
		stage: device.StageInstance,
		kind:  device.ErrMissingExtension,
		fatal: true,
	}, {
		name: "surface",
		setup: func(d *fakeDriver, w *fakeWindow, _ *core.Configuration) {
			w.surfaceErr = errors.New("SDL_Vulkan_CreateSurface failed")
		},
		stage: device.StageSurface,
		calls: []string{"CreateInstance", "DestroyInstance"},
	}, {
		name: "no device",
		setup: func(d *fakeDriver, _ *fakeWindow, _ *core.Configuration) {
			d.devices = nil
		},
		stage: device.StageDeviceSelection,
		kind:  device.ErrNoSuitableDevice,
		fatal: true,
		calls: []string{"CreateInstance", "DestroySurface", "DestroyInstance"},
	}, {
		name: "device creation",
		setup: func(d *fakeDriver, _ *fakeWindow, _ *core.Configuration) {
			d.createDeviceErr = errors.New("VK_ERROR_DEVICE_LOST")
		},
		stage: device.StageLogicalDevice,
		kind:  device.ErrDeviceCreationFailed,
		fatal: true,
		calls: []string{"CreateInstance", "CreateDevice", "DestroySurface", "DestroyInstance"},
	}, {
		name: "null queues",
		setup: func(d *fakeDriver, _ *fakeWindow, _ *core.Configuration) {
			d.nullQueues = true
		},
		stage: device.StageQueueInitialized,
		kind:  device.ErrQueueResolutionIncomplete,
		calls: []string{"CreateInstance", "CreateDevice", "DestroyDevice", "DestroySurface", "DestroyInstance"},
	}, {
		name: "bad queue kind",
		setup: func(_ *fakeDriver, _ *fakeWindow, cfg *core.Configuration) {
			cfg.Renderer.RequiredQueues = []string{"teleport"}
		},
		stage: device.StageQueueResolution,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			driver := newFakeDriver(discreteGPU("discrete", 1))
			window := fakeWindow{extensions: windowExtensions}
			cfg := bringUpConfig(false)
			tt.setup(driver, &window, &cfg)
			ctx, _ := newTestContext(t, cfg)

			rhi, err := device.NewContext(ctx, driver, window)
			c.Assert(rhi, qt.IsNil)

			stage, ok := device.FailedStage(err)
			c.Assert(ok, qt.IsTrue)
			c.Assert(stage, qt.Equals, tt.stage)
			c.Assert(err, qt.ErrorMatches, string(tt.stage)+": .*")
			if tt.kind != nil {
				c.Assert(errors.Is(err, tt.kind), qt.IsTrue)
			}
			c.Assert(device.IsFatal(err), qt.Equals, tt.fatal)
			c.Assert(driver.calls, qt.DeepEquals, tt.calls)
		})
	}
}

func TestIsFatal(t *testing.T) {
	c := qt.New(t)

	c.Assert(device.IsFatal(nil), qt.IsFalse)
	c.Assert(device.IsFatal(errors.New("other")), qt.IsFalse)
	c.Assert(device.IsFatal(device.ErrMissingValidationLayer), qt.IsFalse)
	c.Assert(device.IsFatal(device.ErrDebugMessengerUnavailable), qt.IsFalse)
	c.Assert(device.IsFatal(device.ErrQueueResolutionIncomplete), qt.IsFalse)
	c.Assert(device.IsFatal(errors.Wrap(device.ErrMissingExtension, "VK_KHR_surface")), qt.IsTrue)
	c.Assert(device.IsFatal(&device.StageError{Stage: device.StageLogicalDevice, Err: device.ErrDeviceCreationFailed}), qt.IsTrue)
}
