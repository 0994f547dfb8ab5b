// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"

	"github.com/devblok/kryos/core"
	"github.com/devblok/kryos/device"
)

func pick(t testing.TB, driver *fakeDriver, cfg device.SelectionConfiguration, surface device.Surface) (device.Candidate, device.QueueFamilies, error) {
	ctx, _ := newTestContext(t, core.Configuration{})
	selector := device.NewSelector(ctx, driver, cfg)
	return selector.Pick(selector.Candidates(fakeInstance), surface)
}

func TestPickSingleDiscreteGPU(t *testing.T) {
	c := qt.New(t)

	driver := newFakeDriver(discreteGPU("discrete", 1))
	candidate, queues, err := pick(t, driver, device.SelectionConfiguration{}, fakeSurface)
	c.Assert(err, qt.IsNil)
	c.Assert(candidate.Handle, qt.Equals, device.PhysicalDevice(1))
	c.Assert(candidate.Properties.Name, qt.Equals, "discrete")
	c.Assert(queues.Family(device.QueueGraphics), qt.Equals, uint32(0))
	c.Assert(queues.Family(device.QueuePresent), qt.Equals, uint32(0))
}

func TestPickNoDevices(t *testing.T) {
	c := qt.New(t)

	_, _, err := pick(t, newFakeDriver(), device.SelectionConfiguration{}, fakeSurface)
	c.Assert(errors.Is(err, device.ErrNoSuitableDevice), qt.IsTrue)
	c.Assert(device.IsFatal(err), qt.IsTrue)
}

func TestPickEnumerationFailure(t *testing.T) {
	c := qt.New(t)

	driver := newFakeDriver(discreteGPU("discrete", 1))
	driver.devicesErr = errors.New("VK_ERROR_INITIALIZATION_FAILED")
	_, _, err := pick(t, driver, device.SelectionConfiguration{}, fakeSurface)
	c.Assert(errors.Is(err, device.ErrNoSuitableDevice), qt.IsTrue)
}

func TestPickIsIdempotent(t *testing.T) {
	c := qt.New(t)

	driver := newFakeDriver(
		discreteGPU("small", 10),
		integratedGPU("igpu"),
		discreteGPU("large", 20),
	)
	ctx, _ := newTestContext(t, core.Configuration{})
	selector := device.NewSelector(ctx, driver, device.SelectionConfiguration{})
	candidates := selector.Candidates(fakeInstance)

	first, firstQueues, err := selector.Pick(candidates, fakeSurface)
	c.Assert(err, qt.IsNil)
	second, secondQueues, err := selector.Pick(candidates, fakeSurface)
	c.Assert(err, qt.IsNil)

	c.Assert(second, qt.Equals, first)
	c.Assert(secondQueues.Strings(), qt.DeepEquals, firstQueues.Strings())
	c.Assert(secondQueues.Required(), qt.DeepEquals, firstQueues.Required())
}

func TestPickHigherLimitsWin(t *testing.T) {
	c := qt.New(t)

	for _, order := range [][]fakePhysicalDevice{
		{discreteGPU("A", 2000), discreteGPU("B", 1000)},
		{discreteGPU("B", 1000), discreteGPU("A", 2000)},
	} {
		candidate, _, err := pick(t, newFakeDriver(order...), device.SelectionConfiguration{}, fakeSurface)
		c.Assert(err, qt.IsNil)
		c.Assert(candidate.Properties.Name, qt.Equals, "A")
	}
}

func TestPickEarliestWinsTies(t *testing.T) {
	c := qt.New(t)

	candidate, _, err := pick(t, newFakeDriver(discreteGPU("first", 5), discreteGPU("second", 5)), device.SelectionConfiguration{}, fakeSurface)
	c.Assert(err, qt.IsNil)
	c.Assert(candidate.Properties.Name, qt.Equals, "first")
}

func TestPickFeatureGate(t *testing.T) {
	c := qt.New(t)

	bare := discreteGPU("bare", 100000)
	bare.features = device.PhysicalDeviceFeatures{SamplerAnisotropy: true}
	sparseOnly := discreteGPU("sparse", 1)
	sparseOnly.features = device.PhysicalDeviceFeatures{SparseBinding: true}

	candidate, _, err := pick(t, newFakeDriver(bare, sparseOnly), device.SelectionConfiguration{}, fakeSurface)
	c.Assert(err, qt.IsNil)
	c.Assert(candidate.Properties.Name, qt.Equals, "sparse")

	_, _, err = pick(t, newFakeDriver(bare), device.SelectionConfiguration{}, fakeSurface)
	c.Assert(errors.Is(err, device.ErrNoSuitableDevice), qt.IsTrue)
}

func TestPickRejectsIncompleteQueues(t *testing.T) {
	c := qt.New(t)

	noPresent := discreteGPU("no present", 100000)
	noPresent.present = nil

	candidate, queues, err := pick(t, newFakeDriver(noPresent, discreteGPU("present", 1)), device.SelectionConfiguration{}, fakeSurface)
	c.Assert(err, qt.IsNil)
	c.Assert(candidate.Properties.Name, qt.Equals, "present")
	c.Assert(queues.ValidateIndices(), qt.IsTrue)

	// Without a surface present support is not needed.
	candidate, _, err = pick(t, newFakeDriver(noPresent, discreteGPU("present", 1)), device.SelectionConfiguration{}, device.NullSurface)
	c.Assert(err, qt.IsNil)
	c.Assert(candidate.Properties.Name, qt.Equals, "no present")
}

func TestPickRequiredQueues(t *testing.T) {
	c := qt.New(t)

	graphicsOnly := discreteGPU("graphics only", 100000)
	graphicsOnly.families = []device.QueueFamilyProperties{{Flags: device.QueueGraphicsBit, Count: 1}}

	cfg := device.SelectionConfiguration{RequiredQueues: []device.QueueKind{device.QueueCompute}}
	candidate, queues, err := pick(t, newFakeDriver(graphicsOnly, discreteGPU("full", 1)), cfg, fakeSurface)
	c.Assert(err, qt.IsNil)
	c.Assert(candidate.Properties.Name, qt.Equals, "full")
	c.Assert(queues.Family(device.QueueCompute), qt.Equals, uint32(0))
}

func TestPickIntegratedOnly(t *testing.T) {
	c := qt.New(t)

	ctx, hook := newTestContext(t, core.Configuration{})
	selector := device.NewSelector(ctx, newFakeDriver(integratedGPU("igpu")), device.SelectionConfiguration{})
	_, _, err := selector.Pick(selector.Candidates(fakeInstance), fakeSurface)
	c.Assert(errors.Is(err, device.ErrNoSuitableDevice), qt.IsTrue)
	c.Assert(errors.FlattenHints(err), qt.Contains, core.KeyAllowIntegrated)

	warnings := entriesAt(hook, logrus.WarnLevel)
	c.Assert(warnings, qt.HasLen, 1)
	c.Assert(warnings[0].Message, qt.Contains, core.KeyAllowIntegrated)
}

func TestPickAllowIntegrated(t *testing.T) {
	c := qt.New(t)

	other := discreteGPU("cpu", 100000)
	other.props.Type = device.PhysicalDeviceTypeCPU

	cfg := device.SelectionConfiguration{AllowIntegrated: true}
	candidate, _, err := pick(t, newFakeDriver(other, integratedGPU("igpu")), cfg, fakeSurface)
	c.Assert(err, qt.IsNil)
	c.Assert(candidate.Properties.Name, qt.Equals, "igpu")

	// Discrete base 1000 plus 3*8192 beats integrated base 10 plus 3*4096.
	candidate, _, err = pick(t, newFakeDriver(integratedGPU("igpu"), discreteGPU("discrete", 8192)), cfg, fakeSurface)
	c.Assert(err, qt.IsNil)
	c.Assert(candidate.Properties.Name, qt.Equals, "discrete")
}

func TestPickIntegratedWithDominantLimits(t *testing.T) {
	c := qt.New(t)

	weak := discreteGPU("discrete", 1)
	c.Assert(device.Score(device.Candidate{Properties: weak.props}), qt.Equals, uint64(1003))
	c.Assert(device.Score(device.Candidate{Properties: integratedGPU("igpu").props}), qt.Equals, uint64(12298))

	cfg := device.SelectionConfiguration{AllowIntegrated: true}
	candidate, _, err := pick(t, newFakeDriver(weak, integratedGPU("igpu")), cfg, fakeSurface)
	c.Assert(err, qt.IsNil)
	c.Assert(candidate.Properties.Name, qt.Equals, "igpu")
}

func TestPickPresentQueueWithoutSurface(t *testing.T) {
	c := qt.New(t)

	cfg := device.SelectionConfiguration{RequiredQueues: []device.QueueKind{device.QueuePresent}}
	candidate, queues, err := pick(t, newFakeDriver(discreteGPU("gpu", 1)), cfg, device.NullSurface)
	c.Assert(err, qt.IsNil)
	c.Assert(candidate.Properties.Name, qt.Equals, "gpu")
	c.Assert(queues.Required(), qt.DeepEquals, []device.QueueKind{device.QueueGraphics})
}

func TestScore(t *testing.T) {
	c := qt.New(t)

	c.Assert(device.BaseScore(device.PhysicalDeviceTypeDiscreteGPU), qt.Equals, device.DiscreteScore)
	c.Assert(device.BaseScore(device.PhysicalDeviceTypeIntegratedGPU), qt.Equals, device.IntegratedScore)
	c.Assert(device.BaseScore(device.PhysicalDeviceTypeVirtualGPU), qt.Equals, uint64(0))

	gpu := discreteGPU("gpu", 0)
	gpu.props.Limits = device.PhysicalDeviceLimits{
		MaxImageDimension2D:      16384,
		MaxUniformBufferRange:    ^uint32(0),
		MaxMemoryAllocationCount: 4096,
	}
	score := device.Score(device.Candidate{Properties: gpu.props})
	c.Assert(score, qt.Equals, uint64(1000+16384+4096)+uint64(^uint32(0)))
}
