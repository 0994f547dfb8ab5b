// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device_test

import (
	"fmt"
	"testing"

	"github.com/devblok/kryos/core"
	"github.com/devblok/kryos/device"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const (
	fakeInstance  device.InstanceHandle = 100
	fakeMessenger device.DebugMessenger = 300
	fakeDevice    device.DeviceHandle   = 200
	fakeSurface   device.Surface        = 400
	fakeQueueBase device.Queue          = 1000
)

type fakePhysicalDevice struct {
	props      device.PhysicalDeviceProperties
	features   device.PhysicalDeviceFeatures
	families   []device.QueueFamilyProperties
	present    map[uint32]bool
	extensions []string
	layers     []string
	memory     uint64
}

// fakeDriver records every create and destroy call in order.
type fakeDriver struct {
	instanceExtensions []string
	instanceLayers     []string
	extensionsErr      error
	layersErr          error
	devices            []fakePhysicalDevice
	devicesErr         error
	surfaceErr         error

	createInstanceErr   error
	createMessengerErr  error
	destroyMessengerErr error
	createDeviceErr     error
	nullQueues          bool

	calls           []string
	instanceInfo    *device.InstanceCreateInfo
	messengerConfig *device.DebugMessengerConfig
	deviceInfo      *device.DeviceCreateInfo
	queueRequests   map[uint32]uint32
}

func (f *fakeDriver) device(pd device.PhysicalDevice) fakePhysicalDevice {
	return f.devices[int(pd)-1]
}

func (f *fakeDriver) InstanceExtensions() ([]string, error) {
	return f.instanceExtensions, f.extensionsErr
}

func (f *fakeDriver) InstanceLayers() ([]string, error) {
	return f.instanceLayers, f.layersErr
}

func (f *fakeDriver) DebugExtension() string {
	return device.DebugUtilsExtension
}

func (f *fakeDriver) CreateInstance(info device.InstanceCreateInfo) (device.InstanceHandle, error) {
	f.calls = append(f.calls, "CreateInstance")
	f.instanceInfo = &info
	if f.createInstanceErr != nil {
		return 0, f.createInstanceErr
	}
	return fakeInstance, nil
}

func (f *fakeDriver) DestroyInstance(device.InstanceHandle) {
	f.calls = append(f.calls, "DestroyInstance")
}

func (f *fakeDriver) CreateDebugMessenger(_ device.InstanceHandle, cfg device.DebugMessengerConfig) (device.DebugMessenger, error) {
	f.calls = append(f.calls, "CreateDebugMessenger")
	f.messengerConfig = &cfg
	if f.createMessengerErr != nil {
		return 0, f.createMessengerErr
	}
	return fakeMessenger, nil
}

func (f *fakeDriver) DestroyDebugMessenger(device.InstanceHandle, device.DebugMessenger) error {
	f.calls = append(f.calls, "DestroyDebugMessenger")
	return f.destroyMessengerErr
}

func (f *fakeDriver) DestroySurface(device.InstanceHandle, device.Surface) {
	f.calls = append(f.calls, "DestroySurface")
}

func (f *fakeDriver) PhysicalDevices(device.InstanceHandle) ([]device.PhysicalDevice, error) {
	if f.devicesErr != nil {
		return nil, f.devicesErr
	}
	handles := make([]device.PhysicalDevice, len(f.devices))
	for i := range f.devices {
		handles[i] = device.PhysicalDevice(i + 1)
	}
	return handles, nil
}

func (f *fakeDriver) Properties(pd device.PhysicalDevice) device.PhysicalDeviceProperties {
	return f.device(pd).props
}

func (f *fakeDriver) Features(pd device.PhysicalDevice) device.PhysicalDeviceFeatures {
	return f.device(pd).features
}

func (f *fakeDriver) MemorySize(pd device.PhysicalDevice) uint64 {
	return f.device(pd).memory
}

func (f *fakeDriver) QueueFamilyProperties(pd device.PhysicalDevice) []device.QueueFamilyProperties {
	return f.device(pd).families
}

func (f *fakeDriver) SurfaceSupport(pd device.PhysicalDevice, family uint32, _ device.Surface) (bool, error) {
	if f.surfaceErr != nil {
		return false, f.surfaceErr
	}
	return f.device(pd).present[family], nil
}

func (f *fakeDriver) DeviceExtensions(pd device.PhysicalDevice) ([]string, error) {
	return f.device(pd).extensions, nil
}

func (f *fakeDriver) DeviceLayers(pd device.PhysicalDevice) ([]string, error) {
	return f.device(pd).layers, nil
}

func (f *fakeDriver) CreateDevice(_ device.PhysicalDevice, info device.DeviceCreateInfo) (device.DeviceHandle, error) {
	f.calls = append(f.calls, "CreateDevice")
	f.deviceInfo = &info
	if f.createDeviceErr != nil {
		return 0, f.createDeviceErr
	}
	return fakeDevice, nil
}

func (f *fakeDriver) DestroyDevice(device.DeviceHandle) {
	f.calls = append(f.calls, "DestroyDevice")
}

func (f *fakeDriver) DeviceQueue(_ device.DeviceHandle, family, index uint32) device.Queue {
	if f.queueRequests == nil {
		f.queueRequests = make(map[uint32]uint32)
	}
	f.queueRequests[family] = index
	if f.nullQueues {
		return 0
	}
	return fakeQueueBase + device.Queue(family)
}

func discreteGPU(name string, limits uint32) fakePhysicalDevice {
	return fakePhysicalDevice{
		props: device.PhysicalDeviceProperties{
			Name: name,
			Type: device.PhysicalDeviceTypeDiscreteGPU,
			Limits: device.PhysicalDeviceLimits{
				MaxImageDimension2D:      limits,
				MaxUniformBufferRange:    limits,
				MaxMemoryAllocationCount: limits,
			},
		},
		features: device.PhysicalDeviceFeatures{
			GeometryShader: true,
			SparseBinding:  true,
		},
		families: []device.QueueFamilyProperties{
			{Flags: device.QueueGraphicsBit | device.QueueComputeBit | device.QueueTransferBit, Count: 16},
		},
		present:    map[uint32]bool{0: true},
		extensions: []string{device.SwapchainExtension},
		memory:     8 << 30,
	}
}

func integratedGPU(name string) fakePhysicalDevice {
	gpu := discreteGPU(name, 4096)
	gpu.props.Type = device.PhysicalDeviceTypeIntegratedGPU
	return gpu
}

func newFakeDriver(devices ...fakePhysicalDevice) *fakeDriver {
	return &fakeDriver{
		instanceExtensions: []string{"VK_KHR_surface", "VK_KHR_xcb_surface", device.DebugUtilsExtension},
		instanceLayers:     []string{device.KhronosValidationLayer},
		devices:            devices,
	}
}

func newTestContext(t testing.TB, cfg core.Configuration) (*core.Context, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return core.NewContextWithLogger(cfg, logger), hook
}

func entriesAt(hook *test.Hook, level logrus.Level) []*logrus.Entry {
	var entries []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}

type fakeWindow struct {
	extensions []string
	surfaceErr error
}

func (w fakeWindow) RequiredInstanceExtensions() []string {
	return w.extensions
}

func (w fakeWindow) CreateSurface(instance device.InstanceHandle) (device.Surface, error) {
	if w.surfaceErr != nil {
		return device.NullSurface, w.surfaceErr
	}
	if instance != fakeInstance {
		return device.NullSurface, fmt.Errorf("unexpected instance %d", instance)
	}
	return fakeSurface, nil
}
