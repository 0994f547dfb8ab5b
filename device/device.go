// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package device implements the render hardware bring-up: capability
// probing, instance creation, physical device selection, queue family
// resolution and logical device creation. All driver access goes through
// the Driver interface; VulkanDriver is the implementation backed by the
// Vulkan loader.
package device

import "fmt"

// Opaque driver handles. Zero is the null handle for every kind.
type (
	InstanceHandle uintptr
	PhysicalDevice uintptr
	DeviceHandle   uintptr
	Queue          uintptr
	Surface        uintptr
	DebugMessenger uintptr
)

// NullSurface means no presentation surface is available.
const NullSurface Surface = 0

// Version is a packed major.minor.patch version, laid out like VK_MAKE_VERSION.
type Version uint32

// MakeVersion packs a version triple.
func MakeVersion(major, minor, patch uint32) Version {
	return Version(major<<22 | minor<<12 | patch)
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", uint32(v)>>22, (uint32(v)>>12)&0x3ff, uint32(v)&0xfff)
}

// PhysicalDeviceType mirrors VkPhysicalDeviceType.
type PhysicalDeviceType int

// Physical device types
const (
	PhysicalDeviceTypeOther PhysicalDeviceType = iota
	PhysicalDeviceTypeIntegratedGPU
	PhysicalDeviceTypeDiscreteGPU
	PhysicalDeviceTypeVirtualGPU
	PhysicalDeviceTypeCPU
)

func (t PhysicalDeviceType) String() string {
	switch t {
	case PhysicalDeviceTypeIntegratedGPU:
		return "Integrated GPU"
	case PhysicalDeviceTypeDiscreteGPU:
		return "Discrete GPU"
	case PhysicalDeviceTypeVirtualGPU:
		return "Virtual GPU"
	case PhysicalDeviceTypeCPU:
		return "CPU"
	default:
		return "Other"
	}
}

// PhysicalDeviceLimits holds the limits taken into account when scoring.
type PhysicalDeviceLimits struct {
	MaxImageDimension2D      uint32
	MaxUniformBufferRange    uint32
	MaxMemoryAllocationCount uint32
}

// PhysicalDeviceProperties describes a physical device as reported by the driver.
type PhysicalDeviceProperties struct {
	Name          string
	VendorID      uint32
	DeviceID      uint32
	DriverVersion uint32
	APIVersion    Version
	Type          PhysicalDeviceType
	Limits        PhysicalDeviceLimits
}

// PhysicalDeviceFeatures describes the optional features of a physical device.
type PhysicalDeviceFeatures struct {
	GeometryShader     bool
	TessellationShader bool
	SparseBinding      bool
	SamplerAnisotropy  bool
	MultiDrawIndirect  bool
	ShaderFloat64      bool

	// native is the driver's complete feature record, used to enable
	// every feature verbatim on device creation.
	native interface{}
}

// QueueFlags mirrors VkQueueFlags.
type QueueFlags uint32

// Queue capability bits
const (
	QueueGraphicsBit      QueueFlags = 0x00000001
	QueueComputeBit       QueueFlags = 0x00000002
	QueueTransferBit      QueueFlags = 0x00000004
	QueueSparseBindingBit QueueFlags = 0x00000008
	QueueProtectedBit     QueueFlags = 0x00000010
	QueueVideoDecodeBit   QueueFlags = 0x00000020
	QueueVideoEncodeBit   QueueFlags = 0x00000040
	QueueOpticalFlowBit   QueueFlags = 0x00000100
)

// QueueFamilyProperties describes one queue family. The family index is
// its position in the list returned by the driver.
type QueueFamilyProperties struct {
	Flags QueueFlags
	Count uint32
}

// DebugSeverity is a set of debug message severities.
type DebugSeverity uint32

// Debug message severities
const (
	SeverityVerbose DebugSeverity = 1 << iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s DebugSeverity) String() string {
	switch {
	case s&SeverityError != 0:
		return "error"
	case s&SeverityWarning != 0:
		return "warning"
	case s&SeverityInfo != 0:
		return "info"
	case s&SeverityVerbose != 0:
		return "verbose"
	default:
		return "none"
	}
}

// DebugMessageType is a set of debug message types.
type DebugMessageType uint32

// Debug message types
const (
	MessageGeneral DebugMessageType = 1 << iota
	MessageValidation
	MessagePerformance
)

func (t DebugMessageType) String() string {
	switch {
	case t&MessageValidation != 0:
		return "validation"
	case t&MessagePerformance != 0:
		return "performance"
	case t&MessageGeneral != 0:
		return "general"
	default:
		return "none"
	}
}

// DebugMessage is a message delivered by the debug messenger.
type DebugMessage struct {
	Severity DebugSeverity
	Type     DebugMessageType
	Layer    string
	Code     int32
	Text     string
}

// DebugMessengerConfig is the filter and callback of a debug messenger.
type DebugMessengerConfig struct {
	Severities DebugSeverity
	Types      DebugMessageType
	Callback   func(DebugMessage)
}

// InstanceCreateInfo is the validated input of Driver.CreateInstance.
type InstanceCreateInfo struct {
	ApplicationName    string
	ApplicationVersion Version
	EngineName         string
	EngineVersion      Version
	APIVersion         Version

	Extensions []string
	Layers     []string

	// Debug, when set, is chained on instance creation so that
	// creation-time issues are reported too.
	Debug *DebugMessengerConfig
}

// DeviceQueueCreateInfo requests queues from one queue family.
type DeviceQueueCreateInfo struct {
	Family     uint32
	Priorities []float32
}

// DeviceCreateInfo is the validated input of Driver.CreateDevice.
type DeviceCreateInfo struct {
	Queues          []DeviceQueueCreateInfo
	Extensions      []string
	Layers          []string
	EnabledFeatures PhysicalDeviceFeatures
}

// Driver is the set of driver entry points the bring-up needs.
// Every call is synchronous and must happen on the thread that owns
// the window system.
type Driver interface {
	// InstanceExtensions returns the instance extensions the host supports.
	InstanceExtensions() ([]string, error)

	// InstanceLayers returns the instance layers the host supports.
	InstanceLayers() ([]string, error)

	// DebugExtension returns the name of the instance extension that
	// provides the debug messenger.
	DebugExtension() string

	CreateInstance(info InstanceCreateInfo) (InstanceHandle, error)
	DestroyInstance(instance InstanceHandle)

	CreateDebugMessenger(instance InstanceHandle, cfg DebugMessengerConfig) (DebugMessenger, error)

	// DestroyDebugMessenger returns an error when the destroy entry
	// point cannot be resolved from the instance.
	DestroyDebugMessenger(instance InstanceHandle, messenger DebugMessenger) error

	DestroySurface(instance InstanceHandle, surface Surface)

	PhysicalDevices(instance InstanceHandle) ([]PhysicalDevice, error)
	Properties(pd PhysicalDevice) PhysicalDeviceProperties
	Features(pd PhysicalDevice) PhysicalDeviceFeatures
	MemorySize(pd PhysicalDevice) uint64
	QueueFamilyProperties(pd PhysicalDevice) []QueueFamilyProperties
	SurfaceSupport(pd PhysicalDevice, family uint32, surface Surface) (bool, error)
	DeviceExtensions(pd PhysicalDevice) ([]string, error)
	DeviceLayers(pd PhysicalDevice) ([]string, error)

	CreateDevice(pd PhysicalDevice, info DeviceCreateInfo) (DeviceHandle, error)
	DestroyDevice(device DeviceHandle)
	DeviceQueue(device DeviceHandle, family, index uint32) Queue
}
