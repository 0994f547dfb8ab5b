// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"strings"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

const (
	// instanceCreateEnumeratePortability is VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR.
	instanceCreateEnumeratePortability vk.InstanceCreateFlags = 0x00000001
)

// VulkanDriver implements Driver on top of the Vulkan loader.
// The debug messenger is backed by VK_EXT_debug_report.
type VulkanDriver struct {
	messengers messengerSet
}

// messengerSet records which instance each debug report callback was
// created on. The destroy entry point exists only for those instances.
type messengerSet struct {
	mutex sync.Mutex
	live  map[DebugMessenger]InstanceHandle
}

func (s *messengerSet) add(instance InstanceHandle, messenger DebugMessenger) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.live == nil {
		s.live = make(map[DebugMessenger]InstanceHandle)
	}
	s.live[messenger] = instance
}

// remove reports whether messenger was created on instance and forgets it.
func (s *messengerSet) remove(instance InstanceHandle, messenger DebugMessenger) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	owner, ok := s.live[messenger]
	if !ok || owner != instance {
		return false
	}
	delete(s.live, messenger)
	return true
}

// NewVulkanDriver initializes the Vulkan loader. procAddr is the
// vkGetInstanceProcAddr the window system found, nil for the default loader.
func NewVulkanDriver(procAddr unsafe.Pointer) (*VulkanDriver, error) {
	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr()")
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "vk.Init()"), "install a Vulkan loader, for example the LunarG Vulkan SDK")
	}
	return &VulkanDriver{}, nil
}

// VulkanInstance converts a handle to the loader's instance type.
// Handles are owned by the C driver, never by the Go heap, so the
// uintptr round trip cannot lose track of a Go object.
func VulkanInstance(h InstanceHandle) vk.Instance {
	return vk.Instance(unsafe.Pointer(uintptr(h)))
}

// vkPhysicalDevice and the helpers below share the C ownership of
// VulkanInstance; go vet's unsafe.Pointer warning does not apply.
func vkPhysicalDevice(pd PhysicalDevice) vk.PhysicalDevice {
	return vk.PhysicalDevice(unsafe.Pointer(uintptr(pd)))
}

func vkDevice(d DeviceHandle) vk.Device {
	return vk.Device(unsafe.Pointer(uintptr(d)))
}

func vkSurface(s Surface) vk.Surface {
	return vk.Surface(unsafe.Pointer(uintptr(s)))
}

// SurfaceFromPointer converts the surface pointer returned by the window
// system, which points at the surface handle, into a Surface.
func SurfaceFromPointer(ptr uintptr) Surface {
	return Surface(uintptr(unsafe.Pointer(vk.SurfaceFromPointer(ptr))))
}

// InstanceExtensions implements Driver
func (*VulkanDriver) InstanceExtensions() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateInstanceExtensionProperties()")
	}
	props := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, props)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateInstanceExtensionProperties()")
	}
	names := make([]string, 0, count)
	for _, ext := range props[:count] {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// InstanceLayers implements Driver
func (*VulkanDriver) InstanceLayers() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateInstanceLayerProperties()")
	}
	props := make([]vk.LayerProperties, count)
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateInstanceLayerProperties()")
	}
	names := make([]string, 0, count)
	for _, layer := range props[:count] {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// DebugExtension implements Driver
func (*VulkanDriver) DebugExtension() string {
	return DebugReportExtension
}

// CreateInstance implements Driver
func (*VulkanDriver) CreateInstance(info InstanceCreateInfo) (InstanceHandle, error) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(info.APIVersion),
		ApplicationVersion: uint32(info.ApplicationVersion),
		EngineVersion:      uint32(info.EngineVersion),
		PApplicationName:   safeString(info.ApplicationName),
		PEngineName:        safeString(info.EngineName),
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
		EnabledLayerCount:       uint32(len(info.Layers)),
		PpEnabledLayerNames:     safeStrings(info.Layers),
	}
	for _, ext := range info.Extensions {
		if ext == PortabilityEnumerationExt {
			instanceInfo.Flags |= instanceCreateEnumeratePortability
		}
	}

	if info.Debug != nil {
		debugInfo := debugReportCreateInfo(*info.Debug)
		ref, _ := debugInfo.PassRef()
		instanceInfo.PNext = unsafe.Pointer(ref)
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return 0, errors.Wrap(err, "vk.CreateInstance()")
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return 0, errors.Wrap(err, "vk.InitInstance()")
	}
	return InstanceHandle(uintptr(unsafe.Pointer(instance))), nil
}

// DestroyInstance implements Driver
func (*VulkanDriver) DestroyInstance(instance InstanceHandle) {
	vk.DestroyInstance(VulkanInstance(instance), nil)
}

// CreateDebugMessenger implements Driver
func (d *VulkanDriver) CreateDebugMessenger(instance InstanceHandle, cfg DebugMessengerConfig) (DebugMessenger, error) {
	debugInfo := debugReportCreateInfo(cfg)
	var callback vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(VulkanInstance(instance), &debugInfo, nil, &callback)); err != nil {
		return 0, errors.Wrap(err, "vk.CreateDebugReportCallback()")
	}
	messenger := DebugMessenger(uintptr(unsafe.Pointer(callback)))
	d.messengers.add(instance, messenger)
	return messenger, nil
}

// DestroyDebugMessenger implements Driver
func (d *VulkanDriver) DestroyDebugMessenger(instance InstanceHandle, messenger DebugMessenger) error {
	if !d.messengers.remove(instance, messenger) {
		return errors.Newf("vkDestroyDebugReportCallbackEXT not resolved for messenger %#x", uintptr(messenger))
	}
	vk.DestroyDebugReportCallback(VulkanInstance(instance), vk.DebugReportCallback(unsafe.Pointer(uintptr(messenger))), nil)
	return nil
}

// DestroySurface implements Driver
func (*VulkanDriver) DestroySurface(instance InstanceHandle, surface Surface) {
	vk.DestroySurface(VulkanInstance(instance), vkSurface(surface), nil)
}

// PhysicalDevices implements Driver
func (*VulkanDriver) PhysicalDevices(instance InstanceHandle) ([]PhysicalDevice, error) {
	inst := VulkanInstance(instance)
	var count uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(inst, &count, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumeratePhysicalDevices()")
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := vk.Error(vk.EnumeratePhysicalDevices(inst, &count, devices)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumeratePhysicalDevices()")
	}
	handles := make([]PhysicalDevice, 0, count)
	for _, pd := range devices[:count] {
		handles = append(handles, PhysicalDevice(uintptr(unsafe.Pointer(pd))))
	}
	return handles, nil
}

// Properties implements Driver
func (*VulkanDriver) Properties(pd PhysicalDevice) PhysicalDeviceProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(vkPhysicalDevice(pd), &props)
	props.Deref()
	props.Limits.Deref()

	return PhysicalDeviceProperties{
		Name:          vk.ToString(props.DeviceName[:]),
		VendorID:      props.VendorID,
		DeviceID:      props.DeviceID,
		DriverVersion: props.DriverVersion,
		APIVersion:    Version(props.ApiVersion),
		Type:          physicalDeviceType(props.DeviceType),
		Limits: PhysicalDeviceLimits{
			MaxImageDimension2D:      props.Limits.MaxImageDimension2D,
			MaxUniformBufferRange:    props.Limits.MaxUniformBufferRange,
			MaxMemoryAllocationCount: props.Limits.MaxMemoryAllocationCount,
		},
	}
}

func physicalDeviceType(t vk.PhysicalDeviceType) PhysicalDeviceType {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return PhysicalDeviceTypeIntegratedGPU
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return PhysicalDeviceTypeDiscreteGPU
	case vk.PhysicalDeviceTypeVirtualGpu:
		return PhysicalDeviceTypeVirtualGPU
	case vk.PhysicalDeviceTypeCpu:
		return PhysicalDeviceTypeCPU
	default:
		return PhysicalDeviceTypeOther
	}
}

// Features implements Driver
func (*VulkanDriver) Features(pd PhysicalDevice) PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(vkPhysicalDevice(pd), &features)
	features.Deref()

	return PhysicalDeviceFeatures{
		GeometryShader:     features.GeometryShader.B(),
		TessellationShader: features.TessellationShader.B(),
		SparseBinding:      features.SparseBinding.B(),
		SamplerAnisotropy:  features.SamplerAnisotropy.B(),
		MultiDrawIndirect:  features.MultiDrawIndirect.B(),
		ShaderFloat64:      features.ShaderFloat64.B(),
		native:             features,
	}
}

// MemorySize implements Driver
func (*VulkanDriver) MemorySize(pd PhysicalDevice) uint64 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vkPhysicalDevice(pd), &memoryProperties)
	memoryProperties.Deref()

	var size uint64
	for i := uint32(0); i < memoryProperties.MemoryHeapCount; i++ {
		memoryProperties.MemoryHeaps[i].Deref()
		size += uint64(memoryProperties.MemoryHeaps[i].Size)
	}
	return size
}

// QueueFamilyProperties implements Driver
func (*VulkanDriver) QueueFamilyProperties(pd PhysicalDevice) []QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(vkPhysicalDevice(pd), &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(vkPhysicalDevice(pd), &count, families)

	props := make([]QueueFamilyProperties, 0, count)
	for _, family := range families[:count] {
		family.Deref()
		props = append(props, QueueFamilyProperties{
			Flags: QueueFlags(family.QueueFlags),
			Count: family.QueueCount,
		})
	}
	return props
}

// SurfaceSupport implements Driver
func (*VulkanDriver) SurfaceSupport(pd PhysicalDevice, family uint32, surface Surface) (bool, error) {
	var supported vk.Bool32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(vkPhysicalDevice(pd), family, vkSurface(surface), &supported)); err != nil {
		return false, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceSupport()")
	}
	return supported.B(), nil
}

// DeviceExtensions implements Driver
func (*VulkanDriver) DeviceExtensions(pd PhysicalDevice) ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(vkPhysicalDevice(pd), "", &count, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateDeviceExtensionProperties()")
	}
	props := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(vkPhysicalDevice(pd), "", &count, props)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateDeviceExtensionProperties()")
	}
	names := make([]string, 0, count)
	for _, ext := range props[:count] {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// DeviceLayers implements Driver
func (*VulkanDriver) DeviceLayers(pd PhysicalDevice) ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateDeviceLayerProperties(vkPhysicalDevice(pd), &count, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateDeviceLayerProperties()")
	}
	props := make([]vk.LayerProperties, count)
	if err := vk.Error(vk.EnumerateDeviceLayerProperties(vkPhysicalDevice(pd), &count, props)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateDeviceLayerProperties()")
	}
	names := make([]string, 0, count)
	for _, layer := range props[:count] {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// CreateDevice implements Driver
func (*VulkanDriver) CreateDevice(pd PhysicalDevice, info DeviceCreateInfo) (DeviceHandle, error) {
	queueInfos := make([]vk.DeviceQueueCreateInfo, 0, len(info.Queues))
	for _, q := range info.Queues {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: q.Family,
			QueueCount:       uint32(len(q.Priorities)),
			PQueuePriorities: q.Priorities,
		})
	}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
		EnabledLayerCount:       uint32(len(info.Layers)),
		PpEnabledLayerNames:     safeStrings(info.Layers),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{vulkanFeatures(info.EnabledFeatures)},
	}

	var device vk.Device
	if err := vk.Error(vk.CreateDevice(vkPhysicalDevice(pd), &dci, nil, &device)); err != nil {
		return 0, errors.Wrap(err, "vk.CreateDevice()")
	}
	return DeviceHandle(uintptr(unsafe.Pointer(device))), nil
}

// vulkanFeatures returns the complete feature record the driver reported,
// or one built from the exported fields when there is none.
func vulkanFeatures(f PhysicalDeviceFeatures) vk.PhysicalDeviceFeatures {
	if native, ok := f.native.(vk.PhysicalDeviceFeatures); ok {
		return native
	}
	return vk.PhysicalDeviceFeatures{
		GeometryShader:     bool32(f.GeometryShader),
		TessellationShader: bool32(f.TessellationShader),
		SparseBinding:      bool32(f.SparseBinding),
		SamplerAnisotropy:  bool32(f.SamplerAnisotropy),
		MultiDrawIndirect:  bool32(f.MultiDrawIndirect),
		ShaderFloat64:      bool32(f.ShaderFloat64),
	}
}

// DestroyDevice implements Driver
func (*VulkanDriver) DestroyDevice(device DeviceHandle) {
	vk.DestroyDevice(vkDevice(device), nil)
}

// DeviceQueue implements Driver
func (*VulkanDriver) DeviceQueue(device DeviceHandle, family, index uint32) Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(vkDevice(device), family, index, &queue)
	return Queue(uintptr(unsafe.Pointer(queue)))
}

func debugReportCreateInfo(cfg DebugMessengerConfig) vk.DebugReportCallbackCreateInfo {
	var flags vk.DebugReportFlagBits
	if cfg.Severities&SeverityVerbose != 0 {
		flags |= vk.DebugReportDebugBit
	}
	if cfg.Severities&SeverityInfo != 0 {
		flags |= vk.DebugReportInformationBit
	}
	if cfg.Severities&SeverityWarning != 0 {
		flags |= vk.DebugReportWarningBit
	}
	if cfg.Severities&SeverityError != 0 {
		flags |= vk.DebugReportErrorBit
	}
	if cfg.Types&MessagePerformance != 0 {
		flags |= vk.DebugReportPerformanceWarningBit
	}

	callback := cfg.Callback
	return vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(flags),
		PfnCallback: func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
			object uint64, location uint, messageCode int32, pLayerPrefix string,
			pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
			if callback != nil {
				callback(debugMessage(flags, messageCode, pLayerPrefix, pMessage))
			}
			return vk.False
		},
	}
}

func debugMessage(flags vk.DebugReportFlags, code int32, layer, text string) DebugMessage {
	msg := DebugMessage{
		Type:  MessageGeneral,
		Layer: layer,
		Code:  code,
		Text:  strings.TrimSpace(text),
	}
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		msg.Severity = SeverityError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		msg.Severity = SeverityWarning
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		msg.Severity = SeverityWarning
		msg.Type = MessagePerformance
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		msg.Severity = SeverityInfo
	default:
		msg.Severity = SeverityVerbose
	}
	if layer != "" && msg.Type == MessageGeneral {
		msg.Type = MessageValidation
	}
	return msg
}

func bool32(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, safeString(s))
	}
	return out
}
