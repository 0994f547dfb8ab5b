// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"sort"
	"strings"

	"github.com/devblok/kryos/core"
	"github.com/sirupsen/logrus"
)

// Extension and layer names used by the bring-up.
const (
	KhronosValidationLayer       = "VK_LAYER_KHRONOS_validation"
	SwapchainExtension           = "VK_KHR_swapchain"
	PortabilityEnumerationExt    = "VK_KHR_portability_enumeration"
	DebugUtilsExtension          = "VK_EXT_debug_utils"
	DebugReportExtension         = "VK_EXT_debug_report"
	darwin                       = "darwin"
	capabilityListItemSeparator  = "\n\t* "
	capabilityListItemFirstEntry = "\t* "
)

// RequiredValidationLayers lists the layers enabled when validation is on.
func RequiredValidationLayers() []string {
	return []string{KhronosValidationLayer}
}

// RequiredDeviceExtensions lists the device extensions the renderer will
// need once a swapchain exists. Not enabled on device creation yet.
func RequiredDeviceExtensions() []string {
	return []string{SwapchainExtension}
}

// CrossPlatformExtensions returns the instance extensions the engine needs
// on top of the window system ones for the given GOOS.
func CrossPlatformExtensions(goos string) []string {
	if goos == darwin {
		return []string{PortabilityEnumerationExt}
	}
	return nil
}

// Names is a set of extension or layer names.
type Names map[string]struct{}

// NewNames builds a set from a list of names.
func NewNames(list ...string) Names {
	n := make(Names, len(list))
	for _, name := range list {
		n[name] = struct{}{}
	}
	return n
}

// Has reports whether name is in the set. Names match exactly.
func (n Names) Has(name string) bool {
	_, ok := n[name]
	return ok
}

// Sorted returns the names in lexical order.
func (n Names) Sorted() []string {
	list := make([]string, 0, len(n))
	for name := range n {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

// CheckRequired reports whether every required name is available.
func CheckRequired(required []string, available Names) bool {
	return len(Missing(required, available)) == 0
}

// Missing returns the required names that are not available, in order.
func Missing(required []string, available Names) []string {
	var missing []string
	for _, name := range required {
		if !available.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Probe answers capability questions about the host driver. It never
// creates anything and never fails: enumeration errors are logged and
// produce empty sets.
type Probe struct {
	driver Driver
	log    *logrus.Entry
}

// NewProbe creates a probe over driver.
func NewProbe(ctx *core.Context, driver Driver) *Probe {
	return &Probe{
		driver: driver,
		log:    ctx.Vulkan(),
	}
}

// InstanceExtensions returns every instance extension the host supports.
func (p *Probe) InstanceExtensions() Names {
	list, err := p.driver.InstanceExtensions()
	if err != nil {
		p.log.WithError(err).Warn("Failed to enumerate instance extensions")
		return Names{}
	}
	return NewNames(list...)
}

// ValidationLayers returns every instance layer the host supports.
func (p *Probe) ValidationLayers() Names {
	list, err := p.driver.InstanceLayers()
	if err != nil {
		p.log.WithError(err).Warn("Failed to enumerate instance layers")
		return Names{}
	}
	return NewNames(list...)
}

// DeviceExtensions returns every extension pd supports.
func (p *Probe) DeviceExtensions(pd PhysicalDevice) Names {
	list, err := p.driver.DeviceExtensions(pd)
	if err != nil {
		p.log.WithError(err).Warn("Failed to enumerate device extensions")
		return Names{}
	}
	return NewNames(list...)
}

// CheckDeviceExtensions reports whether pd supports every required extension.
func (p *Probe) CheckDeviceExtensions(pd PhysicalDevice, required []string) bool {
	return CheckRequired(required, p.DeviceExtensions(pd))
}

// RequiredInstanceExtensions merges the window system extensions with the
// engine ones, and the debug extension when validation is requested.
// Duplicates are dropped, order is kept.
func (p *Probe) RequiredInstanceExtensions(window []string, goos string, validation bool) []string {
	var required []string
	seen := Names{}
	add := func(names ...string) {
		for _, name := range names {
			if !seen.Has(name) {
				seen[name] = struct{}{}
				required = append(required, name)
			}
		}
	}
	add(window...)
	add(CrossPlatformExtensions(goos)...)
	if validation {
		add(p.driver.DebugExtension())
	}
	return required
}

// Describe logs the available and required extensions and layers.
func (p *Probe) Describe(window []string, goos string, validation bool) {
	p.log.Infof("Instance extension capabilities\n%s", bullets(p.InstanceExtensions().Sorted()))
	p.log.Infof("Required instance extensions\n%s", bullets(p.RequiredInstanceExtensions(window, goos, validation)))
	if validation {
		p.log.Infof("Validation layer capabilities\n%s", bullets(p.ValidationLayers().Sorted()))
		p.log.Infof("Required validation layers\n%s", bullets(RequiredValidationLayers()))
	}
}

func bullets(list []string) string {
	if len(list) == 0 {
		return capabilityListItemFirstEntry + "(none)"
	}
	return capabilityListItemFirstEntry + strings.Join(list, capabilityListItemSeparator)
}
