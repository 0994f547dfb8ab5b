// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

// PhysicalDeviceInfo is a printable description of a physical device.
type PhysicalDeviceInfo struct {
	Invalid bool `json:"invalid,omitempty"`

	Name          string   `json:"name"`
	ID            uint32   `json:"id"`
	VendorID      uint32   `json:"vendorId"`
	DriverVersion uint32   `json:"driverVersion"`
	APIVersion    string   `json:"apiVersion"`
	Type          string   `json:"type"`
	Memory        uint64   `json:"memory"`
	Extensions    []string `json:"extensions"`
	Layers        []string `json:"layers"`

	GeometryShader bool `json:"geometryShader"`
	SparseBinding  bool `json:"sparseBinding"`

	QueueFamilies []QueueFamilyInfo `json:"queueFamilies"`
	Score         uint64            `json:"score"`
}

// QueueFamilyInfo describes one queue family.
type QueueFamilyInfo struct {
	Index uint32   `json:"index"`
	Count uint32   `json:"count"`
	Kinds []string `json:"kinds"`
}

// DescribePhysicalDevices describes every candidate. A device whose
// extensions or layers cannot be enumerated is marked Invalid.
func DescribePhysicalDevices(driver Driver, candidates []Candidate) []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(candidates))
	for i, c := range candidates {
		props := c.Properties
		pdi[i] = PhysicalDeviceInfo{
			Name:           props.Name,
			ID:             props.DeviceID,
			VendorID:       props.VendorID,
			DriverVersion:  props.DriverVersion,
			APIVersion:     props.APIVersion.String(),
			Type:           props.Type.String(),
			Memory:         driver.MemorySize(c.Handle),
			GeometryShader: c.Features.GeometryShader,
			SparseBinding:  c.Features.SparseBinding,
			Score:          Score(c),
		}

		extensions, err := driver.DeviceExtensions(c.Handle)
		if err != nil {
			pdi[i].Invalid = true
		}
		pdi[i].Extensions = NewNames(extensions...).Sorted()

		layers, err := driver.DeviceLayers(c.Handle)
		if err != nil {
			pdi[i].Invalid = true
		}
		pdi[i].Layers = NewNames(layers...).Sorted()

		for index, family := range driver.QueueFamilyProperties(c.Handle) {
			info := QueueFamilyInfo{Index: uint32(index), Count: family.Count}
			for _, kind := range flagKinds {
				if family.Flags&QueueFlags(kind) != 0 {
					info.Kinds = append(info.Kinds, kind.String())
				}
			}
			pdi[i].QueueFamilies = append(pdi[i].QueueFamilies, info)
		}
	}
	return pdi
}

// CapabilitiesInfo is a printable summary of the host instance capabilities.
type CapabilitiesInfo struct {
	InstanceExtensions []string `json:"instanceExtensions"`
	RequiredExtensions []string `json:"requiredExtensions"`
	MissingExtensions  []string `json:"missingExtensions,omitempty"`
	Layers             []string `json:"layers"`
	RequiredLayers     []string `json:"requiredLayers"`
	MissingLayers      []string `json:"missingLayers,omitempty"`
}

// Capabilities summarizes what the host offers against what the engine needs.
func (p *Probe) Capabilities(window []string, goos string, validation bool) CapabilitiesInfo {
	extensions := p.InstanceExtensions()
	layers := p.ValidationLayers()
	required := p.RequiredInstanceExtensions(window, goos, validation)
	return CapabilitiesInfo{
		InstanceExtensions: extensions.Sorted(),
		RequiredExtensions: required,
		MissingExtensions:  Missing(required, extensions),
		Layers:             layers.Sorted(),
		RequiredLayers:     RequiredValidationLayers(),
		MissingLayers:      Missing(RequiredValidationLayers(), layers),
	}
}
