// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"github.com/cockroachdb/errors"
	"github.com/devblok/kryos/core"
	"github.com/sirupsen/logrus"
)

// QueuePriority is the priority of every created queue.
const QueuePriority float32 = 1.0

// Device owns the logical device and the queue families it was created with.
type Device struct {
	driver Driver
	log    *logrus.Entry

	handle    DeviceHandle
	physical  PhysicalDevice
	queues    QueueFamilies
	destroyed bool
}

// DeviceCreateInfoFor builds the create info for candidate: one queue per
// distinct family, every supported feature enabled, and the validation
// layers when the instance has a live debug messenger.
func DeviceCreateInfoFor(driver Driver, instance *Instance, pd PhysicalDevice, families QueueFamilies) DeviceCreateInfo {
	info := DeviceCreateInfo{
		EnabledFeatures: driver.Features(pd),
	}
	for _, family := range families.DistinctFamilies() {
		info.Queues = append(info.Queues, DeviceQueueCreateInfo{
			Family:     family,
			Priorities: []float32{QueuePriority},
		})
	}
	if instance.DebugMessengerActive() {
		info.Layers = instance.Layers()
	}
	return info
}

// NewDevice creates the logical device for candidate and fetches its queues.
func NewDevice(ctx *core.Context, driver Driver, instance *Instance, candidate Candidate, families QueueFamilies) (*Device, error) {
	log := ctx.Vulkan().WithField("device", candidate.Properties.Name)

	info := DeviceCreateInfoFor(driver, instance, candidate.Handle, families)
	handle, err := driver.CreateDevice(candidate.Handle, info)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "create device"), ErrDeviceCreationFailed)
	}

	d := &Device{
		driver:   driver,
		log:      log,
		handle:   handle,
		physical: candidate.Handle,
		queues:   families.Clone(),
	}
	d.queues.InitQueues(driver, handle)

	log.WithFields(logrus.Fields{
		"queues": d.queues.Strings(),
		"layers": len(info.Layers),
	}).Debug("Logical device created")

	return d, nil
}

// Handle returns the logical device handle.
func (d *Device) Handle() DeviceHandle {
	return d.handle
}

// PhysicalDevice returns the physical device the device was created on.
func (d *Device) PhysicalDevice() PhysicalDevice {
	return d.physical
}

// Queues returns the queue families with their live queues.
func (d *Device) Queues() QueueFamilies {
	return d.queues
}

// Destroy destroys the logical device. It must run before the instance
// is destroyed. Calls after the first do nothing.
func (d *Device) Destroy() {
	if d.destroyed {
		return
	}
	d.destroyed = true
	d.driver.DestroyDevice(d.handle)
	d.handle = 0
}
