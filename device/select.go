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

// Base scores by device type.
const (
	DiscreteScore   uint64 = 1000
	IntegratedScore uint64 = 10
)

// Candidate is a physical device with its properties and features,
// queried fresh for every selection pass.
type Candidate struct {
	Handle     PhysicalDevice
	Properties PhysicalDeviceProperties
	Features   PhysicalDeviceFeatures
}

// SelectionConfiguration tunes physical device selection.
type SelectionConfiguration struct {
	// AllowIntegrated admits every device with a positive base score
	// instead of only those above the integrated baseline.
	AllowIntegrated bool

	// RequiredQueues are required on top of graphics and present.
	RequiredQueues []QueueKind
}

// Selector picks the physical device the engine runs on.
type Selector struct {
	driver Driver
	log    *logrus.Entry
	cfg    SelectionConfiguration
}

// NewSelector creates a selector.
func NewSelector(ctx *core.Context, driver Driver, cfg SelectionConfiguration) *Selector {
	return &Selector{
		driver: driver,
		log:    ctx.Vulkan(),
		cfg:    cfg,
	}
}

// Candidates enumerates the physical devices of instance. Enumeration
// failures are logged and yield no candidates.
func (s *Selector) Candidates(instance InstanceHandle) []Candidate {
	devices, err := s.driver.PhysicalDevices(instance)
	if err != nil {
		s.log.WithError(err).Warn("Failed to enumerate physical devices")
		return nil
	}

	candidates := make([]Candidate, 0, len(devices))
	for _, pd := range devices {
		candidates = append(candidates, Candidate{
			Handle:     pd,
			Properties: s.driver.Properties(pd),
			Features:   s.driver.Features(pd),
		})
	}
	return candidates
}

// BaseScore scores a device type.
func BaseScore(t PhysicalDeviceType) uint64 {
	switch t {
	case PhysicalDeviceTypeDiscreteGPU:
		return DiscreteScore
	case PhysicalDeviceTypeIntegratedGPU:
		return IntegratedScore
	default:
		return 0
	}
}

// Score is the base score plus the raw sum of the limits that break ties.
func Score(c Candidate) uint64 {
	l := c.Properties.Limits
	return BaseScore(c.Properties.Type) +
		uint64(l.MaxImageDimension2D) +
		uint64(l.MaxUniformBufferRange) +
		uint64(l.MaxMemoryAllocationCount)
}

// MeetsMinimumFeatures is the minimum capability gate.
func MeetsMinimumFeatures(f PhysicalDeviceFeatures) bool {
	return f.GeometryShader || f.SparseBinding
}

func (s *Selector) passesScoreGate(base uint64) bool {
	if s.cfg.AllowIntegrated {
		return base > 0
	}
	return base > IntegratedScore
}

// Pick returns the highest scoring candidate whose required queue families
// resolve against surface, along with those families. The earliest
// candidate wins ties. Pick has no side effects besides driver queries.
func (s *Selector) Pick(candidates []Candidate, surface Surface) (Candidate, QueueFamilies, error) {
	if len(candidates) == 0 {
		return Candidate{}, QueueFamilies{}, errors.WithHint(
			errors.Wrap(ErrNoSuitableDevice, "no physical devices available"),
			"check that a Vulkan capable GPU and driver are installed")
	}

	var (
		best       Candidate
		bestQueues QueueFamilies
		bestScore  uint64
		found      bool
		gated      bool
	)

	for _, c := range candidates {
		log := s.log.WithField("device", c.Properties.Name)

		if !MeetsMinimumFeatures(c.Features) {
			log.Debug("Rejected: neither geometry shader nor sparse binding supported")
			continue
		}

		queues, err := ResolveQueueFamilies(s.driver, c.Handle, surface, s.cfg.RequiredQueues...)
		if err != nil {
			log.WithError(err).Warn("Rejected: queue family resolution failed")
			continue
		}
		if !queues.ValidateIndices() {
			log.WithError(errors.Wrapf(ErrQueueResolutionIncomplete, "unresolved %v", queues.Unresolved())).
				Debug("Rejected: required queue families missing")
			continue
		}

		base := BaseScore(c.Properties.Type)
		if !s.passesScoreGate(base) {
			gated = gated || base > 0
			log.WithField("type", c.Properties.Type.String()).Debug("Rejected: device type scores too low")
			continue
		}

		score := Score(c)
		log.WithField("score", score).Debug("Candidate scored")
		if !found || score > bestScore {
			best, bestQueues, bestScore, found = c, queues, score, true
		}
	}

	if !found {
		err := errors.Wrap(ErrNoSuitableDevice, "no candidate passed selection")
		if gated {
			s.log.Warnf("Integrated GPUs were skipped, set %s=true to allow them", core.KeyAllowIntegrated)
			err = errors.WithHintf(err, "set %s=true to allow integrated GPUs", core.KeyAllowIntegrated)
		}
		return Candidate{}, QueueFamilies{}, err
	}

	s.log.WithFields(logrus.Fields{
		"device": best.Properties.Name,
		"score":  bestScore,
		"queues": bestQueues.Strings(),
	}).Info("Physical device selected")

	return best, bestQueues, nil
}
