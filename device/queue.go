// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// InvalidFamily marks a queue kind without a resolved family.
const InvalidFamily uint32 = math.MaxUint32

// QueueKind is a queue capability. Every kind except Present has the
// value of the matching QueueFlags bit.
type QueueKind int

// Queue kinds
const (
	QueueInvalid       QueueKind = -1
	QueuePresent       QueueKind = 0
	QueueGraphics      QueueKind = QueueKind(QueueGraphicsBit)
	QueueCompute       QueueKind = QueueKind(QueueComputeBit)
	QueueTransfer      QueueKind = QueueKind(QueueTransferBit)
	QueueSparseBinding QueueKind = QueueKind(QueueSparseBindingBit)
	QueueProtected     QueueKind = QueueKind(QueueProtectedBit)
	QueueVideoDecode   QueueKind = QueueKind(QueueVideoDecodeBit)
	QueueVideoEncode   QueueKind = QueueKind(QueueVideoEncodeBit)
	QueueOpticalFlow   QueueKind = QueueKind(QueueOpticalFlowBit)
)

// flagKinds are the kinds resolved from family flags, in resolution order.
var flagKinds = []QueueKind{
	QueueGraphics,
	QueueCompute,
	QueueTransfer,
	QueueSparseBinding,
	QueueProtected,
	QueueVideoDecode,
	QueueVideoEncode,
	QueueOpticalFlow,
}

var queueKindNames = map[QueueKind]string{
	QueueInvalid:       "invalid",
	QueuePresent:       "present",
	QueueGraphics:      "graphics",
	QueueCompute:       "compute",
	QueueTransfer:      "transfer",
	QueueSparseBinding: "sparse_binding",
	QueueProtected:     "protected",
	QueueVideoDecode:   "video_decode",
	QueueVideoEncode:   "video_encode",
	QueueOpticalFlow:   "optical_flow",
}

func (k QueueKind) String() string {
	if name, ok := queueKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseQueueKind parses a queue kind name as printed by String.
func ParseQueueKind(name string) (QueueKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, n := range queueKindNames {
		if n == name && kind != QueueInvalid {
			return kind, nil
		}
	}
	return QueueInvalid, errors.Newf("unknown queue kind %q", name)
}

// ParseQueueKinds parses a list of queue kind names.
func ParseQueueKinds(names []string) ([]QueueKind, error) {
	kinds := make([]QueueKind, 0, len(names))
	for _, name := range names {
		kind, err := ParseQueueKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// ResolvedQueue is a queue family index and, once the logical device
// exists, the queue handle fetched from it.
type ResolvedQueue struct {
	Family uint32
	Handle Queue
}

// QueueFamilies maps queue kinds to queue families. Several kinds may
// share one family.
type QueueFamilies struct {
	queues   map[QueueKind]ResolvedQueue
	required []QueueKind
}

// ResolveQueueFamilies walks the queue families of pd in index order and
// records the first family matching each kind. Present support is only
// queried when surface is not NullSurface. Graphics is always required,
// present is required only with a surface, extra adds more required kinds.
func ResolveQueueFamilies(driver Driver, pd PhysicalDevice, surface Surface, extra ...QueueKind) (QueueFamilies, error) {
	qf := QueueFamilies{
		queues:   make(map[QueueKind]ResolvedQueue),
		required: requiredKinds(surface, extra),
	}

	for i, props := range driver.QueueFamilyProperties(pd) {
		family := uint32(i)
		for _, kind := range flagKinds {
			if props.Flags&QueueFlags(kind) != 0 {
				qf.record(kind, family)
			}
		}

		if surface == NullSurface {
			continue
		}
		if _, done := qf.queues[QueuePresent]; done {
			continue
		}
		supported, err := driver.SurfaceSupport(pd, family, surface)
		if err != nil {
			return qf, errors.Wrapf(err, "surface support of family %d", family)
		}
		if supported {
			qf.record(QueuePresent, family)
		}
	}

	return qf, nil
}

func requiredKinds(surface Surface, extra []QueueKind) []QueueKind {
	required := []QueueKind{QueueGraphics}
	if surface != NullSurface {
		required = append(required, QueuePresent)
	}
	for _, kind := range extra {
		dup := false
		for _, r := range required {
			dup = dup || r == kind
		}
		if kind == QueuePresent && surface == NullSurface {
			continue
		}
		if !dup && kind != QueueInvalid {
			required = append(required, kind)
		}
	}
	return required
}

// record keeps the first family seen for kind.
func (q *QueueFamilies) record(kind QueueKind, family uint32) {
	if _, ok := q.queues[kind]; ok {
		return
	}
	q.queues[kind] = ResolvedQueue{Family: family}
}

// Family returns the family resolved for kind, InvalidFamily if none.
func (q QueueFamilies) Family(kind QueueKind) uint32 {
	if rq, ok := q.queues[kind]; ok {
		return rq.Family
	}
	return InvalidFamily
}

// Get returns the resolved queue for kind.
func (q QueueFamilies) Get(kind QueueKind) (ResolvedQueue, bool) {
	rq, ok := q.queues[kind]
	return rq, ok
}

// Required returns the kinds that must resolve.
func (q QueueFamilies) Required() []QueueKind {
	return q.required
}

// Resolved returns every resolved kind in ascending kind order.
func (q QueueFamilies) Resolved() []QueueKind {
	kinds := make([]QueueKind, 0, len(q.queues))
	for kind := range q.queues {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Unresolved returns the required kinds without a family.
func (q QueueFamilies) Unresolved() []QueueKind {
	var missing []QueueKind
	for _, kind := range q.required {
		if q.Family(kind) == InvalidFamily {
			missing = append(missing, kind)
		}
	}
	return missing
}

// ValidateIndices reports whether every required kind has a family.
func (q QueueFamilies) ValidateIndices() bool {
	return len(q.Unresolved()) == 0
}

// DistinctFamilies returns each resolved family index once, ascending.
func (q QueueFamilies) DistinctFamilies() []uint32 {
	seen := make(map[uint32]struct{}, len(q.queues))
	var families []uint32
	for _, rq := range q.queues {
		if _, ok := seen[rq.Family]; ok {
			continue
		}
		seen[rq.Family] = struct{}{}
		families = append(families, rq.Family)
	}
	sort.Slice(families, func(i, j int) bool { return families[i] < families[j] })
	return families
}

// InitQueues fetches queue 0 of every resolved family from device.
func (q *QueueFamilies) InitQueues(driver Driver, device DeviceHandle) {
	for kind, rq := range q.queues {
		rq.Handle = driver.DeviceQueue(device, rq.Family, 0)
		q.queues[kind] = rq
	}
}

// Validate reports whether the indices are valid and every resolved
// kind holds a live queue handle.
func (q QueueFamilies) Validate() bool {
	if !q.ValidateIndices() {
		return false
	}
	for _, rq := range q.queues {
		if rq.Handle == 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (q QueueFamilies) Clone() QueueFamilies {
	c := QueueFamilies{
		queues:   make(map[QueueKind]ResolvedQueue, len(q.queues)),
		required: append([]QueueKind(nil), q.required...),
	}
	for kind, rq := range q.queues {
		c.queues[kind] = rq
	}
	return c
}

// Strings formats the resolved kinds as "kind=family" pairs.
func (q QueueFamilies) Strings() []string {
	var out []string
	for _, kind := range q.Resolved() {
		out = append(out, kind.String()+"="+strconv.FormatUint(uint64(q.queues[kind].Family), 10))
	}
	return out
}
