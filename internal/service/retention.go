package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"mqtt_dashboard/internal/models"
)

// DefaultRetentionCapacity is the number of readings kept for display.
const DefaultRetentionCapacity = 1000

// RetentionStore keeps the newest readings in arrival order and evicts FIFO.
// Stored readings are never mutated; callers get copies of the slice only.
type RetentionStore struct {
	mu       sync.RWMutex
	items    []models.Reading
	capacity int
	now      func() time.Time
}

func NewRetentionStore(capacity int) *RetentionStore {
	if capacity <= 0 {
		capacity = DefaultRetentionCapacity
	}
	return &RetentionStore{capacity: capacity, now: time.Now}
}

// Append adds readings in order, then drops the oldest beyond capacity.
// A reading without received_at is stamped on the way in.
func (s *RetentionStore) Append(readings ...models.Reading) {
	if len(readings) == 0 {
		return
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range readings {
		if r == nil {
			continue
		}
		if _, ok := r.ReceivedAt(); !ok {
			r = r.Clone()
			r.StampReceivedAt(now)
		}
		s.items = append(s.items, r)
	}
	if over := len(s.items) - s.capacity; over > 0 {
		s.items = append(make([]models.Reading, 0, s.capacity), s.items[over:]...)
	}
}

// Echo stores a copy of a just-published reading with a fresh received_at.
func (s *RetentionStore) Echo(r models.Reading, now time.Time) models.Reading {
	c := r.Clone()
	c[models.FieldReceivedAt] = now.Format(models.TimeLayout)
	s.Append(c)
	return c
}

// All returns the stored readings in insertion order.
func (s *RetentionStore) All() []models.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Reading, len(s.items))
	copy(out, s.items)
	return out
}

// Recent returns up to limit readings, newest received_at first.
// Equal timestamps keep the later insertion first. limit <= 0 means all.
func (s *RetentionStore) Recent(limit int) []models.Reading {
	s.mu.RLock()
	keyed := make([]keyedReading, len(s.items))
	for i := range s.items {
		r := s.items[len(s.items)-1-i]
		keyed[i] = keyedReading{r: r, key: receivedKeyOf(r)}
	}
	s.mu.RUnlock()

	sort.SliceStable(keyed, func(i, j int) bool {
		return keyed[i].key.compare(keyed[j].key) > 0
	})
	if limit > 0 && limit < len(keyed) {
		keyed = keyed[:limit]
	}
	out := make([]models.Reading, len(keyed))
	for i := range keyed {
		out[i] = keyed[i].r
	}
	return out
}

// LatestPerSensor keeps, per sensor, the reading with the greatest received_at.
// device == "" means every device. Ties go to the later insertion.
func (s *RetentionStore) LatestPerSensor(device string) map[string]models.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := make(map[string]keyedReading)
	for _, r := range s.items {
		if device != "" {
			if d, ok := r.Device(); !ok || d != device {
				continue
			}
		}
		sensor, ok := r.Sensor()
		if !ok {
			continue
		}
		k := receivedKeyOf(r)
		if cur, seen := best[sensor]; !seen || k.compare(cur.key) >= 0 {
			best[sensor] = keyedReading{r: r, key: k}
		}
	}

	out := make(map[string]models.Reading, len(best))
	for sensor, kr := range best {
		out[sensor] = kr.r
	}
	return out
}

// Devices lists distinct device ids in first-seen order.
func (s *RetentionStore) Devices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range s.items {
		d, ok := r.Device()
		if !ok {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

func (s *RetentionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *RetentionStore) Capacity() int { return s.capacity }

func (s *RetentionStore) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

type keyedReading struct {
	r   models.Reading
	key receivedKey
}

// receivedKey orders received_at values. Parsed times compare as times and rank
// after every unparsed value; unparsed values compare as text.
type receivedKey struct {
	text   string
	at     time.Time
	parsed bool
}

var receivedLayouts = []string{models.TimeLayout, time.RFC3339Nano}

func receivedKeyOf(r models.Reading) receivedKey {
	v, ok := r.ReceivedAt()
	if !ok {
		return receivedKey{}
	}
	s, isString := v.(string)
	if !isString {
		return receivedKey{text: fmt.Sprint(v)}
	}
	for _, layout := range receivedLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return receivedKey{text: s, at: t, parsed: true}
		}
	}
	return receivedKey{text: s}
}

func (k receivedKey) compare(o receivedKey) int {
	switch {
	case k.parsed && o.parsed:
		return k.at.Compare(o.at)
	case k.parsed:
		return 1
	case o.parsed:
		return -1
	case k.text < o.text:
		return -1
	case k.text > o.text:
		return 1
	default:
		return 0
	}
}
