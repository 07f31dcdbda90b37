package service

import (
	"sync"
	"sync/atomic"
	"time"

	"mqtt_dashboard/internal/logger"
	"mqtt_dashboard/internal/models"
)

// IngestionStats counts inbound payloads since start.
type IngestionStats struct {
	Accepted  uint64 `json:"accepted"`
	Discarded uint64 `json:"discarded"`
}

// IngestionBuffer sits between the transport's delivery goroutine and the
// owner that drains into the RetentionStore. OnMessage only touches the
// pending queue.
type IngestionBuffer struct {
	mu      sync.Mutex
	pending []models.Reading

	accepted  atomic.Uint64
	discarded atomic.Uint64

	now func() time.Time
	log *logger.Logger
}

func NewIngestionBuffer(log *logger.Logger) *IngestionBuffer {
	if log == nil {
		log = logger.Nop()
	}
	return &IngestionBuffer{now: time.Now, log: log}
}

// OnMessage decodes and queues one raw payload. Malformed payloads are dropped.
func (b *IngestionBuffer) OnMessage(payload []byte) {
	r, err := decodeReading(payload)
	if err != nil {
		b.discarded.Add(1)
		b.log.Debugw("ingest_payload_discarded", "err", err, "bytes", len(payload))
		return
	}
	r.StampReceivedAt(b.now())

	b.mu.Lock()
	b.pending = append(b.pending, r)
	b.mu.Unlock()
	b.accepted.Add(1)
}

// Drain removes and returns everything queued, in arrival order.
func (b *IngestionBuffer) Drain() []models.Reading {
	b.mu.Lock()
	out := b.pending
	b.pending = nil
	b.mu.Unlock()

	if out == nil {
		return []models.Reading{}
	}
	return out
}

func (b *IngestionBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *IngestionBuffer) Stats() IngestionStats {
	return IngestionStats{Accepted: b.accepted.Load(), Discarded: b.discarded.Load()}
}
