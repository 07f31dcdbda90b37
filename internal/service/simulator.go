package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"mqtt_dashboard/internal/logger"
	"mqtt_dashboard/internal/models"
)

const maxVariationPercent = 100.0

var (
	errInvalidInterval  = errors.New("invalid simulation: interval must be > 0")
	errInvalidVariation = errors.New("invalid simulation: variation percent must be in (0, 100]")
	errEmptyTemplate    = errors.New("invalid simulation: template reading is empty")
)

// SimulatorService runs at most one timed stream of synthetic readings.
type SimulatorService struct {
	messages Messages
	conn     connectionState
	activity ActivityLog
	log      *logger.Logger
	now      func() time.Time
	rnd      func() float64 // uniform in [0, 1)

	mu       sync.Mutex
	progress models.SimulationProgress
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSimulatorService(messages Messages, conn connectionState, activity ActivityLog, log *logger.Logger) *SimulatorService {
	if log == nil {
		log = logger.Nop()
	}
	return &SimulatorService{
		messages: messages,
		conn:     conn,
		activity: activity,
		log:      log,
		now:      time.Now,
		rnd:      rand.Float64,
		progress: models.SimulationProgress{State: models.SimulationIdle},
	}
}

// Start launches the stream in its own goroutine.
func (s *SimulatorService) Start(p SimulationParams) error {
	if err := validateSimulation(p); err != nil {
		return err
	}
	if !s.conn.IsConnected() {
		return ErrNotConnected
	}

	s.mu.Lock()
	if s.progress.State == models.SimulationRunning {
		s.mu.Unlock()
		return ErrSimulationRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.progress = models.SimulationProgress{
		State:     models.SimulationRunning,
		Topic:     p.Topic,
		Count:     p.Count,
		StartedAt: s.now(),
	}
	s.mu.Unlock()

	meta := map[string]any{"topic": p.Topic, "count": p.Count, "interval": p.Interval.String()}
	if p.Variation != nil {
		meta["variation_percent"] = p.Variation.Percent
	}
	s.record(models.EventSimulationOn, "Simulation started on "+p.Topic, meta)
	s.log.Infow("simulation_started", "topic", p.Topic, "count", p.Count, "interval", p.Interval)

	go s.run(ctx, p, done)
	return nil
}

// Run loop: tick immediately, then once per interval until count is reached or ctx ends.
func (s *SimulatorService) run(ctx context.Context, p SimulationParams, done chan struct{}) {
	defer close(done)

	t := time.NewTicker(p.Interval)
	defer t.Stop()

	for {
		if ctx.Err() != nil {
			s.finish(models.SimulationCancelled)
			return
		}

		_, err := s.messages.Send(ctx, p.Topic, s.buildTick(p))
		sent := s.countTick(err)
		if err != nil {
			s.log.Warnw("simulation_tick_failed", "topic", p.Topic, "err", err)
		}
		if p.Count > 0 && sent >= p.Count {
			s.finish(models.SimulationCompleted)
			return
		}

		select {
		case <-ctx.Done():
			s.finish(models.SimulationCancelled)
			return
		case <-t.C:
		}
	}
}

// buildTick makes the message for one tick from a copy of the template.
func (s *SimulatorService) buildTick(p SimulationParams) models.Reading {
	msg := p.Template.Clone()
	if p.Variation != nil {
		if base, ok := numericValue(msg[models.FieldSensorValue]); ok {
			msg[models.FieldSensorValue] = vary(base, p.Variation.Percent, s.rnd)
		}
	}
	if p.Template.HasTimestamp() {
		msg[models.FieldTimestamp] = s.now().Format(models.TimeLayout)
	}
	return msg
}

func (s *SimulatorService) countTick(err error) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Attempts++
	if err != nil {
		s.progress.Failures++
		s.progress.LastError = err.Error()
	} else {
		s.progress.Sent++
	}
	return s.progress.Sent
}

func (s *SimulatorService) finish(state models.SimulationState) {
	s.mu.Lock()
	s.progress.State = state
	s.progress.FinishedAt = s.now()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	pr := s.progress
	s.mu.Unlock()

	s.log.Infow("simulation_finished", "state", state, "sent", pr.Sent, "count", pr.Count)
	s.record(models.EventSimulationOff, fmt.Sprintf("Simulation %s - sent %d messages", state, pr.Sent), map[string]any{
		"state":    string(state),
		"sent":     pr.Sent,
		"count":    pr.Count,
		"failures": pr.Failures,
	})
}

// Cancel asks a running stream to stop; it takes effect at the next tick
// boundary or immediately if the loop is waiting. It does not block.
func (s *SimulatorService) Cancel() bool {
	s.mu.Lock()
	cancel := s.cancel
	running := s.progress.State == models.SimulationRunning
	s.mu.Unlock()

	if !running || cancel == nil {
		return false
	}
	cancel()
	return true
}

// Wait blocks until the current stream, if any, has finished.
func (s *SimulatorService) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *SimulatorService) Progress() models.SimulationProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *SimulatorService) record(typ, desc string, meta any) {
	if s.activity != nil {
		s.activity.Record(context.Background(), typ, desc, meta)
	}
}

func validateSimulation(p SimulationParams) error {
	switch {
	case len(p.Template) == 0:
		return errEmptyTemplate
	case !validTopic(p.Topic):
		return ErrInvalidTopic
	case p.Interval <= 0:
		return errInvalidInterval
	case p.Variation != nil && (p.Variation.Percent <= 0 || p.Variation.Percent > maxVariationPercent):
		return errInvalidVariation
	}
	return nil
}

// vary returns base moved by a uniform offset in [-percent%, +percent%] of base,
// rounded to one decimal.
func vary(base, percent float64, rnd func() float64) float64 {
	amount := base * percent / 100
	return roundTenth(base + (rnd()*2-1)*amount)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
