package service

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"mqtt_dashboard/internal/logger"
	"mqtt_dashboard/internal/models"
	"mqtt_dashboard/internal/repository"

	"github.com/google/uuid"
)

const (
	// DefaultActivityKeep bounds the activity log.
	DefaultActivityKeep = 5000
	trimEvery           = 100
)

// ActivityService records and lists operator-visible events.
type ActivityService struct {
	repo    repository.ActivityRepo
	log     *logger.Logger
	keep    int
	now     func() time.Time
	appends atomic.Uint64
}

func NewActivityService(repo repository.ActivityRepo, keep int, log *logger.Logger) *ActivityService {
	if log == nil {
		log = logger.Nop()
	}
	if keep <= 0 {
		keep = DefaultActivityKeep
	}
	return &ActivityService{repo: repo, log: log, keep: keep, now: time.Now}
}

// Record appends an event. Failures are logged and never reach the caller.
func (s *ActivityService) Record(ctx context.Context, typ, desc string, meta any) {
	ev := models.ActivityEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  s.now().UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	}
	if err := s.repo.Append(ctx, ev); err != nil {
		s.log.Warnw("activity_append_failed", "type", typ, "err", err)
		return
	}
	if s.appends.Add(1)%trimEvery == 0 {
		if _, err := s.repo.Trim(ctx, s.keep); err != nil {
			s.log.Warnw("activity_trim_failed", "err", err)
		}
	}
}

func (s *ActivityService) List(ctx context.Context, f LogFilter) ([]models.ActivityEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, from, to, typ)
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}
	return from, to, normalizeEventType(f.Type), nil
}
