package repository

import (
	"context"
	"database/sql"
	"time"

	"mqtt_dashboard/internal/models"
)

// ActivityRepo is the append-only operator activity log.
type ActivityRepo interface {
	Append(ctx context.Context, e models.ActivityEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ActivityEvent, error)
	Trim(ctx context.Context, keep int) (int64, error)
}

type Repository struct {
	Activity ActivityRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Activity: NewActivitySQLite(db),
	}
}
