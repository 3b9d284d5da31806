package cartevents

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

// Recorder stores informational cart events. Failures are logged and swallowed.
type Recorder interface {
	Record(ctx context.Context, events ...models.CartEvent)
}

// Repository persists cart events.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes events in one statement.
func (r *Repository) Insert(ctx context.Context, events []models.CartEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&events).Error
}

// ListForCart returns the events of a cart in insertion order.
func (r *Repository) ListForCart(ctx context.Context, cartID uuid.UUID) ([]models.CartEvent, error) {
	var rows []models.CartEvent
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

type rowInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
	CartEventsTable() string
}

type recorder struct {
	repo   *Repository
	mirror rowInserter
	logg   *logger.Logger
}

// NewRecorder builds a recorder writing to repo and, when set, mirroring to BigQuery.
func NewRecorder(repo *Repository, mirror rowInserter, logg *logger.Logger) (Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart event repository required")
	}
	return &recorder{repo: repo, mirror: mirror, logg: logg}, nil
}

func (r *recorder) Record(ctx context.Context, events ...models.CartEvent) {
	if len(events) == 0 {
		return
	}
	if err := r.repo.Insert(ctx, events); err != nil {
		r.warn(ctx, "cart event insert failed", err)
		return
	}
	if r.mirror == nil {
		return
	}
	rows := make([]any, 0, len(events))
	for i := range events {
		rows = append(rows, bigQueryRow{event: events[i]})
	}
	if err := r.mirror.InsertRows(ctx, r.mirror.CartEventsTable(), rows); err != nil {
		r.warn(ctx, "cart event mirror failed", err)
	}
}

func (r *recorder) warn(ctx context.Context, msg string, err error) {
	if r.logg == nil {
		return
	}
	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), msg)
}

type discard struct{}

func (discard) Record(context.Context, ...models.CartEvent) {}

// Discard drops every event.
var Discard Recorder = discard{}
