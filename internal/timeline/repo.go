package timeline

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/barter-backend/pkg/db/models"
)

// Repository manages persistence for timeline entries. Entries are insert-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.TimelineEntry) error
	ListByExchangeID(ctx context.Context, exchangeID uuid.UUID) ([]models.TimelineEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a timeline repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.TimelineEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByExchangeID returns entries newest-first.
func (r *repository) ListByExchangeID(ctx context.Context, exchangeID uuid.UUID) ([]models.TimelineEntry, error) {
	var entries []models.TimelineEntry
	err := r.db.WithContext(ctx).
		Where("exchange_id = ?", exchangeID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
