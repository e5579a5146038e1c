package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/barter-backend/pkg/db/models"
)

// Repository manages persistence for inventory holds and the lock flags on
// exchange items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindExchange(ctx context.Context, exchangeID uuid.UUID) (*models.Exchange, error)
	FindItemsByExchange(ctx context.Context, exchangeID uuid.UUID) ([]models.ExchangeItem, error)
	CreateHold(ctx context.Context, hold *models.InventoryHold) error
	MarkItemLocked(ctx context.Context, itemID uuid.UUID, lockedAt time.Time) error
	ReleaseHoldsForItems(ctx context.Context, itemIDs []uuid.UUID, releasedAt time.Time) (int64, error)
	ClearItemLocks(ctx context.Context, exchangeID uuid.UUID, releasedAt time.Time) error
	FindActiveHoldsForItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.InventoryHold, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindExchange(ctx context.Context, exchangeID uuid.UUID) (*models.Exchange, error) {
	var exchange models.Exchange
	if err := r.db.WithContext(ctx).Where("id = ?", exchangeID).First(&exchange).Error; err != nil {
		return nil, err
	}
	return &exchange, nil
}

func (r *repository) FindItemsByExchange(ctx context.Context, exchangeID uuid.UUID) ([]models.ExchangeItem, error) {
	var items []models.ExchangeItem
	err := r.db.WithContext(ctx).
		Where("exchange_id = ?", exchangeID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CreateHold(ctx context.Context, hold *models.InventoryHold) error {
	if hold.ID == uuid.Nil {
		hold.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(hold).Error
}

func (r *repository) MarkItemLocked(ctx context.Context, itemID uuid.UUID, lockedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ExchangeItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"is_locked": true,
			"locked_at": lockedAt,
		}).Error
}

// ReleaseHoldsForItems deactivates the active holds for the given items and
// returns how many rows changed. Already-released holds are untouched, which
// keeps repeated release passes no-ops.
func (r *repository) ReleaseHoldsForItems(ctx context.Context, itemIDs []uuid.UUID, releasedAt time.Time) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.InventoryHold{}).
		Where("exchange_item_id IN ? AND is_active = ?", itemIDs, true).
		Updates(map[string]any{
			"is_active":   false,
			"released_at": releasedAt,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) ClearItemLocks(ctx context.Context, exchangeID uuid.UUID, releasedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ExchangeItem{}).
		Where("exchange_id = ? AND is_locked = ?", exchangeID, true).
		Updates(map[string]any{
			"is_locked":   false,
			"released_at": releasedAt,
		}).Error
}

func (r *repository) FindActiveHoldsForItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.InventoryHold, error) {
	var holds []models.InventoryHold
	if len(itemIDs) == 0 {
		return holds, nil
	}
	err := r.db.WithContext(ctx).
		Where("exchange_item_id IN ? AND is_active = ?", itemIDs, true).
		Find(&holds).Error
	if err != nil {
		return nil, err
	}
	return holds, nil
}
