package exchanges

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/barter-backend/pkg/db/models"
	"github.com/mercatohq/barter-backend/pkg/enums"
	"github.com/mercatohq/barter-backend/pkg/pagination"
)

// Repository defines persistence operations for exchanges and their items.
//
// Status transitions go through the conditional update helpers: the write is
// predicated on the expected prior status so concurrent transitions on the
// same row surface as a lost race instead of a silent double-apply.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateExchange(ctx context.Context, exchange *models.Exchange) error
	CreateExchangeItems(ctx context.Context, items []models.ExchangeItem) error
	DeleteExchange(ctx context.Context, id uuid.UUID) error
	FindExchangeByID(ctx context.Context, id uuid.UUID) (*models.Exchange, error)
	ListExchanges(ctx context.Context, userID uuid.UUID, filters ListFilters, params pagination.Params) (*ExchangeList, error)
	UpdateExchangeIfStatus(ctx context.Context, id uuid.UUID, expected enums.ExchangeStatus, updates map[string]any) (bool, error)
	UpdateExchangeIfNotStatus(ctx context.Context, id uuid.UUID, excluded enums.ExchangeStatus, updates map[string]any) (bool, error)
	UpdateDeliveryFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	GetDeliveryStatuses(ctx context.Context, id uuid.UUID) (initiator, receiver enums.DeliveryStatus, err error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an exchange repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateExchange(ctx context.Context, exchange *models.Exchange) error {
	if exchange.ID == uuid.Nil {
		exchange.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Items").Create(exchange).Error
}

func (r *repository) CreateExchangeItems(ctx context.Context, items []models.ExchangeItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// DeleteExchange removes the exchange row and any items already written for
// it. This is the compensation path for a failed create, not a user-facing
// delete.
func (r *repository) DeleteExchange(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("exchange_id = ?", id).
		Delete(&models.ExchangeItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Exchange{}).Error
}

func (r *repository) FindExchangeByID(ctx context.Context, id uuid.UUID) (*models.Exchange, error) {
	var exchange models.Exchange
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("exchange_items.created_at ASC")
		}).
		Where("id = ?", id).
		First(&exchange).Error
	if err != nil {
		return nil, err
	}
	return &exchange, nil
}

func (r *repository) ListExchanges(ctx context.Context, userID uuid.UUID, filters ListFilters, params pagination.Params) (*ExchangeList, error) {
	query := r.db.WithContext(ctx).Model(&models.Exchange{}).Preload("Items")

	switch {
	case filters.Role != nil && *filters.Role == enums.ExchangeSideInitiator:
		query = query.Where("initiator_id = ?", userID)
	case filters.Role != nil && *filters.Role == enums.ExchangeSideReceiver:
		query = query.Where("receiver_id = ?", userID)
	default:
		query = query.Where("initiator_id = ? OR receiver_id = ?", userID, userID)
	}

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)

	var exchanges []models.Exchange
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&exchanges).Error
	if err != nil {
		return nil, err
	}

	list := &ExchangeList{Exchanges: exchanges}
	if len(exchanges) > limit {
		list.Exchanges = exchanges[:limit]
		last := list.Exchanges[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

// UpdateExchangeIfStatus applies updates only when the row still carries the
// expected status. Returns false when the precondition no longer holds.
func (r *repository) UpdateExchangeIfStatus(ctx context.Context, id uuid.UUID, expected enums.ExchangeStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Exchange{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateExchangeIfNotStatus applies updates only while the row has not yet
// reached the excluded status. This is the idempotence gate for completion.
func (r *repository) UpdateExchangeIfNotStatus(ctx context.Context, id uuid.UUID, excluded enums.ExchangeStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Exchange{}).
		Where("id = ? AND status <> ?", id, excluded).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateDeliveryFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Exchange{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// GetDeliveryStatuses re-reads both sides' delivery statuses from the row.
func (r *repository) GetDeliveryStatuses(ctx context.Context, id uuid.UUID) (enums.DeliveryStatus, enums.DeliveryStatus, error) {
	var exchange models.Exchange
	err := r.db.WithContext(ctx).
		Select("initiator_delivery_status", "receiver_delivery_status").
		Where("id = ?", id).
		First(&exchange).Error
	if err != nil {
		return "", "", err
	}
	return exchange.InitiatorDeliveryStatus, exchange.ReceiverDeliveryStatus, nil
}
