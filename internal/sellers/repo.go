package sellers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/barter-backend/pkg/db/models"
	"github.com/mercatohq/barter-backend/pkg/enums"
)

// Repository looks up seller registrations. Registration review itself is
// owned by the admin platform; this service only reads approval state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindApprovedByUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.SellerRegistration, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a seller registration repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindApprovedByUserIDs resolves approved registrations for all requested
// users in a single query. Users without an approved registration are simply
// absent from the result map.
func (r *repository) FindApprovedByUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.SellerRegistration, error) {
	result := make(map[uuid.UUID]models.SellerRegistration, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var registrations []models.SellerRegistration
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND status = ?", userIDs, enums.RegistrationStatusApproved).
		Find(&registrations).Error
	if err != nil {
		return nil, err
	}
	for _, registration := range registrations {
		result[registration.UserID] = registration
	}
	return result, nil
}
