package addresses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/barter-backend/pkg/db/models"
	pkgerrors "github.com/mercatohq/barter-backend/pkg/errors"
)

// Service exposes per-user address CRUD. At most one address per user is the
// default; deletes are soft so historical exchanges keep their references.
type Service interface {
	CreateAddress(ctx context.Context, userID uuid.UUID, input CreateAddressInput) (*models.Address, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	DeleteAddress(ctx context.Context, id, callerID uuid.UUID) error
}

// CreateAddressInput carries the fields accepted for a new address.
type CreateAddressInput struct {
	Label      *string `json:"label"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone"`
	IsDefault  bool    `json:"is_default"`
}

type service struct {
	repo Repository
}

// NewService wires an address service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateAddress(ctx context.Context, userID uuid.UUID, input CreateAddressInput) (*models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Line1 == "" || input.City == "" || input.State == "" || input.PostalCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line1, city, state and postal_code are required")
	}

	country := input.Country
	if country == "" {
		country = "US"
	}

	if input.IsDefault {
		if err := s.repo.ClearDefaults(ctx, userID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default addresses")
		}
	}

	address := &models.Address{
		UserID:     userID,
		Label:      input.Label,
		Line1:      input.Line1,
		Line2:      input.Line2,
		City:       input.City,
		State:      input.State,
		PostalCode: input.PostalCode,
		Country:    country,
		Phone:      input.Phone,
		IsDefault:  input.IsDefault,
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, address); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	return address, nil
}

func (s *service) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return addresses, nil
}

func (s *service) DeleteAddress(ctx context.Context, id, callerID uuid.UUID) error {
	if callerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	address, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if address.UserID != callerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "address does not belong to caller")
	}
	if err := s.repo.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	return nil
}
