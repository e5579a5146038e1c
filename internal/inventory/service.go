package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mercatohq/barter-backend/pkg/db"
	"github.com/mercatohq/barter-backend/pkg/db/models"
	"github.com/mercatohq/barter-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/barter-backend/pkg/errors"
	"github.com/mercatohq/barter-backend/pkg/logger"
	"github.com/mercatohq/barter-backend/pkg/metrics"
)

// Service creates and releases inventory holds for the items of an exchange.
//
// Hold writes are best-effort: a failure on an individual hold is logged and
// does not abort the parent approval. Release is safe to invoke repeatedly.
type Service interface {
	LockAll(ctx context.Context, exchangeID uuid.UUID) error
	ReleaseAll(ctx context.Context, exchangeID uuid.UUID) error
}

type service struct {
	repo    Repository
	metrics *metrics.ExchangeMetrics
	logg    *logger.Logger
}

// NewService wires an inventory reservation service.
func NewService(repo Repository, m *metrics.ExchangeMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, metrics: m, logg: logg}, nil
}

// LockAll inserts one active hold per exchange item and flips the item lock
// flag. The hold owner is the party whose shop currently stocks the item.
func (s *service) LockAll(ctx context.Context, exchangeID uuid.UUID) error {
	if exchangeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "exchange id required")
	}

	exchange, err := s.repo.FindExchange(ctx, exchangeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange for locking")
	}
	items, err := s.repo.FindItemsByExchange(ctx, exchangeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange items for locking")
	}

	now := time.Now().UTC()
	for _, item := range items {
		owner := exchange.InitiatorID
		if item.Side == enums.ExchangeSideReceiver {
			owner = exchange.ReceiverID
		}

		hold := &models.InventoryHold{
			ExchangeItemID: item.ID,
			OwnerUserID:    owner,
			QuantityHeld:   item.Quantity,
			Reason:         models.HoldReasonExchange,
			IsActive:       true,
		}
		if err := s.repo.CreateHold(ctx, hold); err != nil {
			// A replayed lock pass trips the active-hold unique index; the
			// item is already held, so only flag failures are worth noise.
			if !db.IsUniqueViolation(err, "uniq_inventory_holds_active_item") {
				s.logHoldFailure(ctx, exchangeID, item.ID, "create hold", err)
				continue
			}
		}
		if err := s.repo.MarkItemLocked(ctx, item.ID, now); err != nil {
			s.logHoldFailure(ctx, exchangeID, item.ID, "mark item locked", err)
		}
	}
	return nil
}

// ReleaseAll deactivates every active hold for the exchange's items and
// clears the item lock flags. Re-releasing an inactive hold is a no-op.
func (s *service) ReleaseAll(ctx context.Context, exchangeID uuid.UUID) error {
	if exchangeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "exchange id required")
	}

	items, err := s.repo.FindItemsByExchange(ctx, exchangeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange items for release")
	}
	if len(items) == 0 {
		return nil
	}

	itemIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}

	now := time.Now().UTC()
	if _, err := s.repo.ReleaseHoldsForItems(ctx, itemIDs, now); err != nil {
		s.logHoldFailure(ctx, exchangeID, uuid.Nil, "release holds", err)
	}
	if err := s.repo.ClearItemLocks(ctx, exchangeID, now); err != nil {
		s.logHoldFailure(ctx, exchangeID, uuid.Nil, "clear item locks", err)
	}
	return nil
}

func (s *service) logHoldFailure(ctx context.Context, exchangeID, itemID uuid.UUID, step string, err error) {
	s.metrics.IncHoldError()
	if s.logg == nil {
		return
	}
	fields := map[string]any{
		"exchange_id": exchangeID.String(),
		"step":        step,
	}
	if itemID != uuid.Nil {
		fields["exchange_item_id"] = itemID.String()
	}
	s.logg.Error(s.logg.WithFields(ctx, fields), "inventory hold write failed", err)
}
