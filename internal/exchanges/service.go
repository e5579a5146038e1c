package exchanges

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercatohq/barter-backend/internal/timeline"
	"github.com/mercatohq/barter-backend/pkg/db/models"
	"github.com/mercatohq/barter-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/barter-backend/pkg/errors"
	"github.com/mercatohq/barter-backend/pkg/logger"
)

// timelineRecorder is the write surface of the audit trail used by every
// transition.
type timelineRecorder interface {
	Record(ctx context.Context, input timeline.RecordEntryInput) (*models.TimelineEntry, error)
	ListByExchange(ctx context.Context, exchangeID uuid.UUID) ([]models.TimelineEntry, error)
}

// sellerLookup resolves which of the given users hold an approved seller
// registration.
type sellerLookup interface {
	FindApprovedByUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.SellerRegistration, error)
}

// addressFinder loads the shipping addresses referenced by an exchange.
type addressFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Address, error)
}

// Service is the registrar: it creates exchanges and serves the read path.
type Service interface {
	CreateExchange(ctx context.Context, initiatorID uuid.UUID, input CreateExchangeInput) (*ExchangeDetail, error)
	GetExchangeByID(ctx context.Context, id, callerID uuid.UUID) (*ExchangeDetail, error)
	ListExchanges(ctx context.Context, userID uuid.UUID, params ListParams) (*ExchangeList, error)
}

type service struct {
	repo      Repository
	sellers   sellerLookup
	addresses addressFinder
	timeline  timelineRecorder
	logg      *logger.Logger
}

// NewService builds the exchange registrar with the required collaborators.
func NewService(repo Repository, sellers sellerLookup, addresses addressFinder, recorder timelineRecorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("exchange repository required")
	}
	if sellers == nil {
		return nil, fmt.Errorf("seller lookup required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address finder required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("timeline recorder required")
	}
	return &service{
		repo:      repo,
		sellers:   sellers,
		addresses: addresses,
		timeline:  recorder,
		logg:      logg,
	}, nil
}

// CreateExchange validates eligibility, recomputes all money fields from the
// submitted items, and writes the exchange plus both item batches. If an item
// batch write fails, the already-written rows are deleted so no orphaned
// exchange survives.
func (s *service) CreateExchange(ctx context.Context, initiatorID uuid.UUID, input CreateExchangeInput) (*ExchangeDetail, error) {
	if initiatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ReceiverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver_id is required")
	}
	if initiatorID == input.ReceiverID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot open an exchange with yourself")
	}
	if len(input.InitiatorItems) == 0 || len(input.ReceiverItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both sides must offer at least one item")
	}
	if err := validateItems(input.InitiatorItems); err != nil {
		return nil, err
	}
	if err := validateItems(input.ReceiverItems); err != nil {
		return nil, err
	}

	approved, err := s.sellers.FindApprovedByUserIDs(ctx, []uuid.UUID{initiatorID, input.ReceiverID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check seller registrations")
	}
	missing := map[string]string{}
	if _, ok := approved[initiatorID]; !ok {
		missing["initiator"] = "seller registration not approved"
	}
	if _, ok := approved[input.ReceiverID]; !ok {
		missing["receiver"] = "seller registration not approved"
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEligibility, "both parties must be approved sellers").WithDetails(missing)
	}

	initiatorTotal := sumItemTotals(input.InitiatorItems)
	receiverTotal := sumItemTotals(input.ReceiverItems)

	exchange := &models.Exchange{
		ID:                      uuid.New(),
		InitiatorID:             initiatorID,
		ReceiverID:              input.ReceiverID,
		Status:                  enums.ExchangeStatusPending,
		PaymentStatus:           enums.PaymentStatusPending,
		PriceDifference:         receiverTotal.Sub(initiatorTotal),
		InitiatorAddressID:      input.InitiatorAddressID,
		InitiatorNotes:          input.InitiatorNotes,
		InitiatorDeliveryStatus: enums.DeliveryStatusPending,
		ReceiverDeliveryStatus:  enums.DeliveryStatusPending,
	}

	if err := s.repo.CreateExchange(ctx, exchange); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create exchange")
	}

	items := buildItems(exchange.ID, enums.ExchangeSideInitiator, input.InitiatorItems)
	items = append(items, buildItems(exchange.ID, enums.ExchangeSideReceiver, input.ReceiverItems)...)
	if err := s.repo.CreateExchangeItems(ctx, items); err != nil {
		// The store is not assumed to support multi-statement transactions,
		// so a failed item batch triggers a compensating delete of the
		// exchange row and any items already written.
		if delErr := s.repo.DeleteExchange(ctx, exchange.ID); delErr != nil && s.logg != nil {
			s.logg.Error(s.logg.WithExchangeID(ctx, exchange.ID.String()), "compensating exchange delete failed", delErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create exchange items")
	}
	exchange.Items = items

	s.recordTimeline(ctx, timeline.RecordEntryInput{
		ExchangeID:  exchange.ID,
		Action:      enums.TimelineActionExchangeCreated,
		Description: fmt.Sprintf("Exchange proposed with %d initiator and %d receiver items", len(input.InitiatorItems), len(input.ReceiverItems)),
		ActorID:     &initiatorID,
	})

	return s.loadDetail(ctx, exchange)
}

// GetExchangeByID returns the full aggregate. Only the two parties may read
// an exchange.
func (s *service) GetExchangeByID(ctx context.Context, id, callerID uuid.UUID) (*ExchangeDetail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange id required")
	}
	if callerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	exchange, err := s.repo.FindExchangeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exchange not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange")
	}
	if _, ok := exchange.SideOf(callerID); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller is not a party to this exchange")
	}
	return s.loadDetail(ctx, exchange)
}

func (s *service) ListExchanges(ctx context.Context, userID uuid.UUID, params ListParams) (*ExchangeList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if params.Filters.Role != nil && !params.Filters.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
	}
	if params.Filters.Status != nil && !params.Filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	list, err := s.repo.ListExchanges(ctx, userID, params.Filters, params.Pagination)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list exchanges")
	}
	return list, nil
}

func (s *service) loadDetail(ctx context.Context, exchange *models.Exchange) (*ExchangeDetail, error) {
	detail := &ExchangeDetail{Exchange: *exchange}

	entries, err := s.timeline.ListByExchange(ctx, exchange.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load timeline")
	}
	detail.Timeline = entries

	var addressIDs []uuid.UUID
	if exchange.InitiatorAddressID != nil {
		addressIDs = append(addressIDs, *exchange.InitiatorAddressID)
	}
	if exchange.ReceiverAddressID != nil {
		addressIDs = append(addressIDs, *exchange.ReceiverAddressID)
	}
	if len(addressIDs) > 0 {
		addresses, err := s.addresses.FindByIDs(ctx, addressIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load addresses")
		}
		for i := range addresses {
			addr := addresses[i]
			if exchange.InitiatorAddressID != nil && addr.ID == *exchange.InitiatorAddressID {
				detail.InitiatorAddress = &addr
			}
			if exchange.ReceiverAddressID != nil && addr.ID == *exchange.ReceiverAddressID {
				detail.ReceiverAddress = &addr
			}
		}
	}
	return detail, nil
}

func (s *service) recordTimeline(ctx context.Context, input timeline.RecordEntryInput) {
	if _, err := s.timeline.Record(ctx, input); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithExchangeID(ctx, input.ExchangeID.String()), "timeline record failed", err)
	}
}

// repoLookupError maps a repository read failure onto the service error
// taxonomy.
func repoLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "exchange not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange")
}

func validateItems(items []ItemInput) error {
	for i, item := range items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product_id is required", i))
		}
		if item.ProductName == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product_name is required", i))
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i))
		}
		if item.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: unit_price must not be negative", i))
		}
	}
	return nil
}

func sumItemTotals(items []ItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(itemTotal(item))
	}
	return total
}

func itemTotal(item ItemInput) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

func buildItems(exchangeID uuid.UUID, side enums.ExchangeSide, inputs []ItemInput) []models.ExchangeItem {
	items := make([]models.ExchangeItem, 0, len(inputs))
	for _, input := range inputs {
		items = append(items, models.ExchangeItem{
			ID:          uuid.New(),
			ExchangeID:  exchangeID,
			Side:        side,
			ProductID:   input.ProductID,
			ProductName: input.ProductName,
			ImageURL:    input.ImageURL,
			SKU:         input.SKU,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			TotalPrice:  itemTotal(input),
		})
	}
	return items
}
