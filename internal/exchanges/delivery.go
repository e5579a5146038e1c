package exchanges

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mercatohq/barter-backend/internal/timeline"
	"github.com/mercatohq/barter-backend/pkg/db/models"
	"github.com/mercatohq/barter-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/barter-backend/pkg/errors"
	"github.com/mercatohq/barter-backend/pkg/logger"
	"github.com/mercatohq/barter-backend/pkg/metrics"
)

// DeliveryService tracks each party's shipment independently and completes
// the exchange once both sides report delivery.
type DeliveryService interface {
	UpdateDeliveryStatus(ctx context.Context, id, callerID uuid.UUID, input DeliveryUpdateInput) (*models.Exchange, error)
}

type deliveryService struct {
	repo      Repository
	lifecycle LifecycleService
	timeline  timelineRecorder
	metrics   *metrics.ExchangeMetrics
	logg      *logger.Logger
}

// NewDeliveryService builds the delivery tracker. The lifecycle service is
// the only component allowed to complete an exchange, so it is a hard
// dependency here.
func NewDeliveryService(repo Repository, lifecycle LifecycleService, recorder timelineRecorder, m *metrics.ExchangeMetrics, logg *logger.Logger) (DeliveryService, error) {
	if repo == nil {
		return nil, fmt.Errorf("exchange repository required")
	}
	if lifecycle == nil {
		return nil, fmt.Errorf("lifecycle service required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("timeline recorder required")
	}
	return &deliveryService{
		repo:      repo,
		lifecycle: lifecycle,
		timeline:  recorder,
		metrics:   m,
		logg:      logg,
	}, nil
}

// UpdateDeliveryStatus records one side's shipment progress. Only the caller's
// own delivery columns are ever written. The first update that marks a
// shipment also moves the exchange from approved to in_transit; when a
// re-read shows both sides delivered, completion is delegated to the
// lifecycle service.
func (s *deliveryService) UpdateDeliveryStatus(ctx context.Context, id, callerID uuid.UUID, input DeliveryUpdateInput) (*models.Exchange, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange id required")
	}
	if callerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.DeliveryStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown delivery status %q", input.DeliveryStatus))
	}

	exchange, err := s.loadExchange(ctx, id)
	if err != nil {
		return nil, err
	}
	side, ok := exchange.SideOf(callerID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller is not a party to this exchange")
	}
	if exchange.Status != enums.ExchangeStatusApproved && exchange.Status != enums.ExchangeStatusInTransit {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("delivery updates are not accepted in status %q", exchange.Status))
	}

	updates := map[string]any{}
	switch side {
	case enums.ExchangeSideInitiator:
		updates["initiator_delivery_status"] = input.DeliveryStatus
		if input.TrackingNumber != nil {
			updates["initiator_tracking_number"] = *input.TrackingNumber
		}
	case enums.ExchangeSideReceiver:
		updates["receiver_delivery_status"] = input.DeliveryStatus
		if input.TrackingNumber != nil {
			updates["receiver_tracking_number"] = *input.TrackingNumber
		}
	}
	if err := s.repo.UpdateDeliveryFields(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery fields")
	}

	// The first shipment-marking update wins the approved -> in_transit race
	// and stamps shipped_at; the loser's conditional write affects no rows.
	if input.DeliveryStatus.MarksShipment() && exchange.Status == enums.ExchangeStatusApproved {
		moved, err := s.repo.UpdateExchangeIfStatus(ctx, id, enums.ExchangeStatusApproved, map[string]any{
			"status":     enums.ExchangeStatusInTransit,
			"shipped_at": time.Now().UTC(),
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark exchange in transit")
		}
		if moved {
			s.metrics.IncTransition("ship")
		}
	}

	s.recordTimeline(ctx, timeline.RecordEntryInput{
		ExchangeID:  id,
		Action:      enums.TimelineActionDeliveryUpdated,
		Description: fmt.Sprintf("%s delivery status set to %s", sideLabel(side), input.DeliveryStatus),
		ActorID:     &callerID,
	})

	initiatorStatus, receiverStatus, err := s.repo.GetDeliveryStatuses(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read delivery statuses")
	}
	if initiatorStatus == enums.DeliveryStatusDelivered && receiverStatus == enums.DeliveryStatusDelivered {
		if err := s.lifecycle.CompleteExchange(ctx, id); err != nil {
			return nil, err
		}
	}

	return s.loadExchange(ctx, id)
}

func (s *deliveryService) loadExchange(ctx context.Context, id uuid.UUID) (*models.Exchange, error) {
	exchange, err := s.repo.FindExchangeByID(ctx, id)
	if err != nil {
		return nil, repoLookupError(err)
	}
	return exchange, nil
}

func (s *deliveryService) recordTimeline(ctx context.Context, input timeline.RecordEntryInput) {
	if _, err := s.timeline.Record(ctx, input); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithExchangeID(ctx, input.ExchangeID.String()), "timeline record failed", err)
	}
}

func sideLabel(side enums.ExchangeSide) string {
	if side == enums.ExchangeSideReceiver {
		return "Receiver"
	}
	return "Initiator"
}
