package exchanges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatohq/barter-backend/internal/timeline"
	"github.com/mercatohq/barter-backend/pkg/db/models"
	"github.com/mercatohq/barter-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/barter-backend/pkg/errors"
	"github.com/mercatohq/barter-backend/pkg/logger"
	"github.com/mercatohq/barter-backend/pkg/metrics"
)

// inventoryReserver creates and releases holds on the exchange's items.
type inventoryReserver interface {
	LockAll(ctx context.Context, exchangeID uuid.UUID) error
	ReleaseAll(ctx context.Context, exchangeID uuid.UUID) error
}

// CompletionHook routes a traded item into its new owner's inventory once an
// exchange completes. The stock-ledger side of this is owned elsewhere; the
// default implementation does nothing.
type CompletionHook interface {
	OnExchangeCompleted(ctx context.Context, item models.ExchangeItem, newOwnerID uuid.UUID) error
}

// NoopCompletionHook is the default CompletionHook.
type NoopCompletionHook struct{}

func (NoopCompletionHook) OnExchangeCompleted(ctx context.Context, item models.ExchangeItem, newOwnerID uuid.UUID) error {
	return nil
}

// LifecycleService drives the exchange state machine.
//
// Every transition re-reads the row for its precondition checks and then
// conditions the write on the expected prior status, so two parties racing on
// the same exchange get a conflict instead of a double-applied transition.
type LifecycleService interface {
	ApproveExchange(ctx context.Context, id, callerID, receiverAddressID uuid.UUID) (*models.Exchange, error)
	RejectExchange(ctx context.Context, id, callerID uuid.UUID, reason *string) (*models.Exchange, error)
	CancelExchange(ctx context.Context, id, callerID uuid.UUID, reason *string) (*models.Exchange, error)
	CompleteExchange(ctx context.Context, id uuid.UUID) error
}

type lifecycleService struct {
	repo      Repository
	inventory inventoryReserver
	timeline  timelineRecorder
	hook      CompletionHook
	metrics   *metrics.ExchangeMetrics
	logg      *logger.Logger
}

// NewLifecycleService builds the exchange state machine.
func NewLifecycleService(repo Repository, reserver inventoryReserver, recorder timelineRecorder, hook CompletionHook, m *metrics.ExchangeMetrics, logg *logger.Logger) (LifecycleService, error) {
	if repo == nil {
		return nil, fmt.Errorf("exchange repository required")
	}
	if reserver == nil {
		return nil, fmt.Errorf("inventory reserver required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("timeline recorder required")
	}
	if hook == nil {
		hook = NoopCompletionHook{}
	}
	return &lifecycleService{
		repo:      repo,
		inventory: reserver,
		timeline:  recorder,
		hook:      hook,
		metrics:   m,
		logg:      logg,
	}, nil
}

// ApproveExchange is legal only for the receiver of a pending exchange. On
// success it stamps the approval, stores the receiver's address, and creates
// inventory holds for every item. Holds are created only here: a mere
// proposal never touches inventory.
func (s *lifecycleService) ApproveExchange(ctx context.Context, id, callerID, receiverAddressID uuid.UUID) (*models.Exchange, error) {
	if receiverAddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver_address_id is required")
	}

	exchange, err := s.loadForTransition(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if callerID != exchange.ReceiverID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the receiver may approve an exchange")
	}
	if exchange.Status != enums.ExchangeStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot approve an exchange in status %q", exchange.Status))
	}

	now := time.Now().UTC()
	ok, err := s.repo.UpdateExchangeIfStatus(ctx, id, enums.ExchangeStatusPending, map[string]any{
		"status":              enums.ExchangeStatusApproved,
		"approved_at":         now,
		"receiver_address_id": receiverAddressID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve exchange")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "exchange was modified concurrently")
	}

	// Hold creation is deliberately outside the status write; individual
	// failures are logged inside LockAll and never roll back the approval.
	if err := s.inventory.LockAll(ctx, id); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithExchangeID(ctx, id.String()), "inventory lock pass failed", err)
	}

	s.recordTimeline(ctx, timeline.RecordEntryInput{
		ExchangeID:  id,
		Action:      enums.TimelineActionExchangeApproved,
		Description: "Exchange approved by the receiver; items locked for trade",
		ActorID:     &callerID,
	})
	s.metrics.IncTransition("approve")

	return s.reload(ctx, id)
}

// RejectExchange is legal only for the receiver of a pending exchange.
func (s *lifecycleService) RejectExchange(ctx context.Context, id, callerID uuid.UUID, reason *string) (*models.Exchange, error) {
	exchange, err := s.loadForTransition(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if callerID != exchange.ReceiverID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the receiver may reject an exchange")
	}
	if exchange.Status != enums.ExchangeStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot reject an exchange in status %q", exchange.Status))
	}

	updated, err := s.closeExchange(ctx, id, enums.ExchangeStatusRejected, reason)
	if err != nil {
		return nil, err
	}

	s.recordTimeline(ctx, timeline.RecordEntryInput{
		ExchangeID:  id,
		Action:      enums.TimelineActionExchangeRejected,
		Description: closeDescription("Exchange rejected by the receiver", reason),
		ActorID:     &callerID,
	})
	s.metrics.IncTransition("reject")
	return updated, nil
}

// CancelExchange is legal only for the initiator of a pending exchange.
func (s *lifecycleService) CancelExchange(ctx context.Context, id, callerID uuid.UUID, reason *string) (*models.Exchange, error) {
	exchange, err := s.loadForTransition(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if callerID != exchange.InitiatorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the initiator may cancel an exchange")
	}
	if exchange.Status != enums.ExchangeStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot cancel an exchange in status %q", exchange.Status))
	}

	updated, err := s.closeExchange(ctx, id, enums.ExchangeStatusCancelled, reason)
	if err != nil {
		return nil, err
	}

	s.recordTimeline(ctx, timeline.RecordEntryInput{
		ExchangeID:  id,
		Action:      enums.TimelineActionExchangeCancelled,
		Description: closeDescription("Exchange cancelled by the initiator", reason),
		ActorID:     &callerID,
	})
	s.metrics.IncTransition("cancel")
	return updated, nil
}

// CompleteExchange finalizes a mutually-delivered exchange. It is invoked by
// the delivery tracker from both sides' update calls, so the status write is
// gated on "not yet completed": the losing invocation is a no-op. Exactly one
// caller releases the holds, fires the completion hooks, and records the
// timeline entry.
func (s *lifecycleService) CompleteExchange(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "exchange id required")
	}

	exchange, err := s.repo.FindExchangeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "exchange not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange")
	}

	now := time.Now().UTC()
	won, err := s.repo.UpdateExchangeIfNotStatus(ctx, id, enums.ExchangeStatusCompleted, map[string]any{
		"status":       enums.ExchangeStatusCompleted,
		"delivered_at": now,
		"completed_at": now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete exchange")
	}
	if !won {
		// Another delivery update already completed the exchange.
		return nil
	}

	if err := s.inventory.ReleaseAll(ctx, id); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithExchangeID(ctx, id.String()), "inventory release pass failed", err)
	}

	for _, item := range exchange.Items {
		newOwner := exchange.ReceiverID
		if item.Side == enums.ExchangeSideReceiver {
			newOwner = exchange.InitiatorID
		}
		if err := s.hook.OnExchangeCompleted(ctx, item, newOwner); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithExchangeID(ctx, id.String()), "completion hook failed", err)
		}
	}

	s.recordTimeline(ctx, timeline.RecordEntryInput{
		ExchangeID:  id,
		Action:      enums.TimelineActionExchangeCompleted,
		Description: "Both parties confirmed delivery; exchange completed",
		ActorID:     nil,
	})
	s.metrics.IncTransition("complete")
	return nil
}

func (s *lifecycleService) loadForTransition(ctx context.Context, id, callerID uuid.UUID) (*models.Exchange, error) {
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
	return exchange, nil
}

func (s *lifecycleService) closeExchange(ctx context.Context, id uuid.UUID, status enums.ExchangeStatus, reason *string) (*models.Exchange, error) {
	updates := map[string]any{
		"status":       status,
		"cancelled_at": time.Now().UTC(),
	}
	if reason != nil {
		updates["cancellation_reason"] = *reason
	}
	ok, err := s.repo.UpdateExchangeIfStatus(ctx, id, enums.ExchangeStatusPending, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close exchange")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "exchange was modified concurrently")
	}
	return s.reload(ctx, id)
}

func (s *lifecycleService) reload(ctx context.Context, id uuid.UUID) (*models.Exchange, error) {
	exchange, err := s.repo.FindExchangeByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload exchange")
	}
	return exchange, nil
}

func (s *lifecycleService) recordTimeline(ctx context.Context, input timeline.RecordEntryInput) {
	if _, err := s.timeline.Record(ctx, input); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithExchangeID(ctx, input.ExchangeID.String()), "timeline record failed", err)
	}
}

func closeDescription(base string, reason *string) string {
	if reason == nil || *reason == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, *reason)
}
