package timeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mercatohq/barter-backend/pkg/db/models"
	"github.com/mercatohq/barter-backend/pkg/enums"
	"github.com/mercatohq/barter-backend/pkg/logger"
)

// SystemActorName labels entries recorded by automated transitions.
const SystemActorName = "System"

// ActorResolver resolves an actor id to its display identity. Resolution is a
// read-side enrichment; failures never block the entry write.
type ActorResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service records and reads the append-only audit trail of an exchange.
type Service interface {
	Record(ctx context.Context, input RecordEntryInput) (*models.TimelineEntry, error)
	ListByExchange(ctx context.Context, exchangeID uuid.UUID) ([]models.TimelineEntry, error)
}

// RecordEntryInput captures the immutable data a timeline entry requires.
// A nil ActorID denotes an automated transition attributed to "System".
type RecordEntryInput struct {
	ExchangeID  uuid.UUID
	Action      enums.TimelineAction
	Description string
	ActorID     *uuid.UUID
}

type service struct {
	repo     Repository
	resolver ActorResolver
	logg     *logger.Logger
}

// NewService wires a timeline service with the provided repository and actor resolver.
func NewService(repo Repository, resolver ActorResolver, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("timeline repository required")
	}
	return &service{repo: repo, resolver: resolver, logg: logg}, nil
}

func (s *service) Record(ctx context.Context, input RecordEntryInput) (*models.TimelineEntry, error) {
	if input.ExchangeID == uuid.Nil {
		return nil, fmt.Errorf("exchange id is required")
	}
	if !input.Action.IsValid() {
		return nil, fmt.Errorf("invalid timeline action %q", input.Action)
	}
	if input.Description == "" {
		return nil, fmt.Errorf("description is required")
	}

	entry := &models.TimelineEntry{
		ExchangeID:  input.ExchangeID,
		Action:      input.Action,
		Description: input.Description,
		ActorID:     input.ActorID,
		ActorName:   s.resolveActorName(ctx, input.ActorID),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) ListByExchange(ctx context.Context, exchangeID uuid.UUID) ([]models.TimelineEntry, error) {
	if exchangeID == uuid.Nil {
		return nil, fmt.Errorf("exchange id is required")
	}
	return s.repo.ListByExchangeID(ctx, exchangeID)
}

func (s *service) resolveActorName(ctx context.Context, actorID *uuid.UUID) string {
	if actorID == nil {
		return SystemActorName
	}
	if s.resolver == nil {
		return actorID.String()
	}
	user, err := s.resolver.FindByID(ctx, *actorID)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "actor_id", actorID.String()), "timeline actor lookup failed")
		}
		return actorID.String()
	}
	return user.DisplayName
}
