package exchanges

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mercatohq/barter-backend/internal/addresses"
	"github.com/mercatohq/barter-backend/internal/inventory"
	"github.com/mercatohq/barter-backend/internal/sellers"
	"github.com/mercatohq/barter-backend/internal/timeline"
	"github.com/mercatohq/barter-backend/internal/users"
	"github.com/mercatohq/barter-backend/pkg/db/models"
	"github.com/mercatohq/barter-backend/pkg/enums"
)

// TestExchangeFullFlow walks an exchange from proposal to completion with the
// real repositories and collaborator services wired together.
func TestExchangeFullFlow(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	initiator := models.User{ID: uuid.New(), Email: "mara@teashop.example", DisplayName: "Mara's Tea Shop"}
	receiver := models.User{ID: uuid.New(), Email: "oren@pottery.example", DisplayName: "Oren Ceramics"}
	require.NoError(t, db.Create(&initiator).Error)
	require.NoError(t, db.Create(&receiver).Error)
	for _, userID := range []uuid.UUID{initiator.ID, receiver.ID} {
		require.NoError(t, db.Create(&models.SellerRegistration{
			ID:     uuid.New(),
			UserID: userID,
			Status: enums.RegistrationStatusApproved,
		}).Error)
	}

	timelineSvc, err := timeline.NewService(timeline.NewRepository(db), users.NewRepository(db), nil)
	require.NoError(t, err)
	inventorySvc, err := inventory.NewService(inventory.NewRepository(db), nil, nil)
	require.NoError(t, err)

	repo := NewRepository(db)
	registrar, err := NewService(repo, sellers.NewRepository(db), addresses.NewRepository(db), timelineSvc, nil)
	require.NoError(t, err)
	lifecycle, err := NewLifecycleService(repo, inventorySvc, timelineSvc, nil, nil, nil)
	require.NoError(t, err)
	tracker, err := NewDeliveryService(repo, lifecycle, timelineSvc, nil, nil)
	require.NoError(t, err)

	detail, err := registrar.CreateExchange(ctx, initiator.ID, CreateExchangeInput{
		ReceiverID: receiver.ID,
		InitiatorItems: []ItemInput{
			{ProductID: uuid.New(), ProductName: "Oolong Sampler", Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
		},
		ReceiverItems: []ItemInput{
			{ProductID: uuid.New(), ProductName: "Ceramic Teapot", Quantity: 1, UnitPrice: decimal.NewFromInt(25)},
		},
	})
	require.NoError(t, err)
	exchangeID := detail.Exchange.ID

	if !detail.Exchange.PriceDifference.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected price difference 5, got %s", detail.Exchange.PriceDifference)
	}

	// Approval locks every item for the trade.
	approved, err := lifecycle.ApproveExchange(ctx, exchangeID, receiver.ID, uuid.New())
	require.NoError(t, err)
	if approved.Status != enums.ExchangeStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}

	var holds []models.InventoryHold
	require.NoError(t, db.Where("is_active = ?", true).Find(&holds).Error)
	if len(holds) != 2 {
		t.Fatalf("expected 2 active holds after approval, got %d", len(holds))
	}
	owners := map[uuid.UUID]bool{}
	for _, hold := range holds {
		owners[hold.OwnerUserID] = true
	}
	if !owners[initiator.ID] || !owners[receiver.ID] {
		t.Fatal("expected one hold per party")
	}

	shipped, err := tracker.UpdateDeliveryStatus(ctx, exchangeID, initiator.ID, DeliveryUpdateInput{
		DeliveryStatus: enums.DeliveryStatusShipped,
	})
	require.NoError(t, err)
	if shipped.Status != enums.ExchangeStatusInTransit {
		t.Fatalf("expected in_transit after first shipment, got %s", shipped.Status)
	}

	delivered := DeliveryUpdateInput{DeliveryStatus: enums.DeliveryStatusDelivered}
	_, err = tracker.UpdateDeliveryStatus(ctx, exchangeID, initiator.ID, delivered)
	require.NoError(t, err)
	final, err := tracker.UpdateDeliveryStatus(ctx, exchangeID, receiver.ID, delivered)
	require.NoError(t, err)

	if final.Status != enums.ExchangeStatusCompleted {
		t.Fatalf("expected completed, got %s", final.Status)
	}

	require.NoError(t, db.Where("is_active = ?", true).Find(&holds).Error)
	if len(holds) != 0 {
		t.Fatalf("expected all holds released, got %d active", len(holds))
	}

	entries, err := timelineSvc.ListByExchange(ctx, exchangeID)
	require.NoError(t, err)
	// created, approved, 3 delivery updates, completed
	if len(entries) != 6 {
		t.Fatalf("expected 6 timeline entries, got %d", len(entries))
	}

	byAction := map[enums.TimelineAction]models.TimelineEntry{}
	for _, entry := range entries {
		byAction[entry.Action] = entry
	}
	if byAction[enums.TimelineActionExchangeCreated].ActorName != initiator.DisplayName {
		t.Fatalf("creation entry attributed to %q", byAction[enums.TimelineActionExchangeCreated].ActorName)
	}
	if byAction[enums.TimelineActionExchangeApproved].ActorName != receiver.DisplayName {
		t.Fatalf("approval entry attributed to %q", byAction[enums.TimelineActionExchangeApproved].ActorName)
	}
	if byAction[enums.TimelineActionExchangeCompleted].ActorName != timeline.SystemActorName {
		t.Fatalf("completion entry attributed to %q", byAction[enums.TimelineActionExchangeCompleted].ActorName)
	}

	// Replayed completion changes nothing.
	require.NoError(t, lifecycle.CompleteExchange(ctx, exchangeID))
	entries, err = timelineSvc.ListByExchange(ctx, exchangeID)
	require.NoError(t, err)
	if len(entries) != 6 {
		t.Fatalf("replayed completion must not add entries, got %d", len(entries))
	}
}
