package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercatohq/barter-backend/pkg/db/models"
	"github.com/mercatohq/barter-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Exchange{},
		&models.ExchangeItem{},
		&models.InventoryHold{},
	))
	return db
}

func seedExchangeWithItems(t *testing.T, db *gorm.DB) (*models.Exchange, []models.ExchangeItem) {
	t.Helper()

	exchange := &models.Exchange{
		ID:                      uuid.New(),
		InitiatorID:             uuid.New(),
		ReceiverID:              uuid.New(),
		Status:                  enums.ExchangeStatusApproved,
		PaymentStatus:           enums.PaymentStatusPending,
		PriceDifference:         decimal.Zero,
		InitiatorDeliveryStatus: enums.DeliveryStatusPending,
		ReceiverDeliveryStatus:  enums.DeliveryStatusPending,
	}
	require.NoError(t, db.Create(exchange).Error)

	items := []models.ExchangeItem{
		{
			ID: uuid.New(), ExchangeID: exchange.ID, Side: enums.ExchangeSideInitiator,
			ProductID: uuid.New(), ProductName: "Raku Vase",
			Quantity: 3, UnitPrice: decimal.NewFromInt(12), TotalPrice: decimal.NewFromInt(36),
		},
		{
			ID: uuid.New(), ExchangeID: exchange.ID, Side: enums.ExchangeSideReceiver,
			ProductID: uuid.New(), ProductName: "Linen Apron",
			Quantity: 1, UnitPrice: decimal.NewFromInt(30), TotalPrice: decimal.NewFromInt(30),
		},
	}
	require.NoError(t, db.Create(&items).Error)
	return exchange, items
}

func TestLockAllCreatesOneHoldPerItem(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	exchange, items := seedExchangeWithItems(t, db)
	svc, err := NewService(NewRepository(db), nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.LockAll(context.Background(), exchange.ID))

	var holds []models.InventoryHold
	require.NoError(t, db.Order("created_at ASC").Find(&holds).Error)
	if len(holds) != 2 {
		t.Fatalf("expected 2 holds, got %d", len(holds))
	}
	byItem := map[uuid.UUID]models.InventoryHold{}
	for _, hold := range holds {
		byItem[hold.ExchangeItemID] = hold
	}
	for _, item := range items {
		hold, ok := byItem[item.ID]
		if !ok {
			t.Fatalf("no hold for item %s", item.ProductName)
		}
		// The hold owner is the party whose shop stocks the item.
		want := exchange.InitiatorID
		if item.Side == enums.ExchangeSideReceiver {
			want = exchange.ReceiverID
		}
		if hold.OwnerUserID != want {
			t.Fatalf("hold for %s owned by %s, want %s", item.ProductName, hold.OwnerUserID, want)
		}
		if hold.QuantityHeld != item.Quantity || !hold.IsActive {
			t.Fatalf("hold for %s not active for the full quantity", item.ProductName)
		}
	}

	var lockedCount int64
	require.NoError(t, db.Model(&models.ExchangeItem{}).Where("is_locked = ?", true).Count(&lockedCount).Error)
	if lockedCount != 2 {
		t.Fatalf("expected both items locked, got %d", lockedCount)
	}
}

// failFirstHoldRepo refuses the first hold write so the pass has something to
// skip over.
type failFirstHoldRepo struct {
	Repository
	attempts int
}

func (f *failFirstHoldRepo) CreateHold(ctx context.Context, hold *models.InventoryHold) error {
	f.attempts++
	if f.attempts == 1 {
		return errors.New("write refused")
	}
	return f.Repository.CreateHold(ctx, hold)
}

func TestLockAllContinuesPastFailedHold(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	exchange, _ := seedExchangeWithItems(t, db)
	repo := &failFirstHoldRepo{Repository: NewRepository(db)}
	svc, err := NewService(repo, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.LockAll(context.Background(), exchange.ID))

	if repo.attempts != 2 {
		t.Fatalf("expected both items attempted, got %d", repo.attempts)
	}
	var holds []models.InventoryHold
	require.NoError(t, db.Find(&holds).Error)
	if len(holds) != 1 {
		t.Fatalf("expected the surviving hold to be written, got %d", len(holds))
	}
}

func TestReleaseAllIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	exchange, items := seedExchangeWithItems(t, db)
	svc, err := NewService(NewRepository(db), nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.LockAll(context.Background(), exchange.ID))
	require.NoError(t, svc.ReleaseAll(context.Background(), exchange.ID))

	itemIDs := []uuid.UUID{items[0].ID, items[1].ID}
	active, err := NewRepository(db).FindActiveHoldsForItems(context.Background(), itemIDs)
	require.NoError(t, err)
	if len(active) != 0 {
		t.Fatalf("expected no active holds, got %d", len(active))
	}

	var released models.InventoryHold
	require.NoError(t, db.Where("exchange_item_id = ?", items[0].ID).First(&released).Error)
	if released.ReleasedAt == nil {
		t.Fatal("expected released_at to be stamped")
	}
	firstRelease := *released.ReleasedAt

	// A second pass touches nothing.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, svc.ReleaseAll(context.Background(), exchange.ID))
	require.NoError(t, db.Where("exchange_item_id = ?", items[0].ID).First(&released).Error)
	if !released.ReleasedAt.Equal(firstRelease) {
		t.Fatal("released_at must keep its first value")
	}

	var lockedCount int64
	require.NoError(t, db.Model(&models.ExchangeItem{}).Where("is_locked = ?", true).Count(&lockedCount).Error)
	if lockedCount != 0 {
		t.Fatalf("expected no locked items, got %d", lockedCount)
	}
}
