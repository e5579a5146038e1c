package exchanges

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercatohq/barter-backend/internal/timeline"
	"github.com/mercatohq/barter-backend/pkg/db/models"
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
		&models.TimelineEntry{},
		&models.Address{},
		&models.User{},
		&models.SellerRegistration{},
	))
	return db
}

// stubRecorder collects timeline writes in memory.
type stubRecorder struct {
	entries   []timeline.RecordEntryInput
	recordErr error
}

func (s *stubRecorder) Record(ctx context.Context, input timeline.RecordEntryInput) (*models.TimelineEntry, error) {
	if s.recordErr != nil {
		return nil, s.recordErr
	}
	s.entries = append(s.entries, input)
	return &models.TimelineEntry{
		ID:          uuid.New(),
		ExchangeID:  input.ExchangeID,
		Action:      input.Action,
		Description: input.Description,
		ActorID:     input.ActorID,
	}, nil
}

func (s *stubRecorder) ListByExchange(ctx context.Context, exchangeID uuid.UUID) ([]models.TimelineEntry, error) {
	var out []models.TimelineEntry
	for _, input := range s.entries {
		if input.ExchangeID != exchangeID {
			continue
		}
		out = append(out, models.TimelineEntry{
			ExchangeID:  input.ExchangeID,
			Action:      input.Action,
			Description: input.Description,
			ActorID:     input.ActorID,
		})
	}
	return out, nil
}

func (s *stubRecorder) actions() []string {
	out := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Action.String())
	}
	return out
}

// stubSellers marks the configured users as approved sellers.
type stubSellers struct {
	approved map[uuid.UUID]bool
	err      error
}

func (s *stubSellers) FindApprovedByUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.SellerRegistration, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := make(map[uuid.UUID]models.SellerRegistration)
	for _, id := range userIDs {
		if s.approved[id] {
			result[id] = models.SellerRegistration{UserID: id}
		}
	}
	return result, nil
}

type stubAddresses struct {
	addresses map[uuid.UUID]models.Address
}

func (s *stubAddresses) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Address, error) {
	var out []models.Address
	for _, id := range ids {
		if addr, ok := s.addresses[id]; ok {
			out = append(out, addr)
		}
	}
	return out, nil
}

// stubReserver records lock and release invocations.
type stubReserver struct {
	locked   []uuid.UUID
	released []uuid.UUID
	lockErr  error
}

func (s *stubReserver) LockAll(ctx context.Context, exchangeID uuid.UUID) error {
	if s.lockErr != nil {
		return s.lockErr
	}
	s.locked = append(s.locked, exchangeID)
	return nil
}

func (s *stubReserver) ReleaseAll(ctx context.Context, exchangeID uuid.UUID) error {
	s.released = append(s.released, exchangeID)
	return nil
}

func bothApproved(ids ...uuid.UUID) *stubSellers {
	approved := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		approved[id] = true
	}
	return &stubSellers{approved: approved}
}
