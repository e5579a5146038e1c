package addresses

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercatohq/barter-backend/pkg/db/models"
	pkgerrors "github.com/mercatohq/barter-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Address{}))
	return db
}

func newAddressService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func baseInput(isDefault bool) CreateAddressInput {
	return CreateAddressInput{
		Line1:      "12 Harbor Way",
		City:       "Portland",
		State:      "ME",
		PostalCode: "04101",
		IsDefault:  isDefault,
	}
}

func TestCreateAddressKeepsSingleDefault(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newAddressService(t, db)
	userID := uuid.New()

	first, err := svc.CreateAddress(context.Background(), userID, baseInput(true))
	require.NoError(t, err)
	second, err := svc.CreateAddress(context.Background(), userID, baseInput(true))
	require.NoError(t, err)

	var defaults []models.Address
	require.NoError(t, db.Where("user_id = ? AND is_default = ?", userID, true).Find(&defaults).Error)
	if len(defaults) != 1 || defaults[0].ID != second.ID {
		t.Fatalf("expected only the newest address to be default")
	}

	var reloaded models.Address
	require.NoError(t, db.First(&reloaded, "id = ?", first.ID).Error)
	if reloaded.IsDefault {
		t.Fatal("previous default was not cleared")
	}
	if reloaded.Country != "US" {
		t.Fatalf("expected country fallback US, got %q", reloaded.Country)
	}
}

func TestCreateAddressDoesNotTouchOtherUsers(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newAddressService(t, db)
	alice := uuid.New()
	bob := uuid.New()

	theirs, err := svc.CreateAddress(context.Background(), alice, baseInput(true))
	require.NoError(t, err)
	_, err = svc.CreateAddress(context.Background(), bob, baseInput(true))
	require.NoError(t, err)

	var reloaded models.Address
	require.NoError(t, db.First(&reloaded, "id = ?", theirs.ID).Error)
	if !reloaded.IsDefault {
		t.Fatal("another user's default must survive")
	}
}

func TestCreateAddressValidation(t *testing.T) {
	t.Parallel()

	svc := newAddressService(t, newTestDB(t))

	input := baseInput(false)
	input.PostalCode = ""
	if _, err := svc.CreateAddress(context.Background(), uuid.New(), input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.CreateAddress(context.Background(), uuid.Nil, baseInput(false)); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestDeleteAddressEnforcesOwnership(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newAddressService(t, db)
	owner := uuid.New()

	address, err := svc.CreateAddress(context.Background(), owner, baseInput(false))
	require.NoError(t, err)

	if err := svc.DeleteAddress(context.Background(), address.ID, uuid.New()); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
	if err := svc.DeleteAddress(context.Background(), uuid.New(), owner); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for missing id, got %v", err)
	}
}

func TestDeleteAddressIsSoft(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newAddressService(t, db)
	owner := uuid.New()

	address, err := svc.CreateAddress(context.Background(), owner, baseInput(true))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAddress(context.Background(), address.ID, owner))

	listed, err := svc.ListAddresses(context.Background(), owner)
	require.NoError(t, err)
	if len(listed) != 0 {
		t.Fatalf("deleted address still listed")
	}

	// The row survives so historical exchanges keep their reference.
	var row models.Address
	require.NoError(t, db.First(&row, "id = ?", address.ID).Error)
	if row.IsActive || row.DeletedAt == nil {
		t.Fatal("expected an inactive row with deleted_at stamped")
	}
	if row.IsDefault {
		t.Fatal("deleted address must drop its default flag")
	}
}
