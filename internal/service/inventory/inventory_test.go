package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hansal/butchershop/internal/config"
	"github.com/hansal/butchershop/internal/models"
	"github.com/hansal/butchershop/internal/service"
)

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

func seedCut(t *testing.T, db *gorm.DB, total string) *models.MeatCut {
	product := models.Product{Name: "Filet", Price: decimal.RequireFromString("36.00")}
	require.NoError(t, db.Create(&product).Error)

	slaughter := models.Slaughter{CowTag: "AT-001", SlaughterDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, db.Create(&slaughter).Error)

	w := decimal.RequireFromString(total)
	cut := models.MeatCut{
		SlaughterID:     slaughter.ID,
		ProductID:       product.ID,
		TotalWeight:     w,
		AvailableWeight: w,
		PricePerKg:      decimal.RequireFromString("36.00"),
	}
	require.NoError(t, db.Create(&cut).Error)
	return &cut
}

func TestCreateCutRejectsNonPositiveWeight(t *testing.T) {
	svc := &Service{DB: newTestDB(t)}

	_, err := svc.CreateCut(context.Background(), 1, 1, decimal.Zero, decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.CreateCut(context.Background(), 1, 1, decimal.RequireFromString("-2.5"), decimal.Zero)
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestCreateCutStartsFullyAvailable(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}

	cut, err := svc.CreateCut(context.Background(), 1, 1, decimal.RequireFromString("8.40"), decimal.RequireFromString("36.00"))
	require.NoError(t, err)
	require.True(t, cut.AvailableWeight.Equal(cut.TotalWeight))
}

func TestAllocateReducesAvailableWeight(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	cut := seedCut(t, db, "10.00")

	require.NoError(t, svc.Allocate(context.Background(), cut.ID, decimal.RequireFromString("3.50")))

	got, err := svc.GetCut(context.Background(), cut.ID)
	require.NoError(t, err)
	require.True(t, got.AvailableWeight.Equal(decimal.RequireFromString("6.50")), "got %s", got.AvailableWeight)
	require.True(t, got.TotalWeight.Equal(decimal.RequireFromString("10.00")))
	require.True(t, got.ReservedWeight().Equal(decimal.RequireFromString("3.50")))
}

func TestAllocateInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	cut := seedCut(t, db, "5.00")

	err := svc.Allocate(context.Background(), cut.ID, decimal.RequireFromString("5.01"))
	require.ErrorIs(t, err, service.ErrInsufficientStock)

	// The failed allocation must not touch the ledger.
	got, err := svc.GetCut(context.Background(), cut.ID)
	require.NoError(t, err)
	require.True(t, got.AvailableWeight.Equal(decimal.RequireFromString("5.00")))
}

func TestAllocateExactRemainder(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	cut := seedCut(t, db, "5.00")

	require.NoError(t, svc.Allocate(context.Background(), cut.ID, decimal.RequireFromString("5.00")))

	got, err := svc.GetCut(context.Background(), cut.ID)
	require.NoError(t, err)
	require.True(t, got.AvailableWeight.IsZero())
}

func TestAllocateUnknownCut(t *testing.T) {
	svc := &Service{DB: newTestDB(t)}
	err := svc.Allocate(context.Background(), 999, decimal.RequireFromString("1.00"))
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestAllocateRejectsNonPositiveWeight(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	cut := seedCut(t, db, "5.00")

	err := svc.Allocate(context.Background(), cut.ID, decimal.Zero)
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestReleaseRestoresWeight(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	cut := seedCut(t, db, "10.00")

	require.NoError(t, svc.Allocate(context.Background(), cut.ID, decimal.RequireFromString("4.00")))
	require.NoError(t, svc.Release(context.Background(), cut.ID, decimal.RequireFromString("4.00")))

	got, err := svc.GetCut(context.Background(), cut.ID)
	require.NoError(t, err)
	require.True(t, got.AvailableWeight.Equal(decimal.RequireFromString("10.00")))
}

func TestReleaseBeyondTotalIsInconsistency(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	cut := seedCut(t, db, "10.00")

	require.NoError(t, svc.Allocate(context.Background(), cut.ID, decimal.RequireFromString("2.00")))

	err := svc.Release(context.Background(), cut.ID, decimal.RequireFromString("3.00"))
	require.ErrorIs(t, err, service.ErrInconsistency)

	// The ledger keeps its last consistent state.
	got, err := svc.GetCut(context.Background(), cut.ID)
	require.NoError(t, err)
	require.True(t, got.AvailableWeight.Equal(decimal.RequireFromString("8.00")))
}

func TestAvailabilityByProductOldestSlaughterFirst(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}

	product := models.Product{Name: "Beiried", Price: decimal.RequireFromString("29.00")}
	require.NoError(t, db.Create(&product).Error)

	newer := models.Slaughter{CowTag: "AT-002", SlaughterDate: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)}
	older := models.Slaughter{CowTag: "AT-001", CowID: "0451", SlaughterDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, db.Create(&newer).Error)
	require.NoError(t, db.Create(&older).Error)

	mk := func(s *models.Slaughter, avail string) models.MeatCut {
		return models.MeatCut{
			SlaughterID:     s.ID,
			ProductID:       product.ID,
			TotalWeight:     decimal.RequireFromString("12.00"),
			AvailableWeight: decimal.RequireFromString(avail),
			PricePerKg:      decimal.RequireFromString("29.00"),
		}
	}
	cuts := []models.MeatCut{mk(&newer, "12.00"), mk(&older, "4.00"), mk(&older, "0")}
	require.NoError(t, db.Create(&cuts).Error)

	rows, err := svc.AvailabilityByProduct(context.Background(), product.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Exhausted cuts are skipped, oldest slaughter comes first.
	require.Equal(t, "AT-001", rows[0].CowTag)
	require.Equal(t, "0451", rows[0].CowID)
	require.True(t, rows[0].AvailableWeight.Equal(decimal.RequireFromString("4.00")))
	require.Equal(t, "Beiried", rows[0].ProductName)
	require.Equal(t, "AT-002", rows[1].CowTag)
}
