package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hansal/butchershop/internal/logging"
	"github.com/hansal/butchershop/internal/models"
	"github.com/hansal/butchershop/internal/service"
)

// Service maintains the available-weight ledger per meat cut. Allocations
// and releases are conditional single-statement updates, so two concurrent
// transactions can never draw more weight than a cut holds.
type Service struct {
	DB *gorm.DB
}

func (s *Service) CreateCut(ctx context.Context, slaughterID, productID uint, totalWeight, pricePerKg decimal.Decimal) (*models.MeatCut, error) {
	if totalWeight.Sign() <= 0 {
		return nil, fmt.Errorf("%w: total weight must be > 0", service.ErrValidation)
	}

	cut := models.MeatCut{
		SlaughterID:     slaughterID,
		ProductID:       productID,
		TotalWeight:     totalWeight,
		AvailableWeight: totalWeight,
		PricePerKg:      pricePerKg,
	}
	if err := s.DB.WithContext(ctx).Create(&cut).Error; err != nil {
		return nil, err
	}
	return &cut, nil
}

func (s *Service) GetCut(ctx context.Context, id uint) (*models.MeatCut, error) {
	var cut models.MeatCut
	if err := s.DB.WithContext(ctx).Preload("Product").First(&cut, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: meat cut %d", service.ErrNotFound, id)
		}
		return nil, err
	}
	return &cut, nil
}

func (s *Service) ListCuts(ctx context.Context) ([]models.MeatCut, error) {
	var cuts []models.MeatCut
	if err := s.DB.WithContext(ctx).Preload("Product").Order("id ASC").Find(&cuts).Error; err != nil {
		return nil, err
	}
	return cuts, nil
}

func (s *Service) CutsBySlaughter(ctx context.Context, slaughterID uint) ([]models.MeatCut, error) {
	var cuts []models.MeatCut
	if err := s.DB.WithContext(ctx).Preload("Product").
		Where("slaughter_id = ?", slaughterID).Order("id ASC").Find(&cuts).Error; err != nil {
		return nil, err
	}
	return cuts, nil
}

// Allocate decrements a cut's available weight within tx. The decrement is a
// conditional update: zero affected rows means either the cut is missing or
// the remaining weight is too small, and a follow-up read tells the two
// apart.
func Allocate(tx *gorm.DB, cutID uint, weight decimal.Decimal) error {
	if weight.Sign() <= 0 {
		return fmt.Errorf("%w: allocation weight must be > 0", service.ErrValidation)
	}

	res := tx.Model(&models.MeatCut{}).
		Where("id = ? AND available_weight >= ?", cutID, weight).
		UpdateColumn("available_weight", gorm.Expr("available_weight - ?", weight))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var cut models.MeatCut
		if err := tx.First(&cut, cutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: meat cut %d", service.ErrNotFound, cutID)
			}
			return err
		}
		return fmt.Errorf("%w: requested %s kg from meat cut %d, available %s kg",
			service.ErrInsufficientStock, weight, cutID, cut.AvailableWeight)
	}
	return nil
}

// Release returns previously allocated weight to a cut within tx. A release
// that would push the available weight past the harvested total is a ledger
// inconsistency and is reported, never silently capped.
func Release(tx *gorm.DB, cutID uint, weight decimal.Decimal) error {
	if weight.Sign() <= 0 {
		return fmt.Errorf("%w: release weight must be > 0", service.ErrValidation)
	}

	res := tx.Model(&models.MeatCut{}).
		Where("id = ? AND available_weight + ? <= total_weight", cutID, weight).
		UpdateColumn("available_weight", gorm.Expr("available_weight + ?", weight))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var cut models.MeatCut
		if err := tx.First(&cut, cutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: meat cut %d", service.ErrNotFound, cutID)
			}
			return err
		}
		logging.FromContext(tx.Statement.Context).Error("over-release detected",
			"meat_cut_id", cutID,
			"release_kg", weight.String(),
			"available_kg", cut.AvailableWeight.String(),
			"total_kg", cut.TotalWeight.String(),
		)
		return fmt.Errorf("%w: releasing %s kg to meat cut %d would exceed its total weight (%s of %s kg available)",
			service.ErrInconsistency, weight, cutID, cut.AvailableWeight, cut.TotalWeight)
	}
	return nil
}

func (s *Service) Allocate(ctx context.Context, cutID uint, weight decimal.Decimal) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return Allocate(tx, cutID, weight)
	})
}

func (s *Service) Release(ctx context.Context, cutID uint, weight decimal.Decimal) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return Release(tx, cutID, weight)
	})
}

// Availability describes one non-exhausted cut of a product, traced back to
// the slaughter it came from.
type Availability struct {
	MeatCutID       uint            `json:"meatCutId"`
	CowTag          string          `json:"cowTag"`
	CowID           string          `json:"cowId,omitempty"`
	SlaughterDate   time.Time       `json:"slaughterDate"`
	AvailableWeight decimal.Decimal `json:"availableWeight"`
	TotalWeight     decimal.Decimal `json:"totalWeight"`
	PricePerKg      decimal.Decimal `json:"pricePerKg"`
	ProductName     string          `json:"productName"`
}

// AvailabilityByProduct lists all cuts of a product that still carry weight,
// oldest slaughter date first. Consumption is intended to be first-in
// first-out; actual cut selection stays with the caller.
func (s *Service) AvailabilityByProduct(ctx context.Context, productID uint) ([]Availability, error) {
	var rows []Availability
	err := s.DB.WithContext(ctx).
		Table("meat_cuts").
		Select(`meat_cuts.id AS meat_cut_id,
			slaughters.cow_tag,
			slaughters.cow_id,
			slaughters.slaughter_date,
			meat_cuts.available_weight,
			meat_cuts.total_weight,
			meat_cuts.price_per_kg,
			products.name AS product_name`).
		Joins("JOIN slaughters ON slaughters.id = meat_cuts.slaughter_id").
		Joins("JOIN products ON products.id = meat_cuts.product_id").
		Where("meat_cuts.product_id = ? AND meat_cuts.available_weight > 0", productID).
		Order("slaughters.slaughter_date ASC, meat_cuts.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
