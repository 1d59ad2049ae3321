package slaughters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hansal/butchershop/internal/logging"
	"github.com/hansal/butchershop/internal/models"
	"github.com/hansal/butchershop/internal/service"
)

// Service manages slaughter records and the meat cuts they own. Creating a
// record turns each cut's harvested weight into available stock; the
// informational product stock quantity is kept in sync alongside.
type Service struct {
	DB *gorm.DB
}

type CutRequest struct {
	ProductID   uint            `json:"productId"`
	TotalWeight decimal.Decimal `json:"totalWeight"`
	PricePerKg  decimal.Decimal `json:"pricePerKg"`
}

type CreateRequest struct {
	CowTag        string       `json:"cowTag"`
	CowID         string       `json:"cowId"`
	SlaughterDate time.Time    `json:"slaughterDate"`
	Notes         string       `json:"notes"`
	MeatCuts      []CutRequest `json:"meatCuts"`
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Slaughter, error) {
	var rec models.Slaughter
	err := s.DB.WithContext(ctx).
		Preload("MeatCuts").Preload("MeatCuts.Product").
		First(&rec, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: slaughter record %d", service.ErrNotFound, id)
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Service) List(ctx context.Context) ([]models.Slaughter, error) {
	var recs []models.Slaughter
	err := s.DB.WithContext(ctx).
		Preload("MeatCuts").Preload("MeatCuts.Product").
		Order("id ASC").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *Service) SearchByCowTag(ctx context.Context, cowTag string) ([]models.Slaughter, error) {
	var recs []models.Slaughter
	err := s.DB.WithContext(ctx).
		Preload("MeatCuts").Preload("MeatCuts.Product").
		Where("LOWER(cow_tag) LIKE ?", "%"+strings.ToLower(cowTag)+"%").
		Order("id ASC").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *Service) ByDateRange(ctx context.Context, start, end time.Time) ([]models.Slaughter, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", service.ErrValidation)
	}
	var recs []models.Slaughter
	err := s.DB.WithContext(ctx).
		Preload("MeatCuts").Preload("MeatCuts.Product").
		Where("slaughter_date BETWEEN ? AND ?", start, end).
		Order("slaughter_date ASC").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Create records one physical slaughter event. Every cut starts with its
// full harvested weight available.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Slaughter, error) {
	if strings.TrimSpace(req.CowTag) == "" {
		return nil, fmt.Errorf("%w: cow tag is required", service.ErrValidation)
	}
	if req.SlaughterDate.IsZero() {
		return nil, fmt.Errorf("%w: slaughter date is required", service.ErrValidation)
	}

	var rec models.Slaughter
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec = models.Slaughter{
			CowTag:        strings.TrimSpace(req.CowTag),
			CowID:         req.CowID,
			SlaughterDate: req.SlaughterDate,
			Notes:         req.Notes,
		}

		for _, cr := range req.MeatCuts {
			cut, err := buildCut(tx, cr)
			if err != nil {
				return err
			}
			rec.MeatCuts = append(rec.MeatCuts, *cut)
		}
		rec.RecalculateTotalWeight()

		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		return addStock(tx, rec.MeatCuts, 1)
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("slaughter created",
		"slaughter_id", rec.ID, "cow_tag", rec.CowTag, "meat_cuts", len(rec.MeatCuts))
	return s.Get(ctx, rec.ID)
}

// Update replaces the record's cut list. It is refused once any existing
// cut has been partially consumed by an order: the ledger history of a
// consumed cut must not be rewritten.
func (s *Service) Update(ctx context.Context, id uint, req CreateRequest) (*models.Slaughter, error) {
	if strings.TrimSpace(req.CowTag) == "" {
		return nil, fmt.Errorf("%w: cow tag is required", service.ErrValidation)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadForWrite(tx, id)
		if err != nil {
			return err
		}
		if cut := firstConsumed(rec.MeatCuts); cut != nil {
			return fmt.Errorf("%w: meat cut %d of slaughter %d is partially consumed by orders",
				service.ErrConflict, cut.ID, id)
		}

		if err := addStock(tx, rec.MeatCuts, -1); err != nil {
			return err
		}
		if err := tx.Where("slaughter_id = ?", id).Delete(&models.MeatCut{}).Error; err != nil {
			return err
		}

		rec.CowTag = strings.TrimSpace(req.CowTag)
		rec.CowID = req.CowID
		if !req.SlaughterDate.IsZero() {
			rec.SlaughterDate = req.SlaughterDate
		}
		rec.Notes = req.Notes

		rec.MeatCuts = nil
		for _, cr := range req.MeatCuts {
			cut, err := buildCut(tx, cr)
			if err != nil {
				return err
			}
			cut.SlaughterID = id
			if err := tx.Create(cut).Error; err != nil {
				return err
			}
			rec.MeatCuts = append(rec.MeatCuts, *cut)
		}
		rec.RecalculateTotalWeight()

		if err := addStock(tx, rec.MeatCuts, 1); err != nil {
			return err
		}
		return tx.Omit("MeatCuts").Save(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a record and its cuts. It is refused while any cut is
// partially consumed, so order items never lose their trace back to the
// originating cut.
func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadForWrite(tx, id)
		if err != nil {
			return err
		}
		if cut := firstConsumed(rec.MeatCuts); cut != nil {
			return fmt.Errorf("%w: meat cut %d of slaughter %d is partially consumed by orders",
				service.ErrConflict, cut.ID, id)
		}

		if err := addStock(tx, rec.MeatCuts, -1); err != nil {
			return err
		}
		if err := tx.Where("slaughter_id = ?", id).Delete(&models.MeatCut{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Slaughter{}, id).Error
	})
	if err != nil {
		return err
	}

	logging.FromContext(ctx).Info("slaughter deleted", "slaughter_id", id)
	return nil
}

func loadForWrite(tx *gorm.DB, id uint) (*models.Slaughter, error) {
	var rec models.Slaughter
	if err := tx.Preload("MeatCuts").First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: slaughter record %d", service.ErrNotFound, id)
		}
		return nil, err
	}
	return &rec, nil
}

func firstConsumed(cuts []models.MeatCut) *models.MeatCut {
	for i := range cuts {
		if cuts[i].AvailableWeight.LessThan(cuts[i].TotalWeight) {
			return &cuts[i]
		}
	}
	return nil
}

func buildCut(tx *gorm.DB, req CutRequest) (*models.MeatCut, error) {
	if req.TotalWeight.Sign() <= 0 {
		return nil, fmt.Errorf("%w: cut total weight must be > 0", service.ErrValidation)
	}
	if req.ProductID == 0 {
		return nil, fmt.Errorf("%w: cut needs a product", service.ErrValidation)
	}

	var product models.Product
	if err := tx.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", service.ErrNotFound, req.ProductID)
		}
		return nil, err
	}

	price := req.PricePerKg
	if price.IsZero() {
		price = product.Price
	}

	return &models.MeatCut{
		ProductID:       req.ProductID,
		TotalWeight:     req.TotalWeight,
		AvailableWeight: req.TotalWeight,
		PricePerKg:      price,
	}, nil
}

// addStock shifts the informational product stock by each cut's harvested
// weight. sign is +1 when cuts enter the books and -1 when they leave;
// stock never drops below zero.
func addStock(tx *gorm.DB, cuts []models.MeatCut, sign int) error {
	for _, cut := range cuts {
		var product models.Product
		if err := tx.First(&product, cut.ProductID).Error; err != nil {
			return err
		}

		stock := product.StockQuantity
		if sign < 0 {
			stock = stock.Sub(cut.TotalWeight)
			if stock.Sign() < 0 {
				stock = decimal.Zero
			}
		} else {
			stock = stock.Add(cut.TotalWeight)
		}

		if err := tx.Model(&models.Product{}).Where("id = ?", cut.ProductID).
			UpdateColumn("stock_quantity", stock).Error; err != nil {
			return err
		}
	}
	return nil
}
