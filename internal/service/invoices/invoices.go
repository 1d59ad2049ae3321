package invoices

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

// DefaultTaxRate is the reduced rate for agricultural produce, applied when
// a request does not name one.
var DefaultTaxRate = decimal.NewFromFloat(0.10)

// Renderer turns validated invoice data into an opaque document payload.
// The concrete implementation lives outside the financial core.
type Renderer interface {
	RenderInvoice(inv *models.Invoice) ([]byte, error)
	RenderCombined(invs []*models.Invoice) ([]byte, error)
}

// Service derives immutable invoice snapshots from orders. One order has at
// most one invoice; regeneration is an explicit delete followed by a fresh
// create, never a merge.
type Service struct {
	DB       *gorm.DB
	Renderer Renderer
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.loadQuery(ctx).First(&inv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invoice %d", service.ErrNotFound, id)
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.loadQuery(ctx).Where("invoice_number = ?", number).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invoice %s", service.ErrNotFound, number)
		}
		return nil, err
	}
	return &inv, nil
}

// ByOrder returns the invoice of an order, or ErrNotFound when none exists.
// Callers treat the absence as "no invoice yet", not as a failure.
func (s *Service) ByOrder(ctx context.Context, orderID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.loadQuery(ctx).Where("order_id = ?", orderID).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no invoice for order %d", service.ErrNotFound, orderID)
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Service) List(ctx context.Context) ([]models.Invoice, error) {
	var invs []models.Invoice
	if err := s.loadQuery(ctx).Order("invoices.id ASC").Find(&invs).Error; err != nil {
		return nil, err
	}
	return invs, nil
}

func (s *Service) loadQuery(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Model(&models.Invoice{}).
		Preload("Order").Preload("Order.Items").
		Preload("Order.Items.Product").
		Preload("Order.Items.MeatCut").Preload("Order.Items.MeatCut.Product")
}

// CreateFromOrder snapshots an order into a new UNPAID invoice. A second
// invoice for the same order is a conflict: the caller must delete the
// existing one first.
func (s *Service) CreateFromOrder(ctx context.Context, orderID uint, taxRate decimal.Decimal, createdBy string) (*models.Invoice, error) {
	if taxRate.Sign() < 0 {
		return nil, fmt.Errorf("%w: tax rate must be >= 0", service.ErrValidation)
	}
	if taxRate.IsZero() {
		taxRate = DefaultTaxRate
	}

	var inv models.Invoice
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := createSnapshot(tx, orderID, taxRate, createdBy)
		if err != nil {
			return err
		}
		inv = *created
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("invoice created",
		"invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber,
		"order_id", orderID, "grand_total", inv.GrandTotal.String())
	return s.Get(ctx, inv.ID)
}

// createSnapshot builds and stores the invoice row within tx.
func createSnapshot(tx *gorm.DB, orderID uint, taxRate decimal.Decimal, createdBy string) (*models.Invoice, error) {
	var order models.Order
	if err := tx.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", service.ErrNotFound, orderID)
		}
		return nil, err
	}

	var existing int64
	if err := tx.Model(&models.Invoice{}).Where("order_id = ?", orderID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: order %d already has an invoice", service.ErrConflict, orderID)
	}

	number, err := nextInvoiceNumber(tx, time.Now())
	if err != nil {
		return nil, err
	}

	inv := models.Invoice{
		InvoiceNumber: number,
		OrderID:       orderID,
		IssueDate:     time.Now(),
		TotalAmount:   order.TotalAmount,
		TaxRate:       taxRate,
		Status:        models.InvoiceStatusUnpaid,
		CreatedBy:     createdBy,
	}
	inv.RecalculateTotals()
	if err := tx.Create(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

type UpdateRequest struct {
	IssueDate *time.Time            `json:"issueDate"`
	DueDate   *time.Time            `json:"dueDate"`
	TaxRate   *decimal.Decimal      `json:"taxRate"`
	Notes     *string               `json:"notes"`
	Status    *models.InvoiceStatus `json:"status"`
}

// Update edits the mutable rim of an invoice: dates, tax rate, notes and
// status. The copied order total stays frozen.
func (s *Service) Update(ctx context.Context, id uint, req UpdateRequest) (*models.Invoice, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: invoice %d", service.ErrNotFound, id)
			}
			return err
		}

		if req.IssueDate != nil {
			inv.IssueDate = *req.IssueDate
		}
		if req.DueDate != nil {
			inv.DueDate = req.DueDate
		}
		if req.TaxRate != nil {
			if req.TaxRate.Sign() < 0 {
				return fmt.Errorf("%w: tax rate must be >= 0", service.ErrValidation)
			}
			inv.TaxRate = *req.TaxRate
		}
		if req.Notes != nil {
			inv.Notes = *req.Notes
		}
		if req.Status != nil {
			if !req.Status.Valid() {
				return fmt.Errorf("%w: unknown invoice status %q", service.ErrValidation, *req.Status)
			}
			inv.Status = *req.Status
		}

		inv.RecalculateTotals()
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes an invoice. The source order and the meat-cut ledger are
// untouched: invoices are financial derivatives, not allocations.
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.Invoice{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: invoice %d", service.ErrNotFound, id)
	}
	return nil
}

// RenderSingle produces the rendered document for one invoice.
func (s *Service) RenderSingle(ctx context.Context, id uint) ([]byte, *models.Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	payload, err := s.Renderer.RenderInvoice(inv)
	if err != nil {
		return nil, nil, err
	}
	return payload, inv, nil
}

// RenderCombined aggregates several invoices into one document, in the
// order given. Every id is resolved before anything is rendered, so a
// missing invoice never yields a partial document.
func (s *Service) RenderCombined(ctx context.Context, ids []uint) ([]byte, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one invoice id is required", service.ErrValidation)
	}
	invs := make([]*models.Invoice, 0, len(ids))
	for _, id := range ids {
		inv, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return s.Renderer.RenderCombined(invs)
}

// BatchResult reports a bulk regeneration: items are processed sequentially
// and fail independently, so the caller always learns how far it got.
type BatchResult struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Errors    []BatchItemError `json:"errors,omitempty"`
	Invoices  []models.Invoice `json:"invoices"`
}

type BatchItemError struct {
	OrderID uint   `json:"orderId"`
	Message string `json:"message"`
}

// RegenerateForOrders replaces the invoice of every given order: the old
// invoice (if any) is deleted and a fresh snapshot is created, both in one
// transaction per order, so a failed regeneration keeps the prior snapshot.
// Each order is its own unit of work; one failure does not abort the batch.
func (s *Service) RegenerateForOrders(ctx context.Context, orderIDs []uint, taxRate decimal.Decimal, createdBy string) (*BatchResult, error) {
	if len(orderIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one order id is required", service.ErrValidation)
	}
	if taxRate.Sign() < 0 {
		return nil, fmt.Errorf("%w: tax rate must be >= 0", service.ErrValidation)
	}
	if taxRate.IsZero() {
		taxRate = DefaultTaxRate
	}

	result := &BatchResult{}
	for _, orderID := range orderIDs {
		var inv models.Invoice
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("order_id = ?", orderID).Delete(&models.Invoice{}).Error; err != nil {
				return err
			}
			created, err := createSnapshot(tx, orderID, taxRate, createdBy)
			if err != nil {
				return err
			}
			inv = *created
			return nil
		})
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BatchItemError{OrderID: orderID, Message: err.Error()})
			continue
		}

		full, err := s.Get(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		result.Succeeded++
		result.Invoices = append(result.Invoices, *full)
	}
	return result, nil
}

// nextInvoiceNumber draws the next number from the per-year sequence. The
// sequence row only ever moves forward, so deleted invoices never free
// their number for reuse.
func nextInvoiceNumber(tx *gorm.DB, now time.Time) (string, error) {
	year := now.Year()

	seq := models.InvoiceSequence{Year: year}
	if err := tx.FirstOrCreate(&seq, models.InvoiceSequence{Year: year}).Error; err != nil {
		return "", err
	}
	if err := tx.Model(&models.InvoiceSequence{}).Where("year = ?", year).
		UpdateColumn("last_number", gorm.Expr("last_number + 1")).Error; err != nil {
		return "", err
	}
	if err := tx.First(&seq, "year = ?", year).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%d-%06d", year, seq.LastNumber), nil
}
