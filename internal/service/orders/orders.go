package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hansal/butchershop/internal/logging"
	"github.com/hansal/butchershop/internal/models"
	"github.com/hansal/butchershop/internal/service"
	"github.com/hansal/butchershop/internal/service/inventory"
)

// Service owns the order lifecycle. Every allocation-affecting operation
// runs in one transaction together with the inventory decrement or release
// it implies.
type Service struct {
	DB *gorm.DB
}

type ItemRequest struct {
	ProductID uint            `json:"productId"`
	MeatCutID uint            `json:"meatCutId"`
	Weight    decimal.Decimal `json:"weight"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type CreateRequest struct {
	CustomerName    string        `json:"customerName"`
	CustomerPhone   string        `json:"customerPhone"`
	CustomerAddress string        `json:"customerAddress"`
	Items           []ItemRequest `json:"items"`
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items").Preload("Items.Product").
		Preload("Items.MeatCut").Preload("Items.MeatCut.Product").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", service.ErrNotFound, id)
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.listQuery(ctx).Order("orders.id ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) SearchByCustomerName(ctx context.Context, name string) ([]models.Order, error) {
	var orders []models.Order
	err := s.listQuery(ctx).
		Where("LOWER(customer_name) LIKE ?", "%"+strings.ToLower(name)+"%").
		Order("orders.id ASC").Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) ByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", service.ErrValidation, status)
	}
	var orders []models.Order
	if err := s.listQuery(ctx).Where("status = ?", status).Order("orders.id ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) listQuery(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Model(&models.Order{}).
		Preload("Items").Preload("Items.Product").
		Preload("Items.MeatCut").Preload("Items.MeatCut.Product")
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Order, error) {
	if len(strings.TrimSpace(req.CustomerName)) < 2 {
		return nil, fmt.Errorf("%w: customer name must have at least 2 characters", service.ErrValidation)
	}

	var order models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order = models.Order{
			CustomerName:    strings.TrimSpace(req.CustomerName),
			CustomerPhone:   req.CustomerPhone,
			CustomerAddress: req.CustomerAddress,
			Status:          models.OrderStatusPending,
			OrderDate:       time.Now(),
		}

		for _, ir := range req.Items {
			item, err := buildItem(tx, ir)
			if err != nil {
				return err
			}
			order.Items = append(order.Items, *item)
		}
		order.RecalculateTotal()

		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order created",
		"order_id", order.ID, "customer", order.CustomerName, "total", order.TotalAmount.String())
	return s.Get(ctx, order.ID)
}

type UpdateRequest struct {
	CustomerName    string         `json:"customerName"`
	CustomerPhone   string         `json:"customerPhone"`
	CustomerAddress string         `json:"customerAddress"`
	Items           *[]ItemRequest `json:"items"`
}

// Update edits the customer fields and, while the order is still PENDING,
// replaces the item list. Replacing items releases every prior cut
// allocation and re-allocates the new ones in the same transaction.
func (s *Service) Update(ctx context.Context, id uint, req UpdateRequest) (*models.Order, error) {
	if len(strings.TrimSpace(req.CustomerName)) < 2 {
		return nil, fmt.Errorf("%w: customer name must have at least 2 characters", service.ErrValidation)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, id)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return fmt.Errorf("%w: order %d is %s", service.ErrInvalidState, id, order.Status)
		}

		order.CustomerName = strings.TrimSpace(req.CustomerName)
		order.CustomerPhone = req.CustomerPhone
		order.CustomerAddress = req.CustomerAddress

		if req.Items != nil {
			if order.Status != models.OrderStatusPending {
				return fmt.Errorf("%w: items of order %d can only change while PENDING", service.ErrInvalidState, id)
			}
			if err := releaseAllocations(tx, order.Items); err != nil {
				return err
			}
			if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
				return err
			}
			order.Items = nil
			for _, ir := range *req.Items {
				item, err := buildItem(tx, ir)
				if err != nil {
					return err
				}
				item.OrderID = id
				if err := tx.Create(item).Error; err != nil {
					return err
				}
				order.Items = append(order.Items, *item)
			}
		}

		order.RecalculateTotal()
		return tx.Omit("Items").Save(order).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// AddItem appends one item to a PENDING order. When the item references a
// meat cut, the allocation and the append are one transaction: on
// insufficient stock the item is not added.
func (s *Service) AddItem(ctx context.Context, orderID uint, req ItemRequest) (*models.Order, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: items of order %d can only change while PENDING", service.ErrInvalidState, orderID)
		}

		item, err := buildItem(tx, req)
		if err != nil {
			return err
		}
		item.OrderID = orderID
		if err := tx.Create(item).Error; err != nil {
			return err
		}

		order.Items = append(order.Items, *item)
		order.RecalculateTotal()
		return tx.Omit("Items").Save(order).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// RemoveItem detaches one item from a PENDING order, first releasing any
// meat-cut weight the item had claimed.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID uint) (*models.Order, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: items of order %d can only change while PENDING", service.ErrInvalidState, orderID)
		}

		var item models.OrderItem
		if err := tx.Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: item %d of order %d", service.ErrNotFound, itemID, orderID)
			}
			return err
		}

		if item.MeatCutID != 0 {
			if err := inventory.Release(tx, item.MeatCutID, item.Weight); err != nil {
				return err
			}
		}
		if err := tx.Delete(&item).Error; err != nil {
			return err
		}

		kept := order.Items[:0]
		for _, it := range order.Items {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		order.Items = kept
		order.RecalculateTotal()
		return tx.Omit("Items").Save(order).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// UpdateStatus moves the order along its lifecycle. A transition to
// CANCELLED releases every allocation; cancelling an already cancelled
// order is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, id uint, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", service.ErrValidation, next)
	}
	if next == models.OrderStatusCancelled {
		return s.Cancel(ctx, id)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, id)
		if err != nil {
			return err
		}
		if order.Status == next {
			return nil
		}
		if !order.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: order %d cannot move from %s to %s", service.ErrInvalidState, id, order.Status, next)
		}
		return tx.Model(&models.Order{}).Where("id = ?", id).Update("status", next).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Cancel transitions a non-terminal order to CANCELLED and returns all
// allocated cut weight to inventory. Repeated cancels do not double-release.
func (s *Service) Cancel(ctx context.Context, id uint) (*models.Order, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, id)
		if err != nil {
			return err
		}
		if order.Status == models.OrderStatusCancelled {
			return nil
		}
		if order.Status == models.OrderStatusCompleted {
			return fmt.Errorf("%w: order %d is COMPLETED", service.ErrInvalidState, id)
		}
		if err := releaseAllocations(tx, order.Items); err != nil {
			return err
		}
		return tx.Model(&models.Order{}).Where("id = ?", id).Update("status", models.OrderStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order cancelled", "order_id", id)
	return s.Get(ctx, id)
}

// Delete removes an order and its items. Allocations of a still-active
// order are released first; a cancelled order has already returned them.
// An order that has an invoice cannot be deleted.
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, id)
		if err != nil {
			return err
		}

		var invoices int64
		if err := tx.Model(&models.Invoice{}).Where("order_id = ?", id).Count(&invoices).Error; err != nil {
			return err
		}
		if invoices > 0 {
			return fmt.Errorf("%w: order %d has an invoice, delete it first", service.ErrConflict, id)
		}

		if order.Status == models.OrderStatusPending || order.Status == models.OrderStatusProcessing {
			if err := releaseAllocations(tx, order.Items); err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, id).Error
	})
}

// Customer is the most recent contact data seen for one customer name.
type Customer struct {
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	LastOrder time.Time `json:"lastOrder"`
}

// Customers derives the unique customer list from all orders, keeping the
// contact data of each customer's latest order.
func (s *Service) Customers(ctx context.Context) ([]Customer, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).Find(&orders).Error; err != nil {
		return nil, err
	}

	latest := make(map[string]models.Order)
	for _, o := range orders {
		name := strings.ToLower(strings.TrimSpace(o.CustomerName))
		if name == "" {
			continue
		}
		if prev, ok := latest[name]; !ok || o.OrderDate.After(prev.OrderDate) {
			latest[name] = o
		}
	}

	customers := make([]Customer, 0, len(latest))
	for _, o := range latest {
		customers = append(customers, Customer{
			Name:      o.CustomerName,
			Phone:     o.CustomerPhone,
			Address:   o.CustomerAddress,
			LastOrder: o.OrderDate,
		})
	}
	sort.Slice(customers, func(i, j int) bool {
		return strings.ToLower(customers[i].Name) < strings.ToLower(customers[j].Name)
	})
	return customers, nil
}

// lockOrder reads the order row FOR UPDATE, so concurrent mutations of one
// order serialize on the row lock and each sees the committed status of the
// previous one. sqlite rejects the locking clause and serializes writers on
// its own.
func lockOrder(tx *gorm.DB, id uint) (*models.Order, error) {
	if tx.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := tx.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", service.ErrNotFound, id)
		}
		return nil, err
	}
	return &order, nil
}

// buildItem validates an item request, resolves the unit price and performs
// the inventory allocation for cut-backed items.
func buildItem(tx *gorm.DB, req ItemRequest) (*models.OrderItem, error) {
	if req.Weight.Sign() <= 0 {
		return nil, fmt.Errorf("%w: item weight must be > 0", service.ErrValidation)
	}
	if req.MeatCutID == 0 && req.ProductID == 0 {
		return nil, fmt.Errorf("%w: item needs a product or a meat cut", service.ErrValidation)
	}
	if req.UnitPrice.Sign() < 0 {
		return nil, fmt.Errorf("%w: unit price must be >= 0", service.ErrValidation)
	}

	item := models.OrderItem{
		ProductID: req.ProductID,
		MeatCutID: req.MeatCutID,
		Weight:    req.Weight,
		UnitPrice: req.UnitPrice,
	}

	if req.MeatCutID != 0 {
		var cut models.MeatCut
		if err := tx.First(&cut, req.MeatCutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: meat cut %d", service.ErrNotFound, req.MeatCutID)
			}
			return nil, err
		}
		if item.ProductID == 0 {
			item.ProductID = cut.ProductID
		}
		if item.UnitPrice.IsZero() {
			item.UnitPrice = cut.PricePerKg
		}
		if err := inventory.Allocate(tx, req.MeatCutID, req.Weight); err != nil {
			return nil, err
		}
	}

	if item.ProductID != 0 {
		var product models.Product
		if err := tx.First(&product, item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: product %d", service.ErrNotFound, item.ProductID)
			}
			return nil, err
		}
		if item.UnitPrice.IsZero() {
			item.UnitPrice = product.Price
		}
	}

	item.RecalculateSubtotal()
	return &item, nil
}

func releaseAllocations(tx *gorm.DB, items []models.OrderItem) error {
	for _, it := range items {
		if it.MeatCutID == 0 {
			continue
		}
		if err := inventory.Release(tx, it.MeatCutID, it.Weight); err != nil {
			return err
		}
	}
	return nil
}
