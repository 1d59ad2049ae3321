package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	Name          string          `gorm:"uniqueIndex;not null"        json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	MeatCutType   string          `json:"meatCutType,omitempty"`
	StockQuantity decimal.Decimal `gorm:"type:numeric(10,2)"          json:"stockQuantity"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Slaughter owns its meat cuts: deleting the record deletes the cuts.
type Slaughter struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	CowTag        string          `gorm:"not null"                 json:"cowTag"`
	CowID         string          `json:"cowId,omitempty"`
	SlaughterDate time.Time       `gorm:"not null"                 json:"slaughterDate"`
	TotalWeight   decimal.Decimal `gorm:"type:numeric(10,2)"       json:"totalWeight"`
	MeatCuts      []MeatCut       `gorm:"constraint:OnDelete:CASCADE" json:"meatCuts"`
	Notes         string          `gorm:"size:2000"                json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// RecalculateTotalWeight keeps TotalWeight equal to the sum of the cuts'
// total weights. The stored value is a cache, never authoritative.
func (s *Slaughter) RecalculateTotalWeight() {
	total := decimal.Zero
	for i := range s.MeatCuts {
		total = total.Add(s.MeatCuts[i].TotalWeight)
	}
	s.TotalWeight = total
}

type MeatCut struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	SlaughterID     uint            `gorm:"index;not null"              json:"slaughterId"`
	ProductID       uint            `gorm:"index;not null"              json:"productId"`
	Product         *Product        `json:"product,omitempty"`
	TotalWeight     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"totalWeight"`
	AvailableWeight decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"availableWeight"`
	PricePerKg      decimal.Decimal `gorm:"type:numeric(10,2)"          json:"pricePerKg"`
}

// ReservedWeight is the portion of the cut already claimed by order items.
func (m *MeatCut) ReservedWeight() decimal.Decimal {
	return m.TotalWeight.Sub(m.AvailableWeight)
}

func (m *MeatCut) HasAvailableWeight(required decimal.Decimal) bool {
	return m.AvailableWeight.GreaterThanOrEqual(required)
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo encodes the forward-only lifecycle. CANCELLED is reachable
// from any non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next == OrderStatusCancelled {
		return !s.Terminal()
	}
	switch s {
	case OrderStatusPending:
		return next == OrderStatusProcessing
	case OrderStatusProcessing:
		return next == OrderStatusCompleted
	}
	return false
}

type Order struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	CustomerName    string          `gorm:"not null;index"              json:"customerName"`
	CustomerPhone   string          `json:"customerPhone,omitempty"`
	CustomerAddress string          `json:"customerAddress,omitempty"`
	Status          OrderStatus     `gorm:"not null;default:PENDING"    json:"status"`
	Items           []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(10,2)"          json:"totalAmount"`
	OrderDate       time.Time       `json:"orderDate"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// RecalculateTotal keeps TotalAmount equal to the sum of item subtotals.
func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Subtotal)
	}
	o.TotalAmount = total
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"orderId"`
	ProductID uint            `gorm:"index"                       json:"productId,omitempty"`
	Product   *Product        `json:"product,omitempty"`
	MeatCutID uint            `gorm:"index"                       json:"meatCutId,omitempty"`
	MeatCut   *MeatCut        `json:"meatCut,omitempty"`
	Weight    decimal.Decimal `gorm:"type:numeric(10,3);not null" json:"weight"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unitPrice"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(10,2)"          json:"subtotal"`
}

// RecalculateSubtotal derives Subtotal from weight and unit price. It is the
// only way Subtotal changes.
func (i *OrderItem) RecalculateSubtotal() {
	i.Subtotal = i.UnitPrice.Mul(i.Weight).Round(2)
}

// ItemName resolves the display name, preferring the cut's product.
func (i *OrderItem) ItemName() string {
	if i.MeatCut != nil && i.MeatCut.Product != nil {
		return i.MeatCut.Product.Name
	}
	if i.Product != nil {
		return i.Product.Name
	}
	return "Unbekannt"
}

type InvoiceStatus string

const (
	InvoiceStatusUnpaid    InvoiceStatus = "UNPAID"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Invoice is a financial snapshot of one order. Later edits to the order do
// not flow back into it.
type Invoice struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	InvoiceNumber string          `gorm:"uniqueIndex;not null"        json:"invoiceNumber"`
	OrderID       uint            `gorm:"uniqueIndex;not null"        json:"orderId"`
	Order         *Order          `json:"order,omitempty"`
	IssueDate     time.Time       `gorm:"not null"                    json:"issueDate"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(10,2)"          json:"totalAmount"`
	TaxRate       decimal.Decimal `gorm:"type:numeric(5,4)"           json:"taxRate"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric(10,2)"          json:"taxAmount"`
	GrandTotal    decimal.Decimal `gorm:"type:numeric(10,2)"          json:"grandTotal"`
	Notes         string          `gorm:"size:1000"                   json:"notes,omitempty"`
	Status        InvoiceStatus   `gorm:"not null;default:UNPAID"     json:"status"`
	CreatedBy     string          `json:"createdBy,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// RecalculateTotals derives tax amount and grand total from the copied order
// total and the tax rate (a fraction, e.g. 0.10 for 10%).
func (inv *Invoice) RecalculateTotals() {
	inv.TaxAmount = inv.TotalAmount.Mul(inv.TaxRate).Round(2)
	inv.GrandTotal = inv.TotalAmount.Add(inv.TaxAmount)
}

// InvoiceSequence hands out monotonically increasing invoice numbers per
// year. Numbers are never reused, even after an invoice is deleted.
type InvoiceSequence struct {
	Year       int `gorm:"primaryKey"`
	LastNumber int `gorm:"not null"`
}
