package reporting

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel labels used when a record lacks the data to resolve a display name.
const (
	UnassignedSeller = "Unassigned seller"
	UnnamedProduct   = "Unnamed product"
	UnknownBranch    = "Unknown branch"
)

// AllBranches selects every branch.
const AllBranches = "all"

// PartyRef is a linked person (seller, user) embedded in an upstream record.
type PartyRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SaleRecord is a single logged sale (a "daily log" entry).
type SaleRecord struct {
	ID            string              `json:"id"`
	OccurredOn    string              `json:"occurred_on"`
	CreatedAt     time.Time           `json:"created_at,omitzero"`
	BranchID      string              `json:"branch_id"`
	SellerID      string              `json:"seller_id,omitempty"`
	SellerName    string              `json:"seller_name,omitempty"`
	Seller        *PartyRef           `json:"seller,omitempty"`
	ProductID     string              `json:"product_id,omitempty"`
	ProductName   string              `json:"product_name,omitempty"`
	ClientName    string              `json:"client_name"`
	ServiceLabel  string              `json:"service_label"`
	Quantity      int                 `json:"quantity"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	Amount        decimal.NullDecimal `json:"amount"`
	PaymentMethod string              `json:"payment_method"`
	Notes         string              `json:"notes,omitempty"`

	// Cancellation signals as delivered by the backend. Cancelled derives the
	// state from them on every call.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	Deleted   bool       `json:"is_deleted,omitempty"`
	Status    string     `json:"status,omitempty"`
}

// Cancelled reports whether the sale was soft-deleted or marked cancelled.
func (s SaleRecord) Cancelled() bool {
	if s.DeletedAt != nil || s.Deleted {
		return true
	}
	return isCancelledStatus(s.Status)
}

// Units returns the quantity sold, counting at least one unit per record so that
// legacy rows without a quantity are still represented.
func (s SaleRecord) Units() int {
	if s.Quantity < 1 {
		return 1
	}
	return s.Quantity
}

// Total returns the stored amount when present, else Units x UnitPrice.
func (s SaleRecord) Total() decimal.Decimal {
	if s.Amount.Valid {
		return s.Amount.Decimal
	}
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Units())))
}

// SellerLabel resolves the seller display name: explicit name, then the linked
// seller, then a synthesized label from the seller ID.
func (s SaleRecord) SellerLabel() string {
	if name := strings.TrimSpace(s.SellerName); name != "" {
		return name
	}
	if s.Seller != nil {
		if name := strings.TrimSpace(s.Seller.Name); name != "" {
			return name
		}
	}
	id := strings.TrimSpace(s.SellerID)
	if id == "" && s.Seller != nil {
		id = strings.TrimSpace(s.Seller.ID)
	}
	if id != "" {
		return "Seller " + id
	}
	return UnassignedSeller
}

// ProductLabel resolves the product display name from the linked name or the
// product table.
func (s SaleRecord) ProductLabel(products map[string]ProductRef) string {
	if name := strings.TrimSpace(s.ProductName); name != "" {
		return name
	}
	if id := strings.TrimSpace(s.ProductID); id != "" {
		if p, ok := products[id]; ok && strings.TrimSpace(p.Name) != "" {
			return strings.TrimSpace(p.Name)
		}
	}
	return UnnamedProduct
}

func (s SaleRecord) branch() string  { return s.BranchID }
func (s SaleRecord) dateKey() string { return NormalizeDate(s.OccurredOn) }
func (s SaleRecord) cancelled() bool { return s.Cancelled() }

func (s SaleRecord) field(f Field) string {
	switch f {
	case FieldClient:
		return s.ClientName
	case FieldService:
		return s.ServiceLabel
	case FieldSeller:
		return s.SellerLabel()
	case FieldProduct:
		return s.ProductName
	case FieldPayment:
		return s.PaymentMethod
	case FieldNotes:
		return s.Notes
	}
	return ""
}

// AppointmentStatus is a free label; any status may follow any other.
type AppointmentStatus string

// Appointment statuses.
const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// AppointmentRecord is a booked appointment.
type AppointmentRecord struct {
	ID          string            `json:"id"`
	Date        string            `json:"date"`
	Time        string            `json:"time"`
	ClientName  string            `json:"client_name"`
	ServiceType string            `json:"service_type"`
	BranchID    string            `json:"branch_id,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Status      AppointmentStatus `json:"status"`
}

// EffectiveStatus returns the status, defaulting to scheduled.
func (a AppointmentRecord) EffectiveStatus() AppointmentStatus {
	status := AppointmentStatus(strings.ToLower(strings.TrimSpace(string(a.Status))))
	if status == "" {
		return StatusScheduled
	}
	if status == "canceled" {
		return StatusCancelled
	}
	return status
}

func (a AppointmentRecord) branch() string  { return a.BranchID }
func (a AppointmentRecord) dateKey() string { return NormalizeDate(a.Date) }
func (a AppointmentRecord) cancelled() bool { return a.EffectiveStatus() == StatusCancelled }

func (a AppointmentRecord) field(f Field) string {
	switch f {
	case FieldClient:
		return a.ClientName
	case FieldService:
		return a.ServiceType
	case FieldNotes:
		return a.Notes
	}
	return ""
}

// BranchRef is a branch lookup entry.
type BranchRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code,omitempty"`
	Address string `json:"address,omitempty"`
}

// ProductRef is a product lookup entry.
type ProductRef struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku,omitempty"`
	SalesPrice decimal.Decimal `json:"sales_price"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	Stock      int             `json:"stock"`
	MinStock   int             `json:"min_stock"`
	MaxStock   *int            `json:"max_stock,omitempty"`
	LowStock   bool            `json:"is_low_stock"`
}

// IsLowStock honours the backend flag and falls back to stock <= min_stock.
func (p ProductRef) IsLowStock() bool {
	return p.LowStock || p.Stock <= p.MinStock
}

// LeadStatus is the pipeline stage of a lead.
type LeadStatus string

// Lead pipeline stages in board order.
const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadSold      LeadStatus = "sold"
	LeadDiscarded LeadStatus = "discarded"
)

// LeadStatuses lists the pipeline stages in board order.
var LeadStatuses = []LeadStatus{LeadNew, LeadContacted, LeadSold, LeadDiscarded}

// LeadRef is a lead lookup entry.
type LeadRef struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone,omitempty"`
	Email     string     `json:"email,omitempty"`
	BranchID  string     `json:"branch_id,omitempty"`
	Source    string     `json:"source,omitempty"`
	Status    LeadStatus `json:"status"`
	Message   string     `json:"message,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitzero"`
}

// ProductIndex keys products by ID.
func ProductIndex(products []ProductRef) map[string]ProductRef {
	idx := make(map[string]ProductRef, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx
}

// BranchIndex keys branches by ID.
func BranchIndex(branches []BranchRef) map[string]BranchRef {
	idx := make(map[string]BranchRef, len(branches))
	for _, b := range branches {
		idx[b.ID] = b
	}
	return idx
}

func isCancelledStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "cancelled", "canceled":
		return true
	}
	return false
}
