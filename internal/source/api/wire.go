package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spamanager/spa-manager/internal/reporting"
)

// flexID accepts identifiers sent as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// flexAmount accepts money as a JSON number or numeric string. Null, blank and
// unparseable strings leave it invalid.
type flexAmount decimal.NullDecimal

func (f *flexAmount) UnmarshalJSON(b []byte) error {
	*f = flexAmount{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
		if raw == "" {
			return nil
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	*f = flexAmount{Decimal: d, Valid: true}
	return nil
}

func firstAmount(candidates ...flexAmount) decimal.NullDecimal {
	for _, c := range candidates {
		if c.Valid {
			return decimal.NullDecimal(c)
		}
	}
	return decimal.NullDecimal{}
}

// flexInt accepts counts as numbers or numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var amt flexAmount
	if err := amt.UnmarshalJSON(b); err != nil {
		return err
	}
	if !amt.Valid {
		*f = 0
		return nil
	}
	*f = flexInt(amt.Decimal.IntPart())
	return nil
}

// flexBool accepts true/false, 1/0 and their string forms.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.ToLower(string(bytes.TrimSpace(b))), `"`)
	switch s {
	case "true", "1", "yes", "t":
		*f = true
	default:
		*f = false
	}
	return nil
}

type wireParty struct {
	ID       flexID `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

func (p *wireParty) name() string {
	if p == nil {
		return ""
	}
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	return strings.TrimSpace(p.FullName)
}

func (p *wireParty) id() string {
	if p == nil {
		return ""
	}
	return string(p.ID)
}

type wireSale struct {
	ID              flexID     `json:"id"`
	Date            string     `json:"date"`
	OccurredOn      string     `json:"occurred_on"`
	CreatedAt       string     `json:"created_at"`
	BranchID        flexID     `json:"branch_id"`
	Branch          *wireParty `json:"branch"`
	SellerID        flexID     `json:"seller_id"`
	SellerName      string     `json:"seller_name"`
	Seller          *wireParty `json:"seller"`
	ProductID       flexID     `json:"product_id"`
	ProductName     string     `json:"product_name"`
	Product         *wireParty `json:"product"`
	ClientName      string     `json:"client_name"`
	ServiceRendered string     `json:"service_rendered"`
	ServiceLabel    string     `json:"service_label"`
	Quantity        flexInt    `json:"quantity"`
	UnitPrice       flexAmount `json:"unit_price"`
	Price           flexAmount `json:"price"`
	Amount          flexAmount `json:"amount"`
	Total           flexAmount `json:"total"`
	Monto           flexAmount `json:"monto"`
	PaymentMethod   string     `json:"payment_method"`
	Notes           string     `json:"notes"`
	DeletedAt       *string    `json:"deleted_at"`
	DeletedAtCamel  *string    `json:"deletedAt"`
	IsDeleted       flexBool   `json:"is_deleted"`
	IsDeletedCamel  flexBool   `json:"isDeleted"`
	Status          string     `json:"status"`
}

func (w wireSale) record() reporting.SaleRecord {
	rec := reporting.SaleRecord{
		ID:            string(w.ID),
		OccurredOn:    firstDate(w.Date, w.OccurredOn, w.CreatedAt),
		CreatedAt:     parseTimestamp(w.CreatedAt),
		BranchID:      firstNonEmpty(string(w.BranchID), w.Branch.id()),
		SellerID:      firstNonEmpty(string(w.SellerID), w.Seller.id()),
		SellerName:    strings.TrimSpace(w.SellerName),
		ProductID:     firstNonEmpty(string(w.ProductID), w.Product.id()),
		ProductName:   firstNonEmpty(strings.TrimSpace(w.ProductName), w.Product.name()),
		ClientName:    strings.TrimSpace(w.ClientName),
		ServiceLabel:  firstNonEmpty(strings.TrimSpace(w.ServiceRendered), strings.TrimSpace(w.ServiceLabel)),
		Quantity:      int(w.Quantity),
		UnitPrice:     firstAmount(w.UnitPrice, w.Price).Decimal,
		Amount:        firstAmount(w.Amount, w.Total, w.Monto),
		PaymentMethod: strings.TrimSpace(w.PaymentMethod),
		Notes:         strings.TrimSpace(w.Notes),
		Deleted:       bool(w.IsDeleted || w.IsDeletedCamel),
		Status:        strings.TrimSpace(w.Status),
	}
	if w.Seller != nil {
		rec.Seller = &reporting.PartyRef{ID: w.Seller.id(), Name: w.Seller.name()}
	}
	rec.DeletedAt = deletionTime(w.DeletedAt, w.DeletedAtCamel)
	return rec
}

type wireAppointment struct {
	ID              flexID     `json:"id"`
	Date            string     `json:"date"`
	AppointmentDate string     `json:"appointment_date"`
	Time            string     `json:"time"`
	StartTime       string     `json:"start_time"`
	ClientName      string     `json:"client_name"`
	Client          *wireParty `json:"client"`
	ServiceType     string     `json:"service_type"`
	Service         string     `json:"service"`
	BranchID        flexID     `json:"branch_id"`
	Notes           string     `json:"notes"`
	Status          string     `json:"status"`
}

func (w wireAppointment) record() reporting.AppointmentRecord {
	rawDate := firstNonEmpty(strings.TrimSpace(w.Date), strings.TrimSpace(w.AppointmentDate))
	clock := reporting.NormalizeClock(firstNonEmpty(w.Time, w.StartTime))
	if clock == "" && len(rawDate) >= 16 {
		clock = reporting.NormalizeClock(rawDate[11:16])
	}
	return reporting.AppointmentRecord{
		ID:          string(w.ID),
		Date:        reporting.NormalizeDate(rawDate),
		Time:        clock,
		ClientName:  firstNonEmpty(strings.TrimSpace(w.ClientName), w.Client.name()),
		ServiceType: firstNonEmpty(strings.TrimSpace(w.ServiceType), strings.TrimSpace(w.Service)),
		BranchID:    string(w.BranchID),
		Notes:       strings.TrimSpace(w.Notes),
		Status:      reporting.AppointmentStatus(strings.ToLower(strings.TrimSpace(w.Status))),
	}
}

type wireBranch struct {
	ID      flexID `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Address string `json:"address"`
}

func (w wireBranch) record() reporting.BranchRef {
	return reporting.BranchRef{ID: string(w.ID), Name: strings.TrimSpace(w.Name), Code: w.Code, Address: w.Address}
}

type wireProduct struct {
	ID         flexID     `json:"id"`
	Name       string     `json:"name"`
	SKU        string     `json:"sku"`
	SalesPrice flexAmount `json:"sales_price"`
	Price      flexAmount `json:"price"`
	CostPrice  flexAmount `json:"cost_price"`
	Stock      flexInt    `json:"stock"`
	MinStock   flexInt    `json:"min_stock"`
	MaxStock   *flexInt   `json:"max_stock"`
	LowStock   flexBool   `json:"is_low_stock"`
}

func (w wireProduct) record() reporting.ProductRef {
	p := reporting.ProductRef{
		ID:         string(w.ID),
		Name:       strings.TrimSpace(w.Name),
		SKU:        w.SKU,
		SalesPrice: firstAmount(w.SalesPrice, w.Price).Decimal,
		CostPrice:  firstAmount(w.CostPrice).Decimal,
		Stock:      int(w.Stock),
		MinStock:   int(w.MinStock),
		LowStock:   bool(w.LowStock),
	}
	if w.MaxStock != nil {
		limit := int(*w.MaxStock)
		p.MaxStock = &limit
	}
	return p
}

type wireLead struct {
	ID        flexID `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	BranchID  flexID `json:"branch_id"`
	Source    string `json:"source"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

func (w wireLead) record() reporting.LeadRef {
	return reporting.LeadRef{
		ID:        string(w.ID),
		Name:      strings.TrimSpace(w.Name),
		Phone:     w.Phone,
		Email:     w.Email,
		BranchID:  string(w.BranchID),
		Source:    w.Source,
		Status:    reporting.LeadStatus(strings.ToLower(strings.TrimSpace(w.Status))),
		Message:   strings.TrimSpace(w.Message),
		CreatedAt: parseTimestamp(w.CreatedAt),
	}
}

// decodeList reads a bare array or an object wrapping it under "data", which
// may itself be a paginated object.
func decodeList[W any](body []byte) ([]W, error) {
	body = bytes.TrimSpace(body)
	for depth := 0; depth < 3; depth++ {
		if len(body) == 0 || bytes.Equal(body, []byte("null")) {
			return []W{}, nil
		}
		switch body[0] {
		case '[':
			var out []W
			if err := json.Unmarshal(body, &out); err != nil {
				return nil, err
			}
			return out, nil
		case '{':
			var env struct {
				Data json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(body, &env); err != nil {
				return nil, err
			}
			body = bytes.TrimSpace(env.Data)
		default:
			return nil, errUnexpectedPayload
		}
	}
	return nil, errUnexpectedPayload
}

var errUnexpectedPayload = errors.New("api: unexpected payload shape")

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	reporting.KeyLayout,
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// deletionTime reports a soft delete. A present but unparseable stamp still
// counts as deleted.
func deletionTime(candidates ...*string) *time.Time {
	for _, c := range candidates {
		if c == nil || strings.TrimSpace(*c) == "" {
			continue
		}
		t := parseTimestamp(*c)
		return &t
	}
	return nil
}

// firstDate picks the first candidate that normalizes to a date key.
func firstDate(candidates ...string) string {
	for _, c := range candidates {
		if key := reporting.NormalizeDate(c); key != "" {
			return key
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
