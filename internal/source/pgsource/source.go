// Package pgsource reads records straight from a replica of the backend
// database.
package pgsource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spamanager/spa-manager/internal/dashboard"
	"github.com/spamanager/spa-manager/internal/reporting"
)

// Querier is the subset of *pgxpool.Pool used here.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Source implements dashboard.Source on top of PostgreSQL.
type Source struct {
	db Querier
}

var _ dashboard.Source = (*Source)(nil)

// New wraps a pool.
func New(db Querier) *Source {
	return &Source{db: db}
}

const salesSelect = `SELECT d.id::text,
       COALESCE(to_char(d.date, 'YYYY-MM-DD'), ''),
       d.created_at,
       COALESCE(d.branch_id::text, ''),
       COALESCE(d.seller_id::text, ''),
       COALESCE(u.name, ''),
       COALESCE(d.product_id::text, ''),
       COALESCE(p.name, ''),
       COALESCE(d.client_name, ''),
       COALESCE(d.service_rendered, ''),
       COALESCE(d.quantity, 0),
       COALESCE(d.unit_price, 0)::text,
       d.amount::text,
       COALESCE(d.payment_method, ''),
       COALESCE(d.notes, ''),
       d.deleted_at,
       COALESCE(d.is_deleted, false),
       COALESCE(d.status, '')
FROM daily_logs d
LEFT JOIN users u ON u.id = d.seller_id
LEFT JOIN products p ON p.id = d.product_id`

const cancelledPredicate = `(d.deleted_at IS NOT NULL OR COALESCE(d.is_deleted, false) OR lower(trim(COALESCE(d.status, ''))) IN ('cancelled', 'canceled'))`

// salesQuery builds the listing statement for q.
func salesQuery(q dashboard.SalesQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	if b := strings.TrimSpace(q.BranchID); b != "" && !strings.EqualFold(b, reporting.AllBranches) {
		args = append(args, b)
		where = append(where, fmt.Sprintf("d.branch_id::text = $%d", len(args)))
	}
	switch q.Visibility {
	case reporting.ActiveOnly:
		where = append(where, "NOT "+cancelledPredicate)
	case reporting.CancelledOnly:
		where = append(where, cancelledPredicate)
	}
	sql := salesSelect
	if len(where) > 0 {
		sql += "\nWHERE " + strings.Join(where, " AND ")
	}
	return sql + "\nORDER BY d.date DESC NULLS LAST, d.id DESC", args
}

// ListSales reads the daily log.
func (s *Source) ListSales(ctx context.Context, q dashboard.SalesQuery) ([]reporting.SaleRecord, error) {
	sql, args := salesQuery(q)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pgsource: query sales: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reporting.SaleRecord, error) {
		var (
			rec        reporting.SaleRecord
			createdAt  *time.Time
			sellerName string
			unitPrice  string
			amount     *string
		)
		err := row.Scan(
			&rec.ID, &rec.OccurredOn, &createdAt, &rec.BranchID, &rec.SellerID, &sellerName,
			&rec.ProductID, &rec.ProductName, &rec.ClientName, &rec.ServiceLabel, &rec.Quantity,
			&unitPrice, &amount, &rec.PaymentMethod, &rec.Notes, &rec.DeletedAt, &rec.Deleted, &rec.Status,
		)
		if err != nil {
			return rec, err
		}
		if createdAt != nil {
			rec.CreatedAt = *createdAt
		}
		if sellerName != "" {
			rec.Seller = &reporting.PartyRef{ID: rec.SellerID, Name: sellerName}
		}
		rec.UnitPrice = parseDecimal(&unitPrice).Decimal
		rec.Amount = parseDecimal(amount)
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgsource: scan sales: %w", err)
	}
	return out, nil
}

const appointmentsSQL = `SELECT a.id::text,
       COALESCE(to_char(a.date, 'YYYY-MM-DD'), ''),
       COALESCE(a.time::text, ''),
       COALESCE(a.client_name, ''),
       COALESCE(a.service_type, ''),
       COALESCE(a.branch_id::text, ''),
       COALESCE(a.notes, ''),
       COALESCE(a.status, '')
FROM appointments a
ORDER BY a.date, a.time`

// ListAppointments reads every appointment.
func (s *Source) ListAppointments(ctx context.Context) ([]reporting.AppointmentRecord, error) {
	rows, err := s.db.Query(ctx, appointmentsSQL)
	if err != nil {
		return nil, fmt.Errorf("pgsource: query appointments: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reporting.AppointmentRecord, error) {
		var (
			rec    reporting.AppointmentRecord
			clock  string
			status string
		)
		err := row.Scan(&rec.ID, &rec.Date, &clock, &rec.ClientName, &rec.ServiceType, &rec.BranchID, &rec.Notes, &status)
		rec.Time = reporting.NormalizeClock(clock)
		rec.Status = reporting.AppointmentStatus(strings.ToLower(strings.TrimSpace(status)))
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("pgsource: scan appointments: %w", err)
	}
	return out, nil
}

// ListBranches reads the branch table.
func (s *Source) ListBranches(ctx context.Context) ([]reporting.BranchRef, error) {
	rows, err := s.db.Query(ctx, `SELECT id::text, COALESCE(name, ''), COALESCE(code, ''), COALESCE(address, '') FROM branches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("pgsource: query branches: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reporting.BranchRef, error) {
		var b reporting.BranchRef
		err := row.Scan(&b.ID, &b.Name, &b.Code, &b.Address)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("pgsource: scan branches: %w", err)
	}
	return out, nil
}

// ListProducts reads the product table.
func (s *Source) ListProducts(ctx context.Context) ([]reporting.ProductRef, error) {
	rows, err := s.db.Query(ctx, `SELECT id::text, COALESCE(name, ''), COALESCE(sku, ''),
       COALESCE(sales_price, 0)::text, COALESCE(cost_price, 0)::text,
       COALESCE(stock, 0), COALESCE(min_stock, 0), max_stock
FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("pgsource: query products: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reporting.ProductRef, error) {
		var (
			p           reporting.ProductRef
			sales, cost string
		)
		if err := row.Scan(&p.ID, &p.Name, &p.SKU, &sales, &cost, &p.Stock, &p.MinStock, &p.MaxStock); err != nil {
			return p, err
		}
		p.SalesPrice = parseDecimal(&sales).Decimal
		p.CostPrice = parseDecimal(&cost).Decimal
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgsource: scan products: %w", err)
	}
	return out, nil
}

// ListLeads reads the lead pipeline, newest first.
func (s *Source) ListLeads(ctx context.Context) ([]reporting.LeadRef, error) {
	rows, err := s.db.Query(ctx, `SELECT id::text, COALESCE(name, ''), COALESCE(phone, ''), COALESCE(email, ''),
       COALESCE(branch_id::text, ''), COALESCE(source, ''), COALESCE(status, ''),
       COALESCE(message, ''), created_at
FROM leads ORDER BY created_at DESC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("pgsource: query leads: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reporting.LeadRef, error) {
		var (
			l         reporting.LeadRef
			status    string
			createdAt *time.Time
		)
		if err := row.Scan(&l.ID, &l.Name, &l.Phone, &l.Email, &l.BranchID, &l.Source, &status, &l.Message, &createdAt); err != nil {
			return l, err
		}
		l.Status = reporting.LeadStatus(strings.ToLower(strings.TrimSpace(status)))
		if createdAt != nil {
			l.CreatedAt = *createdAt
		}
		return l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgsource: scan leads: %w", err)
	}
	return out, nil
}

// parseDecimal reads a numeric rendered as text. NULL stays invalid.
func parseDecimal(s *string) decimal.NullDecimal {
	if s == nil {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
