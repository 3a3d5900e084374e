// Package export writes the daily sales log as CSV, XLSX or PDF.
package export

import (
	"github.com/shopspring/decimal"

	"github.com/spamanager/spa-manager/internal/reporting"
)

// Headers is the daily log column set, in order.
var Headers = []string{"Fecha", "Vendedora", "Sucursal", "Cliente", "Servicio/Producto", "Monto", "Metodo Pago", "Notas", "Estado"}

// Status labels written in the Estado column.
const (
	StatusActive    = "Activa"
	StatusCancelled = "Cancelada"
)

// SheetName names the XLSX worksheet.
const SheetName = "Ventas"

// serviceOrProduct prefers the rendered service and falls back to the product.
func serviceOrProduct(row reporting.SaleRow) string {
	if row.Service != "" {
		return row.Service
	}
	return row.Product
}

func record(row reporting.SaleRow) []string {
	return []string{
		row.Date,
		row.Seller,
		row.BranchName,
		row.ClientName,
		serviceOrProduct(row),
		row.Amount.StringFixed(2),
		row.PaymentMethod,
		row.Notes,
		status(row),
	}
}

func status(row reporting.SaleRow) string {
	if row.Cancelled {
		return StatusCancelled
	}
	return StatusActive
}

// activeTotal sums the amounts of rows that are not cancelled.
func activeTotal(rows []reporting.SaleRow) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if !row.Cancelled {
			total = total.Add(row.Amount)
		}
	}
	return total
}
