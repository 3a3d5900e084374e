package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/spamanager/spa-manager/internal/reporting"
)

// ProductHeaders are the stock export columns.
var ProductHeaders = []string{"Nombre Producto", "Código SKU", "Cantidad Actual", "Stock Mínimo", "Precio Unitario"}

// LeadHeaders are the lead pipeline export columns.
var LeadHeaders = []string{"Nombre Cliente", "WhatsApp/Tel", "Canal Origen", "Fecha Captación", "Comentarios"}

// WriteProductsCSV serialises the stock list to CSV.
func WriteProductsCSV(w io.Writer, products []reporting.ProductRef) error {
	records := make([][]string, 0, len(products))
	for _, p := range products {
		records = append(records, []string{
			p.Name,
			p.SKU,
			strconv.Itoa(p.Stock),
			strconv.Itoa(p.MinStock),
			p.SalesPrice.StringFixed(2),
		})
	}
	return writeCSV(w, ProductHeaders, records)
}

// WriteLeadsCSV serialises the lead pipeline to CSV. A lead without a
// capture time leaves the date empty.
func WriteLeadsCSV(w io.Writer, leads []reporting.LeadRef) error {
	records := make([][]string, 0, len(leads))
	for _, l := range leads {
		records = append(records, []string{
			l.Name,
			l.Phone,
			l.Source,
			reporting.DateKey(l.CreatedAt),
			l.Message,
		})
	}
	return writeCSV(w, LeadHeaders, records)
}

func writeCSV(w io.Writer, headers []string, records [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(headers); err != nil {
		return err
	}
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	return writer.Error()
}
