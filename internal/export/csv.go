package export

import (
	"encoding/csv"
	"io"

	"github.com/spamanager/spa-manager/internal/reporting"
)

// WriteSalesCSV serialises the listing rows to CSV.
func WriteSalesCSV(w io.Writer, rows []reporting.SaleRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Headers); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(record(row)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
