package etl

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pgEdge/pgedge-salesdw/internal/dimension"
	"github.com/pgEdge/pgedge-salesdw/internal/measure"
)

var exportHeader = []string{
	"ORDERNUMBER", "ORDERLINENUMBER", "QUANTITYORDERED", "PRICEEACH",
	"SALES", "PROFIT", "DEALSIZE_CAT", "ORDERDATE", "STATUS",
	"CUSTOMERNAME", "CITY", "STATE", "POSTALCODE", "COUNTRY", "TERRITORY",
	"PRODUCTCODE", "PRODUCTLINE",
}

// ExportTransformed writes derived rows as CSV. Amounts are written
// exactly; a row whose date did not parse keeps its original text.
func ExportTransformed(out io.Writer, rows []measure.Row) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	for _, r := range rows {
		date := r.RawDate
		if r.DateValid {
			date = r.OrderDate.Format(dimension.ISOLayout)
		}
		record := []string{
			strconv.FormatInt(r.OrderNumber, 10),
			strconv.FormatInt(r.OrderLineNumber, 10),
			strconv.FormatInt(r.Quantity, 10),
			r.UnitPrice.String(),
			r.Amount.String(),
			r.Profit.String(),
			string(r.DealSizeCat),
			date,
			r.Status,
			r.Customer.Name,
			r.Customer.City,
			r.Customer.State,
			r.Customer.PostalCode,
			r.Customer.Country,
			r.Customer.Territory,
			r.ProductCode,
			r.ProductLine,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
