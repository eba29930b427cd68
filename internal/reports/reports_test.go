package reports

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
	"github.com/pgEdge/pgedge-salesdw/internal/etl"
	"github.com/pgEdge/pgedge-salesdw/internal/source"
	"github.com/pgEdge/pgedge-salesdw/internal/testutil"
	"github.com/pgEdge/pgedge-salesdw/internal/warehouse"
)

const sample = `ORDERNUMBER,QUANTITYORDERED,PRICEEACH,ORDERDATE,CUSTOMERNAME,COUNTRY,PRODUCTCODE,PRODUCTLINE
10100,10,250,1/5/2023,Acme Co,USA,S10_1678,Motorcycles
10101,3,400,1/20/2023,Acme Co,USA,S10_1678,Motorcycles
10102,70,100,2/5/2024,Beta Ltd,France,S18_1749,Classic Cars
10103,40,100,3/5/2024,Gamma Inc,Italy,S18_1749,Classic Cars
`

func loadedStore(t *testing.T) db.Store {
	t.Helper()
	ctx := context.Background()

	store := testutil.OpenSQLite(t)
	w := warehouse.NewWriter(store, warehouse.DefaultOptions())
	if err := w.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	rows, err := source.ReadCSV(strings.NewReader(sample), nil)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if _, err := etl.Load(ctx, w, rows, etl.DefaultOptions()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return store
}

func TestSalesByYear(t *testing.T) {
	store := loadedStore(t)

	res, err := SalesByYear(context.Background(), store)
	if err != nil {
		t.Fatalf("SalesByYear failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("Expected 2 years, got %d", len(res))
	}
	if res[0].Year != 2023 || res[0].Sales != 3700 || res[0].Orders != 2 {
		t.Errorf("Unexpected 2023 total: %+v", res[0])
	}
	if res[1].Year != 2024 || res[1].Sales != 11000 || res[1].Profit != 2750 {
		t.Errorf("Unexpected 2024 total: %+v", res[1])
	}
}

func TestTopCustomers(t *testing.T) {
	store := loadedStore(t)

	res, err := TopCustomers(context.Background(), store, 2)
	if err != nil {
		t.Fatalf("TopCustomers failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("Expected 2 customers, got %d", len(res))
	}
	if res[0].Name != "Beta Ltd" || res[0].Profit != 1750 {
		t.Errorf("Expected Beta Ltd first with 1750, got %+v", res[0])
	}
	if res[1].Name != "Gamma Inc" {
		t.Errorf("Expected Gamma Inc second, got %+v", res[1])
	}
}

func TestMonthlyTrend(t *testing.T) {
	store := loadedStore(t)

	res, err := MonthlyTrend(context.Background(), store)
	if err != nil {
		t.Fatalf("MonthlyTrend failed: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("Expected 3 months, got %d", len(res))
	}
	if res[0].Year != 2023 || res[0].Month != 1 || res[0].Lines != 2 {
		t.Errorf("Unexpected first month: %+v", res[0])
	}
}

func TestProductLineTotals(t *testing.T) {
	store := loadedStore(t)

	res, err := ProductLineTotals(context.Background(), store)
	if err != nil {
		t.Fatalf("ProductLineTotals failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(res))
	}
	if res[0].ProductLine != "Classic Cars" || res[0].Quantity != 110 || res[0].Sales != 11000 {
		t.Errorf("Unexpected top line: %+v", res[0])
	}
}

func TestDealSizeDistribution(t *testing.T) {
	store := loadedStore(t)

	res, err := DealSizeDistribution(context.Background(), store)
	if err != nil {
		t.Fatalf("DealSizeDistribution failed: %v", err)
	}

	want := []DealSizeShare{
		{"Small", 2, 3700},
		{"Medium", 1, 4000},
		{"Large", 1, 7000},
	}
	if len(res) != len(want) {
		t.Fatalf("Expected %d categories, got %d", len(want), len(res))
	}
	for i, w := range want {
		if res[i] != w {
			t.Errorf("Category %d: expected %+v, got %+v", i, w, res[i])
		}
	}
}

func TestRegistry(t *testing.T) {
	names := List()
	want := []string{"deal_sizes", "monthly_trend", "product_lines", "sales_by_year", "top_customers"}
	if len(names) != len(want) {
		t.Fatalf("Expected %d reports, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected %s, got %s", want[i], names[i])
		}
	}

	if _, err := Get("nope"); err == nil {
		t.Error("Expected error for unknown report, got nil")
	}
}

func TestAllReportsPrint(t *testing.T) {
	store := loadedStore(t)

	for _, def := range All() {
		t.Run(def.Name, func(t *testing.T) {
			table, err := def.Run(context.Background(), store, Params{TopN: 3})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if len(table.Rows) == 0 {
				t.Error("Expected rows")
			}
			var buf bytes.Buffer
			if err := table.Print(&buf); err != nil {
				t.Fatalf("Print failed: %v", err)
			}
			if !strings.Contains(buf.String(), table.Columns[0]) {
				t.Errorf("Expected header in output: %s", buf.String())
			}
		})
	}
}
