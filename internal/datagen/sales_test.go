package datagen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pgEdge/pgedge-salesdw/internal/etl"
	"github.com/pgEdge/pgedge-salesdw/internal/source"
	"github.com/pgEdge/pgedge-salesdw/internal/warehouse"
)

func TestGenerateSalesDeterministic(t *testing.T) {
	cfg := DefaultSalesConfig()
	cfg.Rows = 200
	cfg.Seed = 42
	cfg.DirtyRatio = 0.2

	a := GenerateSales(cfg)
	b := GenerateSales(cfg)

	if len(a) != 200 || len(b) != 200 {
		t.Fatalf("Expected 200 rows, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Row %d differs between runs with the same seed", i)
		}
	}
}

func TestGenerateSalesOrders(t *testing.T) {
	cfg := DefaultSalesConfig()
	cfg.Rows = 100
	cfg.Seed = 7
	cfg.DirtyRatio = 0

	rows := GenerateSales(cfg)
	if rows[0].OrderNumber != "10100" {
		t.Errorf("Expected first order 10100, got %s", rows[0].OrderNumber)
	}
	if rows[0].OrderLineNumber != "1" {
		t.Errorf("Expected first line number 1, got %s", rows[0].OrderLineNumber)
	}
	for i, r := range rows {
		if r.Line != i+2 {
			t.Errorf("Row %d: expected line %d, got %d", i, i+2, r.Line)
		}
		if !strings.HasPrefix(r.ProductCode, "S") || !strings.Contains(r.ProductCode, "_") {
			t.Errorf("Unexpected product code %q", r.ProductCode)
		}
	}
}

func TestCleanExtractHasNoRejections(t *testing.T) {
	cfg := DefaultSalesConfig()
	cfg.Rows = 300
	cfg.Seed = 99
	cfg.DirtyRatio = 0

	res, err := etl.Transform(GenerateSales(cfg), warehouse.Seed{}, etl.DefaultOptions())
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if n := len(res.Report.Rejections); n != 0 {
		t.Errorf("Expected no rejections, got %d: %v", n, res.Report.Rejections[0])
	}
	if len(res.Facts) != cfg.Rows {
		t.Errorf("Expected %d facts, got %d", cfg.Rows, len(res.Facts))
	}
}

func TestDirtyExtractInjectsDefects(t *testing.T) {
	cfg := DefaultSalesConfig()
	cfg.Rows = 1000
	cfg.Seed = 3
	cfg.DirtyRatio = 0.3

	var buf bytes.Buffer
	injected, err := WriteSalesCSV(&buf, cfg)
	if err != nil {
		t.Fatalf("WriteSalesCSV failed: %v", err)
	}

	total := 0
	for _, n := range injected {
		total += n
	}
	if total == 0 {
		t.Fatal("Expected defects to be injected")
	}

	rows, err := source.ReadCSV(&buf, nil)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(rows) != cfg.Rows {
		t.Fatalf("Expected %d rows read back, got %d", cfg.Rows, len(rows))
	}

	res, err := etl.Transform(rows, warehouse.Seed{}, etl.DefaultOptions())
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	bad := injected[DefectBadDate] + injected[DefectBadQuantity] + injected[DefectDuplicate]
	if bad > 0 && len(res.Report.Rejections) == 0 {
		t.Error("Expected rejections for injected defects")
	}
	if len(res.Facts) > cfg.Rows-bad {
		t.Errorf("Expected at most %d facts, got %d", cfg.Rows-bad, len(res.Facts))
	}
}
