package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pgEdge/pgedge-salesdw/internal/logging"
)

// ErrMissingColumn is returned when the header lacks a required field.
var ErrMissingColumn = errors.New("missing required column")

const utf8BOM = "\uFEFF"

// columnIndex maps a field to its position in a record.
type columnIndex map[Field]int

func newColumnIndex(header []string, headers HeaderMap) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		f, ok := headers.Lookup(h)
		if !ok {
			logging.Debug().Str("header", h).Msg("Ignoring unmapped column")
			continue
		}
		if _, dup := idx[f]; dup {
			return nil, fmt.Errorf("column %q maps to %s which is already mapped", h, f)
		}
		idx[f] = i
	}

	var missing []string
	for _, f := range Required {
		if _, ok := idx[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (idx columnIndex) row(line int, record []string) Row {
	r := Row{Line: line}
	for f, i := range idx {
		if i < len(record) {
			r.Set(f, record[i])
		}
	}
	return r
}

// ReadCSV reads a delimited extract with a header row.
func ReadCSV(in io.Reader, headers HeaderMap) ([]Row, error) {
	if headers == nil {
		headers = DefaultHeaderMap()
	}

	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty input: no header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx, err := newColumnIndex(header, headers)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, idx.row(line, record))
	}
	return rows, nil
}

// ReadXLSX reads an extract from a worksheet. An empty sheet name selects the
// first sheet in the workbook.
func ReadXLSX(path, sheet string, headers HeaderMap) ([]Row, error) {
	if headers == nil {
		headers = DefaultHeaderMap()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty input: no header row")
	}

	idx, err := newColumnIndex(records[0], headers)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		if blank(record) {
			continue
		}
		rows = append(rows, idx.row(i+2, record))
	}
	return rows, nil
}

// Open reads path as csv or xlsx. Format "auto" (or "") picks by extension.
func Open(path, format, sheet string, headers HeaderMap) ([]Row, error) {
	if format == "" || format == "auto" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx", ".xlsm":
			format = "xlsx"
		default:
			format = "csv"
		}
	}

	switch format {
	case "xlsx":
		return ReadXLSX(path, sheet, headers)
	case "csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		return ReadCSV(f, headers)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

// WriteCSV writes rows with the canonical header.
func WriteCSV(out io.Writer, rows []Row) error {
	cw := csv.NewWriter(out)
	header := make([]string, len(Columns))
	for i, c := range Columns {
		header[i] = c.Header
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range rows {
		if err := cw.Write(rows[i].Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
