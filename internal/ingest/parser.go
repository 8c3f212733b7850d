package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"comptrend/server/internal/models"
)

// expectedColumns is the MLS export header set. Matching is
// case-insensitive; unknown columns are ignored.
var expectedColumns = []string{
	"MLSNumber", "StreetNumberNumeric", "StreetName", "City", "CDOM",
	"ListPrice", "CurrentPrice", "ClosePrice", "PendingDate", "CloseDate",
	"SqFtTotal", "SqFtLivArea", "View", "WaterView",
}

// requiredColumns must be present for an upload to be processable at all.
var requiredColumns = []string{"ClosePrice", "CloseDate", "SqFtTotal", "SqFtLivArea"}

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseResult carries the cleaned records and how many source rows were
// dropped for missing a positive close price or a parseable close date.
type ParseResult struct {
	Records      []models.SaleRecord
	RowsExcluded int
}

// ParseSalesFile reads an uploaded CSV or Excel export and produces cleaned
// sale records. All the "maybe this column exists, maybe it is a string with
// a dollar sign" handling lives here so the analysis core never sees a raw
// row.
func ParseSalesFile(r io.Reader, filename string) (*ParseResult, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSV(r)
	case ".xls", ".xlsx":
		rows, err = readExcel(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q: upload .csv, .xls, or .xlsx", filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("file %q has no data rows", filename)
	}
	return buildRecords(rows[0], rows[1:])
}

func readCSV(r io.Reader) ([][]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return rows, nil
}

func readExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// columnIndex maps expected column names to their position in the header,
// -1 when absent.
func columnIndex(header []string) map[string]int {
	indices := make(map[string]int, len(expectedColumns))
	for _, name := range expectedColumns {
		indices[name] = -1
	}
	for i, col := range header {
		clean := strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		for _, name := range expectedColumns {
			if strings.EqualFold(clean, name) {
				indices[name] = i
				break
			}
		}
	}
	return indices
}

func buildRecords(header []string, rows [][]string) (*ParseResult, error) {
	indices := columnIndex(header)

	var missing []string
	for _, name := range requiredColumns {
		if indices[name] == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}

	result := &ParseResult{Records: make([]models.SaleRecord, 0, len(rows))}
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		record, ok := buildRecord(row, indices)
		if !ok {
			result.RowsExcluded++
			continue
		}
		result.Records = append(result.Records, record)
	}
	return result, nil
}

// buildRecord coerces one raw row. Rows without a positive close price and a
// parseable close date are rejected; everything else degrades field by
// field.
func buildRecord(row []string, indices map[string]int) (models.SaleRecord, bool) {
	cell := func(name string) string {
		i := indices[name]
		if i == -1 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	closePrice := parseMoney(cell("ClosePrice"))
	if closePrice == nil || *closePrice <= 0 {
		return models.SaleRecord{}, false
	}
	closeDate := parseDate(cell("CloseDate"))
	if closeDate == nil {
		return models.SaleRecord{}, false
	}

	record := models.SaleRecord{
		MLSNumber:    cell("MLSNumber"),
		StreetNumber: parseInt(cell("StreetNumberNumeric")),
		StreetName:   cell("StreetName"),
		City:         cell("City"),
		CDOM:         parseInt(cell("CDOM")),
		ListPrice:    parseMoney(cell("ListPrice")),
		CurrentPrice: parseMoney(cell("CurrentPrice")),
		ClosePrice:   *closePrice,
		PendingDate:  parseDate(cell("PendingDate")),
		CloseDate:    *closeDate,
		SqFtTotal:    parseFloat(cell("SqFtTotal")),
		SqFtLivArea:  parseFloat(cell("SqFtLivArea")),
		View:         cell("View"),
		WaterView:    cell("WaterView"),
	}
	record.PricePerSqFt = pricePerSqFt(record)
	return record, true
}

// pricePerSqFt applies the living-area-first fallback: SqFtLivArea when
// positive, else SqFtTotal when positive, else no per-sqft figure at all.
func pricePerSqFt(r models.SaleRecord) *float64 {
	var sqft float64
	switch {
	case r.SqFtLivArea != nil && *r.SqFtLivArea > 0:
		sqft = *r.SqFtLivArea
	case r.SqFtTotal != nil && *r.SqFtTotal > 0:
		sqft = *r.SqFtTotal
	default:
		return nil
	}
	pps := r.ClosePrice / sqft
	return &pps
}

// parseMoney handles currency strings as they appear in MLS exports:
// "$1,234,500.00" and friends. Decimal parsing avoids accumulating binary
// fraction noise before the value enters the engine.
func parseMoney(s string) *float64 {
	s = strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(s))
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}

func parseFloat(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	f := parseFloat(s)
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
