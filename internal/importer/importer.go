// Package importer reads SubOut part lists from CSV and Excel files. It
// detects the CSV delimiter, maps columns by header name regardless of case,
// and falls back to a fixed column order when there is no header.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/piwi3910/SubTrack/internal/model"
	"github.com/xuri/excelize/v2"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Items    []model.SubOutItem
	Errors   []string
	Warnings []string
}

// ColumnMapping maps column roles to their indices in the data; -1 means absent.
type ColumnMapping struct {
	Shape     int
	Dimension int
	Grade     int
	Length    int
	Quantity  int
	PieceMark int
	MainMark  int
	Weight    int
	Barcode   int
	SendType  int
}

type role struct {
	name    string
	aliases []string
	field   func(*ColumnMapping) *int
}

// roles lists the recognized columns with their accepted header aliases (lowercase).
var roles = []role{
	{"shape", []string{"shape", "profile", "section"}, func(m *ColumnMapping) *int { return &m.Shape }},
	{"dimension", []string{"dimension", "dimensions", "size", "dim"}, func(m *ColumnMapping) *int { return &m.Dimension }},
	{"grade", []string{"grade", "material", "mat", "spec"}, func(m *ColumnMapping) *int { return &m.Grade }},
	{"length", []string{"length", "len", "cut length"}, func(m *ColumnMapping) *int { return &m.Length }},
	{"quantity", []string{"quantity", "qty", "count", "pcs", "pieces"}, func(m *ColumnMapping) *int { return &m.Quantity }},
	{"piece mark", []string{"piece mark", "piecemark", "piece", "part mark", "mark"}, func(m *ColumnMapping) *int { return &m.PieceMark }},
	{"main mark", []string{"main mark", "mainmark", "assembly", "assembly mark"}, func(m *ColumnMapping) *int { return &m.MainMark }},
	{"weight", []string{"weight", "wt", "weight (lbs)", "lbs"}, func(m *ColumnMapping) *int { return &m.Weight }},
	{"barcode", []string{"barcode", "bar code", "tag"}, func(m *ColumnMapping) *int { return &m.Barcode }},
	{"send type", []string{"send type", "sendtype", "send"}, func(m *ColumnMapping) *int { return &m.SendType }},
}

// positional is the column order assumed for files without a header.
var positional = ColumnMapping{
	Shape: 0, Dimension: 1, Grade: 2, Length: 3, Quantity: 4, PieceMark: 5,
	MainMark: -1, Weight: -1, Barcode: -1, SendType: -1,
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the positional
// mapping and false if no cell named a known column.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1}

	isHeader := false
	for i, cell := range row {
		normalized := model.Normalize(cell)
		for _, r := range roles {
			for _, alias := range r.aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				if idx := r.field(&mapping); *idx == -1 {
					*idx = i
				}
			}
		}
	}

	if !isHeader {
		return positional, false
	}
	return mapping, true
}

// ParseSendType maps the spellings used on shop part lists to a SendType.
func ParseSendType(s string) (model.SendType, bool) {
	switch model.Normalize(s) {
	case "raw", "raw stock", "stock":
		return model.SendTypeRaw, true
	case "ctl", "cut to length", "cut-to-length":
		return model.SendTypeCutToLength, true
	case "parts", "part", "fab", "fabricated":
		return model.SendTypeParts, true
	case "", "-":
		return "", true
	default:
		return "", false
	}
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRow extracts an item from a row using the given column mapping.
// Returns the item, any error message, and any warnings.
func parseRow(row []string, mapping ColumnMapping, rowLabel string) (model.SubOutItem, string, []string) {
	var warnings []string

	shape := getCell(row, mapping.Shape)
	if shape == "" {
		return model.SubOutItem{}, fmt.Sprintf("%s: Missing shape value", rowLabel), nil
	}

	lengthStr := getCell(row, mapping.Length)
	if lengthStr == "" {
		return model.SubOutItem{}, fmt.Sprintf("%s: Missing length value", rowLabel), nil
	}
	length, ok := model.ParseLengthString(lengthStr)
	if !ok {
		return model.SubOutItem{}, fmt.Sprintf("%s: Invalid length '%s'", rowLabel, lengthStr), nil
	}
	if length <= 0 {
		return model.SubOutItem{}, fmt.Sprintf("%s: Length must be positive", rowLabel), nil
	}

	qty := 1
	if qtyStr := getCell(row, mapping.Quantity); qtyStr != "" {
		n, err := strconv.Atoi(qtyStr)
		if err != nil {
			return model.SubOutItem{}, fmt.Sprintf("%s: Invalid quantity '%s'", rowLabel, qtyStr), nil
		}
		if n <= 0 {
			return model.SubOutItem{}, fmt.Sprintf("%s: Quantity must be positive", rowLabel), nil
		}
		qty = n
	}

	item := model.SubOutItem{
		Shape:     shape,
		Dimension: getCell(row, mapping.Dimension),
		Grade:     getCell(row, mapping.Grade),
		Length:    lengthStr,
		Quantity:  qty,
		PieceMark: getCell(row, mapping.PieceMark),
		MainMark:  getCell(row, mapping.MainMark),
		Barcode:   getCell(row, mapping.Barcode),
	}

	if wStr := getCell(row, mapping.Weight); wStr != "" {
		if w, ok := model.ParseNumber(wStr); ok && w >= 0 {
			item.Weight = model.Float(w)
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: Invalid weight '%s', leaving it blank", rowLabel, wStr))
		}
	}

	if stStr := getCell(row, mapping.SendType); stStr != "" {
		if st, ok := ParseSendType(stStr); ok {
			item.SendType = st
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: Unknown send type '%s', leaving it blank", rowLabel, stStr))
		}
	}

	return item, "", warnings
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportFile dispatches on the file extension: .xlsx and .xlsm go to
// ImportExcel, everything else is read as CSV.
func ImportFile(path string) ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return ImportExcel(path)
	default:
		return ImportCSV(path)
	}
}

// ImportCSV imports items from a CSV file, detecting the delimiter.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	var warnings []string
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return importFromRows(records, "Line", warnings)
}

// ImportCSVFromReader imports items from a CSV reader with a known delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", nil)
}

// ImportExcel imports items from the first sheet of an Excel workbook.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "Sheet is empty")
		return result
	}

	return importFromRows(rows, "Row", nil)
}

// importFromRows is the shared import logic for both CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		missing := []string{}
		if mapping.Shape == -1 {
			missing = append(missing, "Shape")
		}
		if mapping.Length == -1 {
			missing = append(missing, "Length")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) > mapping.Length {
		// an unrecognized header still has no length in the length column
		if _, ok := model.ParseLengthString(rows[0][mapping.Length]); !ok {
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		item, errMsg, warnings := parseRow(row, mapping, rowLabel)
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		result.Warnings = append(result.Warnings, warnings...)
		result.Items = append(result.Items, item)
	}

	return result
}
