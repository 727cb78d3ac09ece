package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/piwi3910/SubTrack/internal/model"
	"github.com/xuri/excelize/v2"
)

// ─── DetectCSVDelimiter Tests ──────────────────────────────

func TestDetectCSVDelimiter_Comma(t *testing.T) {
	data := []byte("Shape,Grade,Length,Qty\nW,A992,240,2\nL,A36,30,1\n")
	got := DetectCSVDelimiter(data)
	if got != ',' {
		t.Errorf("expected comma delimiter, got %q", got)
	}
}

func TestDetectCSVDelimiter_Semicolon(t *testing.T) {
	data := []byte("Shape;Grade;Length;Qty\nW;A992;240;2\nL;A36;30;1\n")
	got := DetectCSVDelimiter(data)
	if got != ';' {
		t.Errorf("expected semicolon delimiter, got %q", got)
	}
}

func TestDetectCSVDelimiter_Tab(t *testing.T) {
	data := []byte("Shape\tGrade\tLength\tQty\nW\tA992\t240\t2\nL\tA36\t30\t1\n")
	got := DetectCSVDelimiter(data)
	if got != '\t' {
		t.Errorf("expected tab delimiter, got %q", got)
	}
}

func TestDetectCSVDelimiter_Pipe(t *testing.T) {
	data := []byte("Shape|Grade|Length|Qty\nW|A992|240|2\nL|A36|30|1\n")
	got := DetectCSVDelimiter(data)
	if got != '|' {
		t.Errorf("expected pipe delimiter, got %q", got)
	}
}

// ─── DetectColumns Tests ───────────────────────────────────

func TestDetectColumns_StandardHeaders(t *testing.T) {
	row := []string{"Shape", "Dimension", "Grade", "Length", "Quantity", "Piece Mark", "Main Mark", "Weight", "Barcode", "Send Type"}
	mapping, isHeader := DetectColumns(row)

	if !isHeader {
		t.Fatal("expected header to be detected")
	}
	want := ColumnMapping{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	if mapping != want {
		t.Errorf("expected %+v, got %+v", want, mapping)
	}
}

func TestDetectColumns_AliasesAndCase(t *testing.T) {
	row := []string{"QTY", "  Size ", "PROFILE", "Material", "Cut  Length", "Mark"}
	mapping, isHeader := DetectColumns(row)

	if !isHeader {
		t.Fatal("expected header to be detected")
	}
	if mapping.Quantity != 0 {
		t.Errorf("expected Quantity at 0, got %d", mapping.Quantity)
	}
	if mapping.Dimension != 1 {
		t.Errorf("expected Dimension at 1, got %d", mapping.Dimension)
	}
	if mapping.Shape != 2 {
		t.Errorf("expected Shape at 2, got %d", mapping.Shape)
	}
	if mapping.Grade != 3 {
		t.Errorf("expected Grade at 3, got %d", mapping.Grade)
	}
	if mapping.Length != 4 {
		t.Errorf("expected Length at 4, got %d", mapping.Length)
	}
	if mapping.PieceMark != 5 {
		t.Errorf("expected PieceMark at 5, got %d", mapping.PieceMark)
	}
	if mapping.Weight != -1 || mapping.Barcode != -1 {
		t.Errorf("expected absent columns at -1, got %+v", mapping)
	}
}

func TestDetectColumns_FirstOccurrenceWins(t *testing.T) {
	mapping, _ := DetectColumns([]string{"Shape", "Length", "Len"})
	if mapping.Length != 1 {
		t.Errorf("expected Length at 1, got %d", mapping.Length)
	}
}

func TestDetectColumns_NoHeader(t *testing.T) {
	mapping, isHeader := DetectColumns([]string{"W", "8x31", "A992", "240", "2"})
	if isHeader {
		t.Error("expected no header")
	}
	if mapping != positional {
		t.Errorf("expected positional mapping, got %+v", mapping)
	}
}

// ─── CSV Import Tests ──────────────────────────────────────

func TestImportCSVFromReader_WithHeaders(t *testing.T) {
	csv := `Shape,Dimension,Grade,Length,Qty,Piece Mark,Weight,Barcode,Send Type
W,8x31,A992,"20' 6""",2,b101,635.5,BC-1,Raw
L,3x3x1/4,A36,30,4,a12,,BC-1,CTL
`
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}

	w := result.Items[0]
	if w.Shape != "W" || w.Dimension != "8x31" || w.Grade != "A992" {
		t.Errorf("unexpected profile %+v", w)
	}
	if w.Length != `20' 6"` {
		t.Errorf("expected length as entered, got %q", w.Length)
	}
	if w.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", w.Quantity)
	}
	if w.Weight == nil || *w.Weight != 635.5 {
		t.Errorf("expected weight 635.5, got %v", w.Weight)
	}
	if w.SendType != model.SendTypeRaw {
		t.Errorf("expected send type Raw, got %q", w.SendType)
	}
	if w.Mark() != "b101" {
		t.Errorf("expected mark b101, got %s", w.Mark())
	}

	l := result.Items[1]
	if l.Weight != nil {
		t.Errorf("expected blank weight to stay nil, got %v", *l.Weight)
	}
	if l.SendType != model.SendTypeCutToLength {
		t.Errorf("expected CTL, got %q", l.SendType)
	}
	if l.Barcode != "BC-1" {
		t.Errorf("expected barcode BC-1, got %q", l.Barcode)
	}
}

func TestImportCSVFromReader_WithoutHeaders(t *testing.T) {
	csv := "W,8x31,A992,240,2,b1\nHSS,4x4x1/4,A500,96,1\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[1].Shape != "HSS" || result.Items[1].Length != "96" {
		t.Errorf("unexpected item %+v", result.Items[1])
	}
	if result.Items[1].PieceMark != "" {
		t.Errorf("expected empty piece mark, got %q", result.Items[1].PieceMark)
	}
}

func TestImportCSVFromReader_UnrecognizedHeaderSkipped(t *testing.T) {
	csv := "Prof,Sz,Gr,Long,Number\nW,8x31,A992,240,2\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d (errors %v)", len(result.Items), result.Errors)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "header") {
			found = true
		}
	}
	if !found {
		t.Error("expected header warning")
	}
}

func TestImportCSVFromReader_SemicolonDelimiter(t *testing.T) {
	csv := "Shape;Grade;Length;Qty\nW;A992;240;2\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ';')
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
}

func TestImportCSVFromReader_DefaultQuantity(t *testing.T) {
	csv := "Shape,Length\nPL,48\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if result.Items[0].Quantity != 1 {
		t.Errorf("expected default quantity 1, got %d", result.Items[0].Quantity)
	}
}

func TestImportCSVFromReader_RowErrors(t *testing.T) {
	csv := `Shape,Length,Qty
W,240,2
,240,1
W,,1
W,abc,1
W,0,1
W,120,x
W,120,-1
W,120,3
`
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Items) != 2 {
		t.Errorf("expected 2 valid items, got %d", len(result.Items))
	}
	if len(result.Errors) != 6 {
		t.Fatalf("expected 6 errors, got %d: %v", len(result.Errors), result.Errors)
	}
	if !strings.Contains(result.Errors[0], "Line 3") || !strings.Contains(result.Errors[0], "shape") {
		t.Errorf("unexpected first error %q", result.Errors[0])
	}
	if !strings.Contains(result.Errors[2], "Invalid length") {
		t.Errorf("unexpected length error %q", result.Errors[2])
	}
}

func TestImportCSVFromReader_Warnings(t *testing.T) {
	csv := "Shape,Length,Weight,Send Type\nW,240,heavy,Truck\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if result.Items[0].Weight != nil {
		t.Error("expected invalid weight to be dropped")
	}
	if result.Items[0].SendType != "" {
		t.Errorf("expected blank send type, got %q", result.Items[0].SendType)
	}
	// header warning plus one per bad cell
	if len(result.Warnings) != 3 {
		t.Errorf("expected 3 warnings, got %v", result.Warnings)
	}
}

func TestImportCSVFromReader_MissingRequiredColumnInHeader(t *testing.T) {
	csv := "Shape,Grade,Qty\nW,A992,2\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
	if !strings.Contains(result.Errors[0], "Length") {
		t.Errorf("expected missing Length, got %q", result.Errors[0])
	}
}

func TestImportCSVFromReader_EmptyRows(t *testing.T) {
	csv := "Shape,Length\nW,240\n,\n\nL,30\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')
	if len(result.Items) != 2 {
		t.Errorf("expected 2 items, got %d (errors %v)", len(result.Items), result.Errors)
	}
}

func TestImportCSVFromReader_EmptyFile(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader(""), ',')
	if len(result.Errors) == 0 {
		t.Error("expected error for empty input")
	}
}

func TestParseSendType(t *testing.T) {
	tests := []struct {
		in   string
		want model.SendType
		ok   bool
	}{
		{"Raw", model.SendTypeRaw, true},
		{" raw stock ", model.SendTypeRaw, true},
		{"CTL", model.SendTypeCutToLength, true},
		{"Cut To Length", model.SendTypeCutToLength, true},
		{"parts", model.SendTypeParts, true},
		{"", "", true},
		{"truck", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSendType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSendType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

// ─── File Import Tests ─────────────────────────────────────

func TestImportCSV_SemicolonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parts.csv")
	content := "Shape;Grade;Length;Qty\nW;A992;240;2\nC;A36;12' 0\";1\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	result := ImportFile(path)

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if !strings.Contains(strings.Join(result.Warnings, " "), "semicolon") {
		t.Errorf("expected semicolon warning, got %v", result.Warnings)
	}
}

func TestImportCSV_FileNotFound(t *testing.T) {
	result := ImportCSV(filepath.Join(t.TempDir(), "missing.csv"))
	if len(result.Errors) == 0 {
		t.Error("expected error for missing file")
	}
}

func TestImportCSV_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("  \n"), 0644); err != nil {
		t.Fatal(err)
	}
	result := ImportCSV(path)
	if len(result.Errors) == 0 {
		t.Error("expected error for empty file")
	}
}

// ─── Excel Import Tests ────────────────────────────────────

func createTestExcel(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parts.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, row := range rows {
		for j, cell := range row {
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("failed to create cell reference: %v", err)
			}
			if err := f.SetCellValue(sheet, cellRef, cell); err != nil {
				t.Fatalf("failed to set cell value: %v", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save Excel file: %v", err)
	}
	return path
}

func TestImportExcel_WithHeaders(t *testing.T) {
	path := createTestExcel(t, [][]interface{}{
		{"Shape", "Size", "Grade", "Length", "Qty", "Main Mark", "Weight"},
		{"W", "8x31", "A992", "20' 0\"", 2, "B1", 620},
		{"HSS", "4x4x1/4", "A500", 96, 1, "C3", ""},
	})

	result := ImportFile(path)

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[0].Dimension != "8x31" {
		t.Errorf("expected 8x31, got %q", result.Items[0].Dimension)
	}
	if result.Items[0].Mark() != "B1" {
		t.Errorf("expected main mark as fallback, got %q", result.Items[0].Mark())
	}
	if result.Items[0].Weight == nil || *result.Items[0].Weight != 620 {
		t.Errorf("expected weight 620, got %v", result.Items[0].Weight)
	}
	if result.Items[1].Length != "96" {
		t.Errorf("expected length 96, got %q", result.Items[1].Length)
	}
}

func TestImportExcel_WithoutHeaders(t *testing.T) {
	path := createTestExcel(t, [][]interface{}{
		{"W", "8x31", "A992", 240, 2, "b1"},
		{"L", "3x3", "A36", 30, 5, "a1"},
	})

	result := ImportExcel(path)
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d (errors %v)", len(result.Items), result.Errors)
	}
	if result.Items[1].Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", result.Items[1].Quantity)
	}
}

func TestImportExcel_FileNotFound(t *testing.T) {
	result := ImportExcel(filepath.Join(t.TempDir(), "missing.xlsx"))
	if len(result.Errors) == 0 {
		t.Error("expected error for missing file")
	}
}
