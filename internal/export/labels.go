package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/piwi3910/SubTrack/internal/model"
	qrcode "github.com/skip2/go-qrcode"
)

// ItemTag holds the data printed on, and encoded into, one item tag.
type ItemTag struct {
	Mark        string   `json:"mark"`
	Shape       string   `json:"shape"`
	Dimension   string   `json:"dimension,omitempty"`
	Grade       string   `json:"grade,omitempty"`
	Length      string   `json:"length"`
	Weight      *float64 `json:"weight,omitempty"`
	SendType    string   `json:"sendType"`
	Barcode     string   `json:"barcode,omitempty"`
	SourceTable string   `json:"sourceTable,omitempty"`
	SourceID    string   `json:"sourceId,omitempty"`
}

// TagFromRecord builds a tag for a generated raw stock row. Raw sticks have
// no piece mark, so the source id identifies them.
func TagFromRecord(r model.ItemRecord) ItemTag {
	return ItemTag{
		Mark:        "RAW " + r.SourceID,
		Shape:       r.Shape,
		Dimension:   r.Dimension,
		Grade:       r.Grade,
		Length:      r.Length,
		Weight:      r.Weight,
		SendType:    r.SendType.String(),
		SourceTable: r.SourceTable,
		SourceID:    r.SourceID,
	}
}

// TagFromItem builds a tag for an item already recorded against a SubOut.
func TagFromItem(it model.SubOutItem) ItemTag {
	return ItemTag{
		Mark:        it.Mark(),
		Shape:       it.Shape,
		Dimension:   it.Dimension,
		Grade:       it.Grade,
		Length:      it.Length,
		Weight:      it.Weight,
		SendType:    it.SendType.String(),
		Barcode:     it.Barcode,
		SourceTable: it.SourceTable,
		SourceID:    it.SourceID,
	}
}

// TagsFromItems expands items into one tag per piece: an item with quantity
// 3 prints three tags.
func TagsFromItems(items []model.SubOutItem) []ItemTag {
	var tags []ItemTag
	for _, it := range items {
		n := it.Quantity
		if n <= 0 {
			n = 1
		}
		tag := TagFromItem(it)
		for i := 0; i < n; i++ {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportTags writes a sheet of QR-coded item tags to path.
func ExportTags(path string, tags []ItemTag) error {
	pdf, err := buildTags(tags)
	if err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}

// WriteTags writes a sheet of QR-coded item tags to w.
func WriteTags(w io.Writer, tags []ItemTag) error {
	pdf, err := buildTags(tags)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

// buildTags lays tags out on Avery 5160 sheets (3 columns x 10 rows on US
// Letter). Each tag carries the mark, the stock description and a QR code
// of the tag as JSON.
func buildTags(tags []ItemTag) (*fpdf.Fpdf, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("no items to generate tags for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, tag := range tags {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderTag(pdf, x, y, tag); err != nil {
			return nil, fmt.Errorf("failed to render tag for %q: %w", tag.Mark, err)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	return pdf, nil
}

// renderTag draws a single tag at the given position.
func renderTag(pdf *fpdf.Fpdf, x, y float64, tag ItemTag) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(tag)
	if err != nil {
		return fmt.Errorf("failed to marshal tag: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	// Identical tags still get distinct image names.
	imgName := "qr_" + uuid.NewString()
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	pdf.CellFormat(textW, 4.5, truncate(pdf, tag.Mark, textW), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	desc := strings.Join(nonEmpty(tag.Shape, tag.Dimension, tag.Grade), " ")
	pdf.CellFormat(textW, 3.5, truncate(pdf, desc, textW), "", 1, "L", false, 0, "")

	pdf.SetXY(textX, y+labelPadding+9)
	pdf.CellFormat(textW, 3.5, truncate(pdf, tag.Length+"  "+model.FormatWeight(tag.Weight), textW), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+13)
	ref := tag.SendType
	if tag.Barcode != "" {
		ref += " | " + tag.Barcode
	}
	pdf.CellFormat(textW, 3, truncate(pdf, ref, textW), "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	return nil
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
