// Package export renders cut plans and item tags as PDF documents.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/piwi3910/SubTrack/internal/engine"
	"github.com/piwi3910/SubTrack/internal/model"
)

// pieceColor represents an RGB fill for one piece mark on a stick diagram.
type pieceColor struct {
	R, G, B int
}

var pieceColors = []pieceColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	drawAreaTop  = marginTop + headerHeight + 8.0
	barHeight    = 7.0
	barSpacing   = 13.0
	maxBars      = 4
	rowHeight    = 6.0
)

// CutPlan is the input of a cut plan report.
type CutPlan struct {
	Title       string // usually the SubOut number
	Matches     []engine.Match
	GeneratedAt time.Time
}

// ExportCutPlan writes the cut plan PDF to path.
func ExportCutPlan(path string, plan CutPlan) error {
	pdf, err := buildCutPlan(plan)
	if err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}

// WriteCutPlan writes the cut plan PDF to w.
func WriteCutPlan(w io.Writer, plan CutPlan) error {
	pdf, err := buildCutPlan(plan)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

// buildCutPlan lays out one page per part group followed by a summary page.
func buildCutPlan(plan CutPlan) (*fpdf.Fpdf, error) {
	if len(plan.Matches) == 0 {
		return nil, fmt.Errorf("no part groups to export")
	}
	if plan.GeneratedAt.IsZero() {
		plan.GeneratedAt = time.Now()
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetTitle("Cut plan "+plan.Title, false)
	pdf.SetFooterFunc(func() { renderFooter(pdf, plan) })

	for i, m := range plan.Matches {
		pdf.AddPage()
		renderGroupPage(pdf, m, i+1)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, plan)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render cut plan: %w", err)
	}
	return pdf, nil
}

// groupTitle renders a match as "W8X31 A992".
func groupTitle(m engine.Match) string {
	parts := []string{m.Group.Shape}
	if d := m.Group.FirstDimension(); d != "" && !strings.Contains(model.Normalize(m.Group.Shape), model.Normalize(d)) {
		parts = append(parts, d)
	}
	if m.Group.Grade != "" {
		parts = append(parts, m.Group.Grade)
	}
	return strings.Join(parts, " ")
}

// renderGroupPage draws one part group: its pieces, the best candidate sticks
// as bar diagrams, and the full comparison table.
func renderGroupPage(pdf *fpdf.Fpdf, m engine.Match, groupNum int) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Group %d: %s", groupNum, groupTitle(m))
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Pieces: %d | Total length: %s", m.Group.TotalPieces, model.FormatLength(m.Group.TotalLengthInches))
	if m.HasInventory {
		stats += fmt.Sprintf(" | Stock: %s %s %s", m.StockShape, m.StockDimension, m.StockGrade)
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	y := drawAreaTop
	y = drawPiecesLegend(pdf, m.Group, y)

	if !m.HasInventory || len(m.Sticks) == 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y+4)
		pdf.CellFormat(200, 7, "No matching inventory for this group", "", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		return
	}

	comparisons := engine.CompareSticks(m)
	colors := markColors(m.Group)

	y += 4
	for i, c := range comparisons {
		if i == maxBars {
			break
		}
		drawStickBar(pdf, c, colors, y)
		y += barSpacing
	}

	drawComparisonTable(pdf, comparisons, y+2)
}

// markColors assigns a color to every piece mark in group order.
func markColors(g model.PartGroup) map[string]pieceColor {
	out := make(map[string]pieceColor, len(g.Pieces))
	for i, p := range g.Pieces {
		if _, ok := out[p.Mark]; !ok {
			out[p.Mark] = pieceColors[i%len(pieceColors)]
		}
	}
	return out
}

// drawPiecesLegend lists the required pieces with their color swatches and
// returns the y position below the legend.
func drawPiecesLegend(pdf *fpdf.Fpdf, g model.PartGroup, startY float64) float64 {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Required:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	colors := markColors(g)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for _, p := range g.Pieces {
		col := colors[p.Mark]
		label := fmt.Sprintf("%s %s x%d", p.Mark, p.LengthDisplay, p.Quantity)
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
	return startY + 6
}

// drawStickBar draws one stick to scale with its greedy cuts and the drop.
func drawStickBar(pdf *fpdf.Fpdf, c engine.StickComparison, colors map[string]pieceColor, y float64) {
	drawWidth := pageWidth - marginLeft - marginRight
	length := c.Plan.StickLength

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	caption := fmt.Sprintf("%s stick (%d in stock) - %d cuts, drop %s", c.Stick.LengthDisplay, c.Stick.Count, c.Plan.TotalFits, c.Drop.LengthDisplay)
	pdf.CellFormat(drawWidth, 4, caption, "", 0, "L", false, 0, "")

	barY := y + 4.5
	pdf.SetFillColor(210, 210, 210)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.3)
	pdf.Rect(marginLeft, barY, drawWidth, barHeight, "FD")
	if length <= 0 {
		return
	}
	scale := drawWidth / length

	x := marginLeft
	for _, yl := range c.Plan.Yields {
		col := colors[yl.Mark]
		w := yl.LengthInches * scale
		for i := 0; i < yl.Fits; i++ {
			pdf.SetFillColor(col.R, col.G, col.B)
			pdf.SetDrawColor(30, 30, 30)
			pdf.Rect(x, barY, w, barHeight, "FD")
			if w > 12 {
				pdf.SetFont("Helvetica", "", 6)
				lw := pdf.GetStringWidth(yl.Mark)
				if lw < w-1 {
					pdf.SetXY(x+(w-lw)/2, barY+barHeight/2-2)
					pdf.CellFormat(lw, 4, yl.Mark, "", 0, "C", false, 0, "")
				}
			}
			x += w
		}
	}

	// Drops worth restocking are outlined in green, scrap in red.
	if c.Plan.Waste > 0 {
		w := c.Plan.Waste * scale
		if c.Drop.Usable {
			pdf.SetDrawColor(0, 140, 0)
		} else {
			pdf.SetDrawColor(200, 0, 0)
		}
		pdf.SetLineWidth(0.5)
		pdf.Rect(x, barY, w, barHeight, "D")
		pdf.SetLineWidth(0.3)
	}
}

// drawComparisonTable renders every candidate stick as a table row,
// continuing on a new page when the current one fills up.
func drawComparisonTable(pdf *fpdf.Fpdf, comparisons []engine.StickComparison, y float64) {
	colWidths := []float64{28, 20, 24, 18, 26, 18, 26, 24, 26, 57}
	headers := []string{"Stick", "In Stock", "Weight", "Cuts", "Waste", "Waste %", "Sticks Needed", "Shortfall", "Drop", "Pattern"}

	header := func(y float64) {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		xPos := marginLeft
		for i, h := range headers {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[i], rowHeight, h, "1", 0, "C", true, 0, "")
			xPos += colWidths[i]
		}
	}

	header(y)
	y += rowHeight

	pdf.SetFont("Helvetica", "", 8)
	for i, c := range comparisons {
		if y+rowHeight > pageHeight-marginBottom-6 {
			pdf.AddPage()
			y = marginTop
			header(y)
			y += rowHeight
			pdf.SetFont("Helvetica", "", 8)
		}

		needed := "-"
		if c.Estimate.SticksNeeded > 0 {
			needed = fmt.Sprintf("%d", c.Estimate.SticksNeeded)
		}
		if !c.Estimate.Covered && len(c.Estimate.UncoveredMark) > 0 {
			needed += " (partial)"
		}
		drop := c.Drop.LengthDisplay
		if c.Drop.Usable {
			drop += " usable"
		}
		row := []string{
			c.Stick.LengthDisplay,
			fmt.Sprintf("%d", c.Stick.Count),
			model.FormatWeight(c.Stick.WeightLbs),
			fmt.Sprintf("%d", c.Plan.TotalFits),
			model.FormatLength(c.Plan.Waste),
			fmt.Sprintf("%d%%", c.Plan.WastePct),
			needed,
			fmt.Sprintf("%d", c.Estimate.Shortfall),
			drop,
			patternText(c.Plan),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		if c.Estimate.Shortfall > 0 {
			pdf.SetTextColor(200, 0, 0)
		}

		xPos := marginLeft
		for j, cell := range row {
			pdf.SetXY(xPos, y)
			align := "C"
			if j == len(row)-1 {
				align = "L"
				cell = truncate(pdf, cell, colWidths[j]-2)
			}
			pdf.CellFormat(colWidths[j], rowHeight, cell, "1", 0, align, true, 0, "")
			xPos += colWidths[j]
		}
		pdf.SetTextColor(0, 0, 0)
		y += rowHeight
	}
}

// patternText renders a yield plan as "2x B12, 1x B7".
func patternText(p model.YieldPlan) string {
	if len(p.Yields) == 0 {
		return "no piece fits"
	}
	parts := make([]string, 0, len(p.Yields))
	for _, y := range p.Yields {
		parts = append(parts, fmt.Sprintf("%dx %s", y.Fits, y.Mark))
	}
	return strings.Join(parts, ", ")
}

// truncate shortens s with an ellipsis until it fits in width.
func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

// groupBest is the lowest-waste stick of a match, if any.
type groupBest struct {
	match      engine.Match
	best       *engine.StickComparison
	usableDrop int
}

func bestSticks(matches []engine.Match) []groupBest {
	out := make([]groupBest, 0, len(matches))
	for _, m := range matches {
		gb := groupBest{match: m}
		if cs := engine.CompareSticks(m); len(cs) > 0 {
			b := cs[0]
			gb.best = &b
			gb.usableDrop = len(model.UsableDrops([]model.YieldPlan{b.Plan}, []int{b.Estimate.SticksNeeded}))
		}
		out = append(out, gb)
	}
	return out
}

// renderSummaryPage draws the overall statistics and one row per group with
// its lowest-waste stick.
func renderSummaryPage(pdf *fpdf.Fpdf, plan CutPlan) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	title := "Cut Plan Summary"
	if plan.Title != "" {
		title += " - " + plan.Title
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, title, "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	sum := engine.Summarize(plan.Matches)
	summaryItems := []struct {
		label string
		value string
	}{
		{"Part Groups", fmt.Sprintf("%d", sum.Groups)},
		{"Groups With Stock", fmt.Sprintf("%d", sum.GroupsMatched)},
		{"Pieces Required", fmt.Sprintf("%d", sum.PiecesRequired)},
		{"Candidate Sticks", fmt.Sprintf("%d", sum.CandidateSticks)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Group Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{14, 70, 24, 36, 24, 30, 30, 39}
	headers := []string{"#", "Group", "Pieces", "Best Stick", "Waste %", "Sticks Needed", "Usable Drops", "Weight"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], rowHeight, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += rowHeight

	var missing []engine.Match
	pdf.SetFont("Helvetica", "", 9)
	for i, gb := range bestSticks(plan.Matches) {
		if y+rowHeight > pageHeight-marginBottom-6 {
			pdf.AddPage()
			y = marginTop
			pdf.SetFont("Helvetica", "", 9)
		}
		row := []string{fmt.Sprintf("%d", i+1), groupTitle(gb.match), fmt.Sprintf("%d", gb.match.Group.TotalPieces), "-", "-", "-", "-", "-"}
		if gb.best != nil {
			row[3] = gb.best.Stick.LengthDisplay
			row[4] = fmt.Sprintf("%d%%", gb.best.Plan.WastePct)
			if gb.best.Estimate.SticksNeeded > 0 {
				row[5] = fmt.Sprintf("%d", gb.best.Estimate.SticksNeeded)
			}
			row[6] = fmt.Sprintf("%d", gb.usableDrop)
			row[7] = model.FormatWeight(gb.best.Estimate.TotalWeight)
		} else {
			missing = append(missing, gb.match)
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		xPos = marginLeft
		for j, cell := range row {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], rowHeight, truncate(pdf, cell, colWidths[j]-2), "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += rowHeight
	}

	if len(missing) > 0 && y+16 < pageHeight-marginBottom {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Groups Without Stock", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, m := range missing {
			if y+5 > pageHeight-marginBottom-6 {
				break
			}
			pdf.SetXY(marginLeft+5, y)
			text := fmt.Sprintf("- %s: %d pieces, %s total", groupTitle(m), m.Group.TotalPieces, model.FormatLength(m.Group.TotalLengthInches))
			pdf.CellFormat(200, 5, text, "", 0, "L", false, 0, "")
			y += 5
		}
	}
}

func renderFooter(pdf *fpdf.Fpdf, plan CutPlan) {
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	text := fmt.Sprintf("Generated by SubTrack on %s - page %d", plan.GeneratedAt.Format("2006-01-02 15:04"), pdf.PageNo())
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, text, "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}
