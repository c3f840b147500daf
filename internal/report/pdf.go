// Package report renders a review's resolved checklist view to PDF.
// Layout: metadata header block, one criteria table per section with a
// global running index, colored verdicts, notes, and a summary line, with
// a confidentiality footer on every page.
package report

import (
	"fmt"
	"strings"

	"github.com/signintech/gopdf"

	"github.com/jcnich/App-UAT-Tool/internal/database"
)

const (
	fontSans = "sans"
	fontBold = "sans-bold"

	pageWidth  = 612.0 // letter, points
	pageHeight = 792.0
	margin     = 36.0
	footerY    = pageHeight - 30

	contentWidth = pageWidth - 2*margin

	colNumW    = 26.0
	colResultW = 50.0
	colRefW    = 76.0
	colTextW   = contentWidth - colNumW - colResultW - colRefW

	lineHeight = 11.0
	cellPad    = 3.0
)

type rgb struct{ r, g, b uint8 }

var (
	colorHeaderBg = rgb{52, 49, 63}
	colorGrid     = rgb{221, 221, 221}
	colorMuted    = rgb{102, 102, 102}
	colorBody     = rgb{34, 34, 34}

	resultColors = map[string]rgb{
		database.ResultPass:    {13, 128, 80},
		database.ResultFail:    {194, 48, 48},
		database.ResultPartial: {184, 111, 0},
		database.ResultNA:      {102, 102, 102},
	}
)

func resultDisplay(result *string) string {
	if result == nil {
		return "—"
	}
	if *result == database.ResultNA {
		return "N/A"
	}
	return *result
}

type Generator struct {
	db          *database.DB
	fontRegular string
	fontBoldTTF string
}

// NewGenerator builds a PDF generator. The two paths must name TTF files:
// gopdf ships no fonts of its own.
func NewGenerator(db *database.DB, fontRegular, fontBoldTTF string) *Generator {
	return &Generator{db: db, fontRegular: fontRegular, fontBoldTTF: fontBoldTTF}
}

// Filename derives the download name for a review's export.
func Filename(r *database.Review) string {
	return fmt.Sprintf("UAT_Report_%s_%s.pdf", strings.ReplaceAll(r.AppName, " ", "_"), r.AppID)
}

// BuildPDF renders the review's resolved view and returns the document
// bytes plus the suggested filename.
func (g *Generator) BuildPDF(reviewID int64) ([]byte, string, error) {
	review, err := g.db.GetReview(reviewID)
	if err != nil {
		return nil, "", err
	}
	sections, err := g.db.ResolveReview(reviewID)
	if err != nil {
		return nil, "", err
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeLetter})

	if err := pdf.AddTTFFont(fontSans, g.fontRegular); err != nil {
		return nil, "", fmt.Errorf("loading font %s: %w", g.fontRegular, err)
	}
	if err := pdf.AddTTFFont(fontBold, g.fontBoldTTF); err != nil {
		return nil, "", fmt.Errorf("loading font %s: %w", g.fontBoldTTF, err)
	}

	p := &page{pdf: pdf}
	p.newPage()

	g.drawHeader(p, review)

	counts := map[string]int{}
	for _, sec := range sections {
		g.drawSection(p, sec, counts)
	}

	p.moveDown(10)
	if review.OverallNotes != "" {
		p.setFont(fontBold, 8, colorBody)
		p.writeLine("Overall notes")
		p.setFont(fontSans, 8, colorBody)
		for _, line := range p.split(review.OverallNotes, contentWidth) {
			p.writeLine(line)
		}
		p.moveDown(6)
	}

	p.setFont(fontSans, 8, colorBody)
	summary := fmt.Sprintf("Summary: Pass %d, Fail %d, Partial %d, N/A %d",
		counts[database.ResultPass], counts[database.ResultFail],
		counts[database.ResultPartial], counts[database.ResultNA])
	p.writeLine(summary)

	return pdf.GetBytesPdf(), Filename(review), nil
}

func (g *Generator) drawHeader(p *page, review *database.Review) {
	p.setFont(fontBold, 12, colorBody)
	p.writeLine("Marketplace App Review Results")
	p.moveDown(4)

	p.setFont(fontSans, 8, colorMuted)
	meta := []string{
		"App: " + orDash(review.AppName),
		"ID: " + orDash(review.AppID),
		"Date: " + orDash(review.Date),
		"Submitter: " + orDash(review.AppOwnerEmail),
	}
	for _, line := range meta {
		p.writeLine(line)
	}

	p.moveDown(4)
	p.pdf.SetStrokeColor(colorGrid.r, colorGrid.g, colorGrid.b)
	p.pdf.SetLineWidth(0.5)
	p.pdf.Line(margin, p.y, margin+contentWidth, p.y)
	p.moveDown(12)
}

func (g *Generator) drawSection(p *page, sec database.ResolvedSection, counts map[string]int) {
	p.ensureRoom(3 * lineHeight)
	p.setFont(fontBold, 9, colorBody)
	p.writeLine(sec.Name)
	p.moveDown(2)

	g.drawTableHeader(p)
	for _, item := range sec.Items {
		if item.Result != nil {
			counts[*item.Result]++
		}
		g.drawRow(p, item)
	}
	p.moveDown(8)
}

func (g *Generator) drawTableHeader(p *page) {
	h := lineHeight + 2*cellPad
	p.pdf.SetFillColor(colorHeaderBg.r, colorHeaderBg.g, colorHeaderBg.b)
	p.pdf.RectFromUpperLeftWithStyle(margin, p.y, contentWidth, h, "F")

	p.setFont(fontBold, 7, rgb{255, 255, 255})
	x := margin
	for _, col := range []struct {
		w     float64
		title string
	}{
		{colNumW, "#"},
		{colTextW, "Criterion"},
		{colResultW, "Result"},
		{colRefW, "Reference"},
	} {
		p.pdf.SetXY(x+cellPad, p.y+cellPad)
		p.pdf.Cell(nil, col.title)
		x += col.w
	}
	p.y += h
}

func (g *Generator) drawRow(p *page, item database.ResolvedItem) {
	p.setFont(fontSans, 7, colorBody)
	textLines := p.split(item.Text, colTextW-2*cellPad)
	ref := item.Attachment
	if ref == "" {
		ref = "—"
	}
	refLines := p.split(ref, colRefW-2*cellPad)

	n := len(textLines)
	if len(refLines) > n {
		n = len(refLines)
	}
	rowH := float64(n)*lineHeight + 2*cellPad

	if p.ensureRoom(rowH) {
		g.drawTableHeader(p)
		p.setFont(fontSans, 7, colorBody)
	}

	display := resultDisplay(item.Result)
	resultColor := colorMuted
	if item.Result != nil {
		if c, ok := resultColors[*item.Result]; ok {
			resultColor = c
		}
	}

	p.setFont(fontSans, 7, colorBody)
	p.pdf.SetXY(margin+cellPad, p.y+cellPad)
	p.pdf.Cell(nil, fmt.Sprintf("%d", item.Index))

	for i, line := range textLines {
		p.pdf.SetXY(margin+colNumW+cellPad, p.y+cellPad+float64(i)*lineHeight)
		p.pdf.Cell(nil, line)
	}

	p.setFont(fontSans, 7, resultColor)
	p.pdf.SetXY(margin+colNumW+colTextW+cellPad, p.y+cellPad)
	p.pdf.Cell(nil, display)

	p.setFont(fontSans, 7, colorBody)
	for i, line := range refLines {
		p.pdf.SetXY(margin+colNumW+colTextW+colResultW+cellPad, p.y+cellPad+float64(i)*lineHeight)
		p.pdf.Cell(nil, line)
	}

	p.pdf.SetStrokeColor(colorGrid.r, colorGrid.g, colorGrid.b)
	p.pdf.SetLineWidth(0.25)
	p.pdf.Line(margin, p.y+rowH, margin+contentWidth, p.y+rowH)

	p.y += rowH
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

// page tracks the write cursor and draws the footer as each page starts.
type page struct {
	pdf *gopdf.GoPdf
	y   float64
	num int
}

func (p *page) newPage() {
	p.pdf.AddPage()
	p.num++
	p.y = margin

	p.pdf.SetStrokeColor(colorGrid.r, colorGrid.g, colorGrid.b)
	p.pdf.SetLineWidth(0.5)
	p.pdf.Line(margin, footerY-8, margin+contentWidth, footerY-8)

	p.setFont(fontSans, 7, colorMuted)
	p.pdf.SetXY(margin, footerY)
	p.pdf.Cell(nil, "Confidential — For internal use only.")

	pageLabel := fmt.Sprintf("Page %d", p.num)
	w, _ := p.pdf.MeasureTextWidth(pageLabel)
	p.pdf.SetXY(margin+contentWidth-w, footerY)
	p.pdf.Cell(nil, pageLabel)
}

// ensureRoom starts a new page when h points would run into the footer.
// Reports whether a page break happened.
func (p *page) ensureRoom(h float64) bool {
	if p.y+h <= footerY-16 {
		return false
	}
	p.newPage()
	return true
}

func (p *page) setFont(name string, size float64, c rgb) {
	p.pdf.SetFont(name, "", size)
	p.pdf.SetTextColor(c.r, c.g, c.b)
}

func (p *page) writeLine(text string) {
	p.ensureRoom(lineHeight)
	p.pdf.SetXY(margin, p.y)
	p.pdf.Cell(nil, text)
	p.y += lineHeight
}

func (p *page) split(text string, width float64) []string {
	lines, err := p.pdf.SplitText(text, width)
	if err != nil || len(lines) == 0 {
		return []string{text}
	}
	return lines
}

func (p *page) moveDown(h float64) {
	p.y += h
}
