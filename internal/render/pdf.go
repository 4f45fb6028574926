package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

// Rasterizer turns a presentation into PDF bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, p *Presentation) ([]byte, error)
}

// PDFRasterizer draws presentations on A4 pages with the core Helvetica font.
type PDFRasterizer struct {
	qrSize int
}

// NewPDFRasterizer creates a rasterizer; qrSize is the QR PNG edge in pixels.
func NewPDFRasterizer(qrSize int) *PDFRasterizer {
	if qrSize <= 0 {
		qrSize = 256
	}
	return &PDFRasterizer{qrSize: qrSize}
}

func (r *PDFRasterizer) Rasterize(ctx context.Context, p *Presentation) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(p.Title, true)
	pdf.SetCreator("sdd-notifier", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(p.Title), "", 1, "L", false, 0, "")
	if p.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 7, tr(p.Subtitle), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for _, section := range p.Sections {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr(section.Heading), "B", 1, "L", false, 0, "")
		pdf.Ln(1)
		pdf.SetFont("Helvetica", "", 11)
		for _, row := range section.Rows {
			pdf.CellFormat(55, 7, tr(row.Label), "", 0, "L", false, 0, "")
			pdf.MultiCell(0, 7, tr(row.Value), "", "L", false)
		}
		pdf.Ln(3)
	}

	if p.QRCode != "" {
		png, err := qrcode.Encode(p.QRCode, qrcode.Medium, r.qrSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create QR code: %w", err)
		}
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("qrcode", opts, bytes.NewReader(png))
		pdf.ImageOptions("qrcode", pdf.GetX(), pdf.GetY(), 35, 35, true, opts, 0, "")
	}

	if p.Footer != "" {
		pdf.SetY(-20)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, tr(p.Footer), "", 0, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}
