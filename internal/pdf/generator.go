package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/fieldline/crm-api/internal/domain"
)

const fontName = "Helvetica"

// Generator renders bills as PDF documents
type Generator struct {
	companyName string
}

func NewGenerator(companyName string) *Generator {
	return &Generator{companyName: companyName}
}

// Bill renders one bill with its line items and total
func (g *Generator) Bill(bill domain.BillDTO) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle(bill.BillNumber, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(fontName, "B", 16)
	pdf.CellFormat(0, 10, tr(safeValue(g.companyName)), "", 1, "L", false, 0, "")

	pdf.SetFont(fontName, "B", 13)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Bill %s", bill.BillNumber)), "", 1, "L", false, 0, "")

	pdf.SetFont(fontName, "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Date: %s", formatDate(bill.CreatedAt))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Work order: %s", safeValue(bill.OrderID))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Customer: %s", safeValue(bill.CustomerName))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Payment status: %s", bill.PaymentStatus)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	headers := []string{"Description", "Qty", "Unit price", "Amount"}
	colWidths := []float64{95, 20, 35, 30}
	drawTableRow(pdf, tr, headers, colWidths, true)

	for _, item := range bill.Items {
		drawTableRow(pdf, tr, []string{
			item.Description,
			item.Quantity.String(),
			item.UnitPrice.StringFixed(2),
			item.Amount.StringFixed(2),
		}, colWidths, false)
	}

	pdf.Ln(2)
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Total: %s", bill.Total.StringFixed(2))), "", 1, "R", false, 0, "")

	if strings.TrimSpace(bill.Notes) != "" {
		pdf.Ln(4)
		pdf.SetFont(fontName, "", 10)
		pdf.MultiCell(0, 5, tr(bill.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
