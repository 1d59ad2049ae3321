package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/hansal/butchershop/internal/models"
)

// Renderer produces the farm-shop sales receipt ("Verkaufsbeleg") as a PDF.
// It only formats data the invoice service has already validated.
type Renderer struct {
	CompanyName  string
	AddressLines []string
	Phone        string
	Email        string
	FooterLines  []string
}

// NewRenderer returns a Renderer carrying the shop's letterhead.
func NewRenderer() *Renderer {
	return &Renderer{
		CompanyName:  "Biohof Hansal",
		AddressLines: []string{"Tanja und Andreas Kienegger", "Hohenau 17/2", "A-8241 Dechantskirchen"},
		Phone:        "0650 8831093",
		Email:        "info@biohofhansal.at",
		FooterLines: []string{
			"Andreas und Tanja Kienegger",
			"Raiffeisenbank Wechselland",
			"IBAN: AT24 3802 3000 0120 0369",
			"Betriebsnummer: 3139310",
		},
	}
}

func (r *Renderer) RenderInvoice(inv *models.Invoice) ([]byte, error) {
	return r.render([]*models.Invoice{inv})
}

// RenderCombined writes the given invoices into one document, each on its
// own page, in the order given.
func (r *Renderer) RenderCombined(invs []*models.Invoice) ([]byte, error) {
	return r.render(invs)
}

func (r *Renderer) render(invs []*models.Invoice) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(18, 15, 18)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	for _, inv := range invs {
		if inv.Order == nil {
			return nil, fmt.Errorf("pdf: invoice %d has no order loaded", inv.ID)
		}
		r.writePage(doc, tr, inv)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) writePage(doc *fpdf.Fpdf, tr func(string) string, inv *models.Invoice) {
	doc.AddPage()

	// Letterhead
	doc.SetFont("Helvetica", "BI", 14)
	doc.CellFormat(0, 7, tr(r.CompanyName), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "I", 10)
	for _, line := range r.AddressLines {
		doc.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	}
	doc.CellFormat(0, 5, tr("Tel: "+r.Phone), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 5, tr(r.Email), "", 1, "L", false, 0, "")

	doc.Ln(3)
	doc.SetLineWidth(0.4)
	left, _, right, _ := doc.GetMargins()
	pageW, _ := doc.GetPageSize()
	y := doc.GetY()
	doc.Line(left, y, pageW-right, y)
	doc.Ln(8)

	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 8, tr("Verkaufsbeleg für BIO-Rindfleisch"), "", 1, "L", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 6, tr("Verkauf an: "+inv.Order.CustomerName), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, tr("Datum: "+inv.IssueDate.Format("02.01.2006")), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 6, tr("Belegnummer: "+receiptNumber(inv)), "", 1, "L", false, 0, "")
	doc.Ln(6)

	// Items table
	colW := []float64{80, 30, 30, 34}
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(colW[0], 7, tr("Bezeichnung"), "B", 0, "L", false, 0, "")
	doc.CellFormat(colW[1], 7, tr("Menge"), "B", 0, "C", false, 0, "")
	doc.CellFormat(colW[2], 7, tr("Preis/Einheit"), "B", 0, "C", false, 0, "")
	doc.CellFormat(colW[3], 7, tr("Summe"), "B", 1, "R", false, 0, "")

	doc.SetFont("Helvetica", "", 11)
	for i := range inv.Order.Items {
		item := &inv.Order.Items[i]
		doc.CellFormat(colW[0], 8, tr(item.ItemName()), "", 0, "L", false, 0, "")
		doc.CellFormat(colW[1], 8, tr(formatWeight(item.Weight)), "", 0, "C", false, 0, "")
		doc.CellFormat(colW[2], 8, tr(formatEuro(item.UnitPrice)), "", 0, "C", false, 0, "")
		doc.CellFormat(colW[3], 8, tr(formatEuro(item.Subtotal)), "", 1, "R", false, 0, "")
	}
	doc.Ln(4)

	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 7, tr(formatEuro(inv.TotalAmount)), "T", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "I", 10)
	doc.CellFormat(0, 5, tr(fmt.Sprintf("(inkl. %s%% USt)", formatRate(inv.TaxRate))), "", 1, "R", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Helvetica", "BI", 11)
	doc.CellFormat(0, 6, tr("Betrag dankend erhalten!"), "", 1, "R", false, 0, "")

	// Bank details pinned to the page bottom
	_, pageH := doc.GetPageSize()
	doc.SetY(pageH - 40)
	doc.SetFont("Helvetica", "", 9)
	for _, line := range r.FooterLines {
		doc.CellFormat(0, 4.5, tr(line), "", 1, "L", false, 0, "")
	}
}

// receiptNumber formats the short receipt number printed on the document:
// day, month and two-digit year of the issue date, then the invoice id.
func receiptNumber(inv *models.Invoice) string {
	d := inv.IssueDate
	return fmt.Sprintf("%d%d%02d-%04d", d.Day(), int(d.Month()), d.Year()%100, inv.ID)
}

func formatWeight(w decimal.Decimal) string {
	return strings.ReplaceAll(w.StringFixed(2), ".", ",") + " kg"
}

func formatEuro(amount decimal.Decimal) string {
	return strings.ReplaceAll(amount.StringFixed(2), ".", ",") + " €"
}

func formatRate(rate decimal.Decimal) string {
	return strings.ReplaceAll(rate.Mul(decimal.NewFromInt(100)).String(), ".", ",")
}
