package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Receipt holds the fields rendered onto a payment receipt.
type Receipt struct {
	ReceiptNumber string
	TaxpayerName  string
	TIN           string
	TaxType       string
	Period        string
	Amount        string
	PaymentDate   string
}

// ReceiptRenderer produces the PDF receipt issued after a settlement.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render creates the receipt document.
func (r *ReceiptRenderer) Render(receipt Receipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "OFFICIAL PAYMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Receipt No. %s", receipt.ReceiptNumber), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	rows := [][2]string{
		{"Taxpayer", receipt.TaxpayerName},
		{"TIN", receipt.TIN},
		{"Tax Type", receipt.TaxType},
		{"Period", receipt.Period},
		{"Amount Paid", receipt.Amount},
		{"Payment Date", receipt.PaymentDate},
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(50, 9, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(120, 9, row[1], "1", 1, "", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "This receipt confirms settlement of the referenced tax liability.", "", 1, "", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
