package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ClaimStubLine is one requested document on the stub.
type ClaimStubLine struct {
	Name     string
	Quantity int
	Cost     float64
	IsCustom bool
}

// ClaimStub holds the printable summary handed to a requester after submission.
type ClaimStub struct {
	TrackingID       string
	StudentName      string
	StudentNumber    string
	PreferredContact string
	SubmittedAt      time.Time
	Documents        []ClaimStubLine
	TotalPrice       float64
	PaymentStatus    string
}

// RenderClaimStub produces the claim stub PDF presented at the registrar
// window when picking up released documents.
func (e *PDFExporter) RenderClaimStub(stub ClaimStub) ([]byte, error) {
	if stub.TrackingID == "" {
		return nil, fmt.Errorf("claim stub requires a tracking id")
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, "DOCUMENT REQUEST CLAIM STUB", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, "Office of the University Registrar", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 6, "Tracking ID:", "", 0, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, stub.TrackingID, "", 1, "", false, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 6, "Requested by:", "", 0, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	name := stub.StudentName
	if stub.StudentNumber != "" {
		name = fmt.Sprintf("%s (%s)", stub.StudentName, stub.StudentNumber)
	}
	pdf.CellFormat(0, 6, name, "", 1, "", false, 0, "")

	if !stub.SubmittedAt.IsZero() {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(35, 6, "Submitted:", "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, stub.SubmittedAt.Format("02 Jan 2006 15:04"), "", 1, "", false, 0, "")
	}
	if stub.PreferredContact != "" {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(35, 6, "Contact via:", "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, stub.PreferredContact, "", 1, "", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(76, 7, "Document", "1", 0, "", false, 0, "")
	pdf.CellFormat(14, 7, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 7, "Amount", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, line := range stub.Documents {
		label := line.Name
		if line.IsCustom {
			label += " (custom)"
		}
		pdf.CellFormat(76, 6, label, "1", 0, "", false, 0, "")
		pdf.CellFormat(14, 6, fmt.Sprintf("%d", line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(24, 6, fmt.Sprintf("%.2f", line.Cost*float64(line.Quantity)), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(90, 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(24, 7, fmt.Sprintf("%.2f", stub.TotalPrice), "1", 1, "R", false, 0, "")

	if stub.PaymentStatus != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("Payment status: %s", stub.PaymentStatus), "", 1, "", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render claim stub: %w", err)
	}
	return buf.Bytes(), nil
}
