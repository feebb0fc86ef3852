package donation

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// GenerateReceiptPDF renders a donation receipt. Receipts exist only for
// completed donations.
func (s *service) GenerateReceiptPDF(ctx context.Context, donationID uint) ([]byte, string, error) {
	donation, err := s.repo.GetDonationByID(ctx, donationID)
	if err != nil {
		return nil, "", err
	}
	if donation.PaymentStatus != PaymentStatusCompleted {
		return nil, "", newValidationError("Receipt is only available for completed donations")
	}

	receiptNumber := donation.MetadataString("receipt_number")
	if receiptNumber == "" {
		receiptNumber = fmt.Sprintf("TD-%d", donation.ID)
	}
	transactionID := donation.MetadataString("transaction_id")
	if transactionID == "" && donation.TransactionID != nil {
		transactionID = *donation.TransactionID
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Donation Receipt")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Receipt Number: %s", receiptNumber))
	pdf.Ln(8)

	rows := [][2]string{
		{"Donor", donation.DonorName},
		{"Email", donation.DonorEmail},
		{"Amount", fmt.Sprintf("%.2f %s", donation.Amount, donation.Currency)},
		{"Donation Type", donation.DonationType},
		{"Purpose", donation.Purpose},
		{"Payment Method", donation.PaymentMethod},
		{"Transaction ID", transactionID},
		{"Date", donation.CreatedAt.Format("2006-01-02 15:04:05")},
	}

	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(125, 8, row[1], "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated on %s. Thank you for your donation.", time.Now().Format("2006-01-02")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render receipt: %w", err)
	}
	filename := fmt.Sprintf("receipt_%s.pdf", receiptNumber)
	return buf.Bytes(), filename, nil
}
