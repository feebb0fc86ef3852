package notification

import "context"

// DonationCompletedEvent is published after a capture is recorded. Consumers
// send the donor confirmation; the payment pipeline never waits on them.
type DonationCompletedEvent struct {
	DonationID    uint    `json:"donation_id"`
	TransactionID string  `json:"transaction_id"`
	ReceiptNumber string  `json:"receipt_number"`
	DonorName     string  `json:"donor_name"`
	DonorEmail    string  `json:"donor_email"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	DonationType  string  `json:"donation_type"`
}

// Publisher fans donation events out to interested consumers. Publishing is
// best-effort: the caller logs failures and continues.
type Publisher interface {
	PublishDonationCompleted(ctx context.Context, event DonationCompletedEvent) error
}

// NoopPublisher is used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishDonationCompleted(ctx context.Context, event DonationCompletedEvent) error {
	return nil
}
