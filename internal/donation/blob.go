package donation

import (
	"encoding/json"
)

// The provider's custom_id field is capped at 127 characters, so the
// correlation payload embedded at order-creation time uses single-letter keys.
const correlationMaxLen = 127

// CorrelationData links provider state back to local records; it is packed
// into the order's custom_id and echoed back on capture.
type CorrelationData struct {
	PendingID     string `json:"i"`
	ReceiptNumber string `json:"r"`
	DonationType  string `json:"t"`
}

// legacy shape written by the earlier flow with full-length keys.
type legacyCorrelationData struct {
	PendingDonationID string `json:"pendingDonationId"`
	ReceiptNumber     string `json:"receiptNumber"`
	DonationType      string `json:"donationType"`
}

// Pack serializes the correlation data. When even the short-key form exceeds
// the provider limit the receipt number is dropped first; the pending id is
// the one field capture cannot reconstruct.
func (c *CorrelationData) Pack() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	if len(data) <= correlationMaxLen {
		return string(data)
	}

	trimmed := *c
	trimmed.ReceiptNumber = ""
	data, err = json.Marshal(&trimmed)
	if err != nil || len(data) > correlationMaxLen {
		return ""
	}
	return string(data)
}

// ParseCorrelation decodes a custom_id blob, falling back to the legacy
// long-key shape. An empty or unparseable blob yields zero-valued data; the
// capture path then reconciles from the provider response alone.
func ParseCorrelation(blob string) CorrelationData {
	if blob == "" {
		return CorrelationData{}
	}

	var data CorrelationData
	if err := json.Unmarshal([]byte(blob), &data); err == nil && data != (CorrelationData{}) {
		return data
	}

	var legacy legacyCorrelationData
	if err := json.Unmarshal([]byte(blob), &legacy); err == nil {
		return CorrelationData{
			PendingID:     legacy.PendingDonationID,
			ReceiptNumber: legacy.ReceiptNumber,
			DonationType:  legacy.DonationType,
		}
	}
	return CorrelationData{}
}
