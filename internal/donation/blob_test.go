package donation_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/donation"
)

var _ = Describe("CorrelationData", func() {
	It("round-trips through Pack and ParseCorrelation", func() {
		blob := donation.CorrelationData{
			PendingID:     "4f7c21aa-9b1d-4c8e-8869-0a1b2c3d4e5f",
			ReceiptNumber: "TD-20260829-4F7C21AA",
			DonationType:  donation.TypePuja,
		}
		packed := blob.Pack()
		Expect(len(packed)).To(BeNumerically("<=", 127))

		parsed := donation.ParseCorrelation(packed)
		Expect(parsed).To(Equal(blob))
	})

	It("drops the receipt number before exceeding the provider limit", func() {
		blob := donation.CorrelationData{
			PendingID:     "4f7c21aa-9b1d-4c8e-8869-0a1b2c3d4e5f",
			ReceiptNumber: strings.Repeat("R", 120),
			DonationType:  donation.TypeGeneral,
		}
		packed := blob.Pack()
		Expect(packed).NotTo(BeEmpty())
		Expect(len(packed)).To(BeNumerically("<=", 127))

		parsed := donation.ParseCorrelation(packed)
		Expect(parsed.PendingID).To(Equal(blob.PendingID))
		Expect(parsed.ReceiptNumber).To(BeEmpty())
	})

	It("parses the legacy long-key shape", func() {
		legacy := `{"pendingDonationId":"abc-123","receiptNumber":"TD-1","donationType":"general"}`
		parsed := donation.ParseCorrelation(legacy)
		Expect(parsed.PendingID).To(Equal("abc-123"))
		Expect(parsed.ReceiptNumber).To(Equal("TD-1"))
		Expect(parsed.DonationType).To(Equal("general"))
	})

	It("yields zero data for garbage input", func() {
		Expect(donation.ParseCorrelation("")).To(Equal(donation.CorrelationData{}))
		Expect(donation.ParseCorrelation("not json")).To(Equal(donation.CorrelationData{}))
		Expect(donation.ParseCorrelation("{}")).To(Equal(donation.CorrelationData{}))
	})
})
