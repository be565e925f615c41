package billing

import "math"

// GSTRate is the flat GST rate applied to every charge.
const GSTRate = 0.18

// BillBreakdown is a GST-inclusive total split into its parts.
type BillBreakdown struct {
	Subtotal  float64 `json:"subtotal"`
	GSTAmount float64 `json:"gstAmount"`
	Total     float64 `json:"total"`
}

// CalculateFinalBill computes the GST-inclusive bill for a base amount. It is
// the single source of truth for GST math: billing previews, the webhook
// charge path and receipts all go through it, so display estimates and actual
// charges can never disagree. GST is rounded half-up to the nearest currency
// unit.
func CalculateFinalBill(baseAmount float64) BillBreakdown {
	subtotal := baseAmount
	gst := roundHalfUp(subtotal * GSTRate)
	return BillBreakdown{
		Subtotal:  subtotal,
		GSTAmount: gst,
		Total:     subtotal + gst,
	}
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
