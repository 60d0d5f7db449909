package scoring

import (
	"fmt"

	"github.com/opensource-finance/dary/internal/domain"
)

// Detail labels of the financial sub-score.
const (
	LabelROI         = "ROI"
	LabelEntryTicket = "Entry ticket"
	LabelRentalYield = "Rental yield"
	LabelCapitalGain = "Capital gain"
)

var (
	roiBands = []band{
		{15, 30, "Excellent"},
		{10, 20, "Good"},
		{5, 10, "Moderate"},
		{negInf, 5, "Low"},
	}

	// Lower tickets score higher.
	entryTicketBands = []band{
		{10_000, 20, "Very accessible"},
		{50_000, 15, "Accessible"},
		{100_000, 10, "Moderate"},
		{posInf, 5, "Premium"},
	}

	rentalYieldBands = []band{
		{7, 30, "Excellent"},
		{5, 20, "Good"},
		{3, 10, "Moderate"},
		{negInf, 5, "Low"},
	}

	capitalGainBands = []band{
		{30, 20, "Very high"},
		{20, 15, "High"},
		{10, 10, "Moderate"},
		{negInf, 5, "Low"},
	}
)

// Financial scores return on investment, entry ticket accessibility, rental
// yield and estimated capital gain. The four buckets add up to at most 100.
func Financial(in domain.ProjectInput) domain.SubScoreResult {
	roi := atLeast(in.ProjectedRoiPct, roiBands)
	ticket := atMost(in.EntryTicket, entryTicketBands)
	yield := atLeast(in.RentalYieldPct, rentalYieldBands)
	gain := atLeast(in.EstimatedCapitalGainPct, capitalGainBands)

	return domain.SubScoreResult{
		Score: clamp(roi.Points + ticket.Points + yield.Points + gain.Points),
		Details: domain.Details{
			{Label: LabelROI, Value: fmt.Sprintf("%s (%s%%)", roi.Label, formatNumber(in.ProjectedRoiPct))},
			{Label: LabelEntryTicket, Value: fmt.Sprintf("%s (%s)", ticket.Label, formatNumber(in.EntryTicket))},
			{Label: LabelRentalYield, Value: fmt.Sprintf("%s (%s%%)", yield.Label, formatNumber(in.RentalYieldPct))},
			{Label: LabelCapitalGain, Value: fmt.Sprintf("%s (%s%%)", gain.Label, formatNumber(in.EstimatedCapitalGainPct))},
		},
	}
}
