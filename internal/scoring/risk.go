package scoring

import "github.com/opensource-finance/dary/internal/domain"

const (
	LabelDeveloper  = "Developer"
	LabelLiquidity  = "Liquidity"
	LabelGuarantees = "Guarantees"
)

// GuaranteesMissingPenalty is deducted when no guarantee backs the project.
const GuaranteesMissingPenalty = 20

// Risk starts from 100 and deducts for developer reputation, market
// liquidity and missing guarantees. Higher means safer.
func Risk(in domain.ProjectInput) domain.SubScoreResult {
	devPenalty, devLabel := reputationPenalty(in.DeveloperReputation)
	liqPenalty, liqLabel := liquidityPenalty(in.MarketLiquidity)

	score := 100 - devPenalty - liqPenalty
	guarantees := "Present"
	if !in.GuaranteesPresent {
		score -= GuaranteesMissingPenalty
		guarantees = "Absent"
	}

	return domain.SubScoreResult{
		Score: clamp(score),
		Details: domain.Details{
			{Label: LabelDeveloper, Value: devLabel},
			{Label: LabelLiquidity, Value: liqLabel},
			{Label: LabelGuarantees, Value: guarantees},
		},
	}
}

// Unrecognized reputations are treated as low.
func reputationPenalty(r domain.Reputation) (int, string) {
	switch r {
	case domain.ReputationExcellent:
		return 0, "Very reliable"
	case domain.ReputationGood:
		return 10, "Reliable"
	case domain.ReputationMedium:
		return 25, "Standard"
	default:
		return 50, "Risky"
	}
}

func liquidityPenalty(l domain.Liquidity) (int, string) {
	switch l {
	case domain.LiquidityHigh:
		return 0, "Very liquid"
	case domain.LiquidityMedium:
		return 15, "Medium"
	default:
		return 30, "Low"
	}
}
