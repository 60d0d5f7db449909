package rules

import "github.com/opensource-finance/dary/internal/domain"

// BuiltinRules returns the screening rules loaded when no rules file is
// configured.
func BuiltinRules() []*domain.ScreenRule {
	return []*domain.ScreenRule{
		{
			ID:          "offplan-weak-developer",
			Name:        "Off-plan with unproven developer",
			Description: "Off-plan delivery depends on a developer without a good track record.",
			Expression:  `condition == "off-plan" && !(reputation in ["good", "excellent"])`,
			Severity:    domain.SeverityCritical,
			Message:     "off-plan project backed by a developer rated below good",
			Enabled:     true,
		},
		{
			ID:          "no-guarantee-large-ticket",
			Name:        "Large ticket without guarantees",
			Description: "Capital above 100,000 is committed without any guarantee.",
			Expression:  `entry_ticket > 100000.0 && !guarantees`,
			Severity:    domain.SeverityWarning,
			Message:     "entry ticket above 100000 with no guarantee",
			Enabled:     true,
		},
		{
			ID:          "yield-above-market",
			Name:        "Unusually high yield",
			Description: "Projected ROI or rental yield is far above market levels and should be verified.",
			Expression:  `roi > 25.0 || rental_yield > 12.0`,
			Severity:    domain.SeverityWarning,
			Message:     "projected returns look optimistic, verify the assumptions",
			Enabled:     true,
		},
		{
			ID:          "illiquid-exit",
			Name:        "Illiquid exit",
			Description: "Low market liquidity makes resale slow.",
			Expression:  `liquidity == "low"`,
			Severity:    domain.SeverityInfo,
			Enabled:     true,
		},
		{
			ID:          "unrecognized-values",
			Name:        "Unrecognized input values",
			Description: "Some categorical values were not recognized and were scored with fallback buckets.",
			Expression:  `warnings > 0`,
			Severity:    domain.SeverityInfo,
			Enabled:     true,
		},
	}
}
