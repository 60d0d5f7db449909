package scoring

import (
	"fmt"

	"github.com/opensource-finance/dary/internal/domain"
)

const (
	LabelType      = "Type"
	LabelCondition = "Condition"
	LabelSurface   = "Surface"
	LabelQuality   = "Quality"
)

var surfaceBands = []band{
	{150, 20, "Large"},
	{80, 15, "Medium"},
	{negInf, 10, "Small"},
}

// Property scores the asset type, its condition, surface and construction quality.
func Property(in domain.ProjectInput) domain.SubScoreResult {
	surface := atLeast(in.SurfaceM2, surfaceBands)

	total := propertyTypePoints(in.PropertyType) +
		conditionPoints(in.Condition) +
		surface.Points +
		qualityPoints(in.ConstructionQuality)

	return domain.SubScoreResult{
		Score: clamp(total),
		Details: domain.Details{
			{Label: LabelType, Value: displayName(string(in.PropertyType))},
			{Label: LabelCondition, Value: displayName(string(in.Condition))},
			{Label: LabelSurface, Value: fmt.Sprintf("%s (%sm²)", surface.Label, formatNumber(in.SurfaceM2))},
			{Label: LabelQuality, Value: displayName(string(in.ConstructionQuality))},
		},
	}
}

func propertyTypePoints(t domain.PropertyType) int {
	switch t {
	case domain.PropertyVilla:
		return 30
	case domain.PropertyRiad:
		return 25
	case domain.PropertyApartment:
		return 20
	case domain.PropertyStudio:
		return 15
	case domain.PropertyLand:
		return 10
	default:
		return 20
	}
}

// Unrecognized conditions score like off-plan, not like the "ready" default.
func conditionPoints(c domain.Condition) int {
	switch c {
	case domain.ConditionNew:
		return 30
	case domain.ConditionReady:
		return 25
	case domain.ConditionOffPlan:
		return 20
	case domain.ConditionRenovation:
		return 15
	default:
		return 20
	}
}

func qualityPoints(q domain.Quality) int {
	switch q {
	case domain.QualityLuxury:
		return 20
	case domain.QualityPremium:
		return 15
	case domain.QualityStandard:
		return 10
	default:
		return 10
	}
}
