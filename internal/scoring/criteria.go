package scoring

import (
	"fmt"
	"math"

	"github.com/opensource-finance/dary/internal/domain"
)

// Bucket is one row of the published scoring grid.
type Bucket struct {
	When   string `json:"when"`
	Points int    `json:"points"`
	Label  string `json:"label,omitempty"`
}

// Criterion documents how one input field contributes to a sub-score.
type Criterion struct {
	Name    string   `json:"name"`
	Field   string   `json:"field"`
	Buckets []Bucket `json:"buckets"`
}

// CategoryGrid documents one sub-score.
type CategoryGrid struct {
	Category domain.Category `json:"category"`
	Weight   float64         `json:"weight"`
	Model    string          `json:"model"`
	Criteria []Criterion     `json:"criteria"`
}

// Grid is the complete scoring documentation.
type Grid struct {
	Categories []CategoryGrid    `json:"categories"`
	Tiers      []TierGrid        `json:"tiers"`
	Defaults   map[string]string `json:"defaults"`
}

// TierGrid documents one step of the classification.
type TierGrid struct {
	Tier           domain.Tier `json:"tier"`
	MinScore       float64     `json:"minScore"`
	Recommendation string      `json:"recommendation"`
}

// Criteria returns the scoring grid built from the same tables the
// calculators use.
func Criteria() Grid {
	return Grid{
		Categories: []CategoryGrid{
			{
				Category: domain.CategoryFinancial,
				Weight:   WeightFinancial,
				Model:    "additive",
				Criteria: []Criterion{
					{Name: LabelROI, Field: domain.FieldProjectedRoiPct, Buckets: ladder(roiBands, ">=", "%")},
					{Name: LabelEntryTicket, Field: domain.FieldEntryTicket, Buckets: ladder(entryTicketBands, "<=", "")},
					{Name: LabelRentalYield, Field: domain.FieldRentalYieldPct, Buckets: ladder(rentalYieldBands, ">=", "%")},
					{Name: LabelCapitalGain, Field: domain.FieldCapitalGainPct, Buckets: ladder(capitalGainBands, ">=", "%")},
				},
			},
			{
				Category: domain.CategoryLocation,
				Weight:   WeightLocation,
				Model:    "additive",
				Criteria: []Criterion{
					{Name: LabelZone, Field: domain.FieldZone, Buckets: enumBuckets(
						[]domain.Zone{domain.ZonePremium, domain.ZonePrime, domain.ZoneEmerging, domain.ZoneStandard},
						zonePoints,
					)},
					{Name: LabelAmenities, Field: domain.FieldAmenityDistancesKm, Buckets: amenityBuckets()},
					{Name: LabelDevelopment, Field: domain.FieldDevelopment, Buckets: enumBuckets(
						[]domain.Potential{domain.PotentialHigh, domain.PotentialMedium, domain.PotentialLow},
						developmentPoints,
					)},
				},
			},
			{
				Category: domain.CategoryProperty,
				Weight:   WeightProperty,
				Model:    "additive",
				Criteria: []Criterion{
					{Name: LabelType, Field: domain.FieldPropertyType, Buckets: enumBuckets(
						[]domain.PropertyType{domain.PropertyVilla, domain.PropertyRiad, domain.PropertyApartment, domain.PropertyStudio, domain.PropertyLand},
						propertyTypePoints,
					)},
					{Name: LabelCondition, Field: domain.FieldCondition, Buckets: enumBuckets(
						[]domain.Condition{domain.ConditionNew, domain.ConditionReady, domain.ConditionOffPlan, domain.ConditionRenovation},
						conditionPoints,
					)},
					{Name: LabelSurface, Field: domain.FieldSurfaceM2, Buckets: ladder(surfaceBands, ">=", "m²")},
					{Name: LabelQuality, Field: domain.FieldConstructionQuality, Buckets: enumBuckets(
						[]domain.Quality{domain.QualityLuxury, domain.QualityPremium, domain.QualityStandard},
						qualityPoints,
					)},
				},
			},
			{
				Category: domain.CategoryRisk,
				Weight:   WeightRisk,
				Model:    "deduction from 100",
				Criteria: []Criterion{
					{Name: LabelDeveloper, Field: domain.FieldDeveloperReputation, Buckets: penaltyBuckets(
						[]domain.Reputation{domain.ReputationExcellent, domain.ReputationGood, domain.ReputationMedium, domain.ReputationLow},
						reputationPenalty,
					)},
					{Name: LabelLiquidity, Field: domain.FieldMarketLiquidity, Buckets: penaltyBuckets(
						[]domain.Liquidity{domain.LiquidityHigh, domain.LiquidityMedium, domain.LiquidityLow},
						liquidityPenalty,
					)},
					{Name: LabelGuarantees, Field: domain.FieldGuaranteesPresent, Buckets: []Bucket{
						{When: "true", Points: 0, Label: "Present"},
						{When: "false", Points: -GuaranteesMissingPenalty, Label: "Absent"},
					}},
				},
			},
		},
		Tiers: []TierGrid{
			{Tier: domain.TierExcellent, MinScore: ThresholdExcellent, Recommendation: RecommendationExcellent},
			{Tier: domain.TierGood, MinScore: ThresholdGood, Recommendation: RecommendationGood},
			{Tier: domain.TierAverage, MinScore: ThresholdAverage, Recommendation: RecommendationAverage},
			{Tier: domain.TierWeak, MinScore: 0, Recommendation: RecommendationWeak},
		},
		Defaults: domain.FieldDefaults,
	}
}

func ladder(bands []band, op, unit string) []Bucket {
	out := make([]Bucket, 0, len(bands))
	for _, b := range bands {
		when := "otherwise"
		if !math.IsInf(b.Limit, 0) {
			when = fmt.Sprintf("%s %s%s", op, formatNumber(b.Limit), unit)
		}
		out = append(out, Bucket{When: when, Points: b.Points, Label: b.Label})
	}
	return out
}

func enumBuckets[T ~string](values []T, points func(T) int) []Bucket {
	out := make([]Bucket, 0, len(values)+1)
	for _, v := range values {
		out = append(out, Bucket{When: string(v), Points: points(v)})
	}
	var unknown T = "?"
	return append(out, Bucket{When: "unrecognized", Points: points(unknown)})
}

func penaltyBuckets[T ~string](values []T, penalty func(T) (int, string)) []Bucket {
	out := make([]Bucket, 0, len(values)+1)
	for _, v := range values {
		p, label := penalty(v)
		out = append(out, Bucket{When: string(v), Points: -p, Label: label})
	}
	var unknown T = "?"
	p, label := penalty(unknown)
	return append(out, Bucket{When: "unrecognized", Points: -p, Label: label})
}

func amenityBuckets() []Bucket {
	out := make([]Bucket, 0, len(domain.Amenities))
	for _, a := range domain.Amenities {
		out = append(out, Bucket{
			When:   fmt.Sprintf("%s <= %s km", a, formatNumber(AmenityThresholdsKm[a])),
			Points: AmenityBonus,
		})
	}
	return out
}
