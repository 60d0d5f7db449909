// Package scoring implements the DARY multi-criteria scoring engine.
//
// Four calculators (Financial, Location, Property, Risk) each turn a
// ProjectInput into a 0-100 sub-score with an explanation per criterion.
// Evaluate combines them with fixed weights into a global score and
// classifies it. Every function in this package is pure and safe for
// concurrent use.
package scoring

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opensource-finance/dary/internal/domain"
)

// Category weights. They sum to 1.
const (
	WeightFinancial = 0.40
	WeightLocation  = 0.30
	WeightProperty  = 0.20
	WeightRisk      = 0.10
)

// Tier thresholds. A score equal to a threshold belongs to the higher tier.
const (
	ThresholdExcellent = 80.0
	ThresholdGood      = 60.0
	ThresholdAverage   = 40.0
)

// Recommendations attached to each tier.
const (
	RecommendationExcellent = "highly recommended investment"
	RecommendationGood      = "recommended investment"
	RecommendationAverage   = "investment to study with caution"
	RecommendationWeak      = "investment not advised"
)

var (
	decFinancial = decimal.NewFromFloat(WeightFinancial)
	decLocation  = decimal.NewFromFloat(WeightLocation)
	decProperty  = decimal.NewFromFloat(WeightProperty)
	decRisk      = decimal.NewFromFloat(WeightRisk)
)

// Evaluate scores one project and stamps the result with the current UTC time.
func Evaluate(in domain.ProjectInput) *domain.GlobalScoreResult {
	return EvaluateAt(in, time.Now().UTC())
}

// EvaluateAt is Evaluate with a fixed evaluation timestamp.
func EvaluateAt(in domain.ProjectInput, at time.Time) *domain.GlobalScoreResult {
	financial := Financial(in)
	location := Location(in)
	property := Property(in)
	risk := Risk(in)

	global := GlobalScore(financial.Score, location.Score, property.Score, risk.Score)
	tier, recommendation := Classify(global)

	return &domain.GlobalScoreResult{
		ID:             uuid.New().String(),
		ProjectName:    in.Name,
		ScoreGlobal:    global,
		Tier:           tier,
		Recommendation: recommendation,
		SubScores: domain.SubScores{
			Financial: domain.WeightedScore{SubScoreResult: financial, Weight: WeightFinancial},
			Location:  domain.WeightedScore{SubScoreResult: location, Weight: WeightLocation},
			Property:  domain.WeightedScore{SubScoreResult: property, Weight: WeightProperty},
			Risk:      domain.WeightedScore{SubScoreResult: risk, Weight: WeightRisk},
		},
		EvaluatedAt: at,
		Warnings:    Unrecognized(in),
	}
}

// GlobalScore returns the weighted sum of the clamped sub-scores rounded to
// one decimal, half away from zero.
func GlobalScore(financial, location, property, risk int) float64 {
	sum := decimal.NewFromInt(int64(clamp(financial))).Mul(decFinancial).
		Add(decimal.NewFromInt(int64(clamp(location))).Mul(decLocation)).
		Add(decimal.NewFromInt(int64(clamp(property))).Mul(decProperty)).
		Add(decimal.NewFromInt(int64(clamp(risk))).Mul(decRisk))

	return sum.Round(1).InexactFloat64()
}

// Classify maps a global score to its tier and recommendation.
func Classify(score float64) (domain.Tier, string) {
	switch {
	case score >= ThresholdExcellent:
		return domain.TierExcellent, RecommendationExcellent
	case score >= ThresholdGood:
		return domain.TierGood, RecommendationGood
	case score >= ThresholdAverage:
		return domain.TierAverage, RecommendationAverage
	default:
		return domain.TierWeak, RecommendationWeak
	}
}

// Unrecognized lists one warning per categorical field whose value is outside
// its enumeration. Such values are scored with the calculator's fallback arm.
func Unrecognized(in domain.ProjectInput) []string {
	var warnings []string
	check := func(field, value string, known bool) {
		if !known {
			warnings = append(warnings, fmt.Sprintf("%s: unrecognized value %q scored with the fallback bucket", field, value))
		}
	}

	check(domain.FieldPropertyType, string(in.PropertyType), in.PropertyType.Known())
	check(domain.FieldCondition, string(in.Condition), in.Condition.Known())
	check(domain.FieldConstructionQuality, string(in.ConstructionQuality), in.ConstructionQuality.Known())
	check(domain.FieldZone, string(in.Zone), in.Zone.Known())
	check(domain.FieldDevelopment, string(in.FutureDevelopmentPotential), in.FutureDevelopmentPotential.Known())
	check(domain.FieldDeveloperReputation, string(in.DeveloperReputation), in.DeveloperReputation.Known())
	check(domain.FieldMarketLiquidity, string(in.MarketLiquidity), in.MarketLiquidity.Known())

	return warnings
}
