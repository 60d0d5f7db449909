// Package domain defines the core types, enumerations and interfaces for DARY.
package domain

import "strings"

// Input field names. These are the keys of the input contract and the column
// names of the batch CSV format.
const (
	FieldName                = "name"
	FieldPropertyType        = "propertyType"
	FieldCondition           = "condition"
	FieldSurfaceM2           = "surfaceM2"
	FieldConstructionQuality = "constructionQuality"
	FieldZone                = "zone"
	FieldAmenityDistancesKm  = "amenityDistancesKm"
	FieldDevelopment         = "futureDevelopmentPotential"
	FieldEntryTicket         = "entryTicket"
	FieldProjectedRoiPct     = "projectedRoiPct"
	FieldRentalYieldPct      = "rentalYieldPct"
	FieldCapitalGainPct      = "estimatedCapitalGainPct"
	FieldDeveloperReputation = "developerReputation"
	FieldMarketLiquidity     = "marketLiquidity"
	FieldGuaranteesPresent   = "guaranteesPresent"
)

// ProjectInput describes one investment candidate.
// Build it with DefaultProjectInput and overlay known values; never mutate a
// record after it has been handed to the scoring engine.
type ProjectInput struct {
	Name string `json:"name"`

	// Property attributes
	PropertyType        PropertyType `json:"propertyType"`
	Condition           Condition    `json:"condition"`
	SurfaceM2           float64      `json:"surfaceM2"`
	ConstructionQuality Quality      `json:"constructionQuality"`

	// Location attributes
	Zone                       Zone             `json:"zone"`
	AmenityDistancesKm         AmenityDistances `json:"amenityDistancesKm"`
	FutureDevelopmentPotential Potential        `json:"futureDevelopmentPotential"`

	// Financial attributes
	EntryTicket             float64 `json:"entryTicket"`
	ProjectedRoiPct         float64 `json:"projectedRoiPct"`
	RentalYieldPct          float64 `json:"rentalYieldPct"`
	EstimatedCapitalGainPct float64 `json:"estimatedCapitalGainPct"`

	// Risk attributes
	DeveloperReputation Reputation `json:"developerReputation"`
	MarketLiquidity     Liquidity  `json:"marketLiquidity"`
	GuaranteesPresent   bool       `json:"guaranteesPresent"`
}

// DefaultProjectInput returns the neutral record used for every missing field.
// It is the single source of truth for defaulting:
//
//	name                        ""
//	propertyType                apartment
//	condition                   ready
//	surfaceM2                   0
//	constructionQuality         standard
//	zone                        standard
//	amenityDistancesKm          empty (a missing amenity reads as 0 km)
//	futureDevelopmentPotential  medium
//	entryTicket                 0
//	projectedRoiPct             0
//	rentalYieldPct              0
//	estimatedCapitalGainPct     0
//	developerReputation         medium
//	marketLiquidity             medium
//	guaranteesPresent           false
func DefaultProjectInput() ProjectInput {
	return ProjectInput{
		PropertyType:               PropertyApartment,
		Condition:                  ConditionReady,
		ConstructionQuality:        QualityStandard,
		Zone:                       ZoneStandard,
		AmenityDistancesKm:         AmenityDistances{},
		FutureDevelopmentPotential: PotentialMedium,
		DeveloperReputation:        ReputationMedium,
		MarketLiquidity:            LiquidityMedium,
	}
}

// FieldDefaults lists, per input field, the value used when it is missing.
// It mirrors DefaultProjectInput and is published with the scoring grid.
var FieldDefaults = map[string]string{
	FieldName:                "",
	FieldPropertyType:        string(PropertyApartment),
	FieldCondition:           string(ConditionReady),
	FieldSurfaceM2:           "0",
	FieldConstructionQuality: string(QualityStandard),
	FieldZone:                string(ZoneStandard),
	FieldAmenityDistancesKm:  "0",
	FieldDevelopment:         string(PotentialMedium),
	FieldEntryTicket:         "0",
	FieldProjectedRoiPct:     "0",
	FieldRentalYieldPct:      "0",
	FieldCapitalGainPct:      "0",
	FieldDeveloperReputation: string(ReputationMedium),
	FieldMarketLiquidity:     string(LiquidityMedium),
	FieldGuaranteesPresent:   "false",
}

// PropertyType is the kind of asset.
type PropertyType string

const (
	PropertyVilla     PropertyType = "villa"
	PropertyRiad      PropertyType = "riad"
	PropertyApartment PropertyType = "apartment"
	PropertyStudio    PropertyType = "studio"
	PropertyLand      PropertyType = "land"
)

var propertyTypeAliases = map[string]PropertyType{
	"villa":       PropertyVilla,
	"riad":        PropertyRiad,
	"apartment":   PropertyApartment,
	"appartement": PropertyApartment,
	"flat":        PropertyApartment,
	"studio":      PropertyStudio,
	"land":        PropertyLand,
	"terrain":     PropertyLand,
}

// ParsePropertyType normalizes a raw value. Unknown values are returned as-is
// (lower-cased) and report Known() == false.
func ParsePropertyType(raw string) PropertyType { return normalize(raw, propertyTypeAliases) }

// Known reports whether t is one of the enumerated property types.
func (t PropertyType) Known() bool {
	switch t {
	case PropertyVilla, PropertyRiad, PropertyApartment, PropertyStudio, PropertyLand:
		return true
	}
	return false
}

// Condition is the construction/delivery state of the asset.
type Condition string

const (
	ConditionNew        Condition = "new"
	ConditionReady      Condition = "ready"
	ConditionOffPlan    Condition = "off-plan"
	ConditionRenovation Condition = "renovation"
)

var conditionAliases = map[string]Condition{
	"new":        ConditionNew,
	"neuf":       ConditionNew,
	"ready":      ConditionReady,
	"off-plan":   ConditionOffPlan,
	"off_plan":   ConditionOffPlan,
	"offplan":    ConditionOffPlan,
	"renovation": ConditionRenovation,
	"rénovation": ConditionRenovation,
}

// ParseCondition normalizes a raw condition value.
func ParseCondition(raw string) Condition { return normalize(raw, conditionAliases) }

// Known reports whether c is one of the enumerated conditions.
func (c Condition) Known() bool {
	switch c {
	case ConditionNew, ConditionReady, ConditionOffPlan, ConditionRenovation:
		return true
	}
	return false
}

// Quality is the construction quality grade.
type Quality string

const (
	QualityStandard Quality = "standard"
	QualityPremium  Quality = "premium"
	QualityLuxury   Quality = "luxury"
)

var qualityAliases = map[string]Quality{
	"standard": QualityStandard,
	"premium":  QualityPremium,
	"luxury":   QualityLuxury,
	"luxe":     QualityLuxury,
}

// ParseQuality normalizes a raw construction quality value.
func ParseQuality(raw string) Quality { return normalize(raw, qualityAliases) }

// Known reports whether q is one of the enumerated quality grades.
func (q Quality) Known() bool {
	switch q {
	case QualityStandard, QualityPremium, QualityLuxury:
		return true
	}
	return false
}

// Zone is the desirability tier of the geographic area.
type Zone string

const (
	ZoneStandard Zone = "standard"
	ZoneEmerging Zone = "emerging"
	ZonePrime    Zone = "prime"
	ZonePremium  Zone = "premium"
)

var zoneAliases = map[string]Zone{
	"standard":  ZoneStandard,
	"emerging":  ZoneEmerging,
	"emergente": ZoneEmerging,
	"émergente": ZoneEmerging,
	"prime":     ZonePrime,
	"premium":   ZonePremium,
}

// ParseZone normalizes a raw zone value.
func ParseZone(raw string) Zone { return normalize(raw, zoneAliases) }

// Known reports whether z is one of the enumerated zones.
func (z Zone) Known() bool {
	switch z {
	case ZoneStandard, ZoneEmerging, ZonePrime, ZonePremium:
		return true
	}
	return false
}

// Potential is the expected future development of the area.
type Potential string

const (
	PotentialLow    Potential = "low"
	PotentialMedium Potential = "medium"
	PotentialHigh   Potential = "high"
)

var potentialAliases = map[string]Potential{
	"low":    PotentialLow,
	"faible": PotentialLow,
	"medium": PotentialMedium,
	"moyen":  PotentialMedium,
	"high":   PotentialHigh,
	"strong": PotentialHigh,
	"fort":   PotentialHigh,
}

// ParsePotential normalizes a raw development potential value.
func ParsePotential(raw string) Potential { return normalize(raw, potentialAliases) }

// Known reports whether p is one of the enumerated potentials.
func (p Potential) Known() bool {
	switch p {
	case PotentialLow, PotentialMedium, PotentialHigh:
		return true
	}
	return false
}

// Reputation grades the developer's track record.
type Reputation string

const (
	ReputationLow       Reputation = "low"
	ReputationMedium    Reputation = "medium"
	ReputationGood      Reputation = "good"
	ReputationExcellent Reputation = "excellent"
)

var reputationAliases = map[string]Reputation{
	"low":        ReputationLow,
	"faible":     ReputationLow,
	"medium":     ReputationMedium,
	"moyenne":    ReputationMedium,
	"good":       ReputationGood,
	"bonne":      ReputationGood,
	"excellent":  ReputationExcellent,
	"excellente": ReputationExcellent,
}

// ParseReputation normalizes a raw developer reputation value.
func ParseReputation(raw string) Reputation { return normalize(raw, reputationAliases) }

// Known reports whether r is one of the enumerated reputations.
func (r Reputation) Known() bool {
	switch r {
	case ReputationLow, ReputationMedium, ReputationGood, ReputationExcellent:
		return true
	}
	return false
}

// Liquidity grades how easily the asset can be resold.
type Liquidity string

const (
	LiquidityLow    Liquidity = "low"
	LiquidityMedium Liquidity = "medium"
	LiquidityHigh   Liquidity = "high"
)

var liquidityAliases = map[string]Liquidity{
	"low":     LiquidityLow,
	"faible":  LiquidityLow,
	"medium":  LiquidityMedium,
	"moyenne": LiquidityMedium,
	"high":    LiquidityHigh,
	"elevee":  LiquidityHigh,
	"élevée":  LiquidityHigh,
}

// ParseLiquidity normalizes a raw market liquidity value.
func ParseLiquidity(raw string) Liquidity { return normalize(raw, liquidityAliases) }

// Known reports whether l is one of the enumerated liquidity grades.
func (l Liquidity) Known() bool {
	switch l {
	case LiquidityLow, LiquidityMedium, LiquidityHigh:
		return true
	}
	return false
}

// Amenity names a nearby service whose distance feeds the location score.
type Amenity string

const (
	AmenitySchools   Amenity = "schools"
	AmenityShops     Amenity = "shops"
	AmenityTransport Amenity = "transport"
	AmenityHospitals Amenity = "hospitals"
)

// Amenities lists the scored amenities in display order.
var Amenities = []Amenity{AmenitySchools, AmenityShops, AmenityTransport, AmenityHospitals}

var amenityAliases = map[string]Amenity{
	"schools":   AmenitySchools,
	"ecoles":    AmenitySchools,
	"écoles":    AmenitySchools,
	"shops":     AmenityShops,
	"commerces": AmenityShops,
	"transport": AmenityTransport,
	"hospitals": AmenityHospitals,
	"hopitaux":  AmenityHospitals,
	"hôpitaux":  AmenityHospitals,
}

// ParseAmenity normalizes an amenity key. The second result is false for keys
// that do not name a scored amenity.
func ParseAmenity(raw string) (Amenity, bool) {
	a, ok := amenityAliases[strings.ToLower(strings.TrimSpace(raw))]
	return a, ok
}

// AmenityDistances maps an amenity to its distance in kilometres.
type AmenityDistances map[Amenity]float64

// Distance returns the recorded distance, or 0 when the amenity is absent.
func (d AmenityDistances) Distance(a Amenity) float64 {
	return d[a]
}

func normalize[T ~string](raw string, aliases map[string]T) T {
	v := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := aliases[v]; ok {
		return canonical
	}
	return T(v)
}
