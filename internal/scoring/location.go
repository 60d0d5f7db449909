package scoring

import (
	"fmt"

	"github.com/opensource-finance/dary/internal/domain"
)

const (
	LabelZone        = "Zone"
	LabelAmenities   = "Amenities"
	LabelDevelopment = "Development potential"
)

// AmenityBonus is awarded for each amenity within its threshold.
const AmenityBonus = 10

// AmenityThresholdsKm is the maximum distance at which an amenity earns its bonus.
var AmenityThresholdsKm = map[domain.Amenity]float64{
	domain.AmenitySchools:   2,
	domain.AmenityShops:     1,
	domain.AmenityTransport: 0.5,
	domain.AmenityHospitals: 5,
}

// Location scores the zone, proximity to amenities and the development
// potential of the area.
//
// A missing amenity distance reads as 0 km and earns the bonus.
func Location(in domain.ProjectInput) domain.SubScoreResult {
	zone := zonePoints(in.Zone)

	amenities := 0
	for _, a := range domain.Amenities {
		if in.AmenityDistancesKm.Distance(a) <= AmenityThresholdsKm[a] {
			amenities += AmenityBonus
		}
	}

	dev := developmentPoints(in.FutureDevelopmentPotential)

	return domain.SubScoreResult{
		Score: clamp(zone + amenities + dev),
		Details: domain.Details{
			{Label: LabelZone, Value: displayName(string(in.Zone))},
			{Label: LabelAmenities, Value: fmt.Sprintf("%d/%d points", amenities, AmenityBonus*len(domain.Amenities))},
			{Label: LabelDevelopment, Value: displayName(string(in.FutureDevelopmentPotential))},
		},
	}
}

func zonePoints(z domain.Zone) int {
	switch z {
	case domain.ZonePremium:
		return 40
	case domain.ZonePrime:
		return 30
	case domain.ZoneEmerging:
		return 20
	case domain.ZoneStandard:
		return 10
	default:
		return 10
	}
}

func developmentPoints(p domain.Potential) int {
	switch p {
	case domain.PotentialHigh:
		return 20
	case domain.PotentialMedium:
		return 10
	case domain.PotentialLow:
		return 5
	default:
		return 10
	}
}
