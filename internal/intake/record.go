// Package intake turns raw records (decoded JSON objects, CSV rows) into
// validated domain.ProjectInput values.
package intake

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/opensource-finance/dary/internal/domain"
)

// Record is one raw input record keyed by field name.
type Record map[string]any

// malformedKey marks a batch element that was not a JSON object.
const malformedKey = "\x00malformed"

const maxEchoLen = 64

func malformed(raw []byte) Record {
	value := strings.TrimSpace(string(raw))
	if len(value) > maxEchoLen {
		value = value[:maxEchoLen] + "..."
	}
	return Record{malformedKey: value}
}

// keyAliases maps accepted column names onto canonical field names.
// The French names are the columns of the legacy spreadsheet template.
var keyAliases = map[string]string{
	"nom_projet":           domain.FieldName,
	"nom":                  domain.FieldName,
	"project":              domain.FieldName,
	"type_bien":            domain.FieldPropertyType,
	"etat":                 domain.FieldCondition,
	"surface":              domain.FieldSurfaceM2,
	"qualite_construction": domain.FieldConstructionQuality,
	"commodites":           domain.FieldAmenityDistancesKm,
	"developpement_futur":  domain.FieldDevelopment,
	"ticket_minimum":       domain.FieldEntryTicket,
	"roi_projete":          domain.FieldProjectedRoiPct,
	"rendement_locatif":    domain.FieldRentalYieldPct,
	"plus_value_estimee":   domain.FieldCapitalGainPct,
	"reputation_promoteur": domain.FieldDeveloperReputation,
	"liquidite":            domain.FieldMarketLiquidity,
	"garanties":            domain.FieldGuaranteesPresent,
}

var canonicalFields = func() map[string]string {
	m := make(map[string]string)
	for _, f := range []string{
		domain.FieldName, domain.FieldPropertyType, domain.FieldCondition, domain.FieldSurfaceM2,
		domain.FieldConstructionQuality, domain.FieldZone, domain.FieldAmenityDistancesKm,
		domain.FieldDevelopment, domain.FieldEntryTicket, domain.FieldProjectedRoiPct,
		domain.FieldRentalYieldPct, domain.FieldCapitalGainPct, domain.FieldDeveloperReputation,
		domain.FieldMarketLiquidity, domain.FieldGuaranteesPresent,
	} {
		m[strings.ToLower(f)] = f
	}
	for alias, f := range keyAliases {
		m[alias] = f
	}
	return m
}()

// amenityColumn resolves a flattened amenity column such as
// "amenityDistancesKm.schools", "schoolsKm" or "dist_ecoles".
func amenityColumn(key string) (domain.Amenity, bool) {
	k := strings.ToLower(key)
	switch {
	case strings.HasPrefix(k, strings.ToLower(domain.FieldAmenityDistancesKm)+"."):
		return domain.ParseAmenity(k[len(domain.FieldAmenityDistancesKm)+1:])
	case strings.HasPrefix(k, "commodites."):
		return domain.ParseAmenity(strings.TrimPrefix(k, "commodites."))
	case strings.HasPrefix(k, "dist_"):
		return domain.ParseAmenity(strings.TrimPrefix(k, "dist_"))
	case strings.HasSuffix(k, "km"):
		return domain.ParseAmenity(strings.TrimSuffix(k, "km"))
	}
	return "", false
}

// FromRecord builds a ProjectInput from rec.
//
// Missing keys and empty strings take the value of domain.DefaultProjectInput.
// Categorical values are normalized but never rejected. Numbers must be
// finite and non-negative; an explicit entryTicket must also be positive.
// Booleans must use a recognized spelling;
// anything else returns a *domain.ValidationError. Unknown keys are ignored.
func FromRecord(rec Record) (domain.ProjectInput, error) {
	if raw, ok := rec[malformedKey]; ok {
		return domain.ProjectInput{}, &domain.ValidationError{
			Value:  fmt.Sprint(raw),
			Reason: "expected a JSON object",
		}
	}

	in := domain.DefaultProjectInput()
	fields := resolveFields(rec)
	distances := domain.AmenityDistances{}

	for _, key := range orderedKeys(rec, amenityRank) {
		trimmed := strings.TrimSpace(key)
		if _, canonical := canonicalFields[strings.ToLower(trimmed)]; canonical {
			continue
		}
		amenity, ok := amenityColumn(trimmed)
		if !ok || !hasValue(rec[key]) {
			continue
		}
		if _, seen := distances[amenity]; seen {
			continue
		}
		km, _, err := number(domain.FieldAmenityDistancesKm+"."+string(amenity), rec[key])
		if err != nil {
			return domain.ProjectInput{}, err
		}
		distances[amenity] = km
	}

	if v, ok := text(fields[domain.FieldName]); ok {
		in.Name = v
	}
	if v, ok := text(fields[domain.FieldPropertyType]); ok {
		in.PropertyType = domain.ParsePropertyType(v)
	}
	if v, ok := text(fields[domain.FieldCondition]); ok {
		in.Condition = domain.ParseCondition(v)
	}
	if v, ok := text(fields[domain.FieldConstructionQuality]); ok {
		in.ConstructionQuality = domain.ParseQuality(v)
	}
	if v, ok := text(fields[domain.FieldZone]); ok {
		in.Zone = domain.ParseZone(v)
	}
	if v, ok := text(fields[domain.FieldDevelopment]); ok {
		in.FutureDevelopmentPotential = domain.ParsePotential(v)
	}
	if v, ok := text(fields[domain.FieldDeveloperReputation]); ok {
		in.DeveloperReputation = domain.ParseReputation(v)
	}
	if v, ok := text(fields[domain.FieldMarketLiquidity]); ok {
		in.MarketLiquidity = domain.ParseLiquidity(v)
	}

	numeric := []struct {
		field    string
		dst      *float64
		positive bool
	}{
		{domain.FieldSurfaceM2, &in.SurfaceM2, false},
		{domain.FieldEntryTicket, &in.EntryTicket, true},
		{domain.FieldProjectedRoiPct, &in.ProjectedRoiPct, false},
		{domain.FieldRentalYieldPct, &in.RentalYieldPct, false},
		{domain.FieldCapitalGainPct, &in.EstimatedCapitalGainPct, false},
	}
	for _, n := range numeric {
		v, present, err := number(n.field, fields[n.field])
		if err != nil {
			return domain.ProjectInput{}, err
		}
		if !present {
			continue
		}
		if n.positive && v == 0 {
			return domain.ProjectInput{}, &domain.ValidationError{
				Field:  n.field,
				Value:  fmt.Sprint(fields[n.field]),
				Reason: "must be positive",
			}
		}
		*n.dst = v
	}

	guarantees, present, err := boolean(domain.FieldGuaranteesPresent, fields[domain.FieldGuaranteesPresent])
	if err != nil {
		return domain.ProjectInput{}, err
	}
	if present {
		in.GuaranteesPresent = guarantees
	}

	if raw, ok := fields[domain.FieldAmenityDistancesKm]; ok && raw != nil {
		nested, ok := raw.(map[string]any)
		if !ok {
			if s, isText := raw.(string); !isText || strings.TrimSpace(s) != "" {
				return domain.ProjectInput{}, &domain.ValidationError{
					Field:  domain.FieldAmenityDistancesKm,
					Value:  fmt.Sprint(raw),
					Reason: "must be an object of amenity distances",
				}
			}
		}
		// The nested object overrides flattened columns.
		seen := make(map[domain.Amenity]bool, len(nested))
		for _, k := range orderedKeys(nested, nestedAmenityRank) {
			amenity, known := domain.ParseAmenity(k)
			if !known || seen[amenity] || !hasValue(nested[k]) {
				continue
			}
			km, _, err := number(domain.FieldAmenityDistancesKm+"."+string(amenity), nested[k])
			if err != nil {
				return domain.ProjectInput{}, err
			}
			distances[amenity] = km
			seen[amenity] = true
		}
	}
	in.AmenityDistancesKm = distances

	return in, nil
}

// NameOf returns the project name carried by rec under any accepted column,
// or "" when there is none.
func NameOf(rec Record) string {
	name, _ := text(resolveFields(rec)[domain.FieldName])
	return name
}

// resolveFields maps rec onto canonical field names. When several keys name
// the same field, the first non-blank value in key rank order wins: the exact
// canonical name, then a case variant of it, then a legacy alias.
func resolveFields(rec Record) map[string]any {
	fields := make(map[string]any, len(rec))
	for _, key := range orderedKeys(rec, fieldRank) {
		field, ok := canonicalFields[strings.ToLower(strings.TrimSpace(key))]
		if !ok || !hasValue(rec[key]) {
			continue
		}
		if _, seen := fields[field]; !seen {
			fields[field] = rec[key]
		}
	}
	return fields
}

// orderedKeys returns the keys of rec sorted by rank, then lexically.
func orderedKeys[M ~map[string]any](rec M, rank func(string) int) []string {
	keys := lo.Keys(map[string]any(rec))
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return keys
}

func fieldRank(key string) int {
	key = strings.TrimSpace(key)
	field, ok := canonicalFields[strings.ToLower(key)]
	switch {
	case !ok:
		return 3
	case key == field:
		return 0
	case strings.EqualFold(key, field):
		return 1
	}
	return 2
}

func amenityRank(key string) int {
	key = strings.TrimSpace(key)
	prefix := domain.FieldAmenityDistancesKm + "."
	switch {
	case strings.HasPrefix(key, prefix):
		return 0
	case strings.HasPrefix(strings.ToLower(key), strings.ToLower(prefix)):
		return 1
	}
	return 2
}

func nestedAmenityRank(key string) int {
	if amenity, ok := domain.ParseAmenity(key); ok && string(amenity) == key {
		return 0
	}
	return 1
}

// hasValue reports whether v carries a value. Nil and blank strings do not.
func hasValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	}
	return true
}

// text returns the trimmed string form of v. Nil and blank values are missing.
func text(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func number(field string, v any) (float64, bool, error) {
	invalid := func(reason string) (float64, bool, error) {
		return 0, false, &domain.ValidationError{Field: field, Value: fmt.Sprint(v), Reason: reason}
	}

	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return invalid("not a number")
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return invalid("not a number")
		}
		f = parsed
	default:
		return invalid("not a number")
	}

	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return invalid("must be a finite number")
	case f < 0:
		return invalid("must not be negative")
	}
	return f, true, nil
}

func boolean(field string, v any) (bool, bool, error) {
	switch t := v.(type) {
	case nil:
		return false, false, nil
	case bool:
		return t, true, nil
	}

	s, ok := text(v)
	if !ok {
		return false, false, nil
	}
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1", "oui", "vrai":
		return true, true, nil
	case "false", "no", "n", "0", "non", "faux":
		return false, true, nil
	}
	return false, false, &domain.ValidationError{Field: field, Value: s, Reason: "not a boolean"}
}
