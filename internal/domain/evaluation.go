package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Category names one of the four scored dimensions.
type Category string

const (
	CategoryFinancial Category = "Financial"
	CategoryLocation  Category = "Location"
	CategoryProperty  Category = "Property"
	CategoryRisk      Category = "Risk"
)

// Tier is the qualitative classification of a global score.
type Tier string

const (
	TierExcellent Tier = "Excellent"
	TierGood      Tier = "Good"
	TierAverage   Tier = "Average"
	TierWeak      Tier = "Weak"
)

// Detail is one explained criterion inside a sub-score.
type Detail struct {
	Label string
	Value string
}

// Details is an ordered label -> explanation mapping.
// It serializes as a JSON object that keeps insertion order.
type Details []Detail

// Get returns the explanation recorded for label.
func (d Details) Get(label string) (string, bool) {
	for _, item := range d {
		if item.Label == label {
			return item.Value, true
		}
	}
	return "", false
}

// MarshalJSON writes the details as an ordered JSON object.
func (d Details) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(item.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(item.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object while keeping key order.
func (d *Details) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("details: expected JSON object")
	}

	out := Details{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("details: value for %q: %w", key, err)
		}
		out = append(out, Detail{Label: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*d = out
	return nil
}

// SubScoreResult is the output of one calculator.
type SubScoreResult struct {
	Score   int     `json:"score"`
	Details Details `json:"details"`
}

// WeightedScore is a sub-score together with its aggregation weight.
type WeightedScore struct {
	SubScoreResult
	Weight float64 `json:"weight"`
}

// SubScores holds the four weighted sub-scores of an evaluation.
type SubScores struct {
	Financial WeightedScore `json:"Financial"`
	Location  WeightedScore `json:"Location"`
	Property  WeightedScore `json:"Property"`
	Risk      WeightedScore `json:"Risk"`
}

// CategoryScore pairs a category with its weighted score.
type CategoryScore struct {
	Category Category
	WeightedScore
}

// All returns the sub-scores in display order.
func (s SubScores) All() []CategoryScore {
	return []CategoryScore{
		{Category: CategoryFinancial, WeightedScore: s.Financial},
		{Category: CategoryLocation, WeightedScore: s.Location},
		{Category: CategoryProperty, WeightedScore: s.Property},
		{Category: CategoryRisk, WeightedScore: s.Risk},
	}
}

// GlobalScoreResult is the snapshot produced by one evaluation.
type GlobalScoreResult struct {
	ID             string    `json:"id"`
	ProjectName    string    `json:"projectName"`
	ScoreGlobal    float64   `json:"scoreGlobal"`
	Tier           Tier      `json:"tier"`
	Recommendation string    `json:"recommendation"`
	SubScores      SubScores `json:"subScores"`
	EvaluatedAt    time.Time `json:"evaluatedAt"`

	// Warnings lists categorical values that were not recognized and were
	// scored with their default bucket.
	Warnings []string `json:"warnings,omitempty"`

	// Flags are attached by screening rules after scoring.
	Flags []Flag `json:"flags,omitempty"`
}
