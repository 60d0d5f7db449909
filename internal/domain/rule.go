package domain

// ScreenRule is a CEL expression evaluated against a scored project.
// A rule that evaluates to true attaches a Flag to the result. Screening
// never changes scores or tiers.
type ScreenRule struct {
	ID          string `json:"id" toml:"id" validate:"required"`
	Name        string `json:"name" toml:"name" validate:"required"`
	Description string `json:"description,omitempty" toml:"description"`

	// Expression must return bool.
	Expression string `json:"expression" toml:"expression" validate:"required"`

	Severity Severity `json:"severity" toml:"severity" validate:"omitempty,oneof=info warning critical"`
	Message  string   `json:"message" toml:"message"`
	Enabled  bool     `json:"enabled" toml:"enabled"`
}

// Severity grades a screening flag.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Flag is the outcome of a screening rule that matched.
type Flag struct {
	RuleID   string   `json:"ruleId"`
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message,omitempty"`
}
