package rules

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/opensource-finance/dary/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ruleFile is the on-disk layout of a screening rules file:
//
//	[[rule]]
//	id         = "offplan-weak-developer"
//	name       = "Off-plan with weak developer"
//	expression = 'condition == "off-plan" && reputation in ["low", "medium"]'
//	severity   = "critical"
//	enabled    = true
type ruleFile struct {
	Rules []*domain.ScreenRule `toml:"rule"`
}

// LoadFile reads screening rules from a TOML file.
func LoadFile(path string) ([]*domain.ScreenRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read screening rules: %w", err)
	}
	rules, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// Decode parses and validates screening rules in TOML form.
func Decode(r io.Reader) ([]*domain.ScreenRule, error) {
	var file ruleFile
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: decode screening rules: %v", domain.ErrInvalidInput, err)
	}

	seen := make(map[string]bool, len(file.Rules))
	for i, rule := range file.Rules {
		if err := ValidateConfig(rule); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("%w: duplicate rule id %q", domain.ErrInvalidInput, rule.ID)
		}
		seen[rule.ID] = true
	}
	return file.Rules, nil
}

// ValidateConfig checks the structural constraints of a rule. Expression
// compilation is checked separately by Engine.ValidateRule.
func ValidateConfig(rule *domain.ScreenRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule config is required", domain.ErrInvalidInput)
	}
	if err := validate.Struct(rule); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// Encode writes rules in the TOML layout read by Decode.
func Encode(w io.Writer, rules []*domain.ScreenRule) error {
	enc := toml.NewEncoder(w)
	if err := enc.Encode(ruleFile{Rules: rules}); err != nil {
		return fmt.Errorf("encode screening rules: %w", err)
	}
	return nil
}
