// Package rules provides the CEL-Go based screening engine.
//
// Screening rules are boolean CEL expressions evaluated against a scored
// project. A rule that returns true attaches a flag to the result; rules
// never change scores or tiers.
package rules

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/opensource-finance/dary/internal/domain"
)

// Engine is the CEL-based screening engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.ScreenRule
	Program cel.Program
}

// NewEngine creates a new screening engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// Create CEL environment with project and score variables
	env, err := cel.NewEnv(
		cel.Variable("project", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("score", cel.DoubleType),
		cel.Variable("tier", cel.StringType),
		cel.Variable("financial", cel.IntType),
		cel.Variable("location", cel.IntType),
		cel.Variable("property", cel.IntType),
		cel.Variable("risk", cel.IntType),
		cel.Variable("warnings", cel.IntType),
		// Raw inputs
		cel.Variable("roi", cel.DoubleType),
		cel.Variable("rental_yield", cel.DoubleType),
		cel.Variable("capital_gain", cel.DoubleType),
		cel.Variable("entry_ticket", cel.DoubleType),
		cel.Variable("surface", cel.DoubleType),
		cel.Variable("property_type", cel.StringType),
		cel.Variable("condition", cel.StringType),
		cel.Variable("quality", cel.StringType),
		cel.Variable("zone", cel.StringType),
		cel.Variable("development", cel.StringType),
		cel.Variable("reputation", cel.StringType),
		cel.Variable("liquidity", cel.StringType),
		cel.Variable("guarantees", cel.BoolType),
		cel.Variable("amenities", cel.MapType(cel.StringType, cel.DoubleType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.ScreenRule) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.ScreenRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules. Disabled rules are skipped.
func (e *Engine) LoadRules(configs []*domain.ScreenRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Activation builds the CEL variables for a scored project.
func Activation(in domain.ProjectInput, result *domain.GlobalScoreResult) map[string]any {
	amenities := make(map[string]float64, len(domain.Amenities))
	for _, a := range domain.Amenities {
		amenities[string(a)] = in.AmenityDistancesKm.Distance(a)
	}

	vars := map[string]any{
		"roi":           in.ProjectedRoiPct,
		"rental_yield":  in.RentalYieldPct,
		"capital_gain":  in.EstimatedCapitalGainPct,
		"entry_ticket":  in.EntryTicket,
		"surface":       in.SurfaceM2,
		"property_type": string(in.PropertyType),
		"condition":     string(in.Condition),
		"quality":       string(in.ConstructionQuality),
		"zone":          string(in.Zone),
		"development":   string(in.FutureDevelopmentPotential),
		"reputation":    string(in.DeveloperReputation),
		"liquidity":     string(in.MarketLiquidity),
		"guarantees":    in.GuaranteesPresent,
		"amenities":     amenities,
	}
	vars["project"] = map[string]any{
		"name":                       in.Name,
		"propertyType":               vars["property_type"],
		"condition":                  vars["condition"],
		"surfaceM2":                  in.SurfaceM2,
		"constructionQuality":        vars["quality"],
		"zone":                       vars["zone"],
		"futureDevelopmentPotential": vars["development"],
		"entryTicket":                in.EntryTicket,
		"projectedRoiPct":            in.ProjectedRoiPct,
		"rentalYieldPct":             in.RentalYieldPct,
		"estimatedCapitalGainPct":    in.EstimatedCapitalGainPct,
		"developerReputation":        vars["reputation"],
		"marketLiquidity":            vars["liquidity"],
		"guaranteesPresent":          in.GuaranteesPresent,
	}

	vars["score"] = 0.0
	vars["tier"] = ""
	vars["financial"], vars["location"], vars["property"], vars["risk"] = int64(0), int64(0), int64(0), int64(0)
	vars["warnings"] = int64(0)
	if result != nil {
		vars["score"] = result.ScoreGlobal
		vars["tier"] = string(result.Tier)
		vars["financial"] = int64(result.SubScores.Financial.Score)
		vars["location"] = int64(result.SubScores.Location.Score)
		vars["property"] = int64(result.SubScores.Property.Score)
		vars["risk"] = int64(result.SubScores.Risk.Score)
		vars["warnings"] = int64(len(result.Warnings))
	}
	return vars
}

// Screen evaluates all loaded rules in parallel and returns the flags of the
// rules that matched, ordered by rule ID.
// A rule that fails at evaluation time is skipped and reported in the error.
func (e *Engine) Screen(ctx context.Context, in domain.ProjectInput, result *domain.GlobalScoreResult) ([]domain.Flag, error) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil, nil
	}

	slices.SortFunc(rules, func(a, b *CompiledRule) int {
		return cmp.Compare(a.Config.ID, b.Config.ID)
	})

	activation := Activation(in, result)

	// Parallel evaluation using worker pool pattern
	matched := make([]bool, len(rules))
	errs := make([]error, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			if ctx.Err() != nil {
				errs[idx] = ctx.Err()
				return
			}
			matched[idx], errs[idx] = evaluateRule(r, activation)
		}(i, rule)
	}

	wg.Wait()

	var flags []domain.Flag
	var firstErr error
	for i, rule := range rules {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		if matched[i] {
			flags = append(flags, toFlag(rule.Config))
		}
	}

	return flags, firstErr
}

func evaluateRule(rule *CompiledRule, activation map[string]any) (bool, error) {
	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("rule %s: evaluation error: %w", rule.Config.ID, err)
	}
	return toBool(out), nil
}

// toBool converts a CEL value to a match decision.
func toBool(val ref.Val) bool {
	if v, ok := val.(types.Bool); ok {
		return bool(v)
	}
	return false
}

func toFlag(cfg *domain.ScreenRule) domain.Flag {
	severity := cfg.Severity
	if severity == "" {
		severity = domain.SeverityWarning
	}
	message := cfg.Message
	if message == "" {
		message = cfg.Description
	}
	return domain.Flag{
		RuleID:   cfg.ID,
		Name:     cfg.Name,
		Severity: severity,
		Message:  message,
	}
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
// On error the previous rule set stays active.
func (e *Engine) ReloadRules(configs []*domain.ScreenRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rule configurations ordered by ID.
func (e *Engine) GetLoadedRules() []*domain.ScreenRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.ScreenRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	slices.SortFunc(rules, func(a, b *domain.ScreenRule) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.ScreenRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if outputType := ast.OutputType(); outputType != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
