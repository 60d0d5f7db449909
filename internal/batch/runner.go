// Package batch applies the scoring engine to a sequence of raw records.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/opensource-finance/dary/internal/domain"
	"github.com/opensource-finance/dary/internal/intake"
	"github.com/opensource-finance/dary/internal/scoring"
)

var tracer = otel.Tracer("github.com/opensource-finance/dary/internal/batch")

// Screener attaches screening flags to a scored project.
type Screener interface {
	Screen(ctx context.Context, in domain.ProjectInput, result *domain.GlobalScoreResult) ([]domain.Flag, error)
}

// Outcome is the result of one batch row: either Result or Error is set.
type Outcome struct {
	Row    int                       `json:"row"`
	Name   string                    `json:"name"`
	Result *domain.GlobalScoreResult `json:"result,omitempty"`
	Error  *domain.ValidationError   `json:"error,omitempty"`
}

// OK reports whether the row was scored.
func (o Outcome) OK() bool {
	return o.Error == nil && o.Result != nil
}

// Report summarizes a batch run. Outcomes are in input order.
type Report struct {
	Count     int       `json:"count"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Results returns the successful results in input order.
func (r *Report) Results() []*domain.GlobalScoreResult {
	return lo.FilterMap(r.Outcomes, func(o Outcome, _ int) (*domain.GlobalScoreResult, bool) {
		return o.Result, o.OK()
	})
}

// Runner scores batches with a bounded worker pool.
type Runner struct {
	workers  int
	maxRows  int
	screener Screener
	now      func() time.Time
}

// NewRunner creates a batch runner. screener may be nil.
func NewRunner(cfg domain.BatchConfig, screener Screener) *Runner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	return &Runner{
		workers:  workers,
		maxRows:  cfg.MaxRows,
		screener: screener,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run scores every record. A record that fails validation yields an Outcome
// carrying the error; it never aborts the batch. Run only fails when the
// batch is too large or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, records []intake.Record) (*Report, error) {
	ctx, span := tracer.Start(ctx, "batch.Run")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.rows", len(records)))

	if r.maxRows > 0 && len(records) > r.maxRows {
		err := fmt.Errorf("%w: batch has %d rows, limit is %d", domain.ErrInvalidInput, len(records), r.maxRows)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	outcomes := make([]Outcome, len(records))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.workers)

	for i, rec := range records {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(idx int, rec intake.Record) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			outcomes[idx] = r.evaluate(ctx, idx+1, rec)
		}(i, rec)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("batch cancelled: %w", err)
	}

	succeeded := lo.CountBy(outcomes, Outcome.OK)
	report := &Report{
		Count:     len(outcomes),
		Succeeded: succeeded,
		Failed:    len(outcomes) - succeeded,
		Outcomes:  outcomes,
	}

	span.SetAttributes(
		attribute.Int("batch.succeeded", report.Succeeded),
		attribute.Int("batch.failed", report.Failed),
	)

	slog.Info("batch scored",
		"rows", report.Count,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return report, nil
}

func (r *Runner) evaluate(ctx context.Context, row int, rec intake.Record) Outcome {
	in, err := intake.FromRecord(rec)
	if err != nil {
		verr := asValidationError(err).WithRow(row)
		slog.Debug("batch row rejected",
			"row", row,
			"field", verr.Field,
			"reason", verr.Reason,
		)
		return Outcome{Row: row, Name: rowName(rec, row), Error: verr}
	}

	result := scoring.EvaluateAt(in, r.now())
	for _, w := range result.Warnings {
		slog.Warn("unrecognized categorical value",
			"row", row,
			"project", in.Name,
			"warning", w,
		)
	}

	if r.screener != nil {
		flags, err := r.screener.Screen(ctx, in, result)
		if err != nil {
			slog.Error("screening failed",
				"row", row,
				"error", err,
			)
		}
		result.Flags = flags
	}

	name := in.Name
	if name == "" {
		name = defaultName(row)
	}
	return Outcome{Row: row, Name: name, Result: result}
}

func asValidationError(err error) *domain.ValidationError {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return &domain.ValidationError{Reason: err.Error()}
}

// rowName recovers a display name from a record that failed validation.
func rowName(rec intake.Record, row int) string {
	if name := intake.NameOf(rec); name != "" {
		return name
	}
	return defaultName(row)
}

func defaultName(row int) string {
	return fmt.Sprintf("Project %d", row)
}
