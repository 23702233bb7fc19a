// Package verify implements the label verification engine: field-by-field
// comparison of an application against extracted label data, health warning
// validation, and verdict aggregation.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ttb-tools/labelcheck/internal/model"
	"github.com/ttb-tools/labelcheck/internal/registry"
)

// Extractor turns a label image into a structured extraction record. The
// engine treats it as opaque and never retries it.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mediaType string) (*model.LabelExtraction, error)
}

// Engine verifies extracted label data against application data. Identity
// and time are injected capabilities so verdict construction is
// deterministic under test.
type Engine struct {
	extractor Extractor
	newID     func() string
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator overrides the verdict identity generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}

// WithClock overrides the engine's clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine. The extractor may be nil if only the pure
// comparison entry points are used.
func NewEngine(extractor Extractor, opts ...Option) *Engine {
	e := &Engine{
		extractor: extractor,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compare runs every registry field applicable to the application's beverage
// type and returns the ordered comparison list. Fields with neither an
// expected nor an extracted value are excluded entirely.
func (e *Engine) Compare(app model.Application, extracted model.LabelExtraction) ([]model.FieldComparison, error) {
	fields, err := registry.ForBeverage(app.BeverageType)
	if err != nil {
		return nil, err
	}

	comparisons := make([]model.FieldComparison, 0, len(fields))
	for _, field := range fields {
		expected := app.Field(field.Key)
		found := extracted.Field(field.Key)

		if expected == "" {
			if found == "" {
				continue
			}
			comparisons = append(comparisons, model.FieldComparison{
				Key:         field.Key,
				DisplayName: field.DisplayName,
				Extracted:   found,
				Status:      model.StatusNotRequired,
				Score:       -1,
				Notes:       "Not provided in application — found on label",
			})
			continue
		}

		if found == "" {
			comparisons = append(comparisons, model.FieldComparison{
				Key:         field.Key,
				DisplayName: field.DisplayName,
				Expected:    expected,
				Status:      model.StatusMissing,
				Score:       0,
				Notes:       "Required field not found on label",
			})
			continue
		}

		score := field.Compare(expected, found)
		status := model.StatusMismatch
		switch {
		case score == 100:
			status = model.StatusMatch
		case score >= field.Threshold:
			status = model.StatusPartialMatch
		}

		comparisons = append(comparisons, model.FieldComparison{
			Key:         field.Key,
			DisplayName: field.DisplayName,
			Expected:    expected,
			Extracted:   found,
			Status:      status,
			Score:       score,
			Notes:       comparisonNote(field.Key, expected, found, score, status),
		})
	}

	return comparisons, nil
}

// comparisonNote builds the human-readable note for one field comparison.
func comparisonNote(key model.FieldKey, expected, extracted string, score int, status model.MatchStatus) string {
	switch status {
	case model.StatusMatch:
		return "Values match"
	case model.StatusPartialMatch:
		return fmt.Sprintf("Similar (%d%% match) — minor differences in formatting or casing", score)
	}
	switch key {
	case model.FieldAlcoholContent:
		return fmt.Sprintf("Alcohol content mismatch: expected %q, found %q", expected, extracted)
	case model.FieldNetContents:
		return fmt.Sprintf("Net contents mismatch: expected %q, found %q", expected, extracted)
	default:
		return fmt.Sprintf("Mismatch (%d%% similarity): expected %q, found %q", score, expected, extracted)
	}
}

// BuildVerdict assembles a full verdict from an application and an
// extraction record. Pure given the engine's injected clock and id
// generator.
func (e *Engine) BuildVerdict(app model.Application, extracted model.LabelExtraction, elapsed time.Duration) (*model.Verdict, error) {
	comparisons, err := e.Compare(app, extracted)
	if err != nil {
		return nil, err
	}

	warning := ValidateWarning(extracted.Warning)

	return &model.Verdict{
		ID:            e.newID(),
		Timestamp:     e.now().UTC(),
		BeverageType:  app.BeverageType,
		OverallStatus: Aggregate(comparisons, warning),
		Comparisons:   comparisons,
		Warning:       warning,
		Extracted:     extracted,
		Elapsed:       elapsed,
	}, nil
}

// Verify extracts label data from an image and verifies it against the
// application. Extraction failure is the only hard error path; data-quality
// problems surface as classified comparison outcomes instead.
func (e *Engine) Verify(ctx context.Context, image []byte, mediaType string, app model.Application) (*model.Verdict, error) {
	if e.extractor == nil {
		return nil, eris.New("verify: no extractor configured")
	}

	start := e.now()
	extracted, err := e.extractor.Extract(ctx, image, mediaType)
	if err != nil {
		return nil, eris.Wrap(err, "verify: extract label data")
	}

	verdict, err := e.BuildVerdict(app, *extracted, e.now().Sub(start))
	if err != nil {
		return nil, err
	}

	zap.L().Info("verification complete",
		zap.String("verdict_id", verdict.ID),
		zap.String("beverage_type", string(app.BeverageType)),
		zap.String("overall_status", string(verdict.OverallStatus)),
		zap.Int("fields_compared", len(verdict.Comparisons)),
		zap.Duration("elapsed", verdict.Elapsed),
	)

	return verdict, nil
}
