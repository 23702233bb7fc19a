package verify

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttb-tools/labelcheck/internal/model"
)

type stubExtractor struct {
	extraction *model.LabelExtraction
	err        error
	calls      int
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte, _ string) (*model.LabelExtraction, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.extraction, nil
}

func wineApplication() model.Application {
	return model.Application{
		BeverageType:    model.BeverageWine,
		BrandName:       "Jackse",
		ClassType:       "Cabernet Sauvignon",
		AlcoholContent:  "14.1% ALC. BY VOL.",
		NetContents:     "750 mL",
		ProducerName:    "Jackse Estate Vineyard",
		ProducerAddress: "St. Helena, Napa Valley",
		Appellation:     "Napa Valley",
		VintageYear:     "2019",
	}
}

func matchingExtraction() model.LabelExtraction {
	return model.LabelExtraction{
		BrandName:       "JACKSE",
		ClassType:       "Cabernet Sauvignon",
		AlcoholContent:  "Alc. 14.1% by Vol.",
		NetContents:     "750mL",
		ProducerName:    "Jackse Estate Vineyard",
		ProducerAddress: "St. Helena, Napa Valley",
		Appellation:     "Napa Valley",
		VintageYear:     "2019",
		Warning: model.WarningExtraction{
			Present:           true,
			FullText:          RequiredWarningText,
			HeaderInCaps:      true,
			HeaderAppearsBold: true,
			SeparateFromOther: true,
		},
		Confidence: model.ConfidenceHigh,
	}
}

func TestEngineCompare(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)

	t.Run("fully matching label", func(t *testing.T) {
		t.Parallel()
		comps, err := engine.Compare(wineApplication(), matchingExtraction())
		require.NoError(t, err)
		// Country of origin provided by neither side is excluded entirely.
		require.Len(t, comps, 8)
		for _, c := range comps {
			assert.Equal(t, model.StatusMatch, c.Status, "field %s", c.Key)
			assert.Equal(t, 100, c.Score, "field %s", c.Key)
			assert.Equal(t, "Values match", c.Notes, "field %s", c.Key)
		}
	})

	t.Run("registry order preserved", func(t *testing.T) {
		t.Parallel()
		comps, err := engine.Compare(wineApplication(), matchingExtraction())
		require.NoError(t, err)
		keys := make([]model.FieldKey, len(comps))
		for i, c := range comps {
			keys[i] = c.Key
		}
		assert.Equal(t, []model.FieldKey{
			model.FieldBrandName, model.FieldClassType, model.FieldAlcoholContent,
			model.FieldNetContents, model.FieldProducerName, model.FieldProducerAddress,
			model.FieldAppellation, model.FieldVintageYear,
		}, keys)
	})

	t.Run("missing required field", func(t *testing.T) {
		t.Parallel()
		ext := matchingExtraction()
		ext.NetContents = ""
		comps, err := engine.Compare(wineApplication(), ext)
		require.NoError(t, err)

		c := findComparison(t, comps, model.FieldNetContents)
		assert.Equal(t, model.StatusMissing, c.Status)
		assert.Equal(t, 0, c.Score)
		assert.Equal(t, "Required field not found on label", c.Notes)
		assert.Empty(t, c.Extracted)
	})

	t.Run("unexpected value on label is not required", func(t *testing.T) {
		t.Parallel()
		app := wineApplication()
		app.Appellation = ""
		comps, err := engine.Compare(app, matchingExtraction())
		require.NoError(t, err)

		c := findComparison(t, comps, model.FieldAppellation)
		assert.Equal(t, model.StatusNotRequired, c.Status)
		assert.Equal(t, -1, c.Score)
		assert.Empty(t, c.Expected)
		assert.Equal(t, "Napa Valley", c.Extracted)
	})

	t.Run("partial match note cites score", func(t *testing.T) {
		t.Parallel()
		ext := matchingExtraction()
		ext.ProducerName = "Jackse Estate Vineyards"
		comps, err := engine.Compare(wineApplication(), ext)
		require.NoError(t, err)

		c := findComparison(t, comps, model.FieldProducerName)
		assert.Equal(t, model.StatusPartialMatch, c.Status)
		assert.Contains(t, c.Notes, "Similar (")
		assert.Contains(t, c.Notes, "% match)")
	})

	t.Run("alcohol mismatch gets field specific note", func(t *testing.T) {
		t.Parallel()
		ext := matchingExtraction()
		ext.AlcoholContent = "13.5% ALC/VOL"
		comps, err := engine.Compare(wineApplication(), ext)
		require.NoError(t, err)

		c := findComparison(t, comps, model.FieldAlcoholContent)
		assert.Equal(t, model.StatusMismatch, c.Status)
		assert.Equal(t, 0, c.Score)
		assert.Contains(t, c.Notes, "Alcohol content mismatch")
	})

	t.Run("net contents mismatch gets field specific note", func(t *testing.T) {
		t.Parallel()
		ext := matchingExtraction()
		ext.NetContents = "1 L"
		comps, err := engine.Compare(wineApplication(), ext)
		require.NoError(t, err)

		c := findComparison(t, comps, model.FieldNetContents)
		assert.Equal(t, model.StatusMismatch, c.Status)
		assert.Contains(t, c.Notes, "Net contents mismatch")
	})

	t.Run("unknown beverage type fails fast", func(t *testing.T) {
		t.Parallel()
		app := wineApplication()
		app.BeverageType = "mead"
		_, err := engine.Compare(app, matchingExtraction())
		require.Error(t, err)
	})
}

func findComparison(t *testing.T, comps []model.FieldComparison, key model.FieldKey) model.FieldComparison {
	t.Helper()
	for _, c := range comps {
		if c.Key == key {
			return c
		}
	}
	t.Fatalf("no comparison for field %s", key)
	return model.FieldComparison{}
}

func TestEngineVerify(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	newFixedEngine := func(ex Extractor) *Engine {
		calls := 0
		return NewEngine(ex,
			WithIDGenerator(func() string { return "verdict-001" }),
			WithClock(func() time.Time {
				calls++
				return base.Add(time.Duration(calls-1) * 250 * time.Millisecond)
			}),
		)
	}

	t.Run("successful verification", func(t *testing.T) {
		t.Parallel()
		ext := matchingExtraction()
		engine := newFixedEngine(&stubExtractor{extraction: &ext})

		verdict, err := engine.Verify(context.Background(), []byte("img"), "image/jpeg", wineApplication())
		require.NoError(t, err)

		assert.Equal(t, "verdict-001", verdict.ID)
		assert.Equal(t, model.StatusApproved, verdict.OverallStatus)
		assert.Equal(t, model.BeverageWine, verdict.BeverageType)
		assert.Equal(t, 250*time.Millisecond, verdict.Elapsed)
		assert.Equal(t, ext, verdict.Extracted)
		assert.True(t, verdict.Warning.TextCorrect)
	})

	t.Run("extraction failure propagates", func(t *testing.T) {
		t.Parallel()
		stub := &stubExtractor{err: eris.New("service unavailable")}
		engine := newFixedEngine(stub)

		_, err := engine.Verify(context.Background(), []byte("img"), "image/jpeg", wineApplication())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "extract label data")
		// No retry: the collaborator is called exactly once.
		assert.Equal(t, 1, stub.calls)
	})

	t.Run("nil extractor errors", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine(nil)
		_, err := engine.Verify(context.Background(), nil, "image/png", wineApplication())
		require.Error(t, err)
	})
}

func TestEngineVerdictDeterministic(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	engine := NewEngine(nil,
		WithIDGenerator(func() string { return "fixed-id" }),
		WithClock(func() time.Time { return fixed }),
	)

	a, err := engine.BuildVerdict(wineApplication(), matchingExtraction(), time.Second)
	require.NoError(t, err)
	b, err := engine.BuildVerdict(wineApplication(), matchingExtraction(), time.Second)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
