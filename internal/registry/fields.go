// Package registry defines the static table of label fields compared during
// verification, with per-field thresholds and comparators.
package registry

import (
	"github.com/rotisserie/eris"

	"github.com/ttb-tools/labelcheck/internal/match"
	"github.com/ttb-tools/labelcheck/internal/model"
)

// Comparator scores an expected value against an extracted value, 0-100.
type Comparator func(expected, extracted string) int

// FieldSpec configures the comparison of one label field: its display name,
// the minimum score for a partial match, and the comparator to apply.
type FieldSpec struct {
	Key         model.FieldKey
	DisplayName string
	Threshold   int
	Compare     Comparator
}

// commonFields are compared for every beverage type whenever the application
// provides an expected value. Order here is the report order.
var commonFields = []FieldSpec{
	{Key: model.FieldBrandName, DisplayName: "Brand Name", Threshold: 85, Compare: match.Score},
	{Key: model.FieldClassType, DisplayName: "Class/Type", Threshold: 80, Compare: match.Score},
	{Key: model.FieldAlcoholContent, DisplayName: "Alcohol Content", Threshold: 100, Compare: match.CompareAlcoholContent},
	{Key: model.FieldNetContents, DisplayName: "Net Contents", Threshold: 100, Compare: match.CompareNetContents},
	{Key: model.FieldProducerName, DisplayName: "Producer/Bottler Name", Threshold: 80, Compare: match.Score},
	{Key: model.FieldProducerAddress, DisplayName: "Producer/Bottler Address", Threshold: 75, Compare: match.Score},
	{Key: model.FieldCountryOfOrigin, DisplayName: "Country of Origin", Threshold: 90, Compare: match.Score},
}

// wineFields apply to the wine variant only.
var wineFields = []FieldSpec{
	{Key: model.FieldAppellation, DisplayName: "Appellation of Origin", Threshold: 85, Compare: match.Score},
	{Key: model.FieldVintageYear, DisplayName: "Vintage Year", Threshold: 100, Compare: match.Score},
}

// ForBeverage returns the ordered field specs to compare for the given
// beverage type. An unknown beverage type is a configuration error and
// fails fast.
func ForBeverage(bt model.BeverageType) ([]FieldSpec, error) {
	switch bt {
	case model.BeverageSpirits, model.BeverageBeer:
		return commonFields, nil
	case model.BeverageWine:
		fields := make([]FieldSpec, 0, len(commonFields)+len(wineFields))
		fields = append(fields, commonFields...)
		fields = append(fields, wineFields...)
		return fields, nil
	default:
		return nil, eris.Errorf("registry: unknown beverage type %q", bt)
	}
}
