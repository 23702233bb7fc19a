package match

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	alcoholRe     = regexp.MustCompile(`(\d+\.?\d*)\s*%`)
	netContentsRe = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(ml|l|fl\.?\s*oz\.?|oz\.?|cl)`)

	unitCleaner = strings.NewReplacer(".", "", " ", "")
)

// CompareAlcoholContent compares two alcohol content statements by their
// numeric percentage: 100 if equal, 0 if not. If either side has no parseable
// percentage, falls back to the fuzzy text score.
func CompareAlcoholContent(expected, extracted string) int {
	a, okA := extractAlcoholPercent(expected)
	b, okB := extractAlcoholPercent(extracted)
	if !okA || !okB {
		return Score(expected, extracted)
	}
	if a == b {
		return 100
	}
	return 0
}

// extractAlcoholPercent pulls the first number immediately preceding a "%".
// "40% ALC/VOL" -> 40, "13.5% ALC. BY VOL." -> 13.5.
func extractAlcoholPercent(text string) (float64, bool) {
	m := alcoholRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// CompareNetContents compares two net contents statements by numeric value
// and unit. Metric units (ml, l, cl) are converted to milliliters; oz and
// fl oz collapse to a single family. Same family compares exactly (100 or 0).
// There is no cross-family conversion: "750 mL" vs "25 fl oz" falls back to
// the fuzzy text score, as does any side with no parseable quantity.
func CompareNetContents(expected, extracted string) int {
	valA, unitA, okA := extractNetContents(expected)
	valB, unitB, okB := extractNetContents(extracted)
	if !okA || !okB {
		return Score(expected, extracted)
	}

	if unitFamily(unitA) != unitFamily(unitB) {
		return Score(expected, extracted)
	}
	if toMilliliters(valA, unitA) == toMilliliters(valB, unitB) {
		return 100
	}
	return 0
}

// extractNetContents pulls a quantity and unit token from a net contents
// statement. "750 mL" -> (750, "ml"), "25 FL. OZ." -> (25, "floz").
func extractNetContents(text string) (float64, string, bool) {
	m := netContentsRe.FindStringSubmatch(text)
	if m == nil {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	unit := unitCleaner.Replace(strings.ToLower(m[2]))
	return v, unit, true
}

func unitFamily(unit string) string {
	switch unit {
	case "l", "cl", "ml":
		return "ml"
	case "oz", "floz":
		return "floz"
	default:
		return unit
	}
}

func toMilliliters(value float64, unit string) float64 {
	switch unit {
	case "l":
		return value * 1000
	case "cl":
		return value * 10
	default:
		return value
	}
}
