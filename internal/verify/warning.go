package verify

import (
	"fmt"
	"strings"

	"github.com/ttb-tools/labelcheck/internal/match"
	"github.com/ttb-tools/labelcheck/internal/model"
)

// RequiredWarningText is the mandatory health warning statement, verbatim.
const RequiredWarningText = "GOVERNMENT WARNING: (1) According to the Surgeon General, " +
	"women should not drink alcoholic beverages during pregnancy because of the risk of " +
	"birth defects. (2) Consumption of alcoholic beverages impairs your ability to drive " +
	"a car or operate machinery, and may cause health problems."

// warningTextThreshold is the minimum similarity for the extracted warning
// text to count as correct. The band absorbs minor transcription noise from
// the extractor while catching actual misspellings or wrong wording.
const warningTextThreshold = 97

var warningQuotes = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
)

// normalizeWarningText straightens quotes and collapses whitespace without
// case folding, so capitalization differences still reach the scorer and
// the caps check below stays meaningful.
func normalizeWarningText(text string) string {
	return strings.Join(strings.Fields(warningQuotes.Replace(text)), " ")
}

// ValidateWarning checks the extracted health warning statement for
// presence, text correctness, and the four formatting rules. Issues are
// appended in fixed check order; the list is empty iff fully compliant.
func ValidateWarning(extracted model.WarningExtraction) model.WarningResult {
	if !extracted.Present || strings.TrimSpace(extracted.FullText) == "" {
		return model.WarningResult{
			Issues: []string{"Government Warning statement not found on label"},
		}
	}

	var issues []string

	score := match.CaseInsensitiveScore(
		normalizeWarningText(extracted.FullText),
		normalizeWarningText(RequiredWarningText),
	)
	textCorrect := score >= warningTextThreshold
	if !textCorrect {
		issues = append(issues, fmt.Sprintf(
			"Government Warning text does not match required wording (%d%% similarity)", score))
	}

	if !extracted.HeaderInCaps {
		issues = append(issues, `"GOVERNMENT WARNING:" is not in all capitals`)
	}
	if !extracted.HeaderAppearsBold {
		issues = append(issues, `"GOVERNMENT WARNING:" does not appear to be in bold type`)
	}
	if extracted.BodyAppearsBold {
		issues = append(issues, "Warning body text appears to be in bold type (should not be bold)")
	}
	if !extracted.SeparateFromOther {
		issues = append(issues, "Warning statement does not appear visually separate from other label text")
	}

	formattingCorrect := extracted.HeaderInCaps &&
		extracted.HeaderAppearsBold &&
		!extracted.BodyAppearsBold &&
		extracted.SeparateFromOther

	return model.WarningResult{
		Present:           true,
		TextCorrect:       textCorrect,
		FormattingCorrect: formattingCorrect,
		Issues:            issues,
	}
}
