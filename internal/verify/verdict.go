package verify

import "github.com/ttb-tools/labelcheck/internal/model"

// Aggregate combines the field comparisons and the warning result into the
// overall advisory status using a fixed, ordered decision table. The
// precedence tolerates partial-label photographs (front-only shots commonly
// miss producer, warning, and net-contents text) without auto-rejecting,
// while any outright value contradiction always rejects.
func Aggregate(comparisons []model.FieldComparison, warning model.WarningResult) model.OverallStatus {
	var mismatchCount, missingCount, comparedCount int
	hasPartialMatch := false
	for _, c := range comparisons {
		switch c.Status {
		case model.StatusMismatch:
			mismatchCount++
		case model.StatusMissing:
			missingCount++
		case model.StatusPartialMatch:
			hasPartialMatch = true
		}
		if c.Status != model.StatusNotRequired {
			comparedCount++
		}
	}

	hasWarningIssues := len(warning.Issues) > 0
	warningMissingOnly := len(warning.Issues) == 1 && !warning.Present

	switch {
	case mismatchCount > 0:
		return model.StatusRejected
	case float64(missingCount) >= float64(comparedCount)/2:
		return model.StatusRejected
	case missingCount > 0 || hasPartialMatch || warningMissingOnly:
		return model.StatusNeedsReview
	case hasWarningIssues:
		return model.StatusNeedsReview
	default:
		return model.StatusApproved
	}
}
