package model

import "time"

// MatchStatus classifies the outcome of a single field comparison.
type MatchStatus string

const (
	StatusMatch        MatchStatus = "match"
	StatusPartialMatch MatchStatus = "partial_match"
	StatusMismatch     MatchStatus = "mismatch"
	StatusMissing      MatchStatus = "missing"
	StatusNotRequired  MatchStatus = "not_required"
)

// FieldComparison is the result of comparing one application field against
// the extracted label value. Score is -1 when a similarity score is not
// meaningful for the status (not_required).
type FieldComparison struct {
	Key         FieldKey    `json:"fieldName"`
	DisplayName string      `json:"displayName"`
	Expected    string      `json:"expected,omitempty"`
	Extracted   string      `json:"extracted,omitempty"`
	Status      MatchStatus `json:"status"`
	Score       int         `json:"similarityScore"`
	Notes       string      `json:"notes"`
}

// WarningResult reports compliance of the health warning statement.
// Issues is empty iff the statement is fully compliant.
type WarningResult struct {
	Present           bool     `json:"present"`
	TextCorrect       bool     `json:"textCorrect"`
	FormattingCorrect bool     `json:"formattingCorrect"`
	Issues            []string `json:"issues"`
}

// OverallStatus is the aggregated advisory outcome for one label.
type OverallStatus string

const (
	StatusApproved    OverallStatus = "approved"
	StatusNeedsReview OverallStatus = "needs_review"
	StatusRejected    OverallStatus = "rejected"
)

// Verdict is the full verification outcome for one (application, image) pair.
type Verdict struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	ImageName     string            `json:"imageFileName,omitempty"`
	BeverageType  BeverageType      `json:"beverageType"`
	OverallStatus OverallStatus     `json:"overallStatus"`
	Comparisons   []FieldComparison `json:"fieldComparisons"`
	Warning       WarningResult     `json:"governmentWarningResult"`
	Extracted     LabelExtraction   `json:"extractedData"`
	Elapsed       time.Duration     `json:"processingTime"`
}

// ItemError records a single failed batch item.
type ItemError struct {
	Item  string `json:"item"`
	Error string `json:"error"`
}

// BatchProgress is a snapshot of a batch run, emitted once per settled
// chunk. Results and Errors only ever grow between snapshots.
type BatchProgress struct {
	Total      int         `json:"total"`
	Completed  int         `json:"completed"`
	InProgress int         `json:"inProgress"`
	Failed     int         `json:"failed"`
	Results    []Verdict   `json:"results"`
	Errors     []ItemError `json:"errors"`
}

// HistoryEntry is one persisted verification, newest first in listings.
type HistoryEntry struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	Application Application `json:"applicationData"`
	Verdict     Verdict     `json:"result"`
}
