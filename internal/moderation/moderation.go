// Package moderation classifies chat text and file uploads before they are
// persisted. Both checks are conservative: a false positive costs a rejected
// upload, a false negative puts inappropriate content in front of a roster of
// students, so every internal failure resolves to a block.
package moderation

import "fmt"

// Severity grades how serious a matched term or heuristic is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Content categories reported back to the sender.
const (
	CategoryProfanity = "profanity"
	CategorySexual    = "sexual"
	CategoryViolence  = "violence"
	CategoryShouting  = "shouting"
	CategorySpam      = "spam"
)

// TextResult is the outcome of FilterText.
type TextResult struct {
	Blocked    bool     `json:"blocked"`
	Cleaned    string   `json:"cleaned"`
	Severity   Severity `json:"severity,omitempty"`
	Confidence int      `json:"confidence,omitempty"`
	Category   string   `json:"category,omitempty"`
	Strategy   string   `json:"strategy"` // which check produced the verdict
}

// FileMeta describes an upload candidate for FilterFile.
type FileMeta struct {
	FileName    string
	ContentType string
	SizeBytes   int64
}

// FileResult is the outcome of FilterFile.
type FileResult struct {
	Blocked    bool   `json:"blocked"`
	Reason     string `json:"reason,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
	Strategy   string `json:"strategy"`
}

// BlockedError is returned by callers that convert a moderation verdict into
// an operation failure. It carries the verdict details for client display.
type BlockedError struct {
	Reason     string
	Severity   Severity
	Confidence int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("content blocked: %s", e.Reason)
}

// textStrategy inspects a body and reports a verdict. ok is false when the
// strategy has no opinion and the next strategy should run.
type textStrategy struct {
	name string
	eval func(body string) (TextResult, bool)
}

// Ordered strategy list: the curated pattern table first, then heuristics.
// First match wins.
var textStrategies = []textStrategy{
	{name: "pattern", eval: matchTermTable},
	{name: "heuristic:caps", eval: matchCapsRatio},
	{name: "heuristic:punctuation", eval: matchPunctuationDensity},
}

// FilterText classifies a chat message body. Strategies are evaluated in
// order; the first one that matches decides. An unmatched body passes through
// unchanged. A panic inside any strategy fails closed.
func FilterText(body string) (result TextResult) {
	defer func() {
		if r := recover(); r != nil {
			result = TextResult{
				Blocked:    true,
				Cleaned:    "",
				Severity:   SeverityHigh,
				Confidence: 50,
				Category:   "error",
				Strategy:   "failsafe",
			}
		}
	}()

	for _, s := range textStrategies {
		if res, ok := s.eval(body); ok {
			res.Strategy = s.name
			return res
		}
	}
	return TextResult{Blocked: false, Cleaned: body, Strategy: "none"}
}

type fileStrategy struct {
	name string
	eval func(f FileMeta) (FileResult, bool)
}

var fileStrategies = []fileStrategy{
	{name: "filename", eval: matchFileNameTerms},
	{name: "size", eval: matchSizeBounds},
	{name: "heuristic", eval: scoreFileHeuristics},
}

// FilterFile classifies an upload candidate. Evaluation order: explicit
// filename terms, hard size bounds, then heuristic scoring. A panic inside any
// strategy fails closed with a generic reason.
func FilterFile(f FileMeta) (result FileResult) {
	defer func() {
		if r := recover(); r != nil {
			result = FileResult{
				Blocked:    true,
				Reason:     "filtering failed",
				Confidence: 50,
				Strategy:   "failsafe",
			}
		}
	}()

	for _, s := range fileStrategies {
		if res, ok := s.eval(f); ok {
			res.Strategy = s.name
			return res
		}
	}
	return FileResult{Blocked: false, Strategy: "none"}
}

func confidenceFor(sev Severity) int {
	if sev == SeverityHigh {
		return 90
	}
	return 70
}
