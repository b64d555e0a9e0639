package moderation

import (
	"strings"
	"unicode"
)

const (
	heuristicMinLength      = 10
	capsRatioLimit          = 0.7
	punctuationDensityLimit = 0.3
	heuristicConfidence     = 60
)

// matchTermTable scans the curated pattern table in order. On match, every
// occurrence of the matched term is replaced with an equal-length run of '*'.
func matchTermTable(body string) (TextResult, bool) {
	for _, entry := range termTable {
		spans := entry.pattern.FindAllStringIndex(body, -1)
		if len(spans) == 0 {
			continue
		}
		cleaned := maskSpans(body, spans)
		return TextResult{
			Blocked:    true,
			Cleaned:    cleaned,
			Severity:   entry.severity,
			Confidence: confidenceFor(entry.severity),
			Category:   entry.category,
		}, true
	}
	return TextResult{}, false
}

// matchCapsRatio flags shouting: over 70% of letters uppercase in a body
// longer than 10 runes. Cleaned form is the lower-cased body.
func matchCapsRatio(body string) (TextResult, bool) {
	runes := []rune(body)
	if len(runes) <= heuristicMinLength {
		return TextResult{}, false
	}
	var letters, upper int
	for _, r := range runes {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 || float64(upper)/float64(letters) <= capsRatioLimit {
		return TextResult{}, false
	}
	return TextResult{
		Blocked:    true,
		Cleaned:    strings.ToLower(body),
		Severity:   SeverityLow,
		Confidence: heuristicConfidence,
		Category:   CategoryShouting,
	}, true
}

// matchPunctuationDensity flags spam-like bodies: over 30% punctuation in a
// body longer than 10 runes. Cleaned form has the punctuation stripped.
func matchPunctuationDensity(body string) (TextResult, bool) {
	runes := []rune(body)
	if len(runes) <= heuristicMinLength {
		return TextResult{}, false
	}
	var punct int
	for _, r := range runes {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			punct++
		}
	}
	if float64(punct)/float64(len(runes)) <= punctuationDensityLimit {
		return TextResult{}, false
	}
	var b strings.Builder
	b.Grow(len(body))
	for _, r := range runes {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return TextResult{
		Blocked:    true,
		Cleaned:    b.String(),
		Severity:   SeverityLow,
		Confidence: heuristicConfidence,
		Category:   CategorySpam,
	}, true
}

// maskSpans replaces each [start,end) byte span with '*' runs of equal rune length.
func maskSpans(body string, spans [][]int) string {
	var b strings.Builder
	b.Grow(len(body))
	prev := 0
	for _, span := range spans {
		b.WriteString(body[prev:span[0]])
		b.WriteString(strings.Repeat("*", len([]rune(body[span[0]:span[1]]))))
		prev = span[1]
	}
	b.WriteString(body[prev:])
	return b.String()
}
