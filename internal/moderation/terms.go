package moderation

import "regexp"

// termEntry is one row of the curated pattern table. Patterns cover English
// and Filipino terms plus common leetspeak spellings.
type termEntry struct {
	pattern  *regexp.Regexp
	severity Severity
	category string
}

var termTable = []termEntry{
	// Sexual content.
	{regexp.MustCompile(`(?i)\bp[o0]rn(?:o|ograph\w*)?\b`), SeverityHigh, CategorySexual},
	{regexp.MustCompile(`(?i)\bn[u\x{00fc}]de?s?\b`), SeverityHigh, CategorySexual},
	{regexp.MustCompile(`(?i)\bnsfw\b`), SeverityHigh, CategorySexual},
	{regexp.MustCompile(`(?i)\bk[a4]nt[o0]t\w*\b`), SeverityHigh, CategorySexual},
	{regexp.MustCompile(`(?i)\bj[a4]k[o0]l\w*\b`), SeverityHigh, CategorySexual},
	{regexp.MustCompile(`(?i)\bhub[a4]d\b`), SeverityMedium, CategorySexual},
	{regexp.MustCompile(`(?i)\bmalaswa\b`), SeverityMedium, CategorySexual},

	// Violence.
	{regexp.MustCompile(`(?i)\bkill\s+(?:you|him|her|them)\b`), SeverityHigh, CategoryViolence},
	{regexp.MustCompile(`(?i)\bpatay[i1]n\s+k[i1]ta\b`), SeverityHigh, CategoryViolence},
	{regexp.MustCompile(`(?i)\bsaksak[i1]n\b`), SeverityHigh, CategoryViolence},
	{regexp.MustCompile(`(?i)\bbugbug[i1]n\b`), SeverityMedium, CategoryViolence},

	// Profanity, English.
	{regexp.MustCompile(`(?i)\bf[u\x{00fc}\*@#]+ck(?:er|ing|ed)?\b`), SeverityHigh, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bsh[i1!\*][t7]+y?\b`), SeverityMedium, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bb[i1!]tch(?:es|y)?\b`), SeverityMedium, CategoryProfanity},
	{regexp.MustCompile(`(?i)\ba[s\$5]{2}h[o0]le?s?\b`), SeverityMedium, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bd[i1]ck(?:head)?s?\b`), SeverityMedium, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bwh[o0]re?s?\b`), SeverityMedium, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bslut+y?s?\b`), SeverityMedium, CategoryProfanity},

	// Profanity, Filipino.
	{regexp.MustCompile(`(?i)\bp[u\*]t[a4](?:ng)?\s*[i1]n[a4]\w*\b`), SeverityHigh, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bp[u\*]t[a4]\b`), SeverityHigh, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bg[a4]g[ou0]\b`), SeverityMedium, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bt[a4]ng[a4]\b`), SeverityMedium, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bt[a4]r[a4]nt[a4]d[ou0]\b`), SeverityMedium, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bp[u\*]nyet[a4]\b`), SeverityMedium, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bul[o0]l\b`), SeverityMedium, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bb[o0]b[o0]\b`), SeverityLow, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bleche\b`), SeverityLow, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bbw[i1]set\b`), SeverityLow, CategoryProfanity},
	{regexp.MustCompile(`(?i)\bhay[o0]p\s+ka\b`), SeverityLow, CategoryProfanity},
}

// fileNameTerms are explicit terms blocked on sight in image filenames,
// English and Filipino. Substring match, case-insensitive.
var fileNameTerms = []string{
	"porn", "nude", "naked", "nsfw", "xxx", "sex",
	"hubad", "malaswa", "kantot", "bastos",
}

// suspiciousNamePatterns flag filenames that hide content behind generated or
// obfuscated names. Repeated-character names are handled separately by
// hasRepeatedRun since RE2 has no backreferences.
var suspiciousNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(private|secret|hidden|censored|leaked)`),
	regexp.MustCompile(`(?i)^[0-9a-f]{24,}\.[a-z]+$`),
}

// hasRepeatedRun reports whether s contains n or more consecutive identical
// runes, the mark of keyboard-mashed or generated filenames.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}
