package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterText_CleanBodyPassesThrough(t *testing.T) {
	res := FilterText("this is FINE")
	assert.False(t, res.Blocked)
	assert.Equal(t, "this is FINE", res.Cleaned)
	assert.Equal(t, "none", res.Strategy)
}

func TestFilterText_HighSeverityTerm(t *testing.T) {
	res := FilterText("putang ina mo")
	require.True(t, res.Blocked)
	assert.Equal(t, SeverityHigh, res.Severity)
	assert.Equal(t, 90, res.Confidence)
	assert.Equal(t, CategoryProfanity, res.Category)
	assert.Equal(t, "pattern", res.Strategy)
	// Matched span replaced with an equal-length run of asterisks.
	assert.Equal(t, "********** mo", res.Cleaned)
}

func TestFilterText_LeetspeakVariant(t *testing.T) {
	res := FilterText("what the f*ck was that")
	require.True(t, res.Blocked)
	assert.Equal(t, SeverityHigh, res.Severity)
	assert.Equal(t, "what the **** was that", res.Cleaned)
}

func TestFilterText_MediumSeverityConfidence(t *testing.T) {
	res := FilterText("gago talaga")
	require.True(t, res.Blocked)
	assert.Equal(t, SeverityMedium, res.Severity)
	assert.Equal(t, 70, res.Confidence)
}

func TestFilterText_MasksEveryOccurrence(t *testing.T) {
	res := FilterText("tanga ka, tanga sila")
	require.True(t, res.Blocked)
	assert.Equal(t, "***** ka, ***** sila", res.Cleaned)
}

func TestFilterText_AllCapsHeuristic(t *testing.T) {
	res := FilterText("STOP DOING THAT RIGHT NOW")
	require.True(t, res.Blocked)
	assert.Equal(t, SeverityLow, res.Severity)
	assert.Equal(t, CategoryShouting, res.Category)
	assert.Equal(t, "heuristic:caps", res.Strategy)
	assert.Equal(t, "stop doing that right now", res.Cleaned)
}

func TestFilterText_CapsHeuristicIgnoresShortBodies(t *testing.T) {
	res := FilterText("OK GO NOW")
	assert.False(t, res.Blocked)
	assert.Equal(t, "OK GO NOW", res.Cleaned)
}

func TestFilterText_PunctuationDensityHeuristic(t *testing.T) {
	res := FilterText("hello!!!???***!!!")
	require.True(t, res.Blocked)
	assert.Equal(t, CategorySpam, res.Category)
	assert.Equal(t, "heuristic:punctuation", res.Strategy)
	assert.Equal(t, "hello", res.Cleaned)
	assert.False(t, strings.ContainsAny(res.Cleaned, "!?*"))
}

func TestFilterText_PatternWinsOverHeuristics(t *testing.T) {
	// Shouting and profanity together: the pattern table is evaluated first.
	res := FilterText("BOBO KA TALAGA GRABE KA")
	require.True(t, res.Blocked)
	assert.Equal(t, "pattern", res.Strategy)
	assert.Equal(t, CategoryProfanity, res.Category)
}
