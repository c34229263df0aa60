package generation

import (
	"strings"
	"unicode/utf8"

	"github.com/jonathan/content-pipeline/internal/types"
)

// QualityScore rates generated content from 0 to 10 using length, keyword
// relevance to the client profile, and basic structure.
func QualityScore(content string, profile *types.ClientProfile) float64 {
	score := 5.0

	switch n := utf8.RuneCountInString(content); {
	case n < 50:
		score -= 2.0
	case n > 2000:
		score -= 1.0
	case n >= 100 && n <= 1000:
		score += 1.0
	}

	lower := strings.ToLower(content)

	if strings.Contains(lower, strings.ToLower(profile.ICPProfile.Industry)) {
		score += 1.0
	}

	for _, service := range profile.ServiceOffering.Services {
		if strings.Contains(lower, strings.ToLower(service)) {
			score += 1.0
			break
		}
	}

	for _, word := range positioningKeywords(profile.PositioningStatement) {
		if strings.Contains(lower, word) {
			score += 0.5
			break
		}
	}

	if strings.Contains(content, ".") {
		score += 0.5
	}
	if strings.Count(content, "\n") >= 2 {
		score += 0.5
	}

	return clamp(score, 0, 10)
}

// positioningKeywords returns the first three words longer than four
// characters from the lower-cased positioning statement.
func positioningKeywords(statement string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(statement)) {
		if utf8.RuneCountInString(w) > 4 {
			words = append(words, w)
			if len(words) == 3 {
				break
			}
		}
	}
	return words
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
