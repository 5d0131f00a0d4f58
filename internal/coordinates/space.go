// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package coordinates

import (
	"strings"

	"github.com/neurostuff/elsevier-coordinate-extractor/pkg/types"
)

// Classifier resolves the spatial reference frame of an article's
// coordinates from its full text when the table's own wording is
// inconclusive. Implementations return "MNI", "TAL" or SpaceUnknown.
type Classifier interface {
	ClassifySpace(articleText string) string
}

// talairachSpellings covers the misspellings seen in published tables.
var talairachSpellings = []string{
	"talairach",
	"talairarch",
	"talairac",
	"talair",
	"tala",
}

// inferSpace applies the keyword heuristics to the table's header line and
// surrounding prose. Returns the empty string when no keyword decides.
func inferSpace(headerText, metadataText string) string {
	combined := strings.ToLower(headerText + " " + metadataText)
	switch {
	case strings.Contains(combined, "mni") || strings.Contains(combined, "montreal"):
		return "MNI"
	case containsAny(combined, talairachSpellings):
		return "TAL"
	case strings.Contains(combined, "spm") && strings.Contains(combined, "coordinate"):
		// SPM results are reported in MNI by convention.
		return "MNI"
	default:
		return ""
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// KeywordClassifier is the built-in Classifier: it counts space-keyword
// occurrences across the article text and picks the majority convention.
// Ties and keyword-free articles stay unknown.
type KeywordClassifier struct{}

func (KeywordClassifier) ClassifySpace(articleText string) string {
	lowered := strings.ToLower(articleText)
	mni := strings.Count(lowered, "mni") + strings.Count(lowered, "montreal")
	tal := 0
	for _, spelling := range talairachSpellings {
		// Spellings share prefixes, so counts overlap; take the max
		// rather than the sum.
		if n := strings.Count(lowered, spelling); n > tal {
			tal = n
		}
	}
	switch {
	case mni > tal:
		return "MNI"
	case tal > mni:
		return "TAL"
	default:
		return types.SpaceUnknown
	}
}
