// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SpaceUnknown is the sentinel space label used when no stereotactic
// reference frame could be inferred for a table.
const SpaceUnknown = "UNKNOWN"

// TableMetadata describes the context of one table extracted from an
// article. It is immutable once built.
type TableMetadata struct {
	// Label is the table's printed label (e.g. "Table 2").
	Label string

	// Identifier is the table's markup id attribute.
	Identifier string

	// Caption is the table caption text.
	Caption string

	// Legend is the table legend text.
	Legend string

	// Foot is the table footnote text.
	Foot string

	// RawXML is the structural markup of the enclosing table region.
	RawXML string

	// ReferenceSentences are prose sentences elsewhere in the document
	// that cross-reference this table.
	ReferenceSentences []string
}

// Point is a single stereotactic coordinate with its inferred space.
type Point struct {
	// Coordinates holds the x, y, z components in order.
	Coordinates []float64 `json:"coordinates"`

	// Space is the inferred reference frame ("MNI", "TAL", or "UNKNOWN").
	Space string `json:"space"`
}

// Analysis is one named group of coordinate points extracted from a single
// table.
type Analysis struct {
	Name     string         `json:"name"`
	Points   []Point        `json:"points"`
	Metadata map[string]any `json:"metadata"`
}

// Study aggregates all analyses for one article plus the article's retrieval
// provenance. A study with zero analyses is valid and is still emitted.
type Study struct {
	DOI      string         `json:"doi"`
	Analyses []Analysis     `json:"analyses"`
	Metadata map[string]any `json:"metadata"`
}

// StudySet is the downstream consumer contract wrapping all studies of a run.
type StudySet struct {
	StudySet struct {
		Studies []Study `json:"studies"`
	} `json:"studyset"`
}

// NewStudySet builds a StudySet from the given studies, normalizing a nil
// slice to an empty one so the JSON output always carries an array.
func NewStudySet(studies []Study) StudySet {
	if studies == nil {
		studies = []Study{}
	}
	var set StudySet
	set.StudySet.Studies = studies
	return set
}
