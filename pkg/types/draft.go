// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Evaluation is the language model's quality assessment of a draft.
type Evaluation struct {
	// Score ranges from 1 to 10; 0 means the evaluation could not be obtained.
	Score float64 `json:"score" yaml:"score"`

	// Suggestions lists concrete revisions.
	Suggestions []string `json:"suggestions" yaml:"suggestions"`
}

// ReferenceEntry records a cited paper for the BibTeX export.
type ReferenceEntry struct {
	// CitationKey is the inline citation label (e.g. "Vaswani2017").
	CitationKey string `json:"citation_key" yaml:"citation_key"`

	// Title is the cited paper's title.
	Title string `json:"title" yaml:"title"`

	// Authors lists author display names.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`

	// URL links to the paper.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}
