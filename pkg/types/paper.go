// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the survey-engine pipeline:
// paper records from search, the analysis artifacts (similarity, entities,
// synthesis), job records, and stage configuration.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// Paper holds metadata for a candidate paper returned by search.
type Paper struct {
	// Title is the paper title as returned by the source. The corpus
	// identifier is derived from it.
	Title string `json:"title" yaml:"title"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year (0 when unknown).
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// URL is the landing page of the paper.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// PDFURL is a direct link to an open-access PDF, when known.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// ArxivID is the arXiv identifier without version suffix (e.g. "2301.07041").
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`

	// Source identifies which backend found this paper (e.g. "arxiv").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// PDFPath is the local path of the downloaded PDF, set by acquisition.
	PDFPath string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`
}

// PaperRef names one paper of the current session. It is either a full
// Paper record (matched through its title) or a literal corpus identifier.
// In YAML and JSON a scalar string decodes to ID and a mapping to Paper.
type PaperRef struct {
	Paper *Paper
	ID    string
}

// RefsFromPapers wraps paper records as references.
func RefsFromPapers(papers []Paper) []PaperRef {
	refs := make([]PaperRef, len(papers))
	for i := range papers {
		p := papers[i]
		refs[i] = PaperRef{Paper: &p}
	}
	return refs
}

// RefsFromIDs wraps literal identifiers as references.
func RefsFromIDs(ids []string) []PaperRef {
	refs := make([]PaperRef, len(ids))
	for i, id := range ids {
		refs[i] = PaperRef{ID: id}
	}
	return refs
}

// UnmarshalYAML accepts either a scalar identifier or a Paper mapping.
func (r *PaperRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&r.ID)
	case yaml.MappingNode:
		var p Paper
		if err := node.Decode(&p); err != nil {
			return err
		}
		r.Paper = &p
		return nil
	default:
		return fmt.Errorf("line %d: paper reference must be a string or a mapping", node.Line)
	}
}

// MarshalYAML writes the Paper mapping when present, otherwise the identifier.
func (r PaperRef) MarshalYAML() (any, error) {
	if r.Paper != nil {
		return r.Paper, nil
	}
	return r.ID, nil
}

// UnmarshalJSON accepts either a JSON string or a Paper object.
func (r *PaperRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var p Paper
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	r.Paper = &p
	return nil
}

// MarshalJSON mirrors MarshalYAML.
func (r PaperRef) MarshalJSON() ([]byte, error) {
	if r.Paper != nil {
		return json.Marshal(r.Paper)
	}
	return json.Marshal(r.ID)
}
