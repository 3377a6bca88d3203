// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AnalysisStatus records whether the similarity stage had enough input.
type AnalysisStatus string

const (
	AnalysisComplete     AnalysisStatus = "complete"
	AnalysisInsufficient AnalysisStatus = "insufficient"
)

// SimilarityRecord is the cross-paper similarity artifact. PaperNames orders
// the rows and columns of SimilarityMatrix; the matrix is square, symmetric,
// has a unit diagonal, and is never updated after it is written.
type SimilarityRecord struct {
	TotalPapers int `json:"total_papers"`

	// Papers duplicates PaperNames for readers of the older file layout.
	Papers []string `json:"papers"`

	PaperNames       []string            `json:"paper_names"`
	KeyFindings      map[string][]string `json:"key_findings"`
	SimilarityMatrix [][]float64         `json:"similarity_matrix"`
	Status           AnalysisStatus      `json:"status"`
}

// Insufficient reports whether the record was produced from fewer than two papers.
func (r *SimilarityRecord) Insufficient() bool {
	return r.Status == AnalysisInsufficient
}

// Score returns the similarity between the papers at row i and column j.
func (r *SimilarityRecord) Score(i, j int) float64 {
	return r.SimilarityMatrix[i][j]
}

// PaperEntities lists the vocabulary entries found at least once in one paper,
// in vocabulary declaration order.
type PaperEntities struct {
	Datasets []string `json:"datasets" yaml:"datasets"`
	Methods  []string `json:"methods" yaml:"methods"`
}

// Count pairs a vocabulary entry with the number of papers containing it.
type Count struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// Counts is an ordered name→count table. It is encoded as a JSON object
// whose keys appear in slice order, so the descending-count order survives
// a write and read.
type Counts []Count

// Get returns the count for name, or 0.
func (c Counts) Get(name string) int {
	for _, e := range c {
		if e.Name == name {
			return e.Count
		}
	}
	return 0
}

// Map returns the counts as a plain map.
func (c Counts) Map() map[string]int {
	m := make(map[string]int, len(c))
	for _, e := range c {
		m[e.Name] = e.Count
	}
	return m
}

// MarshalJSON writes an object with keys in slice order.
func (c Counts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", e.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, preserving key order.
func (c *Counts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("counts: expected object, got %v", tok)
	}
	out := Counts{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("counts: expected string key, got %v", keyTok)
		}
		var n int
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("counts: value for %q: %w", key, err)
		}
		out = append(out, Count{Name: key, Count: n})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// CommonEntities holds corpus-wide entity counts.
type CommonEntities struct {
	Datasets             Counts `json:"datasets"`
	MethodsAndAlgorithms Counts `json:"methods_and_algorithms"`
}

// EntityRecord is the entity-extraction artifact.
type EntityRecord struct {
	PerPaperEntities map[string]PaperEntities `json:"per_paper_entities"`
	CommonEntities   CommonEntities           `json:"common_entities"`
}

// SynthesisRecord is the reduced dataset consumed by drafting. PaperDetails
// only holds papers present in both the similarity and entity artifacts;
// CommonDatasets and CommonMethods are copied from the entity artifact
// without that restriction.
type SynthesisRecord struct {
	TotalPapers    int                      `json:"total_papers"`
	CommonDatasets Counts                   `json:"common_datasets"`
	CommonMethods  Counts                   `json:"common_methods"`
	KeyFindings    map[string][]string      `json:"key_findings"`
	PaperDetails   map[string]PaperEntities `json:"paper_details"`
}
