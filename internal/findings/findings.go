// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package findings flags which key phrases appear in each paper's text.
package findings

import (
	"strings"

	"github.com/pdiddy/survey-engine/internal/corpus"
)

// Extract returns the phrases that occur in text, compared without regard
// to case, in the order they appear in phrases. The result is never nil.
func Extract(text string, phrases []string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			found = append(found, p)
		}
	}
	return found
}

// ExtractAll runs Extract over every document, keyed by document ID.
// Documents with no matches map to an empty list.
func ExtractAll(c corpus.Corpus, phrases []string) map[string][]string {
	out := make(map[string][]string, len(c))
	for _, d := range c {
		out[d.ID] = Extract(d.Text, phrases)
	}
	return out
}
