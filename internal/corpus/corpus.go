// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus loads extracted paper texts and decides which of them
// belong to the current session.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/survey-engine/internal/logging"
)

// DefaultExtensions lists the text-artifact extensions Load recognizes
// when none are configured.
var DefaultExtensions = []string{".txt"}

// Document is one paper's extracted text keyed by its identifier.
type Document struct {
	ID   string
	Text string
}

// Corpus is an ordered set of documents. Load orders it by filename, which
// keeps every downstream artifact reproducible for identical input.
type Corpus []Document

// IDs returns the document identifiers in corpus order.
func (c Corpus) IDs() []string {
	ids := make([]string, len(c))
	for i, d := range c {
		ids[i] = d.ID
	}
	return ids
}

// Texts returns the document texts in corpus order.
func (c Corpus) Texts() []string {
	texts := make([]string, len(c))
	for i, d := range c {
		texts[i] = d.Text
	}
	return texts
}

// Filter keeps the documents the matcher accepts. An empty matcher keeps
// everything.
func (c Corpus) Filter(m *Matcher) Corpus {
	if m.Empty() {
		return c
	}
	out := make(Corpus, 0, len(c))
	for _, d := range c {
		if m.Match(d.ID) {
			out = append(out, d)
		}
	}
	return out
}

// Load reads every file in dir whose extension is in exts (DefaultExtensions
// when empty). The identifier is the filename without its extension.
//
// A missing directory yields an empty corpus and no error. A file that
// cannot be read or is not valid UTF-8 is logged and skipped.
func Load(dir string, exts []string, log *zap.Logger) (Corpus, error) {
	log = logging.OrNop(log)
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("corpus directory does not exist", zap.String("dir", dir))
			return Corpus{}, nil
		}
		return nil, fmt.Errorf("reading corpus directory %s: %w", dir, err)
	}

	c := Corpus{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := matchExtension(entry.Name(), exts)
		if ext == "" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("skipping unreadable text file", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if !utf8.Valid(data) {
			log.Warn("skipping text file with invalid UTF-8", zap.String("file", entry.Name()))
			continue
		}
		c = append(c, Document{
			ID:   strings.TrimSuffix(entry.Name(), ext),
			Text: string(data),
		})
	}

	log.Debug("loaded corpus", zap.String("dir", dir), zap.Int("papers", len(c)))
	return c, nil
}

// matchExtension returns the configured extension name ends with, or "".
func matchExtension(name string, exts []string) string {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return ext
		}
	}
	return ""
}
