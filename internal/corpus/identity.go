// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"sort"
	"strings"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// MaxIDLength is the rune length identifiers are truncated to.
const MaxIDLength = 100

// unsafeChars strips characters that are not allowed in filenames on common
// filesystems.
var unsafeChars = strings.NewReplacer(
	"<", "", ">", "", `"`, "", ":", "",
	"/", "", `\`, "", "|", "", "?", "", "*", "",
)

// Sanitize derives the filesystem-safe identifier for a paper title: spaces
// become underscores, <>":/\|?* are removed, the result is cut to
// MaxIDLength runes and trimmed. PDF and text artifacts are named with it,
// so it must stay the single source of truth for identifiers.
func Sanitize(title string) string {
	s := strings.ReplaceAll(title, " ", "_")
	s = unsafeChars.Replace(s)
	if r := []rune(s); len(r) > MaxIDLength {
		s = string(r[:MaxIDLength])
	}
	return strings.TrimSpace(s)
}

// Matcher decides whether a corpus identifier belongs to the current
// session's papers.
type Matcher struct {
	exact   map[string]bool
	targets []string
}

// NewMatcher builds a matcher from session references. Paper records
// contribute their sanitized title, literal references their identifier.
// References that reduce to an empty identifier are ignored, since an
// empty string would be a substring of every filename.
func NewMatcher(refs []types.PaperRef) *Matcher {
	m := &Matcher{exact: make(map[string]bool)}
	for _, r := range refs {
		id := r.ID
		if r.Paper != nil {
			id = Sanitize(r.Paper.Title)
		}
		if id == "" || m.exact[id] {
			continue
		}
		m.exact[id] = true
		m.targets = append(m.targets, id)
	}
	return m
}

// Empty reports whether the matcher has no targets, in which case no
// filtering applies.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.targets) == 0
}

// Len returns the number of distinct targets.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.targets)
}

// Match reports whether id is part of the session. An exact match wins;
// otherwise a target containing id, or id containing a target, matches.
// Containment runs both ways because truncation can leave either the stored
// filename or the derived target as the shorter of the two.
func (m *Matcher) Match(id string) bool {
	if m.Empty() {
		return true
	}
	if m.exact[id] {
		return true
	}
	for _, t := range m.targets {
		if strings.Contains(t, id) || strings.Contains(id, t) {
			return true
		}
	}
	return false
}

// DetectCollisions returns the identifiers that two or more distinct titles
// sanitize to, each with its sorted titles. Such papers share one text
// file; callers surface this rather than renaming files.
func DetectCollisions(papers []types.Paper) map[string][]string {
	byID := make(map[string]map[string]bool)
	for _, p := range papers {
		id := Sanitize(p.Title)
		if id == "" {
			continue
		}
		if byID[id] == nil {
			byID[id] = make(map[string]bool)
		}
		byID[id][p.Title] = true
	}

	collisions := make(map[string][]string)
	for id, titles := range byID {
		if len(titles) < 2 {
			continue
		}
		list := make([]string, 0, len(titles))
		for t := range titles {
			list = append(list, t)
		}
		sort.Strings(list)
		collisions[id] = list
	}
	return collisions
}
