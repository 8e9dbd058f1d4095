package moderation

import (
	"sort"
	"strings"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Matcher finds forbidden words in text by case-insensitive substring
// containment. Word boundaries are not considered: "ass" matches "class".
type Matcher struct {
	words   []string // as stored, in list order
	lowered []string
	machine *goahocorasick.Machine
}

// NewMatcher compiles the word list into an Aho-Corasick automaton.
// If the automaton cannot be built the matcher falls back to a linear scan.
func NewMatcher(words []string) *Matcher {
	m := &Matcher{
		words:   make([]string, 0, len(words)),
		lowered: make([]string, 0, len(words)),
	}
	for _, w := range words {
		lw := strings.ToLower(w)
		if lw == "" {
			continue
		}
		m.words = append(m.words, w)
		m.lowered = append(m.lowered, lw)
	}

	unique := lo.Uniq(m.lowered)
	sort.Strings(unique)
	patterns := lo.Map(unique, func(w string, _ int) []rune { return []rune(w) })
	if len(patterns) == 0 {
		return m
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err == nil {
		m.machine = machine
	}
	return m
}

// Len returns the number of non-empty words in the list.
func (m *Matcher) Len() int {
	return len(m.words)
}

// Match returns every list word contained in content, in list order.
func (m *Matcher) Match(content string) []string {
	if len(m.words) == 0 {
		return nil
	}
	lower := strings.ToLower(content)

	var found map[string]struct{}
	if m.machine != nil {
		terms := m.machine.MultiPatternSearch([]rune(lower), false)
		found = make(map[string]struct{}, len(terms))
		for _, term := range terms {
			found[string(term.Word)] = struct{}{}
		}
	}

	var matched []string
	for i, lw := range m.lowered {
		hit := false
		if found != nil {
			_, hit = found[lw]
		} else {
			hit = strings.Contains(lower, lw)
		}
		if hit {
			matched = append(matched, m.words[i])
		}
	}
	return matched
}
