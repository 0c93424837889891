// Package items maintains the tradeable item catalog and provides fuzzy
// name matching for the query pipeline and the blocklist generator.
package items

import (
	"sort"
	"strings"
)

// Candidate is one possible resolution of a free-text item fragment.
// Pattern is an SQL LIKE pattern tolerant of abbreviations and word gaps.
type Candidate struct {
	Name    string  `json:"name"`
	Pattern string  `json:"pattern"`
	Score   float64 `json:"score"`
}

// abbreviations maps common player shorthand to canonical item names.
// This is a fixed dictionary, not a general ontology.
var abbreviations = map[string]string{
	"dscim":   "dragon scimitar",
	"d scim":  "dragon scimitar",
	"dds":     "dragon dagger",
	"dbones":  "dragon bones",
	"d bones": "dragon bones",
	"whip":    "abyssal whip",
	"tbow":    "twisted bow",
	"bgs":     "bandos godsword",
	"ags":     "armadyl godsword",
	"sgs":     "saradomin godsword",
	"zgs":     "zamorak godsword",
	"dfs":     "dragonfire shield",
	"obby":    "obsidian",
	"rune sc": "rune scimitar",
	"cballs":  "cannonball",
	"brews":   "saradomin brew",
	"sharks":  "shark",
	"nats":    "nature rune",
	"addy":    "adamant",
}

// Matcher resolves user-typed fragments to canonical item names.
// It is a pure function over a snapshot dictionary: matching has no side
// effects, and the snapshot is replaced wholesale when the catalog syncs.
type Matcher struct {
	names   []string        // canonical names, lower-cased, catalog order
	nameSet map[string]bool // for exact lookups
}

// NewMatcher builds a matcher over a snapshot of canonical item names.
func NewMatcher(names []string) *Matcher {
	lowered := make([]string, 0, len(names))
	set := make(map[string]bool, len(names))
	for _, n := range names {
		l := strings.ToLower(strings.TrimSpace(n))
		if l == "" || set[l] {
			continue
		}
		lowered = append(lowered, l)
		set[l] = true
	}
	return &Matcher{names: lowered, nameSet: set}
}

// Match returns zero or more candidates for a free-text fragment, best first.
// Callers must handle all three cardinalities: no "exactly one match"
// guarantee is made.
func (m *Matcher) Match(fragment string) []Candidate {
	frag := strings.ToLower(strings.TrimSpace(fragment))
	if frag == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []Candidate
	add := func(name string, score float64) {
		if seen[name] {
			return
		}
		seen[name] = true
		out = append(out, Candidate{Name: name, Pattern: LikePattern(name), Score: score})
	}

	// Exact canonical name
	if m.nameSet[frag] {
		add(frag, 1.0)
	}

	// Abbreviation dictionary. The expansion may itself be a full name or a
	// fragment ("addy" covers many adamant items), so it recurses one level
	// through substring matching below.
	if expanded, ok := abbreviations[frag]; ok {
		if m.nameSet[expanded] {
			add(expanded, 0.9)
		} else {
			for _, name := range m.names {
				if strings.Contains(name, expanded) {
					add(name, 0.75)
				}
			}
		}
	}

	// Plural/singular tolerance: trailing "s" both ways
	singular := strings.TrimSuffix(frag, "s")
	if singular != frag && m.nameSet[singular] {
		add(singular, 0.85)
	}
	if m.nameSet[frag+"s"] {
		add(frag+"s", 0.85)
	}

	// Substring containment against the catalog
	for _, name := range m.names {
		if strings.Contains(name, frag) {
			score := 0.6
			if strings.HasPrefix(name, frag) {
				score = 0.7
			}
			add(name, score)
		} else if singular != frag && strings.Contains(name, singular) {
			add(name, 0.55)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Best returns the single highest-scoring candidate, or false when nothing
// matched. Spec building uses only the best pattern per item even when
// multiple candidates exist.
func (m *Matcher) Best(fragment string) (Candidate, bool) {
	candidates := m.Match(fragment)
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	return candidates[0], true
}

// Search returns up to limit canonical names matching q, for autocomplete.
func (m *Matcher) Search(q string, limit int) []string {
	candidates := m.Match(q)
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	names := make([]string, 0, limit)
	for _, c := range candidates[:limit] {
		names = append(names, c.Name)
	}
	return names
}

// LikePattern converts a canonical name to an SQL LIKE pattern with word
// gaps, e.g. "dragon scimitar" -> "%dragon%scimitar%".
func LikePattern(name string) string {
	words := strings.Fields(strings.ToLower(name))
	if len(words) == 0 {
		return "%"
	}
	return "%" + strings.Join(words, "%") + "%"
}
