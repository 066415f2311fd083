package normalize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultAcceptScore  = 60
	defaultSuggestScore = 40
	defaultSuggestLimit = 5
)

// CatalogEntry is one destination from the reservation system's catalogue,
// reduced to the fields matching cares about.
type CatalogEntry struct {
	// Code is the reservation system's destination code (e.g. "JRO").
	Code string

	// Name is the human-readable destination name (e.g. "Kilimanjaro").
	Name string

	// IATA is the IATA airport code when it differs from Code. May be empty.
	IATA string
}

// Suggestion is a ranked near-miss candidate for disambiguation prompts.
type Suggestion struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithAcceptScore sets the minimum partial-ratio score (0–100) required for
// [Matcher.MatchCode] to accept a fuzzy candidate. Default: 60.
func WithAcceptScore(score float64) Option {
	return func(m *Matcher) {
		m.acceptScore = score
	}
}

// WithSuggestScore sets the minimum score for a candidate to appear in
// [Matcher.Suggestions]. Default: 40.
func WithSuggestScore(score float64) Option {
	return func(m *Matcher) {
		m.suggestScore = score
	}
}

// WithSuggestLimit caps the number of suggestions returned. Default: 5.
func WithSuggestLimit(limit int) Option {
	return func(m *Matcher) {
		m.suggestLimit = limit
	}
}

// Matcher resolves free-text city or airport names to destination codes.
//
// The matching strategy is applied in order:
//
//  1. Exact/substring match — the normalized query equals the code or IATA
//     code, or is a substring of the normalized name.
//  2. Token subset — every query token appears in the normalized name.
//  3. Fuzzy — best partial-ratio score against the full normalized name and
//     its first word; accepted only at or above the accept threshold.
//
// The first catalogue entry encountered wins score ties, so results are
// deterministic for a fixed catalogue order. Matcher is read-only after
// construction and safe for concurrent use.
type Matcher struct {
	acceptScore  float64
	suggestScore float64
	suggestLimit int
}

// NewMatcher returns a Matcher configured with the supplied options.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		acceptScore:  defaultAcceptScore,
		suggestScore: defaultSuggestScore,
		suggestLimit: defaultSuggestLimit,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// MatchCode returns the code of the catalogue entry best matching query, or
// ok=false when no entry reaches the accept threshold.
func (m *Matcher) MatchCode(query string, catalog []CatalogEntry) (string, bool) {
	clean := cleanText(query)
	if clean == "" {
		return "", false
	}
	queryWords := strings.Fields(clean)

	bestCode := ""
	bestScore := 0.0

	for _, dest := range catalog {
		name := cleanText(dest.Name)
		code := strings.ToLower(dest.Code)
		iata := strings.ToLower(dest.IATA)

		if clean == code || (iata != "" && clean == iata) || (name != "" && strings.Contains(name, clean)) {
			return dest.Code, true
		}
		if name != "" && containsAll(name, queryWords) {
			return dest.Code, true
		}

		if score := m.score(clean, name); score > bestScore {
			bestScore = score
			bestCode = dest.Code
		}
	}

	if bestScore >= m.acceptScore {
		return bestCode, true
	}
	return "", false
}

// Suggestions returns up to the configured limit of candidates scoring at or
// above the suggest threshold, ordered by descending score. Catalogue order
// breaks ties.
func (m *Matcher) Suggestions(query string, catalog []CatalogEntry) []Suggestion {
	clean := cleanText(query)
	if clean == "" {
		return nil
	}

	var out []Suggestion
	for _, dest := range catalog {
		score := m.score(clean, cleanText(dest.Name))
		if score >= m.suggestScore {
			out = append(out, Suggestion{Code: dest.Code, Name: dest.Name, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > m.suggestLimit {
		out = out[:m.suggestLimit]
	}
	return out
}

// score is the fuzzy score for query against a normalized destination name:
// the best partial ratio versus the full name and versus its first word.
func (m *Matcher) score(query, name string) float64 {
	if name == "" {
		return 0
	}
	score := partialRatio(query, name)
	if first, _, found := strings.Cut(name, " "); found {
		if s := partialRatio(query, first); s > score {
			score = s
		}
	}
	return score
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9 ]+`)

// cleanText lowercases, strips non-alphanumerics, and collapses whitespace.
func cleanText(s string) string {
	s = strings.ToLower(s)
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// containsAll reports whether every word occurs in name as a substring.
func containsAll(name string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !strings.Contains(name, w) {
			return false
		}
	}
	return true
}

// partialRatio scores the similarity of the shorter string against the most
// similar equal-length window of the longer string, scaled 0–100. Similarity
// per window is Levenshtein-based.
func partialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	best := 0.0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := longer[i : i+len(shorter)]
		if r := levRatio(shorter, window); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// levRatio converts a Levenshtein distance into a 0–100 similarity score.
func levRatio(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 100
	}
	dist := matchr.Levenshtein(a, b)
	return 100 * (1 - float64(dist)/float64(longest))
}
