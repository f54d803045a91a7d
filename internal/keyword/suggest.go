package keyword

import (
	"sort"
	"strings"
)

// Suggester proposes "Did you mean?" queries by replacing unknown query
// terms with the closest indexed term.
type Suggester struct {
	dictionary  TermDictionary
	maxDistance int
	minFreq     int
}

// SuggesterOption configures a Suggester.
type SuggesterOption func(*Suggester)

// WithMaxDistance sets the maximum edit distance for a replacement term.
func WithMaxDistance(d int) SuggesterOption {
	return func(s *Suggester) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores dictionary terms found in fewer than f documents.
func WithMinFrequency(f int) SuggesterOption {
	return func(s *Suggester) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// NewSuggester creates a Suggester over dict.
func NewSuggester(dict TermDictionary, opts ...SuggesterOption) *Suggester {
	s := &Suggester{dictionary: dict, maxDistance: 2, minFreq: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest returns the corrected query, or nil when every term is known or
// no unknown term has a close match.
func (s *Suggester) Suggest(query string) ([]string, error) {
	terms, err := s.dictionary.Terms()
	if err != nil {
		return nil, err
	}
	words := tokenizeQuery(query)
	corrected := make([]string, 0, len(words))
	changed := false
	for _, w := range words {
		if _, ok := terms[w]; ok {
			corrected = append(corrected, w)
			continue
		}
		if alt, ok := s.closest(w, terms); ok {
			corrected = append(corrected, alt)
			changed = true
			continue
		}
		corrected = append(corrected, w)
	}
	if !changed {
		return nil, nil
	}
	return []string{strings.Join(corrected, " ")}, nil
}

// closest picks the dictionary term with the smallest distance to word,
// preferring more frequent terms, then alphabetical order.
func (s *Suggester) closest(word string, terms map[string]int) (string, bool) {
	type candidate struct {
		term string
		dist int
		freq int
	}
	var cands []candidate
	wordLen := len([]rune(word))
	for term, freq := range terms {
		if freq < s.minFreq {
			continue
		}
		if d := len([]rune(term)) - wordLen; d > s.maxDistance || -d > s.maxDistance {
			continue
		}
		if dist := editDistance(word, term); dist <= s.maxDistance {
			cands = append(cands, candidate{term, dist, freq})
		}
	}
	if len(cands) == 0 {
		return "", false
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.freq != b.freq {
			return a.freq > b.freq
		}
		return a.term < b.term
	})
	return cands[0].term, true
}

// editDistance is the Levenshtein distance between a and b in runes.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
