package ide

import (
	"regexp"
	"strings"
)

// Candidate matching tiers, highest first. The tier a selection was made
// at is reported for diagnostics.
const (
	matchTierExact   = 1 // exact normalized-text equality
	matchTierAll     = 2 // candidate contains every requested token
	matchTierRelaxed = 3 // candidate contains the family token and at least half of the rest
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeLabel lowercases and collapses whitespace.
func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// tokenize splits a name on non-alphanumerics, lowercased, dropping empties.
func tokenize(s string) []string {
	parts := nonAlnumRe.Split(strings.ToLower(s), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenize(s) {
		set[tok] = true
	}
	return set
}

// matchCandidate selects the candidate that best matches the requested
// name. The first candidate meeting the highest satisfied tier wins; ties
// within a tier are broken by discovery order. Returns the index, the tier
// matched at, and whether anything matched.
//
// The relaxed tier breaks ties purely by discovery order with no
// similarity scoring, so variants sharing tokens can shadow one another.
func matchCandidate(requested string, candidates []string) (int, int, bool) {
	wantNorm := normalizeLabel(requested)
	wantTokens := tokenize(requested)
	if wantNorm == "" || len(wantTokens) == 0 {
		return 0, 0, false
	}

	// Tier 1: exact normalized equality.
	for i, c := range candidates {
		if normalizeLabel(c) == wantNorm {
			return i, matchTierExact, true
		}
	}

	// Tier 2: candidate contains every requested token.
	for i, c := range candidates {
		if containsAllTokens(tokenSet(c), wantTokens) {
			return i, matchTierAll, true
		}
	}

	// Tier 3: family token plus at least half of the remaining tokens.
	family := wantTokens[0]
	rest := wantTokens[1:]
	for i, c := range candidates {
		set := tokenSet(c)
		if !set[family] {
			continue
		}
		matched := 0
		for _, tok := range rest {
			if set[tok] {
				matched++
			}
		}
		if matched*2 >= len(rest) {
			return i, matchTierRelaxed, true
		}
	}

	return 0, 0, false
}

func containsAllTokens(set map[string]bool, tokens []string) bool {
	for _, tok := range tokens {
		if !set[tok] {
			return false
		}
	}
	return true
}
