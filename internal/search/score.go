package search

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"bookarr/internal/domain"
)

// SearchType selects the scoring shape for one selector pass.
type SearchType string

const (
	SearchBook      SearchType = "book"
	SearchShortBook SearchType = "shortbook"
	SearchGeneral   SearchType = "general"
	SearchAudio     SearchType = "audio"
)

// Score computes the match score of a raw candidate title against a wanted
// item. The base is a fuzzy token-set ratio (author/title average for book
// and audio passes, single combined ratio when no separate author exists),
// adjusted down by one per extra unrelated token and up by one per advertised
// wanted file format. The ratio works on the digit-stripped normalization;
// the token walk keeps digits so format words like "mp3" stay matchable.
// The result is never clamped and may be negative; callers compare it
// against the configured acceptance threshold.
func Score(wanted domain.WantedItem, rawTitle string, st SearchType, formatWords []string) int {
	normTitle := Normalize(rawTitle)

	var base int
	if st == SearchGeneral || wanted.AuthorName == "" {
		base = TokenSetRatio(Normalize(wanted.SearchTerm()), normTitle)
	} else {
		authorScore := TokenSetRatio(Normalize(wanted.AuthorName), normTitle)
		titleScore := TokenSetRatio(Normalize(wanted.Title), normTitle)
		base = (authorScore + titleScore) / 2
	}

	wantedTokens := lowerTokenSet(NormalizeKeepDigits(wanted.AuthorName) + " " + NormalizeKeepDigits(wanted.Title))
	formats := make(map[string]bool, len(formatWords))
	for _, f := range formatWords {
		formats[strings.ToLower(f)] = true
	}

	extra := 0
	formatBonus := 0
	for _, tok := range strings.Fields(strings.ToLower(NormalizeKeepDigits(rawTitle))) {
		switch {
		case wantedTokens[tok]:
		case formats[tok]:
			formatBonus++
		default:
			extra++
		}
	}

	return base - extra + formatBonus
}

// TokenSetRatio is an order-independent fuzzy similarity over the word-token
// sets of two strings, 0-100. Robust to word reordering and extra bracketed
// noise: the shared token core is compared against each full token set and
// the best of the three pairings wins.
func TokenSetRatio(a, b string) int {
	ta := sortedTokens(a)
	tb := sortedTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(ta))
	for _, t := range ta {
		setA[t] = true
	}
	setB := make(map[string]bool, len(tb))
	for _, t := range tb {
		setB[t] = true
	}

	var common, onlyA, onlyB []string
	for _, t := range ta {
		if setB[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range tb {
		if !setA[t] {
			onlyB = append(onlyB, t)
		}
	}

	core := strings.Join(common, " ")
	full1 := strings.TrimSpace(core + " " + strings.Join(onlyA, " "))
	full2 := strings.TrimSpace(core + " " + strings.Join(onlyB, " "))

	best := similarity(core, full1)
	if s := similarity(core, full2); s > best {
		best = s
	}
	if s := similarity(full1, full2); s > best {
		best = s
	}
	return best
}

func similarity(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return int(sim * 100)
}

// sortedTokens lowercases, splits and dedupes, returning sorted unique tokens.
func sortedTokens(s string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		if !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	sort.Strings(tokens)
	return tokens
}
