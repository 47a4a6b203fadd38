package search

import (
	"context"
	"strings"

	"bookarr/internal/domain"
)

// FailureLookup consults the permanent URL blacklist built from previously
// failed dispatches.
type FailureLookup interface {
	HasFailed(ctx context.Context, url string) (bool, error)
}

// Bounds are per-kind release size limits in MB. Zero disables a bound.
type Bounds struct {
	MinMB int64
	MaxMB int64
}

// KindRules bundles the rejection and scoring inputs selected by item kind.
type KindRules struct {
	RejectWords []string
	FormatWords []string
	Bounds      Bounds
}

// Reject applies the hard exclusion rules to a single candidate. The first
// matching rule wins. Pure decision; the caller logs the reason.
func Reject(ctx context.Context, c domain.CandidateResult, wanted domain.WantedItem, failures FailureLookup, rules KindRules) (domain.RejectionReason, bool) {
	if c.URL == "" {
		return domain.RejectNoURL, true
	}
	if failures != nil {
		if failed, err := failures.HasFailed(ctx, c.URL); err == nil && failed {
			return domain.RejectBlacklisted, true
		}
	}
	if !strings.HasPrefix(c.URL, "http") && !strings.HasPrefix(c.URL, "magnet") {
		return domain.RejectInvalidURL, true
	}
	if rejectWordHit(c.RawTitle, wanted, rules.RejectWords) {
		return domain.RejectWord, true
	}
	sizeMB := c.SizeBytes / 1024 / 1024
	if rules.Bounds.MaxMB > 0 && sizeMB > rules.Bounds.MaxMB {
		return domain.RejectTooLarge, true
	}
	if rules.Bounds.MinMB > 0 && sizeMB < rules.Bounds.MinMB {
		return domain.RejectTooSmall, true
	}
	return "", false
}

// rejectWordHit reports whether any reject word appears as a whole token in
// the candidate title without also being part of the wanted author or title.
// Legitimate words that happen to be on the reject list are not penalized.
// Tokenization keeps digits so words like "mp3" stay matchable.
func rejectWordHit(rawTitle string, wanted domain.WantedItem, rejectWords []string) bool {
	if len(rejectWords) == 0 {
		return false
	}
	titleTokens := lowerTokenSet(NormalizeKeepDigits(rawTitle))
	wantedTokens := lowerTokenSet(NormalizeKeepDigits(wanted.AuthorName) + " " + NormalizeKeepDigits(wanted.Title))
	for _, word := range rejectWords {
		w := strings.ToLower(strings.TrimSpace(word))
		if w == "" {
			continue
		}
		if titleTokens[w] && !wantedTokens[w] {
			return true
		}
	}
	return false
}

func lowerTokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		set[tok] = true
	}
	return set
}
