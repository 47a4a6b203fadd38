package search

import (
	"context"

	"github.com/sirupsen/logrus"

	"bookarr/internal/domain"
)

// Selector runs the normalize/reject/score pipeline over a candidate list and
// picks the single best admissible candidate.
type Selector struct {
	Log      *logrus.Logger
	Failures FailureLookup
	Rules    map[domain.ItemKind]KindRules
}

func NewSelector(log *logrus.Logger, failures FailureLookup, rules map[domain.ItemKind]KindRules) *Selector {
	if log == nil {
		log = logrus.New()
	}
	return &Selector{Log: log, Failures: failures, Rules: rules}
}

// SelectBest returns the admissible candidate with the lexicographically
// greatest (score, priority) pair, or nil when every candidate was rejected
// or the list was empty. Rejections are logged with their reason; a candidate
// whose scoring panics is treated as rejected and the pass continues.
func (s *Selector) SelectBest(ctx context.Context, candidates []domain.CandidateResult, wanted domain.WantedItem, st SearchType) *domain.ScoredCandidate {
	rules := s.Rules[wanted.Kind]
	var best *domain.ScoredCandidate

	for i := range candidates {
		scored := s.scoreOne(ctx, candidates[i], wanted, st, rules)
		if scored.Rejected {
			s.Log.WithFields(logrus.Fields{
				"provider": scored.Candidate.Provider,
				"title":    scored.Candidate.RawTitle,
				"reason":   scored.RejectionReason,
			}).Debug("candidate rejected")
			continue
		}
		if best == nil ||
			scored.Score > best.Score ||
			(scored.Score == best.Score && scored.Priority > best.Priority) {
			c := scored
			best = &c
		}
	}

	return best
}

func (s *Selector) scoreOne(ctx context.Context, c domain.CandidateResult, wanted domain.WantedItem, st SearchType, rules KindRules) (scored domain.ScoredCandidate) {
	// A single malformed candidate must never abort the whole selection.
	defer func() {
		if r := recover(); r != nil {
			s.Log.WithField("title", c.RawTitle).Warnf("scoring candidate panicked: %v", r)
			scored = domain.ScoredCandidate{
				Candidate:       c,
				Rejected:        true,
				RejectionReason: domain.RejectInvalidURL,
			}
		}
	}()

	if c.SizeBytes <= 0 {
		c.SizeBytes = domain.DefaultCandidateSize
	}

	normTitle := Normalize(c.RawTitle)
	scored = domain.ScoredCandidate{
		NormalizedTitle: normTitle,
		Priority:        c.Priority,
		Candidate:       c,
	}

	if reason, rejected := Reject(ctx, c, wanted, s.Failures, rules); rejected {
		scored.Rejected = true
		scored.RejectionReason = reason
		return scored
	}

	scored.Score = Score(wanted, c.RawTitle, st, rules.FormatWords)
	return scored
}
