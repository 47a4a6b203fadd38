package search

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"bookarr/internal/domain"
	"bookarr/internal/provider"
)

// Phase is one of the progressively looser search-phrase strategies.
type Phase string

const (
	PhaseExact            Phase = "exact"
	PhaseShortened        Phase = "shortened"
	PhaseGeneral          Phase = "general"
	PhaseShortenedGeneral Phase = "shortened-general"
	PhaseExhausted        Phase = "exhausted"
)

// Result is the structured outcome of one escalation run. Exhaustion without
// a match is an expected outcome, not an error.
type Result struct {
	Found     bool
	Candidate *domain.ScoredCandidate
	Phase     Phase
}

// Escalator drives the selector across search phases and source categories.
// Escalation is per phrase, not per source: all enabled categories contribute
// to one pool before the max-pick, so a weak NZB match cannot shadow a strong
// torrent match found in the same phase.
type Escalator struct {
	Selector  *Selector
	Registry  *provider.Registry
	Threshold int
	Throttle  *WarningThrottle
	Log       *logrus.Logger
}

type attempt struct {
	phase  Phase
	phrase string
	st     SearchType
}

// Run tries each applicable phase in order, stopping at the first candidate
// that clears the acceptance threshold. The best below-threshold candidate
// seen across all phases is retained as the nearest match.
func (e *Escalator) Run(ctx context.Context, wanted domain.WantedItem, categories []provider.Category) Result {
	log := e.Log.WithFields(logrus.Fields{"item": wanted.ID, "kind": wanted.Kind})
	var nearest *domain.ScoredCandidate

	for _, p := range e.attempts(wanted) {
		pool := e.gather(ctx, p.phrase, categories, log)
		if len(pool) == 0 {
			continue
		}

		best := e.Selector.SelectBest(ctx, pool, wanted, p.st)
		if best == nil {
			continue
		}
		if best.Score >= e.Threshold {
			log.WithFields(logrus.Fields{
				"phase": p.phase,
				"score": best.Score,
				"title": best.Candidate.RawTitle,
			}).Info("match accepted")
			return Result{Found: true, Candidate: best, Phase: p.phase}
		}
		if nearest == nil || best.Score > nearest.Score {
			nearest = best
		}
	}

	if nearest != nil {
		log.WithFields(logrus.Fields{
			"score":     nearest.Score,
			"threshold": e.Threshold,
			"title":     nearest.Candidate.RawTitle,
		}).Info("no result cleared the threshold, keeping nearest match")
	} else {
		log.Info("no results")
	}
	return Result{Found: false, Candidate: nearest, Phase: PhaseExhausted}
}

// gather pools candidates for one phrase from every enabled category. A
// category with no configured sources is skipped with a throttled warning;
// a source error counts as an empty result list.
func (e *Escalator) gather(ctx context.Context, phrase string, categories []provider.Category, log *logrus.Entry) []domain.CandidateResult {
	var pool []domain.CandidateResult
	for _, cat := range categories {
		sources := e.Registry.ByCategory(cat)
		if len(sources) == 0 {
			if e.Throttle == nil || e.Throttle.Allow(string(cat)) {
				log.Warnf("no %s sources configured, skipping category", cat)
			}
			continue
		}
		for _, src := range sources {
			results, err := src.Search(ctx, phrase)
			if err != nil {
				log.WithField("source", src.Name()).Warnf("search failed: %v", err)
				continue
			}
			for i := range results {
				if results[i].Provider == "" {
					results[i].Provider = src.Name()
				}
				if results[i].Priority == 0 {
					results[i].Priority = src.Priority()
				}
			}
			pool = append(pool, results...)
		}
	}
	return pool
}

func (e *Escalator) attempts(wanted domain.WantedItem) []attempt {
	exactType := SearchBook
	shortType := SearchShortBook
	switch wanted.Kind {
	case domain.KindAudioBook:
		exactType, shortType = SearchAudio, SearchAudio
	case domain.KindMagazine:
		exactType, shortType = SearchGeneral, SearchGeneral
	}

	// A phrase already queued earlier would hit the sources with the exact
	// same query, so later phases that repeat it are skipped. Magazines,
	// having no author, would otherwise re-run the exact phrase as general.
	var attempts []attempt
	seen := make(map[string]bool)
	add := func(p attempt) {
		if seen[p.phrase] {
			return
		}
		seen[p.phrase] = true
		attempts = append(attempts, p)
	}

	add(attempt{PhaseExact, wanted.SearchTerm(), exactType})

	short, ok := shortenTitle(wanted.Title)
	if ok {
		phrase := short
		if wanted.AuthorName != "" {
			phrase = wanted.AuthorName + " " + short
		}
		add(attempt{PhaseShortened, phrase, shortType})
	}

	add(attempt{PhaseGeneral, wanted.Title, SearchGeneral})
	if ok {
		add(attempt{PhaseShortenedGeneral, short, SearchGeneral})
	}
	return attempts
}

// shortenTitle strips a trailing parenthesized segment, e.g. series markers
// like "The Portable Door (J.W. Wells & Co. 1)". Only applicable when the
// title actually carries one.
func shortenTitle(title string) (string, bool) {
	i := strings.Index(title, "(")
	if i < 0 {
		return "", false
	}
	short := strings.TrimSpace(title[:i])
	if short == "" || short == title {
		return "", false
	}
	return short, true
}
