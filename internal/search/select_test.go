package search

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookarr/internal/domain"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testRules() map[domain.ItemKind]KindRules {
	return map[domain.ItemKind]KindRules{
		domain.KindEBook: {
			RejectWords: []string{"audiobook"},
			FormatWords: []string{"epub", "mobi"},
		},
	}
}

func TestSelectBestPicksHighestScore(t *testing.T) {
	t.Parallel()

	sel := NewSelector(quietLogger(), nil, testRules())
	wanted := domain.WantedItem{ID: "b1", Kind: domain.KindEBook, AuthorName: "Tom Holt", Title: "Blonde Bombshell"}

	candidates := []domain.CandidateResult{
		{Provider: "a", RawTitle: "Blonde Bombshell", URL: "http://a", Priority: 9},
		{Provider: "b", RawTitle: "Tom Holt - Blonde Bombshell ePUB", URL: "http://b", Priority: 1},
		{Provider: "c", RawTitle: "Something Else Entirely", URL: "http://c", Priority: 9},
	}

	best := sel.SelectBest(context.Background(), candidates, wanted, SearchBook)
	require.NotNil(t, best)
	assert.Equal(t, "b", best.Candidate.Provider, "score beats priority")
}

func TestSelectBestTieBreaksOnPriority(t *testing.T) {
	t.Parallel()

	sel := NewSelector(quietLogger(), nil, testRules())
	wanted := domain.WantedItem{ID: "b1", Kind: domain.KindEBook, AuthorName: "Tom Holt", Title: "Blonde Bombshell"}

	candidates := []domain.CandidateResult{
		{Provider: "low", RawTitle: "Tom Holt Blonde Bombshell", URL: "http://low", Priority: 1},
		{Provider: "high", RawTitle: "Tom Holt Blonde Bombshell", URL: "http://high", Priority: 3},
	}

	best := sel.SelectBest(context.Background(), candidates, wanted, SearchBook)
	require.NotNil(t, best)
	assert.Equal(t, "high", best.Candidate.Provider)
}

func TestSelectBestFullTieKeepsFirst(t *testing.T) {
	t.Parallel()

	sel := NewSelector(quietLogger(), nil, testRules())
	wanted := domain.WantedItem{ID: "b1", Kind: domain.KindEBook, AuthorName: "Tom Holt", Title: "Blonde Bombshell"}

	candidates := []domain.CandidateResult{
		{Provider: "first", RawTitle: "Tom Holt Blonde Bombshell", URL: "http://1", Priority: 2},
		{Provider: "second", RawTitle: "Tom Holt Blonde Bombshell", URL: "http://2", Priority: 2},
	}

	best := sel.SelectBest(context.Background(), candidates, wanted, SearchBook)
	require.NotNil(t, best)
	assert.Equal(t, "first", best.Candidate.Provider)
}

func TestSelectBestSkipsRejected(t *testing.T) {
	t.Parallel()

	failures := &stubFailures{failed: map[string]bool{"http://blacklisted": true}}
	sel := NewSelector(quietLogger(), failures, testRules())
	wanted := domain.WantedItem{ID: "b1", Kind: domain.KindEBook, AuthorName: "Tom Holt", Title: "Blonde Bombshell"}

	candidates := []domain.CandidateResult{
		{Provider: "perfect-but-blacklisted", RawTitle: "Tom Holt Blonde Bombshell ePUB", URL: "http://blacklisted"},
		{Provider: "wrong-format", RawTitle: "Tom Holt Blonde Bombshell AUDIOBOOK", URL: "http://a"},
		{Provider: "ok", RawTitle: "Blonde Bombshell by Tom Holt", URL: "http://ok"},
	}

	best := sel.SelectBest(context.Background(), candidates, wanted, SearchBook)
	require.NotNil(t, best)
	assert.Equal(t, "ok", best.Candidate.Provider)
}

func TestSelectBestAllRejectedReturnsNil(t *testing.T) {
	t.Parallel()

	sel := NewSelector(quietLogger(), nil, testRules())
	wanted := domain.WantedItem{ID: "b1", Kind: domain.KindEBook, Title: "Blonde Bombshell"}

	candidates := []domain.CandidateResult{
		{Provider: "a", RawTitle: "Blonde Bombshell"},
		{Provider: "b", RawTitle: "Blonde Bombshell", URL: "ftp://nope"},
	}

	assert.Nil(t, sel.SelectBest(context.Background(), candidates, wanted, SearchBook))
}

func TestSelectBestBackfillsUnknownSize(t *testing.T) {
	t.Parallel()

	sel := NewSelector(quietLogger(), nil, testRules())
	wanted := domain.WantedItem{ID: "b1", Kind: domain.KindEBook, AuthorName: "Tom Holt", Title: "Blonde Bombshell"}

	candidates := []domain.CandidateResult{
		{Provider: "a", RawTitle: "Tom Holt Blonde Bombshell", URL: "http://a"},
	}

	best := sel.SelectBest(context.Background(), candidates, wanted, SearchBook)
	require.NotNil(t, best)
	assert.Equal(t, domain.DefaultCandidateSize, best.Candidate.SizeBytes)
}

func TestSelectBestEmptyInput(t *testing.T) {
	t.Parallel()

	sel := NewSelector(quietLogger(), nil, testRules())
	assert.Nil(t, sel.SelectBest(context.Background(), nil, domain.WantedItem{Kind: domain.KindEBook}, SearchBook))
}
