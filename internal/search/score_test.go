package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bookarr/internal/domain"
)

func TestTokenSetRatio(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, TokenSetRatio("blonde bombshell", "Bombshell Blonde"), "order independent")
	assert.Equal(t, 100, TokenSetRatio("tom holt", "tom holt dystop sfx humour"), "extra noise around a full subset")
	assert.Equal(t, 0, TokenSetRatio("", "anything"))
	assert.Equal(t, 0, TokenSetRatio("anything", ""))

	near := TokenSetRatio("blonde bombshell", "blonde bombshel")
	assert.Greater(t, near, 70, "single typo stays close")
	assert.Less(t, near, 100)

	far := TokenSetRatio("blonde bombshell", "unrelated release name")
	assert.Less(t, far, near)
}

func TestScoreFullMatchWithFormatBonus(t *testing.T) {
	t.Parallel()

	wanted := domain.WantedItem{Kind: domain.KindEBook, AuthorName: "Tom Holt", Title: "Blonde Bombshell"}
	formats := []string{"epub", "mobi"}

	// Every token is either wanted or a format word: 100 base, +2 bonus.
	score := Score(wanted, "Tom Holt - Blonde Bombshell ePUB+MOBI", SearchBook, formats)
	assert.Equal(t, 102, score)
}

func TestScoreExtraTokenPenalty(t *testing.T) {
	t.Parallel()

	wanted := domain.WantedItem{Kind: domain.KindEBook, AuthorName: "Tom Holt", Title: "Blonde Bombshell"}

	clean := Score(wanted, "Tom Holt Blonde Bombshell", SearchBook, nil)
	noisy := Score(wanted, "Tom Holt Blonde Bombshell retail repack", SearchBook, nil)
	assert.Equal(t, 100, clean)
	assert.Equal(t, clean-2, noisy)
}

func TestScoreDigitFormatWordGetsBonus(t *testing.T) {
	t.Parallel()

	wanted := domain.WantedItem{Kind: domain.KindAudioBook, AuthorName: "Tom Holt", Title: "Blonde Bombshell"}

	withFormat := Score(wanted, "Tom Holt Blonde Bombshell MP3", SearchAudio, []string{"mp3", "m4b"})
	without := Score(wanted, "Tom Holt Blonde Bombshell MP3", SearchAudio, nil)
	assert.Equal(t, 101, withFormat)
	assert.Equal(t, 99, without, "unlisted format counts as an extra token")
}

func TestScoreMissingAuthorPullsAverageDown(t *testing.T) {
	t.Parallel()

	wanted := domain.WantedItem{Kind: domain.KindEBook, AuthorName: "Tom Holt", Title: "Blonde Bombshell"}

	full := Score(wanted, "Tom Holt Blonde Bombshell", SearchBook, nil)
	titleOnly := Score(wanted, "Blonde Bombshell", SearchBook, nil)
	assert.Less(t, titleOnly, full)
	assert.Less(t, titleOnly, 90, "title-only release should not clear a strict threshold")
}

func TestScoreGeneralUsesCombinedPhrase(t *testing.T) {
	t.Parallel()

	// Magazines carry no author; the combined phrase is the whole target.
	wanted := domain.WantedItem{Kind: domain.KindMagazine, Title: "The Economist"}

	score := Score(wanted, "The Economist 2024-08", SearchGeneral, []string{"pdf"})
	// Base 100, minus one extra token ("2024 08" collapses to one dateish
	// token after punctuation handling, digits kept in the walk).
	assert.GreaterOrEqual(t, score, 98)
}

func TestScoreCanGoNegative(t *testing.T) {
	t.Parallel()

	wanted := domain.WantedItem{Kind: domain.KindEBook, AuthorName: "Tom Holt", Title: "Blonde Bombshell"}
	score := Score(wanted, "completely different massive bundle pack one two three four five six seven eight nine ten "+
		"eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty", SearchBook, nil)
	assert.Negative(t, score)
}
