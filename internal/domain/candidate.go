package domain

import "time"

// SourceMode identifies how a candidate's URL must be handled when dispatched.
type SourceMode string

const (
	ModeNZB     SourceMode = "nzb"
	ModeTorznab SourceMode = "torznab"
	ModeTorrent SourceMode = "torrent"
	ModeMagnet  SourceMode = "magnet"
	ModeDirect  SourceMode = "direct"
	ModeRSS     SourceMode = "rss"
)

// DefaultCandidateSize is filled in when a provider omits the release size.
const DefaultCandidateSize int64 = 1000

// CandidateResult is one raw row returned by a search provider for a wanted
// item. Ephemeral: produced per search call, discarded after scoring.
type CandidateResult struct {
	Provider  string
	RawTitle  string
	URL       string
	SizeBytes int64
	Mode      SourceMode
	Priority  int
	Published *time.Time
}

// RejectionReason explains why a candidate was excluded before scoring.
type RejectionReason string

const (
	RejectNoURL       RejectionReason = "no url"
	RejectBlacklisted RejectionReason = "blacklisted"
	RejectInvalidURL  RejectionReason = "invalid url"
	RejectWord        RejectionReason = "reject word"
	RejectTooLarge    RejectionReason = "too large"
	RejectTooSmall    RejectionReason = "too small"
)

// ScoredCandidate is the outcome of scoring one candidate against one wanted
// item. A rejected candidate is never selectable regardless of score.
type ScoredCandidate struct {
	Score           int
	NormalizedTitle string
	Priority        int
	Candidate       CandidateResult
	Rejected        bool
	RejectionReason RejectionReason
}
