package dispatch

import (
	"context"

	"bookarr/internal/domain"
)

// DownloadAdapter hands a chosen candidate to one family of download
// clients. Implementations return the client-assigned download ID.
type DownloadAdapter interface {
	Submit(ctx context.Context, c domain.CandidateResult, wanted domain.WantedItem) (downloadID string, err error)
}

// adapterFor maps a candidate's source mode to the adapter family. The mode
// is inspected once here, never scattered through the dispatch logic.
func (d *Dispatcher) adapterFor(mode domain.SourceMode) DownloadAdapter {
	switch mode {
	case domain.ModeNZB:
		return d.nzb
	case domain.ModeTorrent, domain.ModeMagnet, domain.ModeTorznab:
		return d.torrent
	case domain.ModeDirect, domain.ModeRSS:
		return d.direct
	default:
		return nil
	}
}
