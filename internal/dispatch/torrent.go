package dispatch

import (
	"context"

	"bookarr/internal/domain"
	"bookarr/internal/downloader"
)

// TorrentAdapter routes torrent, magnet and torznab candidates to the
// built-in torrent download manager.
type TorrentAdapter struct {
	manager downloader.Manager
}

func NewTorrentAdapter(m downloader.Manager) *TorrentAdapter {
	return &TorrentAdapter{manager: m}
}

func (t *TorrentAdapter) Submit(ctx context.Context, c domain.CandidateResult, wanted domain.WantedItem) (string, error) {
	return t.manager.Snatch(ctx, downloader.Job{
		URL:    c.URL,
		ItemID: wanted.ID,
		Kind:   wanted.Kind,
	})
}

var _ DownloadAdapter = (*TorrentAdapter)(nil)
