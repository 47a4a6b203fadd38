package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"bookarr/internal/domain"
	"bookarr/internal/downloader"
	"bookarr/internal/repository"
)

// Outcome classifies one dispatch attempt.
type Outcome string

const (
	OutcomeAlreadySnatched Outcome = "already-snatched"
	OutcomeDispatched      Outcome = "dispatched"
	OutcomeDispatchFailed  Outcome = "dispatch-failed"
)

// Notifier receives snatch events. The delivery mechanism is an external
// collaborator; a nil Notifier disables notifications.
type Notifier func(rec domain.WantedRecord)

// Dispatcher persists the decision for a winning candidate and hands it to
// the matching download-client adapter. It exclusively owns writes to the
// wanted-record history.
type Dispatcher struct {
	items   repository.WantedItemRepository
	history repository.HistoryRepository
	nzb     DownloadAdapter
	torrent DownloadAdapter
	direct  DownloadAdapter
	notify  Notifier
	log     *logrus.Logger
}

type Config struct {
	NZBClient      *NZBClient
	TorrentManager downloader.Manager
	DataDir        string
	Notify         Notifier
	Logger         *logrus.Logger
}

func NewDispatcher(items repository.WantedItemRepository, history repository.HistoryRepository, cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	d := &Dispatcher{
		items:   items,
		history: history,
		direct:  NewDirectFetcher(cfg.DataDir),
		notify:  cfg.Notify,
		log:     cfg.Logger,
	}
	if cfg.NZBClient != nil {
		d.nzb = cfg.NZBClient
	}
	if cfg.TorrentManager != nil {
		d.torrent = NewTorrentAdapter(cfg.TorrentManager)
	}
	return d
}

// Dispatch hands the winning candidate to its download client and records the
// state transition. Dispatching a URL that is already snatched for the item's
// kind is a no-op; a failed dispatch permanently blacklists the URL.
func (d *Dispatcher) Dispatch(ctx context.Context, cand domain.ScoredCandidate, wanted domain.WantedItem) (Outcome, error) {
	log := d.log.WithFields(logrus.Fields{"item": wanted.ID, "url": cand.Candidate.URL})

	// Concurrent searches can both find a winner; whoever lands second must
	// observe the updated status and back off.
	switch current, err := d.items.Get(ctx, wanted.ID, wanted.Kind); {
	case errors.Is(err, repository.ErrNotFound):
		// Nothing stored for the item means nothing to guard against.
	case err != nil:
		log.Warnf("status check before dispatch failed, proceeding without the duplicate guard: %v", err)
	case current.StatusForKind() == domain.ItemStatusSnatched:
		log.Info("item already snatched, skipping dispatch")
		return OutcomeAlreadySnatched, nil
	}

	rec := domain.WantedRecord{
		URL:      cand.Candidate.URL,
		Provider: cand.Candidate.Provider,
		ItemID:   wanted.ID,
		AuxInfo:  wanted.Kind,
		Size:     cand.Candidate.SizeBytes,
		Title:    cand.Candidate.RawTitle,
		Mode:     cand.Candidate.Mode,
		Status:   domain.RecordStatusSkipped,
	}
	if err := d.history.Upsert(ctx, &rec); err != nil {
		return OutcomeDispatchFailed, fmt.Errorf("persist pending record: %w", err)
	}

	adapter := d.adapterFor(cand.Candidate.Mode)
	if adapter == nil {
		d.recordFailure(ctx, rec.URL, fmt.Sprintf("no download client for mode %q", cand.Candidate.Mode))
		return OutcomeDispatchFailed, nil
	}

	downloadID, err := adapter.Submit(ctx, cand.Candidate, wanted)
	if err != nil {
		log.Warnf("dispatch failed: %v", err)
		d.recordFailure(ctx, rec.URL, err.Error())
		return OutcomeDispatchFailed, nil
	}

	if err := d.history.UpdateStatus(ctx, rec.URL, domain.RecordStatusSnatched, downloadID, "snatched"); err != nil {
		log.Errorf("persist snatched record: %v", err)
	}
	if err := d.items.UpdateStatus(ctx, wanted.ID, wanted.Kind, domain.ItemStatusSnatched); err != nil {
		log.Errorf("update item status: %v", err)
	}

	rec.Status = domain.RecordStatusSnatched
	rec.DownloadID = downloadID
	if d.notify != nil {
		d.notify(rec)
	}

	log.WithField("download_id", downloadID).Info("candidate snatched")
	return OutcomeDispatched, nil
}

// recordFailure must land in the store: once Failed, the URL is blacklisted
// for every future search. One retry covers transient persistence errors;
// silent loss is not acceptable.
func (d *Dispatcher) recordFailure(ctx context.Context, url, msg string) {
	err := d.history.UpdateStatus(ctx, url, domain.RecordStatusFailed, "", msg)
	if err != nil {
		d.log.WithField("url", url).Warnf("persist failed record, retrying: %v", err)
		if err = d.history.UpdateStatus(ctx, url, domain.RecordStatusFailed, "", msg); err != nil {
			d.log.WithField("url", url).Errorf("persist failed record lost: %v", err)
		}
	}
}
