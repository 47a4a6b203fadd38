package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"bookarr/internal/dispatch"
	"bookarr/internal/domain"
	"bookarr/internal/downloader"
	"bookarr/internal/provider"
	"bookarr/internal/repository"
	"bookarr/internal/search"
)

var (
	// ErrItemNotFound is returned when a wanted item does not exist.
	ErrItemNotFound = errors.New("wanted item not found")
)

// SearchOutcome summarizes one search-and-dispatch run for a wanted item.
type SearchOutcome struct {
	Found    bool
	Phase    search.Phase
	Score    int
	Title    string
	URL      string
	Provider string
	Outcome  dispatch.Outcome
}

// WantedService owns the wanted-item lifecycle: CRUD on the list, running
// the search escalation for an item, and applying download outcomes reported
// back by the torrent manager.
type WantedService interface {
	Add(ctx context.Context, item *domain.WantedItem) error
	Get(ctx context.Context, id string, kind domain.ItemKind) (*domain.WantedItem, error)
	List(ctx context.Context) ([]domain.WantedItem, error)
	Delete(ctx context.Context, id string, kind domain.ItemKind) error
	// Search runs the escalation ladder for one item and dispatches the
	// winner, if any result clears the match threshold.
	Search(ctx context.Context, id string, kind domain.ItemKind) (*SearchOutcome, error)
	// SearchAll runs Search for every item currently in the wanted state.
	SearchAll(ctx context.Context) ([]SearchOutcome, error)
	History(ctx context.Context) ([]domain.WantedRecord, error)
}

type wantedService struct {
	items      repository.WantedItemRepository
	history    repository.HistoryRepository
	escalator  *search.Escalator
	dispatcher *dispatch.Dispatcher
	categories []provider.Category
	log        *logrus.Logger
}

func NewWantedService(
	items repository.WantedItemRepository,
	history repository.HistoryRepository,
	escalator *search.Escalator,
	dispatcher *dispatch.Dispatcher,
	categories []provider.Category,
	log *logrus.Logger,
) *wantedService {
	if len(categories) == 0 {
		categories = provider.Categories()
	}
	if log == nil {
		log = logrus.New()
	}
	return &wantedService{
		items:      items,
		history:    history,
		escalator:  escalator,
		dispatcher: dispatcher,
		categories: categories,
		log:        log,
	}
}

// SetDispatcher installs the dispatcher after construction. The dispatcher
// needs the torrent manager, which itself reports outcomes back to this
// service, so one side has to be wired late.
func (s *wantedService) SetDispatcher(d *dispatch.Dispatcher) {
	s.dispatcher = d
}

func (s *wantedService) Add(ctx context.Context, item *domain.WantedItem) error {
	item.ID = strings.TrimSpace(item.ID)
	item.Title = strings.TrimSpace(item.Title)
	item.AuthorName = strings.TrimSpace(item.AuthorName)
	if item.ID == "" {
		return errors.New("item id is required")
	}
	if item.Title == "" {
		return errors.New("item title is required")
	}
	switch item.Kind {
	case domain.KindEBook, domain.KindAudioBook, domain.KindMagazine:
	default:
		return fmt.Errorf("unknown item kind %q", item.Kind)
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.StatusForKind() == "" {
		s.setStatusForKind(item, domain.ItemStatusWanted)
	}
	return s.items.Upsert(ctx, item)
}

func (s *wantedService) Get(ctx context.Context, id string, kind domain.ItemKind) (*domain.WantedItem, error) {
	item, err := s.items.Get(ctx, id, kind)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (s *wantedService) List(ctx context.Context) ([]domain.WantedItem, error) {
	return s.items.List(ctx)
}

func (s *wantedService) Delete(ctx context.Context, id string, kind domain.ItemKind) error {
	return s.items.Delete(ctx, id, kind)
}

func (s *wantedService) History(ctx context.Context) ([]domain.WantedRecord, error) {
	return s.history.List(ctx)
}

func (s *wantedService) Search(ctx context.Context, id string, kind domain.ItemKind) (*SearchOutcome, error) {
	item, err := s.Get(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	if item.StatusForKind() == domain.ItemStatusSnatched {
		return &SearchOutcome{Outcome: dispatch.OutcomeAlreadySnatched}, nil
	}

	res := s.escalator.Run(ctx, *item, s.categories)
	outcome := &SearchOutcome{Found: res.Found, Phase: res.Phase}
	if res.Candidate != nil {
		outcome.Score = res.Candidate.Score
		outcome.Title = res.Candidate.Candidate.RawTitle
		outcome.URL = res.Candidate.Candidate.URL
		outcome.Provider = res.Candidate.Candidate.Provider
	}
	if !res.Found {
		return outcome, nil
	}
	if s.dispatcher == nil {
		return outcome, errors.New("dispatcher not configured")
	}

	outcome.Outcome, err = s.dispatcher.Dispatch(ctx, *res.Candidate, *item)
	if err != nil {
		return outcome, fmt.Errorf("dispatch %q: %w", res.Candidate.Candidate.URL, err)
	}
	return outcome, nil
}

func (s *wantedService) SearchAll(ctx context.Context) ([]SearchOutcome, error) {
	pending, err := s.items.ListByStatus(ctx, domain.ItemStatusWanted)
	if err != nil {
		return nil, err
	}

	outcomes := make([]SearchOutcome, 0, len(pending))
	for _, item := range pending {
		if ctx.Err() != nil {
			return outcomes, ctx.Err()
		}
		outcome, err := s.Search(ctx, item.ID, item.Kind)
		if err != nil {
			s.log.WithField("item", item.ID).Warnf("search failed: %v", err)
			continue
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, nil
}

// SnatchCompleted marks the item processed once the torrent manager finishes
// its download.
func (s *wantedService) SnatchCompleted(ctx context.Context, job downloader.Job, localPath, archiveLocation string) error {
	result := "processed"
	if archiveLocation != "" {
		result = "processed, archived to " + archiveLocation
	}

	if rec, err := s.history.Get(ctx, job.URL); err == nil && rec != nil {
		if err := s.history.UpdateStatus(ctx, job.URL, domain.RecordStatusSnatched, rec.DownloadID, result); err != nil {
			return fmt.Errorf("update record: %w", err)
		}
	}
	if err := s.items.UpdateStatus(ctx, job.ItemID, job.Kind, domain.ItemStatusProcessed); err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	s.log.WithFields(logrus.Fields{"item": job.ItemID, "path": localPath}).Info("snatch processed")
	return nil
}

// SnatchFailed blacklists the URL and returns the item to the wanted state
// so a later search can try another candidate.
func (s *wantedService) SnatchFailed(ctx context.Context, job downloader.Job, msg string) error {
	if err := s.history.UpdateStatus(ctx, job.URL, domain.RecordStatusFailed, "", msg); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if err := s.items.UpdateStatus(ctx, job.ItemID, job.Kind, domain.ItemStatusWanted); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// ListResumable reports snatches the built-in client should pick back up
// after a restart. External clients track their own queues.
func (s *wantedService) ListResumable(ctx context.Context) ([]downloader.Job, error) {
	recs, err := s.history.ListByStatusAndMode(ctx, domain.RecordStatusSnatched,
		domain.ModeTorrent, domain.ModeMagnet, domain.ModeTorznab)
	if err != nil {
		return nil, err
	}

	jobs := make([]downloader.Job, 0, len(recs))
	for _, rec := range recs {
		item, err := s.items.Get(ctx, rec.ItemID, rec.AuxInfo)
		if err != nil || item == nil {
			continue
		}
		if item.StatusForKind() != domain.ItemStatusSnatched {
			continue
		}
		jobs = append(jobs, downloader.Job{URL: rec.URL, ItemID: rec.ItemID, Kind: rec.AuxInfo})
	}
	return jobs, nil
}

func (s *wantedService) setStatusForKind(item *domain.WantedItem, status domain.ItemStatus) {
	switch item.Kind {
	case domain.KindAudioBook:
		item.AudioStatus = status
	case domain.KindMagazine:
		item.IssueStatus = status
	default:
		item.Status = status
	}
}

var (
	_ WantedService       = (*wantedService)(nil)
	_ downloader.Recorder = (*wantedService)(nil)
	_ downloader.Backlog  = (*wantedService)(nil)
)
