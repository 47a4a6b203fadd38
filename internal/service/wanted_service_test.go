package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookarr/internal/dispatch"
	"bookarr/internal/domain"
	"bookarr/internal/downloader"
	"bookarr/internal/provider"
	"bookarr/internal/repository"
	"bookarr/internal/search"
)

type memItemRepo struct {
	items map[string]*domain.WantedItem
}

func newMemItemRepo(items ...domain.WantedItem) *memItemRepo {
	r := &memItemRepo{items: make(map[string]*domain.WantedItem)}
	for i := range items {
		item := items[i]
		r.items[string(item.Kind)+"/"+item.ID] = &item
	}
	return r
}

func (r *memItemRepo) Init(context.Context) error { return nil }

func (r *memItemRepo) Upsert(_ context.Context, item *domain.WantedItem) error {
	cp := *item
	r.items[string(item.Kind)+"/"+item.ID] = &cp
	return nil
}

func (r *memItemRepo) Get(_ context.Context, id string, kind domain.ItemKind) (*domain.WantedItem, error) {
	item, ok := r.items[string(kind)+"/"+id]
	if !ok {
		return nil, fmt.Errorf("wanted item: %w", repository.ErrNotFound)
	}
	cp := *item
	return &cp, nil
}

func (r *memItemRepo) List(context.Context) ([]domain.WantedItem, error) {
	var out []domain.WantedItem
	for _, item := range r.items {
		out = append(out, *item)
	}
	return out, nil
}

func (r *memItemRepo) ListByStatus(_ context.Context, status domain.ItemStatus) ([]domain.WantedItem, error) {
	var out []domain.WantedItem
	for _, item := range r.items {
		if item.StatusForKind() == status {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *memItemRepo) UpdateStatus(_ context.Context, id string, kind domain.ItemKind, status domain.ItemStatus) error {
	item, ok := r.items[string(kind)+"/"+id]
	if !ok {
		return errors.New("not found")
	}
	switch kind {
	case domain.KindAudioBook:
		item.AudioStatus = status
	case domain.KindMagazine:
		item.IssueStatus = status
	default:
		item.Status = status
	}
	return nil
}

func (r *memItemRepo) Delete(_ context.Context, id string, kind domain.ItemKind) error {
	delete(r.items, string(kind)+"/"+id)
	return nil
}

type memHistoryRepo struct {
	records map[string]*domain.WantedRecord
}

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{records: make(map[string]*domain.WantedRecord)}
}

func (r *memHistoryRepo) Init(context.Context) error { return nil }

func (r *memHistoryRepo) Upsert(_ context.Context, rec *domain.WantedRecord) error {
	cp := *rec
	r.records[rec.URL] = &cp
	return nil
}

func (r *memHistoryRepo) Get(_ context.Context, url string) (*domain.WantedRecord, error) {
	rec, ok := r.records[url]
	if !ok {
		return nil, fmt.Errorf("wanted record: %w", repository.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (r *memHistoryRepo) List(context.Context) ([]domain.WantedRecord, error) {
	var out []domain.WantedRecord
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (r *memHistoryRepo) ListByStatusAndMode(_ context.Context, status domain.RecordStatus, modes ...domain.SourceMode) ([]domain.WantedRecord, error) {
	modeSet := make(map[domain.SourceMode]bool, len(modes))
	for _, m := range modes {
		modeSet[m] = true
	}
	var out []domain.WantedRecord
	for _, rec := range r.records {
		if rec.Status == status && (len(modes) == 0 || modeSet[rec.Mode]) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *memHistoryRepo) UpdateStatus(_ context.Context, url string, status domain.RecordStatus, downloadID, result string) error {
	rec, ok := r.records[url]
	if !ok {
		return errors.New("not found")
	}
	rec.Status = status
	rec.DownloadID = downloadID
	rec.Result = result
	return nil
}

func (r *memHistoryRepo) HasFailed(_ context.Context, url string) (bool, error) {
	rec, ok := r.records[url]
	return ok && rec.Status == domain.RecordStatusFailed, nil
}

type fakeManager struct {
	downloadID string
	err        error
	jobs       []downloader.Job
}

func (m *fakeManager) Start(context.Context) error { return nil }
func (m *fakeManager) Shutdown()                   {}
func (m *fakeManager) Resume(context.Context) error {
	return nil
}
func (m *fakeManager) Cancel(context.Context, string) error { return nil }

func (m *fakeManager) Snatch(_ context.Context, job downloader.Job) (string, error) {
	m.jobs = append(m.jobs, job)
	return m.downloadID, m.err
}

type fixedSource struct {
	results []domain.CandidateResult
}

func (s *fixedSource) Name() string                { return "fixed" }
func (s *fixedSource) Category() provider.Category { return provider.CategoryTorrent }
func (s *fixedSource) Priority() int               { return 1 }

func (s *fixedSource) Search(context.Context, string) ([]domain.CandidateResult, error) {
	return s.results, nil
}

func testService(t *testing.T, items *memItemRepo, history *memHistoryRepo, manager downloader.Manager, results []domain.CandidateResult) *wantedService {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	registry := provider.NewRegistry()
	registry.Register(&fixedSource{results: results})

	rules := map[domain.ItemKind]search.KindRules{
		domain.KindEBook: {FormatWords: []string{"epub", "mobi"}},
	}
	escalator := &search.Escalator{
		Selector:  search.NewSelector(log, history, rules),
		Registry:  registry,
		Threshold: 90,
		Log:       log,
	}

	svc := NewWantedService(items, history, escalator, nil, []provider.Category{provider.CategoryTorrent}, log)
	svc.SetDispatcher(dispatch.NewDispatcher(items, history, dispatch.Config{
		TorrentManager: manager,
		DataDir:        t.TempDir(),
		Logger:         log,
	}))
	return svc
}

func TestAddValidation(t *testing.T) {
	t.Parallel()

	svc := testService(t, newMemItemRepo(), newMemHistoryRepo(), &fakeManager{}, nil)

	assert.Error(t, svc.Add(context.Background(), &domain.WantedItem{Kind: domain.KindEBook, Title: "x"}))
	assert.Error(t, svc.Add(context.Background(), &domain.WantedItem{ID: "1", Kind: domain.KindEBook}))
	assert.Error(t, svc.Add(context.Background(), &domain.WantedItem{ID: "1", Kind: "comic", Title: "x"}))

	item := domain.WantedItem{ID: "1", Kind: domain.KindEBook, Title: "x"}
	require.NoError(t, svc.Add(context.Background(), &item))
	assert.Equal(t, domain.ItemStatusWanted, item.StatusForKind())
	assert.False(t, item.CreatedAt.IsZero())
}

func TestSearchDispatchesWinner(t *testing.T) {
	t.Parallel()

	wanted := domain.WantedItem{ID: "b1", Kind: domain.KindEBook, AuthorName: "Tom Holt", Title: "Blonde Bombshell", Status: domain.ItemStatusWanted}
	items := newMemItemRepo(wanted)
	history := newMemHistoryRepo()
	manager := &fakeManager{downloadID: "hash1"}

	svc := testService(t, items, history, manager, []domain.CandidateResult{
		{RawTitle: "Tom Holt - Blonde Bombshell ePUB", URL: "magnet:?xt=x", Mode: domain.ModeMagnet},
	})

	outcome, err := svc.Search(context.Background(), "b1", domain.KindEBook)
	require.NoError(t, err)
	assert.True(t, outcome.Found)
	assert.Equal(t, dispatch.OutcomeDispatched, outcome.Outcome)
	assert.GreaterOrEqual(t, outcome.Score, 90)

	require.Len(t, manager.jobs, 1)
	assert.Equal(t, "b1", manager.jobs[0].ItemID)

	item, err := items.Get(context.Background(), "b1", domain.KindEBook)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusSnatched, item.StatusForKind())
}

func TestSearchItemNotFound(t *testing.T) {
	t.Parallel()

	svc := testService(t, newMemItemRepo(), newMemHistoryRepo(), &fakeManager{}, nil)

	_, err := svc.Search(context.Background(), "missing", domain.KindEBook)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestSearchBelowThresholdDoesNotDispatch(t *testing.T) {
	t.Parallel()

	wanted := domain.WantedItem{ID: "b1", Kind: domain.KindEBook, AuthorName: "Tom Holt", Title: "Blonde Bombshell", Status: domain.ItemStatusWanted}
	items := newMemItemRepo(wanted)
	manager := &fakeManager{downloadID: "hash1"}

	svc := testService(t, items, newMemHistoryRepo(), manager, []domain.CandidateResult{
		{RawTitle: "Vaguely Similar Bombshell Collection", URL: "magnet:?xt=x", Mode: domain.ModeMagnet},
	})

	outcome, err := svc.Search(context.Background(), "b1", domain.KindEBook)
	require.NoError(t, err)
	assert.False(t, outcome.Found)
	assert.Empty(t, manager.jobs)

	item, err := items.Get(context.Background(), "b1", domain.KindEBook)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusWanted, item.StatusForKind())
}

func TestSnatchCompletedMarksProcessed(t *testing.T) {
	t.Parallel()

	wanted := domain.WantedItem{ID: "b1", Kind: domain.KindEBook, Title: "Blonde Bombshell", Status: domain.ItemStatusSnatched}
	items := newMemItemRepo(wanted)
	history := newMemHistoryRepo()
	require.NoError(t, history.Upsert(context.Background(), &domain.WantedRecord{
		URL: "magnet:?xt=x", ItemID: "b1", AuxInfo: domain.KindEBook,
		Mode: domain.ModeMagnet, Status: domain.RecordStatusSnatched, DownloadID: "hash1",
	}))

	svc := testService(t, items, history, &fakeManager{}, nil)

	job := downloader.Job{URL: "magnet:?xt=x", ItemID: "b1", Kind: domain.KindEBook}
	require.NoError(t, svc.SnatchCompleted(context.Background(), job, "/data/book", "s3://bucket/book"))

	item, err := items.Get(context.Background(), "b1", domain.KindEBook)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusProcessed, item.StatusForKind())

	rec, err := history.Get(context.Background(), "magnet:?xt=x")
	require.NoError(t, err)
	assert.Equal(t, "hash1", rec.DownloadID, "download id preserved")
	assert.Contains(t, rec.Result, "s3://bucket/book")
}

func TestSnatchFailedReturnsItemToWanted(t *testing.T) {
	t.Parallel()

	wanted := domain.WantedItem{ID: "b1", Kind: domain.KindEBook, Title: "Blonde Bombshell", Status: domain.ItemStatusSnatched}
	items := newMemItemRepo(wanted)
	history := newMemHistoryRepo()
	require.NoError(t, history.Upsert(context.Background(), &domain.WantedRecord{
		URL: "magnet:?xt=x", ItemID: "b1", AuxInfo: domain.KindEBook,
		Mode: domain.ModeMagnet, Status: domain.RecordStatusSnatched,
	}))

	svc := testService(t, items, history, &fakeManager{}, nil)

	job := downloader.Job{URL: "magnet:?xt=x", ItemID: "b1", Kind: domain.KindEBook}
	require.NoError(t, svc.SnatchFailed(context.Background(), job, "tracker timeout"))

	item, err := items.Get(context.Background(), "b1", domain.KindEBook)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusWanted, item.StatusForKind())

	failed, err := history.HasFailed(context.Background(), "magnet:?xt=x")
	require.NoError(t, err)
	assert.True(t, failed)
}

func TestListResumableFiltersByItemStatus(t *testing.T) {
	t.Parallel()

	inFlight := domain.WantedItem{ID: "b1", Kind: domain.KindEBook, Title: "One", Status: domain.ItemStatusSnatched}
	finished := domain.WantedItem{ID: "b2", Kind: domain.KindEBook, Title: "Two", Status: domain.ItemStatusProcessed}
	items := newMemItemRepo(inFlight, finished)
	history := newMemHistoryRepo()
	for _, rec := range []domain.WantedRecord{
		{URL: "magnet:1", ItemID: "b1", AuxInfo: domain.KindEBook, Mode: domain.ModeMagnet, Status: domain.RecordStatusSnatched},
		{URL: "magnet:2", ItemID: "b2", AuxInfo: domain.KindEBook, Mode: domain.ModeMagnet, Status: domain.RecordStatusSnatched},
		{URL: "http://nzb", ItemID: "b1", AuxInfo: domain.KindEBook, Mode: domain.ModeNZB, Status: domain.RecordStatusSnatched},
	} {
		r := rec
		require.NoError(t, history.Upsert(context.Background(), &r))
	}

	svc := testService(t, items, history, &fakeManager{}, nil)

	jobs, err := svc.ListResumable(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1, "only torrent-family records for still-snatched items resume")
	assert.Equal(t, "magnet:1", jobs[0].URL)
}
