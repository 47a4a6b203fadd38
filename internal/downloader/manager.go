package downloader

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/sirupsen/logrus"

	"bookarr/internal/domain"
	"bookarr/internal/storage"
)

// Job identifies one snatch handed to the built-in torrent client.
type Job struct {
	URL    string
	ItemID string
	Kind   domain.ItemKind
}

// Manager runs the built-in torrent client: bounded concurrency, progress
// tracking, optional archival of completed downloads.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	// Snatch registers the job and returns the torrent info-hash as the
	// download ID; the download itself proceeds in the background.
	Snatch(ctx context.Context, job Job) (string, error)
	Resume(ctx context.Context) error
	Cancel(ctx context.Context, downloadID string) error
}

// Recorder receives terminal download outcomes.
type Recorder interface {
	SnatchCompleted(ctx context.Context, job Job, localPath, archiveLocation string) error
	SnatchFailed(ctx context.Context, job Job, msg string) error
}

// Backlog lists snatches that were still in flight when the process last stopped.
type Backlog interface {
	ListResumable(ctx context.Context) ([]Job, error)
}

type Config struct {
	DownloadRoot   string
	MaxConcurrent  int
	StatusInterval time.Duration
	TrackerList    []string
	UploadOptions  storage.UploadOptions
	Logger         *logrus.Logger
}

type manager struct {
	cfg      Config
	client   *torrent.Client
	recorder Recorder
	backlog  Backlog
	storage  storage.Service
	fetch    *http.Client

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	active map[string]*jobHandle
}

type jobHandle struct {
	cancel  context.CancelFunc
	torrent *torrent.Torrent
	done    chan struct{}
}

func NewManager(cfg Config, recorder Recorder, backlog Backlog, store storage.Service) Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.StatusInterval == 0 {
		cfg.StatusInterval = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if len(cfg.TrackerList) == 0 {
		cfg.TrackerList = defaultTrackers()
	}
	return &manager{
		cfg:      cfg,
		recorder: recorder,
		backlog:  backlog,
		storage:  store,
		fetch:    &http.Client{Timeout: 2 * time.Minute},
		sem:      make(chan struct{}, cfg.MaxConcurrent),
		active:   make(map[string]*jobHandle),
	}
}

func (m *manager) Start(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.DownloadRoot, 0o755); err != nil {
		return fmt.Errorf("create download root: %w", err)
	}

	clientConfig := torrent.NewDefaultClientConfig()
	clientConfig.DataDir = m.cfg.DownloadRoot
	clientConfig.NoUpload = false
	clientConfig.Seed = false

	client, err := torrent.NewClient(clientConfig)
	if err != nil {
		return fmt.Errorf("create torrent client: %w", err)
	}

	m.client = client
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.cfg.Logger.Infof("torrent manager started, data dir: %s", m.cfg.DownloadRoot)
	return nil
}

func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	if m.client != nil {
		m.client.Close()
	}
	m.cfg.Logger.Info("torrent manager stopped")
}

func (m *manager) Snatch(ctx context.Context, job Job) (string, error) {
	t, err := m.addTorrent(ctx, job.URL)
	if err != nil {
		return "", err
	}

	id := t.InfoHash().HexString()
	jobCtx, cancel := context.WithCancel(m.ctx)
	handle := &jobHandle{
		cancel:  cancel,
		torrent: t,
		done:    make(chan struct{}),
	}
	m.register(id, handle)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.unregister(id)
			close(handle.done)
		}()
		select {
		case <-jobCtx.Done():
			return
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
			m.run(jobCtx, job, t)
		}
	}()

	return id, nil
}

// addTorrent accepts magnet URIs directly and fetches .torrent files over
// HTTP for torrent and torznab links.
func (m *manager) addTorrent(ctx context.Context, rawURL string) (*torrent.Torrent, error) {
	if strings.HasPrefix(rawURL, "magnet") {
		t, err := m.client.AddMagnet(rawURL)
		if err != nil {
			return nil, fmt.Errorf("add magnet: %w", err)
		}
		return t, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build torrent request: %w", err)
	}
	resp, err := m.fetch.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch torrent file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("torrent fetch returned status %d", resp.StatusCode)
	}

	mi, err := metainfo.Load(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse torrent file: %w", err)
	}
	t, err := m.client.AddTorrent(mi)
	if err != nil {
		return nil, fmt.Errorf("add torrent: %w", err)
	}
	return t, nil
}

func (m *manager) Resume(ctx context.Context) error {
	if m.backlog == nil {
		return nil
	}
	jobs, err := m.backlog.ListResumable(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if _, err := m.Snatch(ctx, job); err != nil {
			m.cfg.Logger.WithField("item", job.ItemID).Warnf("resume snatch: %v", err)
		}
	}
	return nil
}

func (m *manager) register(id string, handle *jobHandle) {
	m.mu.Lock()
	m.active[id] = handle
	m.mu.Unlock()
}

func (m *manager) unregister(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

func (m *manager) Cancel(ctx context.Context, downloadID string) error {
	m.mu.Lock()
	handle, ok := m.active[downloadID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	handle.cancel()
	if handle.torrent != nil {
		handle.torrent.Drop()
	}

	select {
	case <-handle.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *manager) run(ctx context.Context, job Job, t *torrent.Torrent) {
	logger := m.cfg.Logger.WithFields(logrus.Fields{"item": job.ItemID, "hash": t.InfoHash().HexString()})
	defer t.Drop()

	select {
	case <-ctx.Done():
		logger.Info("snatch cancelled before metadata arrived")
		return
	case <-t.GotInfo():
	}

	info := t.Info()
	if info == nil {
		m.fail(ctx, job, logger, "missing torrent info")
		return
	}

	for _, tracker := range m.cfg.TrackerList {
		t.AddTrackers([][]string{{tracker}})
	}

	totalLength := info.TotalLength()
	localPath := filepath.Join(m.cfg.DownloadRoot, info.BestName())
	t.DownloadAll()

	ticker := time.NewTicker(m.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("snatch cancelled")
			return
		case <-ticker.C:
			bytesCompleted := t.BytesCompleted()
			progress := 0
			if totalLength > 0 {
				progress = int((bytesCompleted * 100) / totalLength)
			}
			logger.Debugf("download progress: %d%%", progress)

			if progress >= 100 || t.BytesMissing() == 0 {
				logger.Info("download completed")
				m.complete(ctx, job, logger, localPath)
				return
			}
		}
	}
}

func (m *manager) complete(ctx context.Context, job Job, logger *logrus.Entry, localPath string) {
	archived := ""
	if m.storage != nil {
		opts := m.cfg.UploadOptions
		prefix := strings.Trim(opts.KeyPrefix, "/")
		itemPrefix := job.ItemID
		if itemPrefix == "" {
			itemPrefix = filepath.Base(localPath)
		}
		if prefix == "" {
			opts.KeyPrefix = itemPrefix
		} else {
			opts.KeyPrefix = fmt.Sprintf("%s/%s", prefix, itemPrefix)
		}

		dest, err := m.storage.Archive(ctx, localPath, opts)
		if err != nil {
			logger.Warnf("archive completed download: %v", err)
		} else {
			archived = dest
			if err := os.RemoveAll(localPath); err != nil {
				logger.Warnf("cleanup archived download: %v", err)
			}
			logger.Infof("download archived to %s", dest)
		}
	}

	if err := m.recorder.SnatchCompleted(ctx, job, localPath, archived); err != nil {
		logger.Errorf("record completed snatch: %v", err)
	}
}

func (m *manager) fail(ctx context.Context, job Job, logger *logrus.Entry, msg string) {
	logger.Error(msg)
	if err := m.recorder.SnatchFailed(ctx, job, msg); err != nil {
		logger.Errorf("record failed snatch: %v", err)
	}
}

func defaultTrackers() []string {
	return []string{
		"udp://tracker.opentrackr.org:1337/announce",
		"udp://tracker.openbittorrent.com:6969/announce",
		"udp://open.stealth.si:80/announce",
		"udp://exodus.desync.com:6969/announce",
		"udp://tracker.torrent.eu.org:451/announce",
		"http://tracker.opentrackr.org:1337/announce",
	}
}

var _ Manager = (*manager)(nil)
