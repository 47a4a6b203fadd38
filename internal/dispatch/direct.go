package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bookarr/internal/domain"
)

// DirectFetcher downloads a candidate's URL straight into the data directory.
// Used for direct-download sources and RSS-derived links.
type DirectFetcher struct {
	dataDir string
	client  *http.Client
}

func NewDirectFetcher(dataDir string) *DirectFetcher {
	return &DirectFetcher{
		dataDir: dataDir,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (f *DirectFetcher) Submit(ctx context.Context, c domain.CandidateResult, wanted domain.WantedItem) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	downloadID := uuid.NewString()
	stagingDir := filepath.Join(f.dataDir, fmt.Sprintf("fetch-%s", downloadID))
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	name := path.Base(resp.Request.URL.Path)
	if name == "" || name == "/" || name == "." {
		name = downloadID
	}

	dest := filepath.Join(stagingDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("write download: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close destination: %w", err)
	}

	return downloadID, nil
}

var _ DownloadAdapter = (*DirectFetcher)(nil)
