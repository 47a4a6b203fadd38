package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"bookarr/internal/domain"
)

// NZBClient submits NZB URLs to a SABnzbd-compatible download client via its
// addurl API.
type NZBClient struct {
	baseURL string
	apiKey  string
	paused  bool
	client  *http.Client
}

func NewNZBClient(baseURL, apiKey string, paused bool) *NZBClient {
	return &NZBClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		paused:  paused,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type addURLResponse struct {
	Status bool     `json:"status"`
	NzoIDs []string `json:"nzo_ids"`
	Error  string   `json:"error"`
}

func (n *NZBClient) Submit(ctx context.Context, c domain.CandidateResult, wanted domain.WantedItem) (string, error) {
	if n.baseURL == "" {
		return "", fmt.Errorf("nzb client is not configured")
	}

	params := url.Values{}
	params.Set("mode", "addurl")
	params.Set("name", c.URL)
	params.Set("nzbname", wanted.SearchTerm())
	params.Set("apikey", n.apiKey)
	params.Set("output", "json")
	if n.paused {
		params.Set("priority", "-2")
	}

	endpoint := fmt.Sprintf("%s/api?%s", n.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build addurl request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call nzb client: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nzb client returned status %d", resp.StatusCode)
	}

	var parsed addURLResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode addurl response: %w", err)
	}
	if !parsed.Status {
		return "", fmt.Errorf("nzb client rejected url: %s", parsed.Error)
	}
	if len(parsed.NzoIDs) == 0 {
		return "", fmt.Errorf("nzb client returned no download id")
	}
	return parsed.NzoIDs[0], nil
}

var _ DownloadAdapter = (*NZBClient)(nil)
