package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"hometrust/internal/platform/config"
	"hometrust/pkg/platform/sentinel"
)

// HTTPStore talks to the external blob-storage service. Any transport failure
// surfaces as sentinel.ErrUnavailable so the claim service can abort the
// submission with a dependency error.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

func NewHTTPStore(cfg config.Artifact) *HTTPStore {
	return &HTTPStore{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *HTTPStore) Store(ctx context.Context, upload Upload) (Ref, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/artifacts", bytes.NewReader(upload.Content))
	if err != nil {
		return Ref{}, fmt.Errorf("build artifact request: %w", err)
	}
	req.Header.Set("Content-Type", upload.Mime)

	resp, err := s.client.Do(req)
	if err != nil {
		return Ref{}, fmt.Errorf("artifact store unreachable: %w", sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return Ref{}, fmt.Errorf("artifact store returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var ref Ref
	if err := json.NewDecoder(resp.Body).Decode(&ref); err != nil {
		return Ref{}, fmt.Errorf("decode artifact response: %w", sentinel.ErrUnavailable)
	}
	return ref, nil
}
