package guild

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Discord caps custom emoji uploads at 256 KiB; anything bigger is
// rejected server-side anyway, so stop reading early.
const maxBlobSize = 1 << 20

// HTTPFetcher is the production BlobFetcher.
type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(data) > maxBlobSize {
		return nil, fmt.Errorf("fetch %s: blob exceeds %d bytes", url, maxBlobSize)
	}
	return data, nil
}
