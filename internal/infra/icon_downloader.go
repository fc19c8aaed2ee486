package infra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// IconSize is the edge length of cached logos in pixels.
const IconSize = 24

// ErrInvalidSymbol is returned for symbols with no usable characters.
var ErrInvalidSymbol = errors.New("invalid symbol")

// IconDownloader handles downloading and caching coin icons
type IconDownloader struct {
	basePath string
	client   *http.Client
}

// NewIconDownloader creates a downloader caching into dir.
func NewIconDownloader(dir string) (*IconDownloader, error) {
	// Ensure directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create icon directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconDownloader{
		basePath: dir,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// DownloadIcon fetches the logo at url for symbol unless it is already cached.
// Returns the local file path on success.
// Images are resized to 24x24 pixels for consistent UI display
func (d *IconDownloader) DownloadIcon(ctx context.Context, symbol, url string) (string, error) {
	filePath, err := d.IconPath(symbol)
	if err != nil {
		return "", err
	}

	// Cache hit
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil
	}
	if url == "" {
		return "", fmt.Errorf("no image url for %s", symbol)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	resizedImg := imaging.Resize(srcImg, IconSize, IconSize, imaging.Lanczos)

	// Write to a temp name first so readers never see a partial file.
	tmpPath := filePath + ".tmp.png"
	if err := imaging.Save(resizedImg, tmpPath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to store icon: %w", err)
	}

	return filePath, nil
}

// IconPath returns the cache path for symbol.
func (d *IconDownloader) IconPath(symbol string) (string, error) {
	// Security: Sanitize symbol to prevent path traversal
	safeSymbol := sanitizeSymbol(symbol)
	if safeSymbol == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return filepath.Join(d.basePath, strings.ToLower(safeSymbol)+".png"), nil
}

func sanitizeSymbol(symbol string) string {
	res := make([]rune, 0, len(symbol))
	for _, r := range symbol {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}
