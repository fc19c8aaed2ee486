package infra

import (
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
)

func iconServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		img := imaging.New(64, 64, color.NRGBA{R: 247, G: 147, B: 26, A: 255})
		w.Header().Set("Content-Type", "image/png")
		imaging.Encode(w, img, imaging.PNG)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIconDownloader_DownloadIcon(t *testing.T) {
	var hits atomic.Int32
	server := iconServer(t, &hits)

	d, err := NewIconDownloader(t.TempDir())
	if err != nil {
		t.Fatalf("NewIconDownloader failed: %v", err)
	}

	path, err := d.DownloadIcon(context.Background(), "BTC", server.URL+"/btc.png")
	if err != nil {
		t.Fatalf("DownloadIcon failed: %v", err)
	}
	if filepath.Base(path) != "btc.png" {
		t.Errorf("Unexpected path %s", path)
	}

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("Cached icon unreadable: %v", err)
	}
	if b := img.Bounds(); b.Dx() != IconSize || b.Dy() != IconSize {
		t.Errorf("Icon size = %dx%d, want %dx%d", b.Dx(), b.Dy(), IconSize, IconSize)
	}

	// Cache hit
	if _, err := d.DownloadIcon(context.Background(), "btc", server.URL+"/btc.png"); err != nil {
		t.Fatalf("Second DownloadIcon failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 upstream hit, got %d", hits.Load())
	}
}

func TestIconDownloader_BadStatus(t *testing.T) {
	var hits atomic.Int32
	server := iconServer(t, &hits)
	d, _ := NewIconDownloader(t.TempDir())

	if _, err := d.DownloadIcon(context.Background(), "XYZ", server.URL+"/missing.png"); err == nil {
		t.Error("Expected error for 404")
	}
}

func TestIconDownloader_SanitizesSymbol(t *testing.T) {
	d, _ := NewIconDownloader(t.TempDir())

	path, err := d.IconPath("../../etc/passwd")
	if err != nil {
		t.Fatalf("IconPath failed: %v", err)
	}
	if filepath.Base(path) != "etcpasswd.png" || filepath.Dir(path) != d.basePath {
		t.Errorf("Path escaped icon dir: %s", path)
	}

	if _, err := d.IconPath("@@@"); !errors.Is(err, ErrInvalidSymbol) {
		t.Errorf("Expected ErrInvalidSymbol, got %v", err)
	}
}
