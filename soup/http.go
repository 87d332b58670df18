package soup

import (
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/niklasfasching/nwsel/css"
	"github.com/niklasfasching/nwsel/util"
)

// Fetcher loads html pages. Server errors and transport failures are retried with
// backoff; with CacheDir set, page bodies are kept on disk and served from there.
type Fetcher struct {
	Client    *http.Client
	CacheDir  string
	Retries   int
	Backoff   time.Duration
	UserAgent string
}

var DefaultFetcher = &Fetcher{Retries: 2, Backoff: 500 * time.Millisecond}

// some websites block low tls versions (go defaults to 1.2)
var defaultClient = &http.Client{Transport: &http.Transport{
	TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS13},
}}

var unsafeFileNameChars = regexp.MustCompile(`[^-_0-9a-zA-Z]+`)

// Load fetches url and parses it into a Document queried with e.
func (f *Fetcher) Load(ctx context.Context, url string, e *css.Engine) (*Document, error) {
	bs, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseDocument(bytes.NewReader(bs), e)
}

// Fetch returns the body of url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	path := f.cachePath(url)
	if path != "" {
		if bs, err := os.ReadFile(path); err == nil {
			util.Debugf(ctx, "soup: cache hit %s", url)
			return bs, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		util.Debugf(ctx, "soup: cache miss %s", url)
	}
	bs, err := util.Retry(ctx, f.Retries, f.Backoff, func(ctx context.Context) ([]byte, error) {
		return f.get(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := errors.Join(os.MkdirAll(f.CacheDir, 0755), os.WriteFile(path, bs, 0644)); err != nil {
			util.Errorf(ctx, "soup: cache %s: %s", url, err)
		}
	}
	return bs, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, util.Permanent(err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	client := f.Client
	if client == nil {
		client = defaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	switch {
	case res.StatusCode >= 500:
		return nil, fmt.Errorf("GET %s: status %d", url, res.StatusCode)
	case res.StatusCode >= 300:
		return nil, util.Permanent(fmt.Errorf("GET %s: status %d", url, res.StatusCode))
	}
	return io.ReadAll(res.Body)
}

// cachePath is a readable prefix of url followed by its hash; "" without CacheDir.
func (f *Fetcher) cachePath(url string) string {
	if f.CacheDir == "" {
		return ""
	}
	name := unsafeFileNameChars.ReplaceAllString(url, "_")
	if len(name) > 40 {
		name = name[:40]
	}
	sum := sha1.Sum([]byte(url))
	return filepath.Join(f.CacheDir, name+"_"+hex.EncodeToString(sum[:])+".html")
}
