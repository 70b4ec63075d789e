package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

type FetcherConfig struct {
	IndexURL string
	// Pattern is a substring a dump file name must contain.
	Pattern string
	// RateLimit caps the download in bytes per second. Zero means unlimited.
	RateLimit  float64
	Timeout    time.Duration
	OnProgress func(written, total int64)
}

// Dump is a compressed dump file listed on the index page.
type Dump struct {
	Name string
	URL  string
}

type Fetcher struct {
	config  FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
	base    *url.URL
}

const chunkSize = 32 * 1024

func NewWithConfig(config FetcherConfig) (*Fetcher, error) {
	if config.IndexURL == "" {
		config.IndexURL = "https://dumps.wikimedia.org/enwiki/latest/"
	}
	if config.Pattern == "" {
		config.Pattern = "pages-articles"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	base, err := url.Parse(config.IndexURL)
	if err != nil {
		return nil, err
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("index url %q is not absolute", config.IndexURL)
	}

	f := &Fetcher{
		config: config,
		client: &http.Client{},
		base:   base,
	}
	if config.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), max(chunkSize, int(config.RateLimit)))
	}
	return f, nil
}

// List returns the .bz2 dumps linked from the index page whose name
// contains the configured pattern, sorted by name.
func (f *Fetcher) List(ctx context.Context) ([]Dump, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, f.base)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var dumps []Dump
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, _ := selection.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := f.base.ResolveReference(ref)
		name := path.Base(abs.Path)
		if !strings.HasSuffix(name, ".bz2") || !strings.Contains(name, f.config.Pattern) {
			return
		}
		if seen[abs.String()] {
			return
		}
		seen[abs.String()] = true
		dumps = append(dumps, Dump{Name: name, URL: abs.String()})
	})

	sort.Slice(dumps, func(i, j int) bool { return dumps[i].Name < dumps[j].Name })
	return dumps, nil
}

// Fetch downloads the first matching dump into dir and returns its path.
func (f *Fetcher) Fetch(ctx context.Context, dir string) (string, error) {
	dumps, err := f.List(ctx)
	if err != nil {
		return "", err
	}
	if len(dumps) == 0 {
		return "", fmt.Errorf("no dump matching %q at %s", f.config.Pattern, f.base)
	}

	dst := filepath.Join(dir, dumps[0].Name)
	if err := f.Download(ctx, dumps[0].URL, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// Download writes the body of rawURL to dst. A partial file is removed
// on failure.
func (f *Fetcher) Download(ctx context.Context, rawURL, dst string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, rawURL)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if f.limiter != nil {
				if err := f.limiter.WaitN(ctx, n); err != nil {
					return err
				}
			}
			if _, err := out.Write(buf[:n]); err != nil {
				return err
			}
			written += int64(n)
			if f.config.OnProgress != nil {
				f.config.OnProgress(written, resp.ContentLength)
			}
		}
		if errors.Is(rerr, io.EOF) {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}
