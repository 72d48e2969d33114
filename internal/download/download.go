package download

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/AD7six/shop-images/internal/logging"
	"github.com/AD7six/shop-images/internal/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
)

// Fetcher performs a GET request and hands the response to handle. This
// allows using *httpclient.Client or a fake in tests.
type Fetcher interface {
	Fetch(ctx context.Context, url string, handle func(*http.Response) error) error
}

// Downloader writes URLs into a directory. Concurrency is bounded by the
// Fetcher.
type Downloader struct {
	client      Fetcher
	fs          afero.Fs
	maxBodySize int64
	progress    io.Writer
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithMaxBodySize limits the size of each downloaded file. Zero disables the limit.
func WithMaxBodySize(n int64) Option {
	return func(d *Downloader) { d.maxBodySize = n }
}

// WithProgress renders a progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(d *Downloader) { d.progress = w }
}

// New returns a Downloader using client for requests and fsys for output.
func New(client Fetcher, fsys afero.Fs, opts ...Option) *Downloader {
	d := &Downloader{
		client:   client,
		fs:       fsys,
		progress: io.Discard,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download makes sure outDir exists, then downloads every URL into it and
// waits for all of them. The returned error is only set when outDir cannot be
// created; per-URL failures are reported in the Summary.
func (d *Downloader) Download(ctx context.Context, urls []string, outDir string) (*Summary, error) {
	if err := storage.EnsureDir(d.fs, outDir); err != nil {
		return nil, err
	}

	summary := &Summary{Results: make([]Result, len(urls))}
	if len(urls) == 0 {
		return summary, nil
	}

	bar := d.newProgressBar(len(urls))
	var wg sync.WaitGroup

	for i, planned := range PlanTargets(urls, outDir) {
		if planned.Err != nil {
			summary.Results[i] = Result{URL: planned.Target.URL, Err: planned.Err}
			_ = bar.Add(1)
			continue
		}

		wg.Add(1)
		go func(i int, target Target) {
			defer wg.Done()
			n, err := d.fetch(ctx, target)
			summary.Results[i] = Result{URL: target.URL, Path: target.Path, Bytes: n, Err: err}
			if err == nil {
				logging.Logger.Debug("downloaded", "url", target.URL, "path", target.Path, "bytes", n)
			}
			_ = bar.Add(1)
		}(i, planned.Target)
	}

	wg.Wait()
	_ = bar.Finish()

	return summary, nil
}

func (d *Downloader) fetch(ctx context.Context, target Target) (int64, error) {
	var written int64
	err := d.client.Fetch(ctx, target.URL, func(resp *http.Response) error {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}

		n, err := storage.WriteStream(d.fs, target.Path, resp.Body, d.maxBodySize)
		if err != nil {
			return err
		}
		written = n
		return nil
	})
	return written, err
}

func (d *Downloader) newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(d.progress),
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
