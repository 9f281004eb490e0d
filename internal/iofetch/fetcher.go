// Package iofetch downloads yearly snapshots and their documentation
// into the artifact store.
package iofetch

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/gnames/cinder/pkg/retry"
	"github.com/gnames/gn"
)

// Metrics receives download statistics.
type Metrics interface {
	AddFetchBytes(n int64)
	IncFetchRetries()
}

type fetcher struct {
	store   lifecycle.ArtifactStore
	policy  retry.Policy
	client  *http.Client
	metrics Metrics
	// maxBytes limits one body, zero means no limit.
	maxBytes int64
}

// Option changes defaults of the fetcher.
type Option func(*fetcher)

// OptClient sets the HTTP client.
func OptClient(c *http.Client) Option {
	return func(f *fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// OptMetrics sets the receiver of download statistics.
func OptMetrics(m Metrics) Option {
	return func(f *fetcher) {
		f.metrics = m
	}
}

// OptMaxBytes limits the size of one downloaded file. Larger bodies
// fail without retries.
func OptMaxBytes(n int64) Option {
	return func(f *fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// New creates a fetcher. Timeout limits one request including its
// body.
func New(
	store lifecycle.ArtifactStore,
	policy retry.Policy,
	timeout time.Duration,
	opts ...Option,
) lifecycle.Fetcher {
	res := &fetcher{
		store:  store,
		policy: policy,
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Fetch downloads missing artifacts of a year. A failed documentation
// download does not fail the year.
func (f *fetcher) Fetch(
	ctx context.Context,
	yd lifecycle.YearDescriptor,
) (lifecycle.FetchedArtifacts, error) {
	res := lifecycle.FetchedArtifacts{
		Year:         yd.Year,
		SnapshotPath: f.store.PathOf(yd.Year, lifecycle.Snapshot),
	}
	haveSnap := f.store.Exists(yd.Year, lifecycle.Snapshot)
	haveDocs := !yd.HasDocs() || f.store.Exists(yd.Year, lifecycle.Docs)
	if yd.HasDocs() && haveDocs {
		res.DocsPath = f.store.PathOf(yd.Year, lifecycle.Docs)
	}

	if haveSnap && haveDocs {
		res.Cached = true
		slog.Info("Snapshot is cached", "year", yd.Year, "path", res.SnapshotPath)
		return res, nil
	}

	if !haveSnap {
		task := f.task(yd.Year, lifecycle.Snapshot, yd.SnapshotURL)
		if err := f.download(ctx, task); err != nil {
			return res, err
		}
		res.Bytes += task.Bytes
	}

	if !haveDocs {
		task := f.task(yd.Year, lifecycle.Docs, yd.DocsURL)
		err := f.download(ctx, task)
		switch {
		case err == nil:
			res.Bytes += task.Bytes
			res.DocsPath = task.TargetPath
		case ctx.Err() != nil:
			return res, err
		default:
			slog.Warn("Cannot download documentation",
				"year", yd.Year, "url", yd.DocsURL, "error", err)
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("documentation is not downloaded: %s", err))
		}
	}
	return res, nil
}

func (f *fetcher) task(
	year int,
	kind lifecycle.Kind,
	url string,
) *lifecycle.DownloadTask {
	return &lifecycle.DownloadTask{
		Year:       year,
		Kind:       kind,
		URL:        url,
		TargetPath: f.store.PathOf(year, kind),
	}
}

func (f *fetcher) download(ctx context.Context, task *lifecycle.DownloadTask) error {
	start := time.Now()

	op := func(int) error {
		if err := task.Start(); err != nil {
			return retry.Permanent(err)
		}
		n, err := f.attempt(ctx, task)
		if err != nil {
			return err
		}
		return task.Finish(n)
	}

	notify := func(attempt int, err error, wait time.Duration) {
		if f.metrics != nil {
			f.metrics.IncFetchRetries()
		}
		slog.Warn("Download failed, retrying",
			"year", task.Year, "kind", task.Kind, "attempt", attempt,
			"wait", wait.String(), "error", err)
	}

	err := f.policy.Do(ctx, op, notify)
	if err == nil {
		slog.Info("Downloaded",
			"year", task.Year,
			"kind", task.Kind,
			"size", humanize.Bytes(uint64(task.Bytes)),
			"duration", time.Since(start).Round(time.Millisecond).String(),
		)
		return nil
	}

	var exhErr *retry.ExhaustedError
	if errors.As(err, &exhErr) {
		err = ExhaustedError(task.URL, exhErr.Attempts, exhErr.Err)
	} else if ctx.Err() != nil {
		err = fmt.Errorf("download of %s cancelled: %w", task.URL, ctx.Err())
	}
	task.Fail(err)
	return err
}

// attempt makes one GET request. Errors that must not be retried are
// marked as permanent.
func (f *fetcher) attempt(ctx context.Context, task *lifecycle.DownloadTask) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return 0, retry.Permanent(MalformedError(task.URL, err.Error()))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, retry.Permanent(ctx.Err())
		}
		return 0, err
	}
	defer resp.Body.Close()

	if err = checkResponse(resp, task); err != nil {
		return 0, err
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return 0, retry.Permanent(f.tooLarge(task.URL, resp.ContentLength))
	}

	h, err := f.store.OpenForWrite(task.Year, task.Kind)
	if err != nil {
		return 0, retry.Permanent(err)
	}
	defer h.Close()

	var w io.Writer = h
	md5sum := resp.Header.Get("Content-MD5")
	hasher := md5.New()
	if md5sum != "" {
		w = io.MultiWriter(h, hasher)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	n, err := io.Copy(w, body)
	if f.metrics != nil && n > 0 {
		f.metrics.AddFetchBytes(n)
	}
	if err != nil {
		var gnErr *gn.Error
		switch {
		case ctx.Err() != nil:
			return n, retry.Permanent(ctx.Err())
		case errors.As(err, &gnErr):
			// a local write problem
			return n, retry.Permanent(err)
		default:
			return n, fmt.Errorf("body of %s truncated after %d bytes: %w",
				task.URL, n, err)
		}
	}

	if f.maxBytes > 0 && n > f.maxBytes {
		return n, retry.Permanent(f.tooLarge(task.URL, n))
	}

	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, fmt.Errorf("body of %s has %d bytes instead of %d",
			task.URL, n, resp.ContentLength)
	}

	if md5sum != "" {
		want, err := base64.StdEncoding.DecodeString(md5sum)
		if err == nil && !bytes.Equal(want, hasher.Sum(nil)) {
			return n, fmt.Errorf("body of %s does not match Content-MD5", task.URL)
		}
	}

	if err = h.Commit(); err != nil {
		return n, retry.Permanent(err)
	}
	return n, nil
}

func (f *fetcher) tooLarge(url string, n int64) error {
	return MalformedError(url, fmt.Sprintf(
		"body is larger than %s (%d bytes or more)",
		humanize.IBytes(uint64(f.maxBytes)), n,
	))
}

// checkResponse classifies HTTP statuses. Server errors and throttling
// are transient, missing files and other client errors are permanent.
func checkResponse(resp *http.Response, task *lifecycle.DownloadTask) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return retry.Permanent(NotFoundError(task.URL, code))
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("GET %s: HTTP %d", task.URL, code)
	case code < 200 || code > 299:
		return retry.Permanent(
			MalformedError(task.URL, fmt.Sprintf("HTTP %d", code)),
		)
	}

	if task.Kind == lifecycle.Snapshot {
		mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if mt == "text/html" {
			return retry.Permanent(
				MalformedError(task.URL, "HTML page instead of an archive"),
			)
		}
	}
	return nil
}
