package iofetch_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gnames/cinder/internal/ioartifact"
	"github.com/gnames/cinder/internal/iofetch"
	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/gnames/cinder/pkg/pipeline"
	"github.com/gnames/cinder/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var snapshot = []byte("PK\x03\x04 pretend this is a zip archive")

type testMetrics struct {
	bytes   atomic.Int64
	retries atomic.Int64
}

func (m *testMetrics) AddFetchBytes(n int64) { m.bytes.Add(n) }
func (m *testMetrics) IncFetchRetries()      { m.retries.Add(1) }

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func newFetcher(t *testing.T, m *testMetrics) (lifecycle.Fetcher, lifecycle.ArtifactStore) {
	store := ioartifact.New(t.TempDir())
	f := iofetch.New(store, testPolicy(), 5*time.Second, iofetch.OptMetrics(m))
	return f, store
}

func serveFile(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	sum := md5.Sum(data)
	w.Header().Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
	_, _ = w.Write(data)
}

func TestFetch(t *testing.T) {
	assert := assert.New(t)
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			switch r.URL.Path {
			case "/2004.zip":
				serveFile(w, snapshot)
			case "/2004_docs.zip":
				serveFile(w, []byte("docs"))
			default:
				http.NotFound(w, r)
			}
		}))
	defer srv.Close()

	m := &testMetrics{}
	f, store := newFetcher(t, m)
	yd := lifecycle.YearDescriptor{
		Year:        2004,
		SnapshotURL: srv.URL + "/2004.zip",
		DocsURL:     srv.URL + "/2004_docs.zip",
	}

	res, err := f.Fetch(context.Background(), yd)
	require.NoError(t, err)
	assert.False(res.Cached)
	assert.Equal(int64(len(snapshot)+4), res.Bytes)
	assert.Equal(int64(len(snapshot)+4), m.bytes.Load())
	assert.Equal(store.PathOf(2004, lifecycle.Snapshot), res.SnapshotPath)
	assert.Equal(store.PathOf(2004, lifecycle.Docs), res.DocsPath)

	data, err := os.ReadFile(res.SnapshotPath)
	require.NoError(t, err)
	assert.Equal(snapshot, data)

	// second fetch does not touch the network
	res, err = f.Fetch(context.Background(), yd)
	require.NoError(t, err)
	assert.True(res.Cached)
	assert.Equal(int64(2), calls.Load())
}

func TestFetchNotFound(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.NotFound(w, r)
		}))
	defer srv.Close()

	f, store := newFetcher(t, &testMetrics{})
	_, err := f.Fetch(context.Background(), lifecycle.YearDescriptor{
		Year:        2010,
		SnapshotURL: srv.URL + "/2010.zip",
	})
	require.Error(t, err)
	assert.Equal(t, pipeline.NotFound, pipeline.KindOf(err))
	assert.Equal(t, int64(1), calls.Load(), "404 is not retried")
	assert.False(t, store.Exists(2010, lifecycle.Snapshot))
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			serveFile(w, snapshot)
		}))
	defer srv.Close()

	m := &testMetrics{}
	f, store := newFetcher(t, m)
	_, err := f.Fetch(context.Background(), lifecycle.YearDescriptor{
		Year:        2011,
		SnapshotURL: srv.URL + "/2011.zip",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, int64(2), m.retries.Load())
	assert.True(t, store.Exists(2011, lifecycle.Snapshot))
}

func TestFetchExhausted(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
	defer srv.Close()

	f, _ := newFetcher(t, &testMetrics{})
	_, err := f.Fetch(context.Background(), lifecycle.YearDescriptor{
		Year:        2012,
		SnapshotURL: srv.URL + "/2012.zip",
	})
	require.Error(t, err)
	assert.Equal(t, pipeline.Exhausted, pipeline.KindOf(err))
	assert.Equal(t, int64(3), calls.Load())
}

func TestFetchTruncated(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Content-Length", strconv.Itoa(len(snapshot)+100))
				_, _ = w.Write(snapshot)
				return
			}
			serveFile(w, snapshot)
		}))
	defer srv.Close()

	f, store := newFetcher(t, &testMetrics{})
	_, err := f.Fetch(context.Background(), lifecycle.YearDescriptor{
		Year:        2013,
		SnapshotURL: srv.URL + "/2013.zip",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())

	data, err := os.ReadFile(store.PathOf(2013, lifecycle.Snapshot))
	require.NoError(t, err)
	assert.Equal(t, snapshot, data)
}

func TestFetchChecksumMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-MD5", "AAAAAAAAAAAAAAAAAAAAAA==")
			_, _ = w.Write(snapshot)
		}))
	defer srv.Close()

	f, store := newFetcher(t, &testMetrics{})
	_, err := f.Fetch(context.Background(), lifecycle.YearDescriptor{
		Year:        2014,
		SnapshotURL: srv.URL + "/2014.zip",
	})
	assert.Equal(t, pipeline.Exhausted, pipeline.KindOf(err))
	assert.False(t, store.Exists(2014, lifecycle.Snapshot))
}

func TestFetchHTMLInsteadOfSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		}))
	defer srv.Close()

	f, _ := newFetcher(t, &testMetrics{})
	_, err := f.Fetch(context.Background(), lifecycle.YearDescriptor{
		Year:        2015,
		SnapshotURL: srv.URL + "/2015.zip",
	})
	assert.Equal(t, pipeline.Malformed, pipeline.KindOf(err))
}

func TestFetchTooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("x"), 64)

	tests := []struct {
		name    string
		year    int
		handler http.HandlerFunc
	}{
		{
			name: "content length over limit",
			year: 2018,
			handler: func(w http.ResponseWriter, r *http.Request) {
				serveFile(w, big)
			},
		},
		{
			name: "chunked body over limit",
			year: 2019,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/zip")
				_, _ = w.Write(big[:8])
				w.(http.Flusher).Flush()
				_, _ = w.Write(big[8:])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int64
			srv := httptest.NewServer(http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					calls.Add(1)
					tt.handler(w, r)
				}))
			defer srv.Close()

			store := ioartifact.New(t.TempDir())
			f := iofetch.New(store, testPolicy(), 5*time.Second,
				iofetch.OptMaxBytes(16))
			_, err := f.Fetch(context.Background(), lifecycle.YearDescriptor{
				Year:        tt.year,
				SnapshotURL: srv.URL + "/big.zip",
			})
			require.Error(t, err)
			assert.Equal(t, pipeline.Malformed, pipeline.KindOf(err))
			assert.Equal(t, int64(1), calls.Load(), "oversized body is not retried")
			assert.False(t, store.Exists(tt.year, lifecycle.Snapshot))
		})
	}
}

func TestFetchWithinLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			serveFile(w, snapshot)
		}))
	defer srv.Close()

	store := ioartifact.New(t.TempDir())
	f := iofetch.New(store, testPolicy(), 5*time.Second,
		iofetch.OptMaxBytes(int64(len(snapshot))))
	_, err := f.Fetch(context.Background(), lifecycle.YearDescriptor{
		Year:        2020,
		SnapshotURL: srv.URL + "/2020.zip",
	})
	require.NoError(t, err)
	assert.True(t, store.Exists(2020, lifecycle.Snapshot))
}

func TestFetchDocsFailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/2016.zip" {
				serveFile(w, snapshot)
				return
			}
			http.NotFound(w, r)
		}))
	defer srv.Close()

	f, _ := newFetcher(t, &testMetrics{})
	res, err := f.Fetch(context.Background(), lifecycle.YearDescriptor{
		Year:        2016,
		SnapshotURL: srv.URL + "/2016.zip",
		DocsURL:     srv.URL + "/2016_docs.zip",
	})
	require.NoError(t, err)
	assert.Empty(t, res.DocsPath)
	assert.Len(t, res.Warnings, 1)
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f, store := newFetcher(t, &testMetrics{})
	_, err := f.Fetch(ctx, lifecycle.YearDescriptor{
		Year:        2017,
		SnapshotURL: srv.URL + "/2017.zip",
	})
	assert.Equal(t, pipeline.Cancelled, pipeline.KindOf(err))
	assert.False(t, store.Exists(2017, lifecycle.Snapshot))
}

func TestDownloadTask(t *testing.T) {
	task := lifecycle.DownloadTask{Year: 2004}
	assert.Equal(t, lifecycle.Pending, task.Status)
	assert.Error(t, task.Finish(10))
	require.NoError(t, task.Start())
	require.NoError(t, task.Finish(10))
	assert.Equal(t, lifecycle.Done, task.Status)
	assert.Error(t, task.Start())
	task.Fail(nil)
	assert.Equal(t, lifecycle.Done, task.Status)
}
