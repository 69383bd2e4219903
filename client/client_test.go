package client_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/adamwoolhether/batchdl/client"
	"github.com/adamwoolhether/batchdl/progress"
)

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bodyServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)

	return ts
}

func TestClient_WithUserAgent(t *testing.T) {
	expectedUA := "TestUserAgent/1.0"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		if ua != expectedUA {
			t.Errorf("expected User-Agent %q, got %q", expectedUA, ua)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.Build(client.WithUserAgent(expectedUA), client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "ua.bin")
	if err := c.Transfer(t.Context(), ts.URL, destPath, nil); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}

func TestClient_WithTransport(t *testing.T) {
	expBody := "served by fake transport"

	var called bool
	fake := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return &http.Response{
			StatusCode:    http.StatusOK,
			Body:          io.NopCloser(strings.NewReader(expBody)),
			ContentLength: int64(len(expBody)),
			Header:        make(http.Header),
			Request:       r,
		}, nil
	})

	c, err := client.Build(client.WithTransport(fake))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "fake.bin")
	if err := c.Transfer(t.Context(), "http://fake.invalid/a.bin", destPath, nil); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !called {
		t.Error("custom transport was not called")
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if string(got) != expBody {
		t.Errorf("file contents mismatch; got %q, want %q", got, expBody)
	}
}

func TestClient_OptionValidation(t *testing.T) {
	testCases := []struct {
		name string
		opt  client.Option
	}{
		{name: "nil transport", opt: client.WithTransport(nil)},
		{name: "nil client", opt: client.WithClient(nil)},
		{name: "nil logger", opt: client.WithLogger(nil)},
		{name: "negative timeout", opt: client.WithTimeout(-1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := client.Build(tc.opt); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestClient_WithTimeoutZero(t *testing.T) {
	// Zero means no timeout per stdlib.
	if _, err := client.Build(client.WithTimeout(0)); err != nil {
		t.Fatalf("expected no error for zero timeout, got: %v", err)
	}
}

func TestClient_WithClientCustomTransport(t *testing.T) {
	var called bool
	hc := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			called = true
			return &http.Response{
				StatusCode:    http.StatusNoContent,
				Body:          http.NoBody,
				ContentLength: 0,
				Header:        make(http.Header),
				Request:       r,
			}, nil
		}),
	}

	c, err := client.Build(client.WithClient(hc))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "empty.bin")
	if err := c.Transfer(t.Context(), "http://fake.invalid/empty", destPath, nil); err != nil {
		t.Fatalf("expected no error for 204, got: %v", err)
	}

	if !called {
		t.Error("client transport was not used")
	}

	info, err := os.Stat(destPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty file, got %d bytes", info.Size())
	}
}

// /////////////////////////////////////////////////////////////////
// Transfer Tests

func TestClient_Transfer_Basic(t *testing.T) {
	expBody := []byte("hello download world")
	ts := bodyServer(t, expBody)

	c, err := client.Build(client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "downloaded.bin")

	if err := c.Transfer(t.Context(), ts.URL, destPath, nil); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}

	if !bytes.Equal(got, expBody) {
		t.Errorf("file contents mismatch; got %q, want %q", got, expBody)
	}
}

func TestClient_Transfer_Progress(t *testing.T) {
	expBody := bytes.Repeat([]byte("abcdefghij"), 100) // 1000 bytes
	ts := bodyServer(t, expBody)

	c, err := client.Build(client.WithLogger(quietLogger()), client.WithProgressLog())
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "progress.bin")

	var percents []int
	var lastRead, lastTotal int64
	onProgress := func(read, total int64, done bool) {
		percents = append(percents, progress.Percent(read, total, done))
		lastRead, lastTotal = read, total
	}

	if err := c.Transfer(t.Context(), ts.URL, destPath, onProgress); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(percents) == 0 {
		t.Fatal("expected progress ticks, got none")
	}

	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Errorf("percent decreased at tick %d: %d < %d", i, percents[i], percents[i-1])
		}
	}

	if last := percents[len(percents)-1]; last != 100 {
		t.Errorf("final percent = %d, want 100", last)
	}
	if lastRead != int64(len(expBody)) || lastTotal != int64(len(expBody)) {
		t.Errorf("final tick read/total = %d/%d, want %d/%d", lastRead, lastTotal, len(expBody), len(expBody))
	}
}

func TestClient_Transfer_ProgressUnknownLength(t *testing.T) {
	expBody := []byte("no content length")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Use Flusher to force chunked transfer encoding,
		// which results in ContentLength == -1.
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(expBody)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}))
	defer ts.Close()

	c, err := client.Build(client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "unknown-len.bin")

	var percents []int
	var totals []int64
	onProgress := func(read, total int64, done bool) {
		percents = append(percents, progress.Percent(read, total, done))
		totals = append(totals, total)
	}

	if err := c.Transfer(t.Context(), ts.URL, destPath, onProgress); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	for i, total := range totals {
		if total != -1 {
			t.Errorf("tick %d total = %d, want -1", i, total)
		}
	}

	for _, p := range percents[:len(percents)-1] {
		if p != 0 {
			t.Errorf("expected 0%% before EOF for unknown length, got %d", p)
		}
	}
	if last := percents[len(percents)-1]; last != 100 {
		t.Errorf("final percent = %d, want 100", last)
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}

	if !bytes.Equal(got, expBody) {
		t.Errorf("file contents mismatch; got %q, want %q", got, expBody)
	}
}

func TestClient_Transfer_EmptyDestPath(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not have been made")
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	if err := c.Transfer(t.Context(), ts.URL, "", nil); err == nil {
		t.Error("expected error for empty destPath, got nil")
	}
}

func TestClient_Transfer_StatusCodeMismatch(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		expAuth bool
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "redirect not followed", status: http.StatusNotModified},
		{name: "unauthorized", status: http.StatusUnauthorized, expAuth: true},
		{name: "forbidden", status: http.StatusForbidden, expAuth: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte("nope"))
			}))
			defer ts.Close()

			c, err := client.Build(client.WithLogger(quietLogger()))
			if err != nil {
				t.Fatalf("creating client: %v", err)
			}

			destPath := filepath.Join(t.TempDir(), "should-not-exist.bin")

			err = c.Transfer(t.Context(), ts.URL, destPath, nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var statusErr *client.UnexpectedStatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected *UnexpectedStatusError, got: %T: %v", err, err)
			}

			if statusErr.StatusCode != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, statusErr.StatusCode)
			}
			if !errors.Is(err, client.ErrUnexpectedStatusCode) {
				t.Errorf("expected ErrUnexpectedStatusCode in chain, got: %v", err)
			}
			if got := errors.Is(err, client.ErrAuthFailure); got != tc.expAuth {
				t.Errorf("errors.Is(err, ErrAuthFailure) = %t, want %t", got, tc.expAuth)
			}

			if _, statErr := os.Stat(destPath); !os.IsNotExist(statErr) {
				t.Errorf("expected file to not exist at %s after status code mismatch", destPath)
			}
		})
	}
}

func TestClient_Transfer_ErrorBodyCapped(t *testing.T) {
	bigBody := strings.Repeat("x", 10<<10) // 10KB

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(bigBody))
	}))
	defer ts.Close()

	c, err := client.Build(client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	err = c.Transfer(t.Context(), ts.URL, filepath.Join(t.TempDir(), "x.bin"), nil)

	var statusErr *client.UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *UnexpectedStatusError, got: %T: %v", err, err)
	}

	if len(statusErr.Body) != 4<<10 {
		t.Errorf("expected error body capped at %d bytes, got %d", 4<<10, len(statusErr.Body))
	}
}

func TestClient_Transfer_TransportFailures(t *testing.T) {
	// A server that is closed before use yields connection refused.
	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	testCases := []struct {
		name string
		url  string
	}{
		{name: "malformed url", url: "://missing-scheme"},
		{name: "unsupported scheme", url: "ftp://example.com/a.bin"},
		{name: "connection refused", url: closedURL},
	}

	c, err := client.Build(client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			destPath := filepath.Join(t.TempDir(), "a.bin")

			err := c.Transfer(t.Context(), tc.url, destPath, nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var statusErr *client.UnexpectedStatusError
			if errors.As(err, &statusErr) {
				t.Errorf("expected transport error, got status error: %v", err)
			}
		})
	}
}

func TestClient_Transfer_OverwriteIsIdempotent(t *testing.T) {
	expBody := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 250)
	ts := bodyServer(t, expBody)

	c, err := client.Build(client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "again.bin")
	if err := os.WriteFile(destPath, bytes.Repeat([]byte("stale"), 1000), 0o644); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	for i := range 2 {
		if err := c.Transfer(t.Context(), ts.URL, destPath, nil); err != nil {
			t.Fatalf("run %d: expected no error, got: %v", i, err)
		}

		got, err := os.ReadFile(destPath)
		if err != nil {
			t.Fatalf("reading file: %v", err)
		}
		if !bytes.Equal(got, expBody) {
			t.Errorf("run %d: file contents mismatch; got %d bytes, want %d", i, len(got), len(expBody))
		}
	}
}

func TestClient_Transfer_CancelMidDownload(t *testing.T) {
	// Server writes 1KB chunks with a delay between each to simulate a slow download.
	const chunkSize = 1024
	const totalChunks = 20
	chunk := bytes.Repeat([]byte("a"), chunkSize)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(chunkSize*totalChunks))
		w.WriteHeader(http.StatusOK)

		for range totalChunks {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			time.Sleep(100 * time.Millisecond)
		}
	}))
	defer ts.Close()

	c, err := client.Build(client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "cancelled.bin")

	ctx, cancel := context.WithCancel(t.Context())

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Transfer(ctx, ts.URL, destPath, nil)
	}()

	// Let a few chunks arrive, then cancel.
	time.Sleep(250 * time.Millisecond)
	cancel()

	err = <-errCh
	if err == nil {
		t.Fatal("expected error after cancellation, got nil")
	}

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestClient_Transfer_AlreadyCancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not have been made")
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel() // Cancel immediately.

	destPath := filepath.Join(t.TempDir(), "should-not-exist.bin")

	err = c.Transfer(ctx, ts.URL, destPath, nil)
	if err == nil {
		t.Fatal("expected error for already-cancelled context, got nil")
	}

	// The HTTP client rejects the request before it's sent, so the
	// error wraps context.Canceled rather than ErrDownloadCancelled.
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}

	if _, statErr := os.Stat(destPath); !os.IsNotExist(statErr) {
		t.Errorf("expected dest file to not exist at %s", destPath)
	}
}

func TestClient_Transfer_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer func() {
		close(release)
		ts.Close()
	}()

	c, err := client.Build(client.WithTimeout(50*time.Millisecond), client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	err = c.Transfer(t.Context(), ts.URL, filepath.Join(t.TempDir(), "slow.bin"), nil)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestClient_Transfer_AtomicWrites(t *testing.T) {
	// Hijack to send a raw response declaring more bytes than it carries.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("server doesn't support hijacking")
			return
		}
		conn, buf, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)
			return
		}
		defer conn.Close()
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nhello")
		_ = buf.Flush()
	}))
	defer ts.Close()

	tmpDir := t.TempDir()
	destPath := filepath.Join(tmpDir, "atomic.bin")
	prior := []byte("prior content")
	if err := os.WriteFile(destPath, prior, 0o644); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	c, err := client.Build(client.WithAtomicWrites(), client.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	if err := c.Transfer(t.Context(), ts.URL, destPath, nil); err == nil {
		t.Fatal("expected error for truncated body, got nil")
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if !bytes.Equal(got, prior) {
		t.Errorf("destination modified by failed atomic transfer; got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(tmpDir, ".batchdl-*"))
	if len(matches) > 0 {
		t.Errorf("expected no temp files, found: %v", matches)
	}
}
