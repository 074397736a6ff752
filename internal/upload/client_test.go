package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"relaybot/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(cfg config.UploadConfig) *Client {
	c := NewClient(cfg, testLogger())
	c.delay = time.Millisecond // keep retries fast under test
	return c
}

func TestUpload_ImageBedSuccess(t *testing.T) {
	var gotQuery, gotName, gotMime string
	var gotBytes []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			t.Errorf("content type: %v", err)
		}
		part, err := multipart.NewReader(r.Body, params["boundary"]).NextPart()
		if err != nil {
			t.Errorf("multipart: %v", err)
			return
		}
		gotName = part.FileName()
		gotMime = part.Header.Get("Content-Type")
		gotBytes, _ = io.ReadAll(part)
		w.Write([]byte(`{"url":"https://cdn/v1.mp4"}`))
	}))
	defer srv.Close()

	c := newTestClient(config.UploadConfig{
		Method:      config.MethodImageBed,
		ImageBedURL: srv.URL + "/upload",
		AuthCode:    "sekrit",
	})

	out, err := c.Upload(context.Background(), "v1.mp4", "video/mp4", []byte("movie-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Succeeded || out.Backend != MethodImageBed {
		t.Errorf("outcome = %+v", out)
	}
	if out.URL != "https://cdn/v1.mp4" {
		t.Errorf("url = %q", out.URL)
	}
	if !strings.Contains(gotQuery, "returnFormat=full") || !strings.Contains(gotQuery, "authCode=sekrit") {
		t.Errorf("query = %q", gotQuery)
	}
	if gotName != "v1.mp4" || gotMime != "video/mp4" || string(gotBytes) != "movie-bytes" {
		t.Errorf("part: name=%q mime=%q bytes=%q", gotName, gotMime, gotBytes)
	}
}

func TestUpload_ExtractionFailureIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"quota exceeded"}`))
	}))
	defer srv.Close()

	c := newTestClient(config.UploadConfig{ImageBedURL: srv.URL})
	out, err := c.Upload(context.Background(), "a.png", "image/png", []byte("x"))
	if err != nil {
		t.Fatalf("2xx with unusable body must not error: %v", err)
	}
	if out.URL != "" {
		t.Errorf("url = %q", out.URL)
	}
	if !strings.Contains(out.RawResponse, "quota exceeded") {
		t.Errorf("raw response not preserved: %q", out.RawResponse)
	}
}

func TestUpload_RetriesExactlyThreeTimes(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(config.UploadConfig{ImageBedURL: srv.URL})
	_, err := c.Upload(context.Background(), "a.png", "image/png", []byte("x"))

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("attempts in error = %d", exhausted.Attempts)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("backend saw %d attempts, want 3", got)
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("exhausted error should carry the last failure: %v", err)
	}
}

func TestUpload_DefaultRetryDelayIsTwoSeconds(t *testing.T) {
	c := NewClient(config.UploadConfig{}, testLogger())
	if c.delay != 2*time.Second {
		t.Errorf("delay = %v", c.delay)
	}
}

func TestUpload_SucceedsAfterTransientFailure(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"url":"https://cdn/ok.png"}`))
	}))
	defer srv.Close()

	c := newTestClient(config.UploadConfig{ImageBedURL: srv.URL})
	out, err := c.Upload(context.Background(), "a.png", "image/png", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if out.URL != "https://cdn/ok.png" {
		t.Errorf("url = %q", out.URL)
	}
}

func TestUpload_WebDAVPutRawBytes(t *testing.T) {
	var gotMethod, gotPath, gotUser, gotPass, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(config.UploadConfig{
		Method: config.MethodWebDAV,
		WebDAV: config.WebDAVConfig{
			URL:      srv.URL + "/dav",
			Username: "alice",
			Password: "pw",
			Path:     "files",
		},
	})

	out, err := c.Upload(context.Background(), "doc.pdf", "application/pdf", []byte("pdf-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %q", gotMethod)
	}
	if gotPath != "/dav/files/doc.pdf" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "alice" || gotPass != "pw" {
		t.Errorf("auth = %q:%q", gotUser, gotPass)
	}
	if gotBody != "pdf-bytes" {
		t.Errorf("body = %q (must be raw bytes, not multipart)", gotBody)
	}
	if out.Backend != MethodWebDAV || out.URL != srv.URL+"/dav/files/doc.pdf" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestUpload_WebDAVPublicURLOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(config.UploadConfig{
		Method: config.MethodWebDAV,
		WebDAV: config.WebDAVConfig{
			URL:       srv.URL,
			Path:      "/files/",
			PublicURL: "https://cdn.example/share",
		},
	})
	out, err := c.Upload(context.Background(), "doc.pdf", "application/pdf", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if out.URL != "https://cdn.example/share/files/doc.pdf" {
		t.Errorf("url = %q", out.URL)
	}
}

func TestJoinWebDAVPath(t *testing.T) {
	cases := []struct {
		base, sub, name, want string
	}{
		{"https://d/", "/files/", "a.txt", "https://d/files/a.txt"},
		{"https://d", "files", "a.txt", "https://d/files/a.txt"},
		{"https://d", "", "a.txt", "https://d/a.txt"},
		{"https://d", "", "with space.txt", "https://d/with%20space.txt"},
	}
	for _, c := range cases {
		if got := joinWebDAVPath(c.base, c.sub, c.name); got != c.want {
			t.Errorf("joinWebDAVPath(%q,%q,%q) = %q, want %q", c.base, c.sub, c.name, got, c.want)
		}
	}
}
