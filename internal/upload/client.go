// Package upload submits relayed files to the configured backend and turns
// its loosely-shaped response into a public URL.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"relaybot/internal/config"
	"relaybot/internal/httpx"
)

const (
	maxAttempts   = 3
	retryDelay    = 2 * time.Second
	uploadTimeout = 60 * time.Second

	// errorExcerptLen bounds how much backend error text travels in errors.
	errorExcerptLen = 100
)

// Method identifies the backend strategy used for an upload.
type Method string

const (
	MethodImageBed Method = "imagebed"
	MethodWebDAV   Method = "webdav"
)

// Outcome is the result of a successful submission. URL is empty when the
// backend accepted the file but no link could be extracted from its response.
type Outcome struct {
	Succeeded   bool
	URL         string
	RawResponse string
	Backend     Method
}

// ExhaustedError is returned once all retry attempts failed. It carries the
// last underlying failure.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("upload failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Client uploads files with bounded retry. The strategy is fixed per client
// from configuration; retries never switch strategy mid-flight.
type Client struct {
	cfg    config.UploadConfig
	http   *http.Client
	logger *slog.Logger
	delay  time.Duration
}

func NewClient(cfg config.UploadConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   httpx.NewClient(uploadTimeout),
		logger: logger,
		delay:  retryDelay,
	}
}

// Upload submits the file, retrying up to 3 times with a fixed 2-second delay.
// Attempts are strictly sequential; concurrent racing attempts would risk
// duplicate uploads.
func (c *Client) Upload(ctx context.Context, fileName, mimeType string, data []byte) (Outcome, error) {
	method := MethodImageBed
	if c.cfg.Method == config.MethodWebDAV && c.cfg.WebDAV.URL != "" {
		method = MethodWebDAV
	}

	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return Outcome{}, ctx.Err()
			case <-time.After(c.delay):
			}
		}

		var out Outcome
		var err error
		switch method {
		case MethodWebDAV:
			out, err = c.putWebDAV(ctx, fileName, mimeType, data)
		default:
			out, err = c.postImageBed(ctx, fileName, mimeType, data)
		}
		if err == nil {
			return out, nil
		}
		last = err
		c.logger.Warn("upload attempt failed",
			"attempt", attempt, "max", maxAttempts, "backend", method, "err", err)
	}
	return Outcome{}, &ExhaustedError{Attempts: maxAttempts, Last: last}
}

// postImageBed POSTs a multipart body to the image bed, requesting the full
// response format plus the auth code when configured.
func (c *Client) postImageBed(ctx context.Context, fileName, mimeType string, data []byte) (Outcome, error) {
	u, err := url.Parse(c.cfg.ImageBedURL)
	if err != nil {
		return Outcome{}, fmt.Errorf("image bed URL: %w", err)
	}
	q := u.Query()
	q.Set("returnFormat", "full")
	if c.cfg.AuthCode != "" {
		q.Set("authCode", c.cfg.AuthCode)
	}
	u.RawQuery = q.Encode()

	body, boundary := EncodeMultipart(data, fileName, mimeType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return Outcome{}, err
	}
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)

	resp, err := c.http.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("image bed request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("image bed response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{}, fmt.Errorf("image bed upload failed (%d): %s", resp.StatusCode, excerpt(raw))
	}

	return Outcome{
		Succeeded:   true,
		URL:         ExtractURL(string(raw), c.cfg.ImageBedURL),
		RawResponse: string(raw),
		Backend:     MethodImageBed,
	}, nil
}

// putWebDAV PUTs the raw file bytes (no multipart wrapping) to the composed
// remote path, with Basic credentials when configured.
func (c *Client) putWebDAV(ctx context.Context, fileName, mimeType string, data []byte) (Outcome, error) {
	uploadPath := joinWebDAVPath(c.cfg.WebDAV.URL, c.cfg.WebDAV.Path, fileName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadPath, bytes.NewReader(data))
	if err != nil {
		return Outcome{}, err
	}
	req.Header.Set("Content-Type", mimeType)
	if c.cfg.WebDAV.Username != "" && c.cfg.WebDAV.Password != "" {
		req.SetBasicAuth(c.cfg.WebDAV.Username, c.cfg.WebDAV.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("webdav request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{}, fmt.Errorf("webdav upload failed (%d): %s", resp.StatusCode, excerpt(raw))
	}

	publicURL := uploadPath
	if c.cfg.WebDAV.PublicURL != "" {
		publicURL = joinWebDAVPath(c.cfg.WebDAV.PublicURL, c.cfg.WebDAV.Path, fileName)
	}
	return Outcome{
		Succeeded:   true,
		URL:         publicURL,
		RawResponse: string(raw),
		Backend:     MethodWebDAV,
	}, nil
}

// joinWebDAVPath composes base + sub-path + file name with exactly one slash
// at each seam, regardless of how the config spells the segments.
func joinWebDAVPath(base, sub, fileName string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	sub = strings.TrimPrefix(sub, "/")
	if sub != "" && !strings.HasSuffix(sub, "/") {
		sub += "/"
	}
	return base + sub + url.PathEscape(fileName)
}

func excerpt(raw []byte) string {
	if len(raw) > errorExcerptLen {
		raw = raw[:errorExcerptLen]
	}
	return string(raw)
}
