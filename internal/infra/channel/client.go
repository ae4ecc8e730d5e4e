// Package channel provides access to channel source documents.
package channel

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// maxDocumentSize bounds the size of a source document.
const maxDocumentSize = 16 << 20

// StatusError is returned when the source server answers with a non-success status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return "unexpected HTTP status: " + e.Status
}

// Client fetches channel source documents over HTTP(S) or from local files.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// Config represents channel client configuration.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// New creates a new channel client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "tvchannel/1.0"
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
	}
}

// Fetch returns the raw document referenced by ref.
// ref is an http(s) URL, a file:// URL or a local path.
func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, errors.New("source reference is empty")
	}

	u, err := url.Parse(ref)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return c.fetchHTTP(ctx, ref)
		case "file":
			return c.fetchFile(u.Path)
		}
	}
	return c.fetchFile(ref)
}

func (c *Client) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.WithStack(&StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	zlog.Debug().Msgf("channel: fetched document: url=%s bytes=%d", ref, len(body))
	return body, nil
}

func (c *Client) fetchFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open source file")
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, maxDocumentSize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read source file")
	}

	zlog.Debug().Msgf("channel: read document: path=%s bytes=%d", path, len(body))
	return body, nil
}
