// Package assets persists logos and screenshots to a local directory.
// Scrape providers host captured assets on short-lived URLs, so anything
// worth keeping is downloaded as soon as the enricher sees it.
package assets

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aiagents-directory/directory-cli/internal/resilience"
)

// Asset kinds stored per submission.
const (
	KindLogo       = "logo"
	KindScreenshot = "screenshot"
)

const maxAssetBytes = 20 << 20 // refuse anything above 20 MiB

// Store writes assets under a base directory, one subdirectory per
// submission. Refs returned by Save are relative to the base directory
// and stable across runs.
type Store struct {
	dir    string
	client *http.Client
	retry  resilience.RetryConfig
}

// Option configures the Store.
type Option func(*Store)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Store) {
		s.client = hc
	}
}

// WithRetryConfig overrides download retry behavior.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(s *Store) {
		s.retry = cfg
	}
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "assets: create base directory")
	}
	s := &Store{
		dir: dir,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the base directory.
func (s *Store) Dir() string { return s.dir }

// Path resolves a ref returned by Save to an absolute path.
func (s *Store) Path(ref string) string {
	return filepath.Join(s.dir, filepath.FromSlash(ref))
}

// Save downloads srcURL and stores it as the given kind for a submission.
// Returns a relative ref like "a1b2c3/screenshot.png".
func (s *Store) Save(ctx context.Context, submissionID, kind, srcURL string) (string, error) {
	body, contentType, err := s.download(ctx, srcURL)
	if err != nil {
		return "", err
	}
	defer body.Close() //nolint:errcheck

	ext := extensionFor(contentType, srcURL)
	ref := path.Join(submissionID, kind+ext)
	dst := s.Path(ref)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", eris.Wrap(err, "assets: create submission directory")
	}

	file, err := os.Create(dst)
	if err != nil {
		return "", eris.Wrap(err, "assets: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, io.LimitReader(body, maxAssetBytes+1))
	if err != nil {
		_ = os.Remove(dst)
		return "", eris.Wrap(err, "assets: write file")
	}
	if n > maxAssetBytes {
		_ = os.Remove(dst)
		return "", eris.Errorf("assets: %s exceeds %d bytes", srcURL, maxAssetBytes)
	}
	if n == 0 {
		_ = os.Remove(dst)
		return "", eris.Errorf("assets: empty body from %s", srcURL)
	}

	zap.L().Debug("assets: saved",
		zap.String("submission_id", submissionID),
		zap.String("kind", kind),
		zap.String("ref", ref),
		zap.Int64("bytes", n),
	)
	return ref, nil
}

// Remove deletes all assets stored for a submission.
func (s *Store) Remove(submissionID string) error {
	if submissionID == "" {
		return eris.New("assets: empty submission id")
	}
	if err := os.RemoveAll(filepath.Join(s.dir, submissionID)); err != nil {
		return eris.Wrap(err, "assets: remove submission assets")
	}
	return nil
}

type downloadResult struct {
	body        io.ReadCloser
	contentType string
}

func (s *Store) download(ctx context.Context, srcURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "assets: create request")
	}

	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("assets", "download")

	res, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (downloadResult, error) {
		resp, err := s.client.Do(req.Clone(ctx))
		if err != nil {
			return downloadResult{}, err
		}
		if resp.StatusCode == http.StatusOK {
			return downloadResult{body: resp.Body, contentType: resp.Header.Get("Content-Type")}, nil
		}
		_ = resp.Body.Close()
		statusErr := eris.Errorf("assets: status %d from %s", resp.StatusCode, srcURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return downloadResult{}, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return downloadResult{}, statusErr
	})
	if err != nil {
		return nil, "", eris.Wrap(err, "assets: download")
	}
	return res.body, res.contentType, nil
}

// extensionFor picks a file extension from the Content-Type header,
// falling back to the URL path, then to ".png".
func extensionFor(contentType, srcURL string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		switch mediaType {
		case "image/png":
			return ".png"
		case "image/jpeg":
			return ".jpg"
		case "image/webp":
			return ".webp"
		case "image/svg+xml":
			return ".svg"
		case "image/gif":
			return ".gif"
		case "image/x-icon", "image/vnd.microsoft.icon":
			return ".ico"
		}
	}

	if u, err := url.Parse(srcURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	return ".png"
}
