// Package fetch downloads web pages for analysis.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/hyperjump/pagegrade/internal/config"
	"github.com/hyperjump/pagegrade/internal/extract"
)

// Error describes a failed fetch of one URL. StatusCode is 0 when no response was received.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Result is a downloaded page decoded to UTF-8.
type Result struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	HTML        string
}

// Fetcher downloads pages with a browser User-Agent, a timeout and optional pacing.
type Fetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger for fetch diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New returns a Fetcher configured from cfg. RequestsPerSec <= 0 disables pacing.
func New(cfg config.FetchConfig, opts ...Option) *Fetcher {
	f := &Fetcher{logger: zap.NewNop()}
	for _, o := range opts {
		o(f)
	}

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	f.limiter = rate.NewLimiter(limit, 1)

	f.client = resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8").
		SetRetryCount(0).
		SetLogger(f.logger.Sugar())
	if cfg.MaxBodyBytes > 0 {
		f.client.SetResponseBodyLimit(int(cfg.MaxBodyBytes))
	}
	return f
}

// Fetch downloads rawURL. Non-2xx responses and transport failures are returned as *Error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("invalid url: must be absolute http(s)")}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}

	resp, err := f.client.R().SetContext(ctx).Get(u.String())
	if err != nil {
		f.logger.Debug("Fetch failed", zap.String("url", rawURL), zap.Error(err))
		return nil, &Error{URL: rawURL, Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		f.logger.Debug("Fetch returned error status", zap.String("url", rawURL), zap.Int("status", resp.StatusCode()))
		return nil, &Error{
			URL:        rawURL,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected status %s", resp.Status()),
		}
	}

	contentType := resp.Header().Get("Content-Type")
	finalURL := u.String()
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}
	return &Result{
		URL:         rawURL,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode(),
		ContentType: contentType,
		HTML:        Decode(resp.Body(), contentType),
	}, nil
}

// Decode converts a page body to UTF-8. A charset from the Content-Type header, a BOM or
// a <meta> tag wins; otherwise non-UTF-8 bodies are sniffed with chardet.
func Decode(body []byte, contentType string) string {
	_, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain && name == "windows-1252" && !utf8.Valid(body) {
		if guess, err := chardet.NewTextDetector().DetectBest(body); err == nil && guess != nil && guess.Charset != "" {
			contentType = "text/html; charset=" + strings.ToLower(guess.Charset)
		}
	}
	return extract.DecodeHTML(body, contentType)
}
