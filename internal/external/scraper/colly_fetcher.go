package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// CollyFetcher загружает страницы через коллектор colly
type CollyFetcher struct {
	collector *colly.Collector
	baseURL   string
	referer   string
	logger    *zap.Logger
}

// NewCollyFetcher создает Fetcher на базе colly
func NewCollyFetcher(config HTTPClientConfig, timeout time.Duration, profile Profile, logger *zap.Logger) *CollyFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.WithTransport(newTransport(config))
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
	})
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}

	return &CollyFetcher{
		collector: c,
		baseURL:   profile.BaseURL,
		referer:   profile.Referer,
		logger:    logger,
	}
}

// Fetch выполняет один GET запрос через клон коллектора.
// Клон нужен, чтобы колбэки одного вызова не видели ответы другого.
func (f *CollyFetcher) Fetch(ctx context.Context, path string) (*goquery.Document, error) {
	target, err := resolveURL(f.baseURL, path)
	if err != nil {
		return nil, &FetchError{Path: path, URL: path, Err: err}
	}

	c := f.collector.Clone()
	c.Context = ctx

	var (
		body      []byte
		responded bool
		fetchErr  error
	)

	c.OnRequest(func(r *colly.Request) {
		for key, value := range requestHeaders(f.baseURL, f.referer) {
			r.Headers.Set(key, value)
		}
	})

	c.OnResponse(func(r *colly.Response) {
		encoding := r.Headers.Get("Content-Encoding")
		// gzip colly распаковывает сам
		if strings.Contains(strings.ToLower(encoding), "gzip") {
			encoding = ""
		}
		body = decodeBody(encoding, r.Body)
		responded = true
		f.logger.Debug("Fetched page",
			zap.String("url", target),
			zap.Int("status", r.StatusCode),
			zap.Int("bytes", len(body)))
	})

	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		if status >= 200 && status <= 299 {
			status = 0
		}
		if status != 0 {
			fetchErr = &FetchError{Path: path, URL: target, StatusCode: status}
			return
		}
		fetchErr = &FetchError{Path: path, URL: target, Err: err}
	})

	if err := c.Visit(target); err != nil && fetchErr == nil {
		fetchErr = &FetchError{Path: path, URL: target, Err: err}
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if !responded {
		return nil, &FetchError{Path: path, URL: target, Err: fmt.Errorf("empty response")}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Path: path, URL: target, Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}
	return doc, nil
}
