package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	acceptLanguage = "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7"
	acceptEncoding = "gzip, deflate"
)

// HTTPClient загружает страницы сайта через net/http
type HTTPClient struct {
	client  *http.Client
	baseURL string
	referer string
	logger  *zap.Logger
}

// NewHTTPClient создает новый HTTP клиент
func NewHTTPClient(config HTTPClientConfig, timeout time.Duration, profile Profile, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{
		Transport: newTransport(config),
		Timeout:   timeout,
	}

	return &HTTPClient{
		client:  client,
		baseURL: profile.BaseURL,
		referer: profile.Referer,
		logger:  logger,
	}
}

func newTransport(config HTTPClientConfig) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		DisableKeepAlives:     config.DisableKeepAlives,
	}
}

// Fetch выполняет один GET запрос по пути относительно BaseURL профиля.
// Повторов нет: любой сбой транспорта или статус вне 2xx возвращается как *FetchError.
func (c *HTTPClient) Fetch(ctx context.Context, path string) (*goquery.Document, error) {
	target, err := resolveURL(c.baseURL, path)
	if err != nil {
		return nil, &FetchError{Path: path, URL: path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{Path: path, URL: target, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	for key, value := range requestHeaders(c.baseURL, c.referer) {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Path: path, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// тело читаем, чтобы соединение вернулось в пул
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{Path: path, URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Path: path, URL: target, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	body = decodeBody(resp.Header.Get("Content-Encoding"), body)

	c.logger.Debug("Fetched page",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Path: path, URL: target, Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}
	return doc, nil
}

// resolveURL склеивает базовый адрес и относительный путь
func resolveURL(baseURL, path string) (string, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// requestHeaders возвращает заголовки браузера и свежий токен X-Requested-By
func requestHeaders(baseURL, referer string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": acceptLanguage,
		"Accept-Encoding": acceptEncoding,
		"Referer":         referer,
		"Origin":          strings.TrimRight(baseURL, "/"),
		"X-Requested-By":  decoyToken(),
	}
}
