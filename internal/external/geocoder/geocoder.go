// Package geocoder переводит адрес ресторана в координаты через Nominatim-совместимый API.
package geocoder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Result представляет результат геокодирования
type Result struct {
	Latitude   float64
	Longitude  float64
	Locality   *string
	PostalCode *string
}

// Config представляет конфигурацию геокодера
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client обращается к эндпоинту /search
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

type place struct {
	Lat     string  `json:"lat"`
	Lon     string  `json:"lon"`
	Address address `json:"address"`
}

type address struct {
	City     string `json:"city"`
	Town     string `json:"town"`
	Village  string `json:"village"`
	Postcode string `json:"postcode"`
}

// New создает клиент геокодера
func New(config Config, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(config.Timeout).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "application/json")

	return &Client{
		http:   client,
		logger: logger,
	}
}

// Geocode возвращает координаты адреса или nil, если адрес не найден
func (c *Client) Geocode(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var places []place
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":              query,
			"format":         "jsonv2",
			"addressdetails": "1",
			"limit":          "1",
		}).
		SetResult(&places).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("geocoding request failed with status %d", resp.StatusCode())
	}

	if len(places) == 0 {
		c.logger.Info("Address not found by geocoder", zap.String("address", query))
		return nil, nil
	}

	return places[0].result()
}

func (p place) result() (*Result, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", p.Lon, err)
	}

	result := &Result{Latitude: lat, Longitude: lon}
	for _, locality := range []string{p.Address.City, p.Address.Town, p.Address.Village} {
		if locality != "" {
			result.Locality = &locality
			break
		}
	}
	if p.Address.Postcode != "" {
		postcode := p.Address.Postcode
		result.PostalCode = &postcode
	}
	return result, nil
}
