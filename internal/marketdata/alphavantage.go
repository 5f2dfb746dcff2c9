package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfolio/portfolio-service/internal/models"
)

const defaultAlphaVantageURL = "https://www.alphavantage.co/query"

// AlphaVantageClient implements Provider against the Alpha Vantage REST API
type AlphaVantageClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAlphaVantageClient creates a client with the given API key
func NewAlphaVantageClient(apiKey string) *AlphaVantageClient {
	return &AlphaVantageClient{
		apiKey:  apiKey,
		baseURL: defaultAlphaVantageURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewAlphaVantageClientWithBaseURL creates a client against a custom endpoint, used in tests
func NewAlphaVantageClientWithBaseURL(apiKey, baseURL string) *AlphaVantageClient {
	c := NewAlphaVantageClient(apiKey)
	c.baseURL = baseURL
	return c
}

// Name identifies this provider in cache keys
func (c *AlphaVantageClient) Name() string {
	return "alphavantage"
}

type alphaVantageResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Open          string `json:"02. open"`
		High          string `json:"03. high"`
		Low           string `json:"04. low"`
		Price         string `json:"05. price"`
		PreviousClose string `json:"08. previous close"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
	TimeSeriesDaily map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
		Type   string `json:"3. type"`
	} `json:"bestMatches"`
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

// GetQuote fetches the current global quote for a symbol
func (c *AlphaVantageClient) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	result, err := c.call(ctx, url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
	})
	if err != nil {
		return nil, err
	}

	if result.GlobalQuote.Price == "" {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	quote := &models.Quote{Symbol: symbol, Timestamp: time.Now()}
	fields := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{result.GlobalQuote.Price, &quote.Price},
		{result.GlobalQuote.Change, &quote.Change},
		{strings.TrimSuffix(result.GlobalQuote.ChangePercent, "%"), &quote.ChangePercent},
		{result.GlobalQuote.High, &quote.High},
		{result.GlobalQuote.Low, &quote.Low},
		{result.GlobalQuote.Open, &quote.Open},
		{result.GlobalQuote.PreviousClose, &quote.PreviousClose},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse quote field %q: %w", f.raw, err)
		}
		*f.dst = d
	}
	return quote, nil
}

// GetHistoricalData fetches the daily close-price series for a symbol,
// ascending by date. Ranges longer than three months request the provider's
// full history; shorter ranges use the compact window.
func (c *AlphaVantageClient) GetHistoricalData(ctx context.Context, symbol string, rng models.Range) ([]*models.DailyPricePoint, error) {
	outputSize := "compact"
	switch rng {
	case models.RangeHalfYear, models.RangeYear, models.RangeAll:
		outputSize = "full"
	}

	result, err := c.call(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {outputSize},
	})
	if err != nil {
		return nil, err
	}

	if len(result.TimeSeriesDaily) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	points := make([]*models.DailyPricePoint, 0, len(result.TimeSeriesDaily))
	for day, bar := range result.TimeSeriesDaily {
		date, err := time.Parse(models.DayFormat, day)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date %q: %w", day, err)
		}

		p := &models.DailyPricePoint{Symbol: symbol, Provider: c.Name(), Date: date}
		for _, f := range []struct {
			raw string
			dst *decimal.Decimal
		}{
			{bar.Open, &p.Open},
			{bar.High, &p.High},
			{bar.Low, &p.Low},
			{bar.Close, &p.Close},
		} {
			d, err := decimal.NewFromString(f.raw)
			if err != nil {
				return nil, fmt.Errorf("failed to parse bar for %s on %s: %w", symbol, day, err)
			}
			*f.dst = d
		}
		if bar.Volume != "" {
			p.Volume, _ = strconv.ParseInt(bar.Volume, 10, 64)
		}
		points = append(points, p)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points, nil
}

// SearchSymbols queries the provider's symbol search
func (c *AlphaVantageClient) SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	result, err := c.call(ctx, url.Values{
		"function": {"SYMBOL_SEARCH"},
		"keywords": {query},
	})
	if err != nil {
		return nil, err
	}

	matches := make([]models.SymbolMatch, 0, len(result.BestMatches))
	for _, m := range result.BestMatches {
		matches = append(matches, models.SymbolMatch{
			Symbol: m.Symbol,
			Name:   m.Name,
			Type:   m.Type,
		})
	}
	return matches, nil
}

func (c *AlphaVantageClient) call(ctx context.Context, params url.Values) (*alphaVantageResponse, error) {
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidAPIKey
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var result alphaVantageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if err := classify(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// classify maps Alpha Vantage's in-band error payloads onto the failure
// taxonomy. The API answers 200 OK for throttling and bad symbols alike,
// distinguishing them only by which message field is populated.
func classify(r *alphaVantageResponse) error {
	if r.Note != "" || strings.Contains(r.Information, "rate limit") {
		return ErrRateLimited
	}
	if strings.Contains(strings.ToLower(r.Information), "apikey") ||
		strings.Contains(strings.ToLower(r.ErrorMessage), "apikey") {
		return ErrInvalidAPIKey
	}
	if r.ErrorMessage != "" {
		return fmt.Errorf("%w: %s", ErrSymbolNotFound, r.ErrorMessage)
	}
	return nil
}
