package rate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultCBRURL is the public daily-rates feed of the Central Bank of Russia mirror.
const DefaultCBRURL = "https://www.cbr-xml-daily.ru/daily_json.js"

// CBRFetcher reads the USD rate from the CBR daily JSON feed.
type CBRFetcher struct {
	URL    string
	Client *http.Client
}

// NewCBRFetcher creates a fetcher with the given request timeout and optional proxy.
func NewCBRFetcher(feedURL string, timeout time.Duration, proxyURL string) *CBRFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if feedURL == "" {
		feedURL = DefaultCBRURL
	}
	return &CBRFetcher{
		URL: feedURL,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *CBRFetcher) Name() string { return "cbr" }

// cbrDaily is the subset of the feed document we rely on.
type cbrDaily struct {
	Valute map[string]struct {
		Value *float64 `json:"Value"`
	} `json:"Valute"`
}

func (f *CBRFetcher) FetchUSD(ctx context.Context) (float64, error) {
	v, err := f.fetch(ctx)
	if err != nil {
		return 0, &FetchError{Source: f.Name(), Err: err}
	}
	return v, nil
}

func (f *CBRFetcher) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d, body: %.200s", resp.StatusCode, string(body))
	}

	var doc cbrDaily
	if err := json.Unmarshal(body, &doc); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	usd, ok := doc.Valute["USD"]
	if !ok || usd.Value == nil {
		return 0, errors.New("USD value missing")
	}
	if *usd.Value <= 0 {
		return 0, fmt.Errorf("non-positive USD value %v", *usd.Value)
	}
	return *usd.Value, nil
}
