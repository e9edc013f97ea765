package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bryanwahyu/alphatrend/internal/domain/quote"
)

const DefaultEndpoint = "https://query1.finance.yahoo.com/v8/finance/chart/"

// Client reads the latest price from the chart endpoint. Every failure is reported as quote.ErrNoLiveData.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

type Options struct {
	Endpoint string
	Timeout  time.Duration
	RPS      float64
	Burst    int
}

func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(opts.Endpoint, "/") {
		opts.Endpoint += "/"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	return &Client{
		endpoint: opts.Endpoint,
		http:     &http.Client{Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(limit, opts.Burst),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string   `json:"currency"`
				Symbol             string   `json:"symbol"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				PreviousClose      *float64 `json:"previousClose"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return quote.Quote{}, fmt.Errorf("%w: empty symbol", quote.ErrNoLiveData)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return quote.Quote{}, fmt.Errorf("%w: %v", quote.ErrNoLiveData, err)
	}

	u := c.endpoint + url.PathEscape(symbol) + "?range=1d&interval=1d&lang=en"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("%w: %v", quote.ErrNoLiveData, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; alphatrend/1.0)")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("%w: %v", quote.ErrNoLiveData, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return quote.Quote{}, fmt.Errorf("%w: %s returned %d", quote.ErrNoLiveData, symbol, resp.StatusCode)
	}

	var body chartResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return quote.Quote{}, fmt.Errorf("%w: decode %s: %v", quote.ErrNoLiveData, symbol, err)
	}
	if body.Chart.Error != nil {
		return quote.Quote{}, fmt.Errorf("%w: %s: %s", quote.ErrNoLiveData, symbol, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 {
		return quote.Quote{}, fmt.Errorf("%w: %s: no result", quote.ErrNoLiveData, symbol)
	}

	meta := body.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil {
		return quote.Quote{}, fmt.Errorf("%w: %s: no market price", quote.ErrNoLiveData, symbol)
	}

	prev := meta.PreviousClose
	if prev == nil {
		prev = meta.ChartPreviousClose
	}
	return quote.Quote{
		Symbol:        symbol,
		Price:         *meta.RegularMarketPrice,
		PreviousClose: prev,
		Currency:      meta.Currency,
	}, nil
}
