package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/novachat/nova/internal/tools"
)

const endpoint = "https://query1.finance.yahoo.com/v8/finance/chart/"

const argsSchema = `{
  "type": "object",
  "properties": {
    "symbol": {"type": "string", "description": "Ticker symbol, e.g. AAPL"}
  },
  "required": ["symbol"],
  "additionalProperties": false
}`

// New returns the stock quote tool backed by the Yahoo Finance chart API.
func New() tools.Tool {
	return tools.Tool{
		Name:        "stock_quote",
		Description: "Get the latest price and daily change for a stock ticker.",
		ArgsSchema:  argsSchema,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			symbol, _ := args["symbol"].(string)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+symbol+"?range=1d&interval=1d", nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; nova/1.0)")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			var raw struct {
				Chart struct {
					Result []struct {
						Meta struct {
							Symbol             string  `json:"symbol"`
							Currency           string  `json:"currency"`
							RegularMarketPrice float64 `json:"regularMarketPrice"`
							PreviousClose      float64 `json:"chartPreviousClose"`
						} `json:"meta"`
					} `json:"result"`
					Error *struct {
						Description string `json:"description"`
					} `json:"error"`
				} `json:"chart"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
				return nil, fmt.Errorf("quote response decode failed: %w", err)
			}
			if raw.Chart.Error != nil {
				return map[string]any{"error": fmt.Sprintf("quote lookup failed: %s", raw.Chart.Error.Description)}, nil
			}
			if len(raw.Chart.Result) == 0 {
				return map[string]any{"error": fmt.Sprintf("no quote data for %q", symbol)}, nil
			}

			meta := raw.Chart.Result[0].Meta
			change := meta.RegularMarketPrice - meta.PreviousClose
			pct := 0.0
			if meta.PreviousClose != 0 {
				pct = change / meta.PreviousClose * 100
			}
			return map[string]any{
				"symbol":         meta.Symbol,
				"currency":       meta.Currency,
				"price":          meta.RegularMarketPrice,
				"previous_close": meta.PreviousClose,
				"change":         change,
				"change_percent": pct,
			}, nil
		},
	}
}
