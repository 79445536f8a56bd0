package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/tools"
)

const argsSchema = `{
  "type": "object",
  "properties": {
    "location": {"type": "string", "description": "City name, optionally with country code"}
  },
  "required": ["location"],
  "additionalProperties": false
}`

// New returns the current-weather tool backed by OpenWeatherMap.
func New(cfg config.WeatherConfig) tools.Tool {
	return tools.Tool{
		Name:        "get_weather",
		Description: "Get the current weather for a location.",
		ArgsSchema:  argsSchema,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			location, _ := args["location"].(string)

			q := url.Values{}
			q.Set("q", location)
			q.Set("appid", cfg.APIKey)
			q.Set("units", "metric")
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint+"?"+q.Encode(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			var raw struct {
				Name    string `json:"name"`
				Weather []struct {
					Description string `json:"description"`
				} `json:"weather"`
				Main struct {
					Temp      float64 `json:"temp"`
					FeelsLike float64 `json:"feels_like"`
					Humidity  int     `json:"humidity"`
				} `json:"main"`
				Wind struct {
					Speed float64 `json:"speed"`
				} `json:"wind"`
				Cod     any    `json:"cod"`
				Message string `json:"message"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
				return nil, fmt.Errorf("weather response decode failed: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				msg := raw.Message
				if msg == "" {
					msg = resp.Status
				}
				return map[string]any{"error": fmt.Sprintf("weather lookup failed: %s", msg)}, nil
			}

			condition := ""
			if len(raw.Weather) > 0 {
				condition = raw.Weather[0].Description
			}
			return map[string]any{
				"location":      raw.Name,
				"temperature_c": raw.Main.Temp,
				"feels_like_c":  raw.Main.FeelsLike,
				"condition":     condition,
				"humidity":      raw.Main.Humidity,
				"wind_mps":      raw.Wind.Speed,
			}, nil
		},
	}
}
