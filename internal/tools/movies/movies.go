package movies

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
    "title": {"type": "string", "description": "Movie or series title"},
    "year": {"type": "string", "description": "Release year, optional"}
  },
  "required": ["title"],
  "additionalProperties": false
}`

// New returns the movie lookup tool backed by OMDb.
func New(cfg config.OMDbConfig) tools.Tool {
	return tools.Tool{
		Name:        "movie_lookup",
		Description: "Look up a movie or series: plot, cast, year and ratings.",
		ArgsSchema:  argsSchema,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			title, _ := args["title"].(string)
			year, _ := args["year"].(string)

			q := url.Values{}
			q.Set("t", title)
			q.Set("apikey", cfg.APIKey)
			if year != "" {
				q.Set("y", year)
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint+"?"+q.Encode(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("omdb returned status: %d", resp.StatusCode)
			}

			var raw struct {
				Response string `json:"Response"`
				Error    string `json:"Error"`
				Title    string `json:"Title"`
				Year     string `json:"Year"`
				Genre    string `json:"Genre"`
				Director string `json:"Director"`
				Actors   string `json:"Actors"`
				Plot     string `json:"Plot"`
				Ratings  []struct {
					Source string `json:"Source"`
					Value  string `json:"Value"`
				} `json:"Ratings"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
				return nil, fmt.Errorf("omdb response decode failed: %w", err)
			}
			if raw.Response != "True" {
				return map[string]any{"error": fmt.Sprintf("movie lookup failed: %s", raw.Error)}, nil
			}

			ratings := map[string]string{}
			for _, r := range raw.Ratings {
				ratings[r.Source] = r.Value
			}
			return map[string]any{
				"title":    raw.Title,
				"year":     raw.Year,
				"genre":    raw.Genre,
				"director": raw.Director,
				"actors":   raw.Actors,
				"plot":     raw.Plot,
				"ratings":  ratings,
			}, nil
		},
	}
}
