package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/tools"
)

const argsSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Topic or keywords to search news for"}
  },
  "required": ["query"],
  "additionalProperties": false
}`

// New returns the news headline tool backed by NewsAPI.
func New(cfg config.NewsAPIConfig) tools.Tool {
	return tools.Tool{
		Name:        "news_search",
		Description: "Search recent news articles about a topic.",
		ArgsSchema:  argsSchema,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			query, _ := args["query"].(string)

			q := url.Values{}
			q.Set("q", query)
			q.Set("sortBy", "publishedAt")
			q.Set("pageSize", strconv.Itoa(cfg.MaxResults))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint+"?"+q.Encode(), nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("X-Api-Key", cfg.APIKey)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			var raw struct {
				Status   string `json:"status"`
				Message  string `json:"message"`
				Articles []struct {
					Title       string `json:"title"`
					Description string `json:"description"`
					URL         string `json:"url"`
					Source      struct {
						Name string `json:"name"`
					} `json:"source"`
					PublishedAt string `json:"publishedAt"`
				} `json:"articles"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
				return nil, fmt.Errorf("news response decode failed: %w", err)
			}
			if raw.Status != "ok" {
				return map[string]any{"error": fmt.Sprintf("news search failed: %s", raw.Message)}, nil
			}

			articles := make([]map[string]any, 0, len(raw.Articles))
			for _, a := range raw.Articles {
				articles = append(articles, map[string]any{
					"title":        a.Title,
					"description":  a.Description,
					"url":          a.URL,
					"source":       a.Source.Name,
					"published_at": a.PublishedAt,
				})
			}
			return map[string]any{"articles": articles}, nil
		},
	}
}
