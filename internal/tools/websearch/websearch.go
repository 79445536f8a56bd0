package websearch

import (
	"context"
	"fmt"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/tools"
	"github.com/novachat/nova/internal/tools/websearch/brave"
	"github.com/novachat/nova/internal/tools/websearch/models"
	"github.com/novachat/nova/internal/tools/websearch/serper"
)

// Searcher is one web search backend.
type Searcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

const (
	SerperProvider = "serper"
	BraveProvider  = "brave"
)

const argsSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Web search query"}
  },
  "required": ["query"],
  "additionalProperties": false
}`

// NewSearcher picks the backend configured for web search.
func NewSearcher(cfg config.WebSearchConfig) (Searcher, error) {
	switch cfg.Provider {
	case SerperProvider:
		return serper.Search{ApiKey: cfg.SerperAPIKey}, nil
	case BraveProvider:
		return brave.Search{ApiKey: cfg.BraveAPIKey}, nil
	default:
		return nil, fmt.Errorf("unsupported web search provider: %s", cfg.Provider)
	}
}

// New returns the web search tool over the configured backend.
func New(cfg config.WebSearchConfig) (tools.Tool, error) {
	searcher, err := NewSearcher(cfg)
	if err != nil {
		return tools.Tool{}, err
	}
	return tools.Tool{
		Name:        "web_search",
		Description: "Search the web and return the top results with snippets.",
		ArgsSchema:  argsSchema,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			query, _ := args["query"].(string)
			results, err := searcher.Discover(ctx, query, cfg.MaxResults)
			if err != nil {
				return nil, fmt.Errorf("web search failed: %w", err)
			}
			if len(results) == 0 {
				return map[string]any{"error": fmt.Sprintf("no results for %q", query)}, nil
			}
			out := make([]map[string]any, 0, len(results))
			for _, r := range results {
				out = append(out, map[string]any{"title": r.Title, "url": r.URL, "snippet": r.Snippet})
			}
			return map[string]any{"results": out}, nil
		},
	}, nil
}
