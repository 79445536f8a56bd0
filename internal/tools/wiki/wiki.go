package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/novachat/nova/internal/tools"
)

const endpoint = "https://en.wikipedia.org/w/api.php"

const argsSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Topic to look up on Wikipedia"}
  },
  "required": ["query"],
  "additionalProperties": false
}`

// New returns the Wikipedia summary tool (MediaWiki extracts API).
func New() tools.Tool {
	return tools.Tool{
		Name:        "wikipedia_search",
		Description: "Look up a topic on Wikipedia and return a short summary.",
		ArgsSchema:  argsSchema,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			query, _ := args["query"].(string)

			q := url.Values{}
			q.Set("action", "query")
			q.Set("format", "json")
			q.Set("prop", "extracts")
			q.Set("exintro", "1")
			q.Set("explaintext", "1")
			q.Set("redirects", "1")
			q.Set("generator", "search")
			q.Set("gsrsearch", query)
			q.Set("gsrlimit", "1")

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("wikipedia returned status: %d", resp.StatusCode)
			}

			var raw struct {
				Query struct {
					Pages map[string]struct {
						Title   string `json:"title"`
						Extract string `json:"extract"`
					} `json:"pages"`
				} `json:"query"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
				return nil, fmt.Errorf("wikipedia response decode failed: %w", err)
			}
			for _, page := range raw.Query.Pages {
				if page.Extract != "" {
					return map[string]any{"title": page.Title, "summary": page.Extract}, nil
				}
			}
			return map[string]any{"error": fmt.Sprintf("no Wikipedia article found for %q", query)}, nil
		},
	}
}
