package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/tools"
)

const argsSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Paper topic or keywords"}
  },
  "required": ["query"],
  "additionalProperties": false
}`

type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []author `xml:"author"`
}

type author struct {
	Name string `xml:"name"`
}

// New returns the paper search tool backed by the arXiv Atom API.
func New(cfg config.ArxivConfig) tools.Tool {
	return tools.Tool{
		Name:        "arxiv_search",
		Description: "Search arXiv for academic papers on a topic.",
		ArgsSchema:  argsSchema,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			query, _ := args["query"].(string)

			q := url.Values{}
			q.Set("search_query", "all:"+query)
			q.Set("start", "0")
			q.Set("max_results", strconv.Itoa(cfg.MaxResults))
			q.Set("sortBy", "relevance")
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
				return nil, fmt.Errorf("arxiv returned status: %d", resp.StatusCode)
			}

			var f feed
			if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
				return nil, fmt.Errorf("arxiv response decode failed: %w", err)
			}
			if len(f.Entries) == 0 {
				return map[string]any{"error": fmt.Sprintf("no papers found for %q", query)}, nil
			}

			papers := make([]map[string]any, 0, len(f.Entries))
			for _, e := range f.Entries {
				authors := make([]string, 0, len(e.Authors))
				for _, a := range e.Authors {
					authors = append(authors, a.Name)
				}
				papers = append(papers, map[string]any{
					"title":     strings.Join(strings.Fields(e.Title), " "),
					"summary":   strings.TrimSpace(e.Summary),
					"authors":   authors,
					"url":       e.ID,
					"published": e.Published,
				})
			}
			return map[string]any{"papers": papers}, nil
		},
	}
}
