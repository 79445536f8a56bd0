package magnet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/tools"
	"github.com/novachat/nova/utils"
)

const argsSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Torrent name to search for"}
  },
  "required": ["query"],
  "additionalProperties": false
}`

// New returns the torrent metadata tool backed by the apibay JSON API.
func New(cfg config.MagnetConfig) tools.Tool {
	return tools.Tool{
		Name:        "magnet_link_fetcher",
		Description: "Search torrents and return magnet links with seed counts.",
		ArgsSchema:  argsSchema,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			query, _ := args["query"].(string)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint+"?q="+url.QueryEscape(query), nil)
			if err != nil {
				return nil, err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("torrent api returned status: %d", resp.StatusCode)
			}

			var raw []struct {
				ID       string `json:"id"`
				Name     string `json:"name"`
				InfoHash string `json:"info_hash"`
				Seeders  string `json:"seeders"`
				Size     string `json:"size"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
				return nil, fmt.Errorf("torrent response decode failed: %w", err)
			}
			// apibay answers "no results" with a single placeholder row
			if len(raw) == 0 || raw[0].ID == "0" {
				return map[string]any{"error": fmt.Sprintf("no torrents found for %q", query)}, nil
			}

			results := make([]map[string]any, 0, cfg.MaxResults)
			for i, r := range raw {
				if i >= cfg.MaxResults {
					break
				}
				results = append(results, map[string]any{
					"name":    r.Name,
					"magnet":  fmt.Sprintf("magnet:?xt=urn:btih:%s&dn=%s", r.InfoHash, utils.UrlQuery(r.Name)),
					"seeders": r.Seeders,
					"size":    r.Size,
				})
			}
			return map[string]any{"results": results}, nil
		},
	}
}
