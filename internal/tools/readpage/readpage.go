package readpage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/tools"
	"github.com/novachat/nova/utils"
)

const argsSchema = `{
  "type": "object",
  "properties": {
    "url": {"type": "string", "description": "Page URL to fetch and read"}
  },
  "required": ["url"],
  "additionalProperties": false
}`

// New returns the page reading tool: headless render, then article
// extraction with readability.
func New(cfg config.ReadPageConfig) tools.Tool {
	return tools.Tool{
		Name:        "read_page",
		Description: "Fetch a web page and return its readable article text.",
		ArgsSchema:  argsSchema,
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			target, _ := args["url"].(string)
			if strings.TrimSpace(target) == "" {
				return nil, errors.New("invalid url")
			}

			ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()

			html, err := fetchHTML(ctx, target)
			if err != nil {
				return map[string]any{"error": fmt.Sprintf("page fetch failed: %v", err)}, nil
			}

			article, err := readability.FromReader(strings.NewReader(html), mustParseURL(target))
			if err != nil {
				return map[string]any{"error": fmt.Sprintf("article extraction failed: %v", err)}, nil
			}
			return map[string]any{
				"url":   target,
				"title": strings.TrimSpace(article.Title),
				"text":  utils.Truncate(strings.TrimSpace(article.TextContent), cfg.MaxChars),
			}, nil
		},
	}
}

func fetchHTML(ctx context.Context, target string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("NovaAgent/1.0 (+contact@example.com)"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
