package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novachat/nova/config"
	"github.com/novachat/nova/internal/agent"
	"github.com/novachat/nova/internal/agent/telemetry"
	"github.com/novachat/nova/internal/chatstore"
	"github.com/novachat/nova/internal/runtime"
	"github.com/novachat/nova/internal/tools"
	"github.com/novachat/nova/internal/tools/arxiv"
	"github.com/novachat/nova/internal/tools/documents"
	"github.com/novachat/nova/internal/tools/finance"
	"github.com/novachat/nova/internal/tools/magnet"
	"github.com/novachat/nova/internal/tools/movies"
	"github.com/novachat/nova/internal/tools/news"
	"github.com/novachat/nova/internal/tools/readpage"
	"github.com/novachat/nova/internal/tools/weather"
	"github.com/novachat/nova/internal/tools/websearch"
	"github.com/novachat/nova/internal/tools/wiki"
	ollama "github.com/novachat/nova/provider/ollama"
)

// Run wires the whole service and serves HTTP until the process exits.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	if cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	ctx := context.Background()

	store, err := chatstore.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("chat store: %w", err)
	}

	registry, err := BuildRegistry(cfg.Tools)
	if err != nil {
		return fmt.Errorf("tool registry: %w", err)
	}

	prov := ollama.NewClient(cfg.LLM.BaseURL, cfg.LLM.Timeout)
	tele := telemetry.NewTelemetry(cfg.Telemetry)
	planner := agent.NewPlanner(registry, prov, cfg.LLM, tele)
	executor := agent.NewExecutor(registry, prov, cfg.LLM, tele)
	runner := agent.NewRunner(registry, executor, prov, cfg.LLM, tele)

	api := e.Group("/api")

	chats := api.Group("/chats")
	if cfg.Server.AuthPasswordHash != "" {
		secret, err := runtime.LoadJWTSecret(cfg)
		if err != nil {
			return err
		}
		auth := &AuthHandler{PasswordHash: []byte(cfg.Server.AuthPasswordHash), Secret: secret}
		auth.Register(api.Group("/auth"))
		chats.Use(runtime.EchoAuthMiddleware(secret))
	}

	ch := &ChatsHandler{
		Store:   store,
		Planner: planner,
		Runner:  runner,
		Logger:  log.New(log.Writer(), "[CHATS] ", log.LstdFlags),
	}
	ch.Register(chats)

	if cfg.Server.Retention.Enabled {
		sweeper := &Sweeper{Store: store, Retention: cfg.Server.Retention, Stop: make(chan struct{})}
		sweeper.Start()
	}

	addr := cfg.Server.Listen
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// BuildRegistry assembles the tool registry from config. Tools that need an
// API key are registered only when the key is configured.
func BuildRegistry(cfg config.ToolsConfig) (*tools.Registry, error) {
	list := []tools.Tool{
		wiki.New(),
		finance.New(),
		arxiv.New(cfg.Arxiv),
		magnet.New(cfg.Magnet),
		readpage.New(cfg.ReadPage),
	}
	if cfg.Weather.APIKey != "" {
		list = append(list, weather.New(cfg.Weather))
	}
	if cfg.NewsAPI.APIKey != "" {
		list = append(list, news.New(cfg.NewsAPI))
	}
	if cfg.OMDb.APIKey != "" {
		list = append(list, movies.New(cfg.OMDb))
	}
	if cfg.WebSearch.BraveAPIKey != "" || cfg.WebSearch.SerperAPIKey != "" {
		tool, err := websearch.New(cfg.WebSearch)
		if err != nil {
			return nil, err
		}
		list = append(list, tool)
	}
	if cfg.Documents.DataDir != "" || cfg.Documents.IndexPath != "" {
		idx, err := documents.NewIndex(cfg.Documents)
		if err != nil {
			return nil, err
		}
		list = append(list, documents.New(idx, cfg.Documents.TopK))
	}
	return tools.NewRegistry(list)
}
