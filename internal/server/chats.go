package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/novachat/nova/internal/agent"
	"github.com/novachat/nova/internal/chatstore"
)

// ChatsHandler exposes conversation CRUD and the streaming message endpoint.
type ChatsHandler struct {
	Store   chatstore.Store
	Planner *agent.Planner
	Runner  *agent.Runner
	Logger  *log.Logger
}

func (h *ChatsHandler) Register(g *echo.Group) {
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/rename", h.rename)
	g.POST("/:id/messages", h.postMessage)
}

func (h *ChatsHandler) create(c echo.Context) error {
	var req CreateChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	chat, err := h.Store.Create(c.Request().Context(), req.SystemPrompt)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, chat)
}

func (h *ChatsHandler) list(c echo.Context) error {
	chats, err := h.Store.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	summaries := make([]ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summaries = append(summaries, ChatSummary{ID: chat.ID, Title: chat.Title, LastUpdated: chat.LastUpdated})
	}
	return c.JSON(http.StatusOK, summaries)
}

func (h *ChatsHandler) get(c echo.Context) error {
	chat, err := h.Store.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, chatstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "chat not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, chat)
}

func (h *ChatsHandler) delete(c echo.Context) error {
	err := h.Store.Delete(c.Request().Context(), c.Param("id"))
	if errors.Is(err, chatstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "chat not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ChatsHandler) rename(c echo.Context) error {
	ctx := c.Request().Context()
	var req RenameChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		chat, err := h.Store.Get(ctx, c.Param("id"))
		if errors.Is(err, chatstore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "chat not found")
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		opener := firstUserMessage(chat)
		if opener == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "chat has no messages to derive a title from")
		}
		title, err = h.Planner.GenerateTitle(ctx, opener)
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		title = strings.Trim(strings.TrimSpace(title), `"`)
	}

	if err := h.Store.Rename(ctx, c.Param("id"), title); err != nil {
		if errors.Is(err, chatstore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "chat not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"title": title})
}

// postMessage runs the plan/execute loop for one user message and streams the
// response as NDJSON {"content": ...} lines.
func (h *ChatsHandler) postMessage(c echo.Context) error {
	ctx := c.Request().Context()
	var req PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message required")
	}

	chat, err := h.Store.Get(ctx, c.Param("id"))
	if errors.Is(err, chatstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "chat not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	history := chat.Messages
	userTurn := agent.Turn{Role: "user", Content: req.Message}
	if err := h.Store.AppendTurn(ctx, chat.ID, userTurn); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(resp)
	sink := func(fragment string) error {
		if err := enc.Encode(StreamChunk{Content: fragment}); err != nil {
			return err
		}
		resp.Flush()
		return nil
	}

	raw := h.Planner.GeneratePlan(ctx, req.Message, history)
	result := h.Runner.RunRaw(ctx, raw, req.Message, history, sink)

	if result.State != agent.StateAborted && result.Answer != "" {
		if err := h.Store.AppendTurn(ctx, chat.ID, agent.Turn{Role: "assistant", Content: result.Answer}); err != nil {
			h.Logger.Printf("failed to persist assistant turn for chat %s: %v", chat.ID, err)
		}
	}

	// first exchange names the chat, best effort
	if chat.Title == "New Chat" && len(history) == 0 {
		if title, err := h.Planner.GenerateTitle(ctx, req.Message); err == nil {
			title = strings.Trim(strings.TrimSpace(title), `"`)
			if title != "" {
				_ = h.Store.Rename(ctx, chat.ID, title)
			}
		}
	}
	return nil
}

func firstUserMessage(chat chatstore.Chat) string {
	for _, turn := range chat.Messages {
		if turn.Role == "user" {
			return turn.Content
		}
	}
	return ""
}
