// Package router exposes the HTTP gateway: the message endpoint the
// chat transport calls into, user settings management, and reminder
// listings.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/aikumi/companion/internal/profile"
	"github.com/aikumi/companion/plugin/ai/persona"
	"github.com/aikumi/companion/plugin/ai/reminder"
	"github.com/aikumi/companion/server/chat"
	"github.com/aikumi/companion/server/render"
	"github.com/aikumi/companion/server/timezone"
	"github.com/aikumi/companion/store"
)

// Gateway is the HTTP surface of the companion service.
type Gateway struct {
	echo         *echo.Echo
	profile      *profile.Profile
	store        *store.Store
	orchestrator *chat.Orchestrator
	reminders    *reminder.Service
	limiter      *RateLimiter
}

// NewGateway builds the echo server and registers every route.
func NewGateway(p *profile.Profile, s *store.Store, orchestrator *chat.Orchestrator, reminders *reminder.Service) *Gateway {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	g := &Gateway{
		echo:         e,
		profile:      p,
		store:        s,
		orchestrator: orchestrator,
		reminders:    reminders,
		limiter:      NewRateLimiter(),
	}

	e.GET("/healthz", g.health)

	api := e.Group("/api/v1")
	api.POST("/messages", g.postMessage, g.rateLimit)
	api.GET("/users/:id/settings", g.getSettings)
	api.PUT("/users/:id/settings", g.putSettings)
	api.GET("/users/:id/reminders", g.listReminders)

	return g
}

// Start serves until the listener fails or Shutdown is called.
func (g *Gateway) Start(addr string) error {
	return g.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.echo.Shutdown(ctx)
}

// Echo exposes the underlying server for tests.
func (g *Gateway) Echo() *echo.Echo {
	return g.echo
}

func (g *Gateway) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": g.profile.Version,
	})
}

type messageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type messageResponse struct {
	Reply string `json:"reply"`
}

func (g *Gateway) postMessage(c echo.Context) error {
	var req messageRequest
	if cached, ok := c.Get(messageContextKey).(*messageRequest); ok {
		req = *cached
	} else if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if req.UserID == "" || req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and text are required")
	}

	reply, err := g.orchestrator.Handle(c.Request().Context(), req.UserID, req.Text)
	if err != nil {
		slog.Error("message handling failed", "user_id", req.UserID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to handle message")
	}
	return c.JSON(http.StatusOK, messageResponse{Reply: reply})
}

type settingsPayload struct {
	Role     *string `json:"role"`
	Gender   *string `json:"gender"`
	Timezone *string `json:"timezone"`
}

type settingsResponse struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	Gender   string `json:"gender"`
	Timezone string `json:"timezone"`
}

func toSettingsResponse(setting *store.UserSetting) settingsResponse {
	return settingsResponse{
		UserID:   setting.UserID,
		Role:     setting.Role,
		Gender:   setting.Gender,
		Timezone: setting.Timezone,
	}
}

func (g *Gateway) getSettings(c echo.Context) error {
	setting, err := g.store.GetUserSetting(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load settings")
	}
	if setting == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no settings stored")
	}
	return c.JSON(http.StatusOK, toSettingsResponse(setting))
}

func (g *Gateway) putSettings(c echo.Context) error {
	var payload settingsPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if payload.Role != nil && !persona.Known(*payload.Role) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown role")
	}
	if payload.Timezone != nil && !timezone.IsValidTimezone(*payload.Timezone) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown timezone")
	}

	setting, err := g.store.UpsertUserSetting(c.Request().Context(), &store.UpsertUserSetting{
		UserID:   c.Param("id"),
		Role:     payload.Role,
		Gender:   payload.Gender,
		Timezone: payload.Timezone,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save settings")
	}
	return c.JSON(http.StatusOK, toSettingsResponse(setting))
}

type reminderEntry struct {
	UID      string `json:"uid"`
	RemindAt string `json:"remind_at"`
	Content  string `json:"content"`
}

type remindersResponse struct {
	Reminders []reminderEntry `json:"reminders"`
	Rendered  string          `json:"rendered"`
}

func (g *Gateway) listReminders(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("id")

	var (
		listing []*store.Reminder
		err     error
		mode    render.Mode
	)
	switch c.QueryParam("range") {
	case "today":
		mode = render.ModeToday
		listing, err = g.reminders.ListToday(ctx, userID)
	case "week":
		mode = render.ModeWeek
		listing, err = g.reminders.ListWeek(ctx, userID)
	default:
		mode = render.ModeAll
		listing, err = g.reminders.List(ctx, userID)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list reminders")
	}

	loc := g.reminders.Location(ctx, userID)
	role := ""
	if setting, err := g.store.GetUserSetting(ctx, userID); err == nil && setting != nil {
		role = setting.Role
	}

	entries := make([]reminderEntry, 0, len(listing))
	for _, r := range listing {
		entries = append(entries, reminderEntry{
			UID:      r.UID,
			RemindAt: r.RemindAt.UTC().Format(time.RFC3339),
			Content:  r.Content,
		})
	}
	return c.JSON(http.StatusOK, remindersResponse{
		Reminders: entries,
		Rendered:  render.Schedule(listing, persona.Lookup(role), loc, mode),
	})
}

// rateLimit rejects callers that exceed the per-user budget.
func (g *Gateway) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req messageRequest
		if err := c.Bind(&req); err == nil {
			// Bind consumed the body; hand the parsed form to the
			// handler through the request context.
			c.Set(messageContextKey, &req)
			if req.UserID != "" && !g.limiter.Allow(req.UserID) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "slow down a little")
			}
		}
		return next(c)
	}
}

const messageContextKey = "parsed-message"
