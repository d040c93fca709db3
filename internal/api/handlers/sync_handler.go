package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"auction-sync/internal/domain"
	"auction-sync/internal/services"
	"auction-sync/pkg/logger"

	"github.com/labstack/echo/v4"
)

type FeedReader interface {
	Feed() []domain.LiveBid
}

type ActiveBidReader interface {
	ActiveBids(ctx context.Context, userID string) ([]domain.ActiveBid, error)
	WonListings(ctx context.Context, userID string, page, pageSize int) (domain.Page[*domain.Listing], error)
}

type QueryReader interface {
	Get(ctx context.Context, key domain.QueryKey) (json.RawMessage, error)
}

type SyncHandler struct {
	feed      FeedReader
	bids      ActiveBidReader
	queries   QueryReader
	publisher domain.EventPublisher
	log       logger.Logger
}

type RouteResponse struct {
	Type    domain.EventType  `json:"type"`
	Targets []domain.QueryKey `json:"targets"`
}

func NewSyncHandler(feed FeedReader, bids ActiveBidReader, queries QueryReader,
	publisher domain.EventPublisher, log logger.Logger) *SyncHandler {
	return &SyncHandler{
		feed:      feed,
		bids:      bids,
		queries:   queries,
		publisher: publisher,
		log:       log,
	}
}

func (h *SyncHandler) Register(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.GET("/users/:id/active-bids", h.GetActiveBids)
	g.GET("/users/:id/won-listings", h.GetWonListings)
	g.GET("/queries/:kind", h.GetQuery)
	g.GET("/queries/:kind/:scope", h.GetQuery)
	g.POST("/events", h.PublishEvent)
	g.POST("/events/route", h.RouteEvent)
	g.POST("/live-bids", h.PublishLiveBid)
}

func (h *SyncHandler) GetFeed(c echo.Context) error {
	bids := h.feed.Feed()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"bids":  bids,
		"count": len(bids),
	})
}

func (h *SyncHandler) GetActiveBids(c echo.Context) error {
	userID := c.Param("id")

	active, err := h.bids.ActiveBids(c.Request().Context(), userID)
	if err != nil {
		h.log.Error("Failed to load active bids", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load active bids"})
	}

	return c.JSON(http.StatusOK, active)
}

func (h *SyncHandler) GetWonListings(c echo.Context) error {
	userID := c.Param("id")

	page, err := intParam(c, "page", 0)
	if err != nil || page < 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid page"})
	}
	size, err := intParam(c, "size", 20)
	if err != nil || size <= 0 || size > 100 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid size"})
	}

	result, err := h.bids.WonListings(c.Request().Context(), userID, page, size)
	if err != nil {
		h.log.Error("Failed to load won listings", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load won listings"})
	}

	return c.JSON(http.StatusOK, result)
}

func (h *SyncHandler) GetQuery(c echo.Context) error {
	parts := []string{c.Param("kind")}
	if scope := c.Param("scope"); scope != "" {
		parts = append(parts, scope)
	}

	key, err := domain.ParseQueryKey(parts)
	if err == nil {
		err = key.Validate()
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	data, err := h.queries.Get(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
		}
		h.log.Error("Failed to load query", "key", key.String(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load query"})
	}

	return c.JSONBlob(http.StatusOK, data)
}

// PublishEvent accepts a domain event from the backend and puts it on the
// broker; every instance routes it from there.
func (h *SyncHandler) PublishEvent(c echo.Context) error {
	var event domain.DomainEvent
	if err := c.Bind(&event); err != nil || event.Type == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid event"})
	}

	if err := h.publisher.PublishDomainEvent(c.Request().Context(), &event); err != nil {
		h.log.Error("Failed to publish event", "type", event.Type, "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to publish event"})
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}

// RouteEvent reports the targets an event would invalidate without touching
// the cache.
func (h *SyncHandler) RouteEvent(c echo.Context) error {
	var event domain.DomainEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid event"})
	}

	targets := services.Route(event).Slice()
	keys := make([]domain.QueryKey, 0, len(targets))
	for _, t := range targets {
		keys = append(keys, domain.NewQueryKey(t.Kind, t.ScopeID))
	}

	return c.JSON(http.StatusOK, RouteResponse{Type: event.Type, Targets: keys})
}

func (h *SyncHandler) PublishLiveBid(c echo.Context) error {
	var bid domain.LiveBid
	if err := c.Bind(&bid); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid bid"})
	}
	if err := bid.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.publisher.PublishLiveBid(c.Request().Context(), &bid); err != nil {
		h.log.Error("Failed to publish live bid", "listing_id", bid.ListingID, "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to publish live bid"})
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}

func intParam(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
