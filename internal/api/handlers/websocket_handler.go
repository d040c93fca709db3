package handlers

import (
	"net/http"

	"auction-sync/internal/domain"
	"auction-sync/internal/infrastructure/websocket"
	"auction-sync/internal/services"
	"auction-sync/pkg/logger"
)

type WebSocketHandlers struct {
	wsHandler *websocket.WebSocketHandler
}

func NewWebSocketHandlers(feed *services.LiveFeed, connManager domain.ConnectionManager,
	log logger.Logger) *WebSocketHandlers {
	wsHandler := websocket.NewWebSocketHandler(feed, connManager, log)
	return &WebSocketHandlers{
		wsHandler: wsHandler,
	}
}

func (h *WebSocketHandlers) HandleConnection(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.HandleConnection(w, r)
}
