package websocket

import (
	"net/http"
	"sync"
	"time"

	"auction-sync/internal/domain"
	"auction-sync/internal/services"
	"auction-sync/pkg/logger"
	"auction-sync/pkg/utils"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the live feed is public
	},
}

type FeedSnapshotMessage struct {
	Type string           `json:"type"`
	Bids []domain.LiveBid `json:"bids"`
}

type LiveBidMessage struct {
	Type string         `json:"type"`
	Bid  domain.LiveBid `json:"bid"`
}

type WebSocketHandler struct {
	feed        *services.LiveFeed
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewWebSocketHandler(feed *services.LiveFeed, connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		feed:        feed,
		connManager: connManager,
		log:         log,
	}
}

// HandleConnection upgrades the request, sends the current feed and then
// streams every new bid until the client goes away.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewWebSocketConnection(conn, utils.GenerateID("conn"), userID)

	// Snapshot first so the client never sees a bid before the list it
	// belongs to.
	if err := wsConn.Send(FeedSnapshotMessage{Type: "feed_snapshot", Bids: h.feed.Feed()}); err != nil {
		h.log.Error("Failed to send feed snapshot", "error", err)
		wsConn.Close()
		return
	}

	if err := h.connManager.RegisterConnection(wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		wsConn.Close()
		return
	}

	go h.keepAlive(wsConn)
	go h.handleMessages(wsConn)
}

func (h *WebSocketHandler) handleMessages(conn *WebSocketConnection) {
	defer func() {
		h.connManager.UnregisterConnection(conn.ID())
		conn.Close()
	}()

	conn.conn.SetReadLimit(maxMessageSize)
	conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg map[string]interface{}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Error("Failed to read message", "conn_id", conn.ID(), "error", err)
			}
			return
		}

		msgType, ok := msg["type"].(string)
		if !ok {
			continue
		}

		switch msgType {
		case "ping":
			conn.Send(map[string]string{"type": "pong"})
		case "snapshot":
			conn.Send(FeedSnapshotMessage{Type: "feed_snapshot", Bids: h.feed.Feed()})
		}
	}
}

func (h *WebSocketHandler) keepAlive(conn *WebSocketConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-conn.closed:
			return
		case <-ticker.C:
			if err := conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return
			}
		}
	}
}

type WebSocketConnection struct {
	conn      *websocket.Conn
	id        string
	userID    string
	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func NewWebSocketConnection(conn *websocket.Conn, id, userID string) *WebSocketConnection {
	return &WebSocketConnection{
		conn:   conn,
		id:     id,
		userID: userID,
		closed: make(chan struct{}),
	}
}

func (wsc *WebSocketConnection) Send(message interface{}) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()

	wsc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return wsc.conn.WriteJSON(message)
}

func (wsc *WebSocketConnection) Close() error {
	var err error
	wsc.closeOnce.Do(func() {
		close(wsc.closed)
		err = wsc.conn.Close()
	})
	return err
}

func (wsc *WebSocketConnection) ID() string {
	return wsc.id
}

func (wsc *WebSocketConnection) UserID() string {
	return wsc.userID
}
