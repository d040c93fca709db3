package websocket

import (
	"encoding/json"
	"sync"

	"auction-sync/internal/domain"
	"auction-sync/pkg/logger"
)

// sendBufferSize is the number of outgoing messages queued per connection
// before it counts as too slow and is dropped.
const sendBufferSize = 256

// client pairs a connection with its outgoing queue. Only writePump writes
// to conn for broadcasts.
type client struct {
	conn domain.WebSocketConnection
	send chan json.RawMessage
}

// ConnectionManager tracks live-feed connections by connection id. Broadcast
// never waits on a socket: each connection drains its own queue.
type ConnectionManager struct {
	connections map[string]*client
	sendBuffer  int
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*client),
		sendBuffer:  sendBufferSize,
		log:         log,
	}
}

func (cm *ConnectionManager) RegisterConnection(conn domain.WebSocketConnection) error {
	c := &client{
		conn: conn,
		send: make(chan json.RawMessage, cm.sendBuffer),
	}

	cm.mutex.Lock()
	if previous, ok := cm.connections[conn.ID()]; ok {
		close(previous.send)
	}
	cm.connections[conn.ID()] = c
	cm.mutex.Unlock()

	go cm.writePump(c)

	cm.log.Info("Connection registered", "conn_id", conn.ID(), "user_id", conn.UserID())
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(connID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if c, ok := cm.connections[connID]; ok {
		delete(cm.connections, connID)
		close(c.send)
		cm.log.Info("Connection unregistered", "conn_id", connID)
	}
	return nil
}

func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// Broadcast queues message on every connection and returns without waiting
// for delivery. A connection whose queue is full is closed and dropped.
func (cm *ConnectionManager) Broadcast(message interface{}) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	var slow []*client
	cm.mutex.RLock()
	for _, c := range cm.connections {
		select {
		case c.send <- json.RawMessage(messageBytes):
		default:
			slow = append(slow, c)
		}
	}
	cm.mutex.RUnlock()

	for _, c := range slow {
		cm.log.Warn("Dropping slow connection", "conn_id", c.conn.ID(), "queued", len(c.send))
		cm.drop(c)
	}
	return nil
}

func (cm *ConnectionManager) CloseAll() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for connID, c := range cm.connections {
		close(c.send)
		if err := c.conn.Close(); err != nil {
			cm.log.Error("Failed to close connection", "conn_id", connID, "error", err)
		}
		delete(cm.connections, connID)
	}

	cm.log.Info("All feed connections closed")
	return nil
}

// writePump delivers queued messages until the queue is closed or a send
// fails.
func (cm *ConnectionManager) writePump(c *client) {
	for message := range c.send {
		if err := c.conn.Send(message); err != nil {
			cm.log.Error("Failed to send message", "conn_id", c.conn.ID(), "error", err)
			cm.drop(c)
			return
		}
	}
}

// drop removes c if it is still the registered client for its id and
// closes the underlying connection.
func (cm *ConnectionManager) drop(c *client) {
	cm.mutex.Lock()
	if current, ok := cm.connections[c.conn.ID()]; ok && current == c {
		delete(cm.connections, c.conn.ID())
		close(c.send)
	}
	cm.mutex.Unlock()

	c.conn.Close()
}

var _ domain.ConnectionManager = (*ConnectionManager)(nil)
