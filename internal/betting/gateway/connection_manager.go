package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager fans orchestration events out to websocket rendering
// clients. It implements the orchestrator's EventSink.
type ConnectionManager struct {
	connections map[*Connection]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	controls Controls

	broadcastCh chan GameEvent
}

// Connection is one websocket client.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	manager *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds websocket tuning.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns defaults suitable for the prototype.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Prototype: accept all origins.
			return true
		},
	}
}

// NewConnectionManager creates a manager. controls may be nil, in which case
// client commands are ignored.
func NewConnectionManager(config ConnectionConfig, controls Controls) *ConnectionManager {
	if controls == nil {
		controls = noopControls{}
	}
	return &ConnectionManager{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		controls:    controls,
		broadcastCh: make(chan GameEvent, 256),
	}
}

// Publish implements the orchestrator's EventSink: wrap the payload in the
// broadcast envelope and hand it to the fan-out pump. Publishing never
// blocks orchestration; if the pump is saturated the event is dropped.
func (cm *ConnectionManager) Publish(eventType string, payload any) {
	evt := GameEvent{Type: eventType, Timestamp: time.Now(), Data: payload}
	select {
	case cm.broadcastCh <- evt:
	default:
		log.Warn().Str("event_type", eventType).Msg("broadcast channel full; dropping event")
	}
}

// Run pumps broadcast events to all connections until ctx is cancelled.
func (cm *ConnectionManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			cm.closeAll()
			return
		case evt := <-cm.broadcastCh:
			cm.broadcast(evt)
		}
	}
}

func (cm *ConnectionManager) broadcast(evt GameEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("event_type", evt.Type).Msg("failed to marshal game event")
		return
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for conn := range cm.connections {
		select {
		case conn.Send <- data:
		default:
			// Slow client; it will be dropped by its write pump timeout.
			log.Debug().Str("conn_id", conn.ID).Msg("send buffer full; skipping client")
		}
	}
}

// UpgradeConnection upgrades an HTTP request and starts the read/write pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}

	conn := &Connection{
		ID:          uuid.New().String()[:8],
		Conn:        ws,
		Send:        make(chan []byte, 64),
		manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.mu.Lock()
	cm.connections[conn] = true
	total := len(cm.connections)
	cm.mu.Unlock()

	log.Info().Str("conn_id", conn.ID).Int("total", total).Msg("rendering client connected")

	go conn.writePump()
	go conn.readPump()
	return nil
}

func (cm *ConnectionManager) remove(conn *Connection) {
	cm.mu.Lock()
	if _, ok := cm.connections[conn]; ok {
		delete(cm.connections, conn)
		close(conn.Send)
	}
	total := len(cm.connections)
	cm.mu.Unlock()

	log.Info().Str("conn_id", conn.ID).Int("total", total).Msg("rendering client disconnected")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for conn := range cm.connections {
		close(conn.Send)
		delete(cm.connections, conn)
	}
}

// ConnectionCount returns the number of connected clients.
func (cm *ConnectionManager) ConnectionCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("conn_id", c.ID).Msg("write failed")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.manager.remove(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn_id", c.ID).Msg("unexpected close")
			}
			return
		}
		c.manager.handleCommand(c.ID, data)
	}
}
