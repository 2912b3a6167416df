package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tx-forecast-lab/internal/observability"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 16
)

// feedHub pushes each completed forecast to connected dashboard clients.
// Write-only from the server's perspective; client messages are drained and
// discarded. All writes to one connection go through its single writer
// goroutine: the websocket library allows at most one concurrent writer.
type feedHub struct {
	logger  *log.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	clients map[*feedClient]struct{}

	upgrader websocket.Upgrader
}

// feedClient is one subscribed connection with its outbound queue.
type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newFeedHub(logger *log.Logger, metrics *observability.Metrics) *feedHub {
	return &feedHub{
		logger:  logger,
		metrics: metrics,
		clients: make(map[*feedClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// handleWS upgrades the connection and keeps it registered until the client
// disappears.
func (h *feedHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade: %v", err)
		return
	}
	c := &feedClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.metrics.FeedSubscribers.Set(float64(len(h.clients)))
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *feedHub) readLoop(c *feedClient) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the sole writer for one connection, serializing broadcasts
// and pings.
func (h *feedHub) writeLoop(c *feedClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.drop(c)
	}()
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// broadcast queues one JSON message for every subscriber. A client whose
// queue is full is not keeping up and gets dropped.
func (h *feedHub) broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Printf("marshal broadcast: %v", err)
		return
	}

	var slow []*feedClient
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.drop(c)
	}
}

// drop unregisters a client. Closing the send channel stops its writer;
// sends only ever happen under the hub lock, so no send can race the close.
// Safe to call more than once per client.
func (h *feedHub) drop(c *feedClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
	h.metrics.FeedSubscribers.Set(float64(len(h.clients)))
	h.mu.Unlock()
}

func (h *feedHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
	h.metrics.FeedSubscribers.Set(0)
}

func (h *feedHub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
