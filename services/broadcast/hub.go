package broadcastsvc

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eduhive/backend/core"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

// Upgrader is shared by the websocket endpoints.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is the wire envelope pushed to subscribers.
type Event struct {
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub fans events out to websocket clients subscribed per topic.
// Publish never blocks: a client that cannot keep up has events dropped.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*client]bool
	logger core.Logger
}

var _ core.Broadcaster = (*Hub)(nil)

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[*client]bool),
		logger: logger,
	}
}

func (h *Hub) Publish(topic string, payload interface{}) {
	data, err := json.Marshal(Event{Topic: topic, Payload: payload})
	if err != nil {
		h.logger.Error("marshalling broadcast event", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		select {
		case c.send <- data:
		default: // slow client; drop
		}
	}
}

// Subscribe registers the connection for the topics and pumps events to it
// until the connection closes. It blocks; callers run it from the handler
// goroutine and close the connection when it returns.
func (h *Hub) Subscribe(conn *websocket.Conn, topics ...string) {
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	h.register(c, topics)
	defer h.unregister(c, topics)

	// reader: only used to detect close
	go func() {
		defer c.close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case data := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) register(c *client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		subs, ok := h.topics[topic]
		if !ok {
			subs = make(map[*client]bool)
			h.topics[topic] = subs
		}
		subs[c] = true
	}
}

func (h *Hub) unregister(c *client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		delete(h.topics[topic], c)
		if len(h.topics[topic]) == 0 {
			delete(h.topics, topic)
		}
	}
}
