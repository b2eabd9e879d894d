package websockets

import (
	"sync"
	"time"
)

const (
	STATUS_CONNECTED = iota
	STATUS_CLOSED
)

type Hub struct {
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	clients    map[string]*Client
	mutex      sync.RWMutex
	closeOnce  sync.Once

	// slow tracks the goroutines waiting on a full client buffer
	slow sync.WaitGroup
}

// slowClientTimeout is how long a full client buffer may block a broadcast.
var slowClientTimeout = SLOW_CLIENT_TIMEOUT

func newHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, BROADCAST_BUFFER_SIZE),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string]*Client),
	}
}

func (h *Hub) run(m *Manager) {
	for {
		select {
		case client := <-h.register:
			m.registerClient(client)

		case client := <-h.unregister:
			m.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message, m)

		case <-h.done:
			return
		}
	}
}

func (h *Hub) stop() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) clientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (m *Manager) registerClient(client *Client) {
	log := m.log.Function("registerClient")

	m.hub.mutex.Lock()
	m.hub.clients[client.ID] = client
	total := len(m.hub.clients)
	m.hub.mutex.Unlock()

	log.Info("Client registered", "clientID", client.ID, "clients", total)
}

// unregisterClient is safe to call more than once for the same client.
func (m *Manager) unregisterClient(client *Client) {
	log := m.log.Function("unregisterClient")

	m.hub.mutex.Lock()
	defer m.hub.mutex.Unlock()

	if _, ok := m.hub.clients[client.ID]; !ok {
		return
	}

	delete(m.hub.clients, client.ID)
	client.Status = STATUS_CLOSED
	close(client.send)

	log.Info("Client unregistered", "clientID", client.ID, "clients", len(m.hub.clients))
}

func (h *Hub) broadcastMessage(message Message, m *Manager) {
	log := m.log.Function("broadcastMessage")

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	sentCount := 0
	for clientID, client := range h.clients {
		if client.Status != STATUS_CONNECTED {
			continue
		}

		select {
		case client.send <- message:
			sentCount++
		default:
			h.slow.Add(1)
			go func(c *Client, cID string, msg Message) {
				defer h.slow.Done()
				// the client may be unregistered while we wait
				defer func() { _ = recover() }()

				timer := time.NewTimer(slowClientTimeout)
				defer timer.Stop()

				select {
				case c.send <- msg:
				case <-timer.C:
					log.Warn("Client too slow, disconnecting", "clientID", cID)
					select {
					case m.hub.unregister <- c:
					case <-h.done:
					}
				case <-h.done:
				}
			}(client, clientID, message)
		}
	}

	log.Debug("Broadcast complete",
		"messageID", message.ID,
		"messageType", message.Type,
		"sentTo", sentCount,
		"totalClients", len(h.clients),
	)
}
