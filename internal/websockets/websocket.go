package websockets

import (
	"praid/config"
	"praid/internal/events"
	"praid/internal/logger"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	MESSAGE_TYPE_PING      = "ping"
	MESSAGE_TYPE_PONG      = "pong"
	MESSAGE_TYPE_MESSAGE   = "message"
	MESSAGE_TYPE_BROADCAST = "broadcast"
	MESSAGE_TYPE_ERROR     = "error"
	MESSAGE_TYPE_WELCOME   = "welcome"
	PING_INTERVAL          = 30 * time.Second
	PONG_TIMEOUT           = 60 * time.Second
	WRITE_TIMEOUT          = 10 * time.Second
	SLOW_CLIENT_TIMEOUT    = 5 * time.Second
	MAX_MESSAGE_SIZE       = 64 * 1024
	SEND_CHANNEL_SIZE      = 64
	BROADCAST_BUFFER_SIZE  = 256
)

type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	Action    string         `json:"action,omitempty"`
	Subject   string         `json:"subject,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Client struct {
	ID         string
	Connection *websocket.Conn
	Manager    *Manager
	Status     int
	send       chan Message
}

// Manager relays bus events to every connected browser.
type Manager struct {
	hub      *Hub
	config   config.Config
	log      logger.Logger
	eventBus *events.EventBus
}

func New(eventBus *events.EventBus, config config.Config) (*Manager, error) {
	log := logger.New("websockets")

	manager := &Manager{
		hub:      newHub(),
		config:   config,
		log:      log,
		eventBus: eventBus,
	}

	log.Function("New").Info("Starting websocket hub")
	go manager.hub.run(manager)

	if err := manager.subscribeToBroadcastEvents(); err != nil {
		return nil, err
	}

	return manager, nil
}

func (m *Manager) Close() {
	m.hub.stop()
}

func (m *Manager) ClientCount() int {
	return m.hub.clientCount()
}

func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")

	client := &Client{
		ID:         uuid.New().String(),
		Connection: c,
		Manager:    m,
		Status:     STATUS_CONNECTED,
		send:       make(chan Message, SEND_CHANNEL_SIZE),
	}

	welcome := Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_WELCOME,
		Channel:   "system",
		Data:      map[string]any{"clientId": client.ID, "version": m.config.GeneralVersion},
		Timestamp: time.Now(),
	}
	if err := c.WriteJSON(welcome); err != nil {
		log.Er("failed to send welcome", err)
		if err := c.Close(); err != nil {
			log.Er("failed to close connection", err)
		}
		return
	}

	select {
	case m.hub.register <- client:
	case <-m.hub.done:
		_ = c.Close()
		return
	}
	defer func() {
		select {
		case m.hub.unregister <- client:
		case <-m.hub.done:
		}
		if err := c.Close(); err != nil {
			log.Debug("connection already closed", "clientID", client.ID, "error", err)
		}
	}()

	go client.readPump()
	client.writePump()
}

// BroadcastMessage queues message for every client, dropping it when the hub is saturated.
func (m *Manager) BroadcastMessage(message Message) {
	log := m.log.Function("BroadcastMessage")

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	select {
	case m.hub.broadcast <- message:
	default:
		log.Warn("Broadcast channel is full, dropping message", "messageID", message.ID)
	}
}

func (c *Client) readPump() {
	log := c.Manager.log.Function("readPump")
	defer func() {
		_ = c.Connection.Close()
	}()

	c.Connection.SetReadLimit(MAX_MESSAGE_SIZE)
	if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
		log.Er("failed to set read deadline", err, "clientID", c.ID)
	}
	c.Connection.SetPongHandler(func(string) error {
		if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
			log.Er("failed to set read deadline in pong handler", err, "clientID", c.ID)
		}
		return nil
	})

	for {
		var message Message
		if err := c.Connection.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				log.Er("Unexpected close error", err, "clientID", c.ID)
			}
			return
		}

		if reply, ok := c.Manager.reply(message); ok {
			select {
			case c.send <- reply:
			default:
				log.Warn("Client send channel full, dropping reply", "clientID", c.ID)
			}
		}
	}
}

// reply answers a message from a browser. Browsers only listen, so anything but a ping
// is reported back as an error.
func (m *Manager) reply(message Message) (Message, bool) {
	response := Message{
		ID:        uuid.New().String(),
		Channel:   "system",
		Timestamp: time.Now(),
	}

	switch message.Type {
	case MESSAGE_TYPE_PING:
		response.Type = MESSAGE_TYPE_PONG
		return response, true
	case MESSAGE_TYPE_PONG:
		return Message{}, false
	default:
		m.log.Function("reply").Warn("Unknown message type", "type", message.Type)
		response.Type = MESSAGE_TYPE_ERROR
		response.Data = map[string]any{"reason": "unsupported message type", "type": message.Type}
		return response, true
	}
}

func (c *Client) writePump() {
	log := c.Manager.log.Function("writePump")

	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		_ = c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline", err, "clientID", c.ID)
			}
			if !ok {
				_ = c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Connection.WriteJSON(message); err != nil {
				log.Debug("WebSocket write failed", "clientID", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline for ping", err, "clientID", c.ID)
			}
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) subscribeToBroadcastEvents() error {
	log := m.log.Function("subscribeToBroadcastEvents")

	err := m.eventBus.Subscribe(events.BROADCAST_CHANNEL, func(event events.Event) error {
		m.BroadcastMessage(MessageFromEvent(event))
		return nil
	})
	if err != nil {
		return log.Err("Failed to subscribe to broadcast events", err)
	}
	return nil
}

// MessageFromEvent converts a bus event into what browsers receive.
func MessageFromEvent(event events.Event) Message {
	return Message{
		ID:        event.ID,
		Type:      string(event.Type),
		Channel:   event.Channel.String(),
		Action:    MESSAGE_TYPE_BROADCAST,
		Subject:   event.Subject,
		Data:      event.Data,
		Timestamp: event.Timestamp,
	}
}
