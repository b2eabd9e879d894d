package events

import (
	"context"
	"encoding/json"
	"praid/config"
	"praid/internal/logger"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

type Channel string

func (c Channel) String() string {
	return string(c)
}

const (
	BROADCAST_CHANNEL Channel = "praid:broadcast"
)

type MessageType string

const (
	PING            MessageType = "ping"
	PONG            MessageType = "pong"
	MESSAGE         MessageType = "message"
	BROADCAST       MessageType = "broadcast"
	ERROR           MessageType = "error"
	UPLOAD_PROGRESS MessageType = "upload_progress"
	UPLOAD_COMPLETE MessageType = "upload_complete"
	UPLOAD_ERROR    MessageType = "upload_error"
	CHAT_CHUNK      MessageType = "chat_chunk"
	CHAT_COMPLETE   MessageType = "chat_complete"
	HEALTH_UPDATE   MessageType = "health_update"
)

type Event struct {
	ID        string         `json:"id"`
	Type      MessageType    `json:"type"`
	Channel   Channel        `json:"channel"`
	Subject   string         `json:"subject,omitempty"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent builds an event whose data is the JSON object form of payload.
func NewEvent(messageType MessageType, subject string, payload any) (Event, error) {
	event := Event{Type: messageType, Subject: subject}
	if payload == nil {
		return event, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	if err := json.Unmarshal(raw, &event.Data); err != nil {
		event.Data = map[string]any{"value": json.RawMessage(raw)}
	}
	return event, nil
}

type EventHandler func(event Event) error

// Publisher is the part of the bus producers depend on.
type Publisher interface {
	Publish(channel Channel, event Event) error
}

// EventBus fans events out to subscribers. With a valkey client events travel through
// pub/sub so every console instance sees them; without one they stay in process.
type EventBus struct {
	client    valkey.Client
	logger    logger.Logger
	config    config.Config
	handlers  map[Channel][]EventHandler
	listening map[Channel]bool
	mutex     sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(client valkey.Client, config config.Config) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())

	return &EventBus{
		client:    client,
		logger:    logger.New("EventBus"),
		config:    config,
		handlers:  make(map[Channel][]EventHandler),
		listening: make(map[Channel]bool),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (eb *EventBus) Distributed() bool {
	return eb.client != nil
}

func (eb *EventBus) Publish(channel Channel, event Event) error {
	log := eb.logger.Function("Publish")

	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.Channel == "" {
		event.Channel = channel
	}

	if !eb.Distributed() {
		eb.notifyLocalHandlers(channel, event)
		return nil
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "eventID", event.ID)
	}

	ctx, cancel := context.WithTimeout(eb.ctx, 5*time.Second)
	defer cancel()

	err = eb.client.Do(ctx, eb.client.B().Publish().Channel(channel.String()).Message(string(eventData)).Build()).
		Error()
	if err != nil {
		log.Er("failed to publish event to valkey, delivering locally", err,
			"channel", channel,
			"eventID", event.ID,
		)
		eb.notifyLocalHandlers(channel, event)
		return err
	}

	log.Debug("Event published", "channel", channel, "eventID", event.ID, "eventType", event.Type)
	return nil
}

func (eb *EventBus) Subscribe(channel Channel, handler EventHandler) error {
	log := eb.logger.Function("Subscribe")

	eb.mutex.Lock()
	eb.handlers[channel] = append(eb.handlers[channel], handler)
	startListener := eb.Distributed() && !eb.listening[channel]
	eb.listening[channel] = true
	eb.mutex.Unlock()

	log.Info("Handler subscribed to channel", "channel", channel)

	if startListener {
		go eb.listenToChannel(channel)
	}

	return nil
}

// notifyLocalHandlers runs handlers in subscription order so per-operation ordering holds.
func (eb *EventBus) notifyLocalHandlers(channel Channel, event Event) {
	log := eb.logger.Function("notifyLocalHandlers")

	eb.mutex.RLock()
	handlers := append([]EventHandler(nil), eb.handlers[channel]...)
	eb.mutex.RUnlock()

	for i, handler := range handlers {
		if err := handler(event); err != nil {
			log.Er("handler failed", err,
				"channel", channel,
				"eventID", event.ID,
				"handlerIndex", i,
			)
		}
	}
}

func (eb *EventBus) listenToChannel(channel Channel) {
	log := eb.logger.Function("listenToChannel")

	ctx, cancel := context.WithCancel(eb.ctx)
	defer cancel()

	log.Info("Starting to listen to channel", "channel", channel)

	err := eb.client.Receive(
		ctx,
		eb.client.B().Subscribe().Channel(channel.String()).Build(),
		func(msg valkey.PubSubMessage) {
			var event Event
			if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
				log.Er("failed to unmarshal event", err, "channel", channel, "message", msg.Message)
				return
			}

			eb.notifyLocalHandlers(channel, event)
		},
	)
	if err != nil && ctx.Err() == nil {
		log.Er("failed to listen to channel", err, "channel", channel)
	}
}

func (eb *EventBus) Close() error {
	log := eb.logger.Function("Close")

	eb.cancel()

	log.Info("EventBus closed")
	return nil
}
