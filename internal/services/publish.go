package services

import (
	"praid/internal/events"
	"praid/internal/logger"
)

// publish broadcasts payload to every console. Failures are logged; producers never
// stop over a lost notification.
func publish(
	publisher events.Publisher,
	log logger.Logger,
	messageType events.MessageType,
	subject string,
	payload any,
) {
	if publisher == nil {
		return
	}
	log = log.Function("publish")

	event, err := events.NewEvent(messageType, subject, payload)
	if err != nil {
		log.Er("failed to build event", err, "type", messageType)
		return
	}
	if err := publisher.Publish(events.BROADCAST_CHANNEL, event); err != nil {
		log.Er("failed to publish event", err, "type", messageType)
	}
}
