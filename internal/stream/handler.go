package stream

import (
	"context"
	"encoding/json"

	"example.com/dealroom/internal/consumer"
	"example.com/dealroom/internal/events"
)

// HubHandler adapts the Kafka processor to the hub: each recorded activity
// event is decoded and fanned out to live subscribers. Other event types on
// the topic are ignored.
type HubHandler struct {
	hub *Hub
}

// NewHubHandler constructs a HubHandler.
func NewHubHandler(hub *Hub) *HubHandler {
	return &HubHandler{hub: hub}
}

// Handle implements consumer.Handler.
func (h *HubHandler) Handle(_ context.Context, msg consumer.Message) error {
	if msg.EventType != "deal_activity.recorded" {
		return nil
	}

	var evt events.ActivityRecorded
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return err
	}

	h.hub.Publish(evt.Activity())
	return nil
}
