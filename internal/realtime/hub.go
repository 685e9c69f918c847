package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkbytes/foodfinder/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60

	// MsgAvailability carries new totals for one food item.
	MsgAvailability = "availability"
	// MsgClosed tells viewers the organizer ended the event early.
	MsgClosed = "closed"
)

// AvailabilityUpdate is the data of an availability message.
type AvailabilityUpdate struct {
	EventFoodID   uuid.UUID `json:"eventFoodId"`
	TotalReserved int       `json:"totalReserved"`
	TotalPortions int       `json:"totalPortions"`
}

// Hub maintains event_id -> set of connections and broadcasts messages.
// With Redis configured messages go through the event's channel, so viewers
// on every instance receive them. A room without a live subscription is also
// served locally.
type Hub struct {
	rooms    map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func()
	pending  map[uuid.UUID]bool
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher publishes a message on an event's channel.
type RedisPublisher interface {
	PublishEventMessage(ctx context.Context, eventID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to an event's channel and invokes handler for incoming messages.
type RedisSubscriber interface {
	SubscribeEvent(eventID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub RedisPublisher, sub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		pending:  make(map[uuid.UUID]bool),
		logger:   logger,
		redis:    pub,
		redisSub: sub,
	}
}

// Register adds a client to an event room and makes sure this instance is
// subscribed to the event's Redis channel. The subscribe call runs outside the
// hub lock; a failed subscribe is retried by the next Register for the room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.EventID] == nil {
		h.rooms[c.EventID] = make(map[string]*Client)
	}
	h.rooms[c.EventID][c.ID] = c
	subscribe := h.redisSub != nil && h.subs[c.EventID] == nil && !h.pending[c.EventID]
	if subscribe {
		h.pending[c.EventID] = true
	}
	h.mu.Unlock()
	h.logger.Debug("client joined event", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))

	if subscribe {
		h.subscribe(c.EventID)
	}
}

func (h *Hub) subscribe(eventID uuid.UUID) {
	cancel, err := h.redisSub.SubscribeEvent(eventID, func(event string, payload []byte) {
		h.Broadcast(eventID, event, json.RawMessage(payload))
	})

	h.mu.Lock()
	delete(h.pending, eventID)
	stale := false
	switch {
	case err != nil:
	case h.rooms[eventID] == nil:
		stale = true
	default:
		h.subs[eventID] = cancel
	}
	h.mu.Unlock()

	if err != nil {
		h.logger.Warn("redis subscribe failed, delivering locally", zap.Error(err), zap.String("event_id", eventID.String()))
		return
	}
	if stale {
		cancel()
	}
}

// Unregister removes a client from its room. Cancels the Redis subscription
// when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	var cancel func()
	h.mu.Lock()
	if m, ok := h.rooms[c.EventID]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.rooms, c.EventID)
			cancel = h.subs[c.EventID]
			delete(h.subs, c.EventID)
		}
	}
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	h.logger.Debug("client left event", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Broadcast sends a message to all local clients of an event.
func (h *Hub) Broadcast(eventID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[eventID] {
		select {
		case c.send <- msg:
		default:
			// slow reader, drop
		}
	}
}

// Publish delivers a message to every viewer of an event. Failures are
// logged and never returned.
func (h *Hub) Publish(ctx context.Context, eventID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal realtime message failed", zap.Error(err))
		return
	}
	if h.redis != nil {
		err := h.redis.PublishEventMessage(ctx, eventID, event, data)
		if err != nil {
			h.logger.Warn("redis publish failed, delivering locally", zap.Error(err), zap.String("event_id", eventID.String()))
		}
		// local viewers only hear the channel once this instance is subscribed
		if err == nil && h.subscribed(eventID) {
			return
		}
	}
	h.Broadcast(eventID, event, json.RawMessage(data))
}

func (h *Hub) subscribed(eventID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subs[eventID] != nil
}

// FoodUpdated broadcasts the new totals of a food item.
func (h *Hub) FoodUpdated(ctx context.Context, eventID uuid.UUID, food models.FoodAvailability) {
	h.Publish(ctx, eventID, MsgAvailability, AvailabilityUpdate{
		EventFoodID:   food.ID,
		TotalReserved: food.TotalReserved,
		TotalPortions: food.TotalPortions,
	})
}

// EventClosed tells viewers the event has ended.
func (h *Hub) EventClosed(ctx context.Context, eventID uuid.UUID) {
	h.Publish(ctx, eventID, MsgClosed, map[string]string{"eventId": eventID.String()})
}

// ViewerCount returns the number of local clients watching an event.
func (h *Hub) ViewerCount(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}
