package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aulaviva/liveclass/protocol"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains course_id -> set of connections and fans events out to
// every participant in the room. Uses Redis pub/sub for horizontal
// scaling: local broadcast + publish to Redis.
type Hub struct {
	// courseID -> map[clientID]*Client
	courses  map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per course
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishCourseEvent(courseID uuid.UUID, frame []byte) error
}

// RedisSubscriber subscribes to course channels and invokes handler for incoming frames.
type RedisSubscriber interface {
	SubscribeCourse(courseID uuid.UUID, handler func(frame []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		courses:  make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a course room. Starts the Redis subscription
// for this course if it is the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.courses[c.CourseID] == nil {
		h.courses[c.CourseID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeCourse(c.CourseID, func(frame []byte) {
				h.Broadcast(c.CourseID, frame)
			})
			if err == nil {
				h.subs[c.CourseID] = cancel
			}
		}
	}
	h.courses[c.CourseID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined course",
		zap.String("client_id", c.ID), zap.String("course_id", c.CourseID.String()))
}

// Unregister removes a client from a course room. Cancels the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.courses[c.CourseID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.courses, c.CourseID)
			if cancel, ok := h.subs[c.CourseID]; ok {
				cancel()
				delete(h.subs, c.CourseID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left course",
		zap.String("client_id", c.ID), zap.String("course_id", c.CourseID.String()))
}

// Broadcast sends an encoded frame to all clients in a course (local only).
func (h *Hub) Broadcast(courseID uuid.UUID, frame []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.courses[courseID]))
	for _, c := range h.courses[courseID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- frame:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastAndPublish sends an event to local clients and publishes it to
// Redis for other instances.
func (h *Hub) BroadcastAndPublish(courseID uuid.UUID, event interface{}) {
	frame, err := protocol.Encode(event)
	if err != nil {
		return
	}
	h.Broadcast(courseID, frame)
	if h.redis != nil {
		_ = h.redis.PublishCourseEvent(courseID, frame)
	}
}

// PublishOnly publishes a frame to Redis only (no local broadcast). Used
// for chat_message so that the Redis subscriber callback performs the
// broadcast once for all instances, avoiding duplicate delivery to local
// clients.
func (h *Hub) PublishOnly(courseID uuid.UUID, frame []byte) {
	if h.redis != nil {
		_ = h.redis.PublishCourseEvent(courseID, frame)
		return
	}
	h.Broadcast(courseID, frame)
}

// RoomCount returns the number of connected clients in a course.
func (h *Hub) RoomCount(courseID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.courses[courseID])
}
