package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix = "course:"
	publishTTL    = 5 * time.Second
)

// redisPayload is the message published to Redis for cross-instance broadcast.
type redisPayload struct {
	Frame json.RawMessage `json:"frame"`
	At    int64           `json:"at"`
}

// RedisPubSub bridges course events across server instances using Redis pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for course events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, logger: logger}
}

// PublishCourseEvent publishes a frame to the course's Redis channel.
func (r *RedisPubSub) PublishCourseEvent(courseID uuid.UUID, frame []byte) error {
	channel := channelPrefix + courseID.String()
	body, err := json.Marshal(redisPayload{Frame: frame, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTTL)
	defer cancel()
	return r.client.Publish(ctx, channel, body).Err()
}

// SubscribeCourse subscribes to a course's Redis channel and calls handler
// for each frame. Returns a cancel function to stop the subscription.
func (r *RedisPubSub) SubscribeCourse(courseID uuid.UUID, handler func(frame []byte)) (cancel func(), err error) {
	channel := channelPrefix + courseID.String()
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, channel)
	_, err = pubsub.Receive(ctx)
	if err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p redisPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					continue
				}
				handler(p.Frame)
			}
		}
	}()
	cancel = func() { cancelCtx() }
	return cancel, nil
}
