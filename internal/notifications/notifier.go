// Package notifications moves presence events between instances and out to
// websocket subscribers.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"

	"quad/internal/middleware"
	"quad/internal/models"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes and consumes presence updates over Redis pub/sub. A
// nil Redis client turns every method into a no-op so a single instance
// keeps working without a broker.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PresenceChannel derives the Redis channel name for a user's presence.
func PresenceChannel(userID uint) string {
	return "presence:user:" + strconv.FormatUint(uint64(userID), 10)
}

// PublishPresence sends a presence update to the user's channel.
func (n *Notifier) PublishPresence(ctx context.Context, update models.PresenceUpdate) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal presence update: %w", err)
	}
	return n.rdb.Publish(ctx, PresenceChannel(update.UserID), payload).Err()
}

// StartPresenceSubscriber subscribes to the presence:user:* pattern and
// calls onUpdate for each decoded update until ctx is cancelled. Malformed
// payloads are logged and skipped.
func (n *Notifier) StartPresenceSubscriber(ctx context.Context, onUpdate func(models.PresenceUpdate)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "presence:user:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var update models.PresenceUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					middleware.Logger.Warn("dropping malformed presence payload",
						"channel", msg.Channel, "error", err)
					continue
				}
				if update.UserID == 0 {
					middleware.Logger.Warn("dropping presence payload without user id",
						"channel", msg.Channel)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in presence subscriber",
								"recover", r, "stack", string(debug.Stack()))
						}
					}()
					onUpdate(update)
				}()
			}
		}
	}()

	return nil
}
