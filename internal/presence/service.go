package presence

import (
	"context"
	"time"

	"quad/internal/middleware"
	"quad/internal/models"
	"quad/internal/observability"
)

// Publisher fans a presence update out to the other instances.
type Publisher interface {
	PublishPresence(ctx context.Context, update models.PresenceUpdate) error
}

// LastSeenWriter persists the durable last-seen timestamp.
type LastSeenWriter interface {
	UpdateLastSeen(ctx context.Context, userID uint, at time.Time) error
}

// Service layers heartbeat side effects over the Tracker: metrics, the
// best-effort durable last-seen write, and cross-instance publishing. The
// in-memory record is always updated first; everything downstream is
// allowed to fail without failing the heartbeat.
type Service struct {
	tracker   *Tracker
	publisher Publisher
	lastSeen  LastSeenWriter

	heartbeatInterval time.Duration
	sweepInterval     time.Duration
	writeTimeout      time.Duration
	now               func() time.Time
}

// NewService returns a presence Service. publisher and lastSeen may be nil
// when the corresponding side effect is unavailable (no Redis, tests).
func NewService(tracker *Tracker, publisher Publisher, lastSeen LastSeenWriter, heartbeatInterval time.Duration) *Service {
	return &Service{
		tracker:           tracker,
		publisher:         publisher,
		lastSeen:          lastSeen,
		heartbeatInterval: heartbeatInterval,
		sweepInterval:     heartbeatInterval,
		writeTimeout:      2 * time.Second,
		now:               tracker.now,
	}
}

// Tracker exposes the underlying in-memory store, mainly so transports can
// subscribe to status changes.
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// Heartbeat records a client-reported heartbeat. source labels the metric
// ("http", "socket", "self"). The durable write and the publish both run
// fire-and-forget; a dead database or broker never rejects a heartbeat.
func (s *Service) Heartbeat(ctx context.Context, userID uint, typing bool, source string) models.PresenceStatus {
	at := s.now()
	s.tracker.Record(userID, at, typing)
	observability.HeartbeatsTotal.WithLabelValues(source).Inc()

	update := models.PresenceUpdate{UserID: userID, Timestamp: at, Typing: typing}

	if s.lastSeen != nil {
		go func() {
			wctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
			defer cancel()
			if err := s.lastSeen.UpdateLastSeen(wctx, userID, at); err != nil {
				middleware.Logger.Warn("durable last-seen write failed", "user_id", userID, "error", err)
			}
		}()
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPresence(ctx, update); err != nil {
			middleware.Logger.WarnContext(ctx, "presence publish failed", "user_id", userID, "error", err)
		}
	}

	return s.tracker.Status(userID)
}

// Apply ingests a presence update received from another instance. It only
// touches the in-memory tracker; the originating instance already handled
// the durable write and metrics.
func (s *Service) Apply(update models.PresenceUpdate) {
	s.tracker.Record(update.UserID, update.Timestamp, update.Typing)
}

// Statuses returns derived statuses for the requested users.
func (s *Service) Statuses(userIDs []uint) []models.PresenceStatus {
	return s.tracker.Snapshot(userIDs)
}

// Status returns the derived status for one user.
func (s *Service) Status(userID uint) models.PresenceStatus {
	return s.tracker.Status(userID)
}

// KeepAlive heartbeats on the user's behalf while ctx lives. Socket
// transports run this so an open connection alone keeps a user online even
// when the client is idle.
func (s *Service) KeepAlive(ctx context.Context, userID uint) {
	s.Heartbeat(ctx, userID, false, "self")

	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Heartbeat(ctx, userID, s.tracker.IsTyping(userID), "self")
		}
	}
}

// StartSweeper periodically announces offline transitions to tracker
// subscribers until ctx is cancelled.
func (s *Service) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if expired := s.tracker.SweepExpired(); len(expired) > 0 {
				middleware.Logger.Debug("presence sweep expired users", "count", len(expired))
			}
		}
	}
}
