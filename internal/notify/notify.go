// Package notify publishes experiment notification events to a Redis stream
// for the mail relay to pick up.
package notify

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	commonredis "irrad-data/internal/common/redis"
	"irrad-data/internal/metrics"
)

type Kind string

const (
	KindExperimentCompleted Kind = "experiment_completed"
	KindExperimentDeleted   Kind = "experiment_deleted"
	KindExperimentValidated Kind = "experiment_validated"
)

// Event is one notification for the members of an experiment.
type Event struct {
	Kind         Kind      `json:"kind"`
	ExperimentID int64     `json:"experiment_id"`
	Title        string    `json:"title"`
	Recipients   []string  `json:"recipients"`
	From         string    `json:"from,omitempty"`
	Actor        string    `json:"actor,omitempty"`
	At           time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// StreamNotifier appends events to a Redis stream.
type StreamNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
	from   string
	logger *zap.Logger
}

func NewStreamNotifier(client *redis.Client, stream string, maxLen int64, from string, logger *zap.Logger) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream, maxLen: maxLen, from: from, logger: logger}
}

func (n *StreamNotifier) Notify(ctx context.Context, e Event) error {
	if e.From == "" {
		e.From = n.from
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	id, err := commonredis.PublishJSONToStream(ctx, n.client, n.stream, e, n.maxLen)
	if err != nil {
		n.logger.Error("Failed to publish notification",
			zap.String("kind", string(e.Kind)),
			zap.Int64("experiment_id", e.ExperimentID),
			zap.Error(err),
		)
		return err
	}
	metrics.Notifications.WithLabelValues(string(e.Kind)).Inc()
	n.logger.Debug("Notification published", zap.String("stream_id", id), zap.String("kind", string(e.Kind)))
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Recorder keeps events in memory; used by tests and development runs.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Notify(_ context.Context, e Event) error {
	r.Events = append(r.Events, e)
	metrics.Notifications.WithLabelValues(string(e.Kind)).Inc()
	return nil
}
