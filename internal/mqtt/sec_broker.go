// Package mqtt holds the MQTT message handlers of the service.
package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"irrad-data/internal/domain"
	"irrad-data/internal/metrics"
	"irrad-data/internal/repository"
)

// secMessage is one beam monitor reading as published by the SEC gateway.
// timestamp is RFC 3339 or unix seconds.
type secMessage struct {
	SecID     string          `json:"sec_id"`
	Value     *float64        `json:"value"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// SecBroker stores SEC readings received over MQTT.
type SecBroker struct {
	repo    repository.SecRepository
	logger  *zap.Logger
	timeout time.Duration
}

func NewSecBroker(repo repository.SecRepository, logger *zap.Logger) *SecBroker {
	return &SecBroker{repo: repo, logger: logger, timeout: 5 * time.Second}
}

// HandleMessage accepts a single reading object or an array of them. Invalid
// readings are skipped; the first storage error is returned after the batch.
func (b *SecBroker) HandleMessage(topic string, payload []byte) error {
	msgs, err := decodeSecMessages(payload)
	if err != nil {
		metrics.SecReadings.WithLabelValues("rejected").Inc()
		return fmt.Errorf("failed to unmarshal SEC message on %s: %w", topic, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	var firstErr error
	for _, m := range msgs {
		r, err := m.reading()
		if err != nil {
			metrics.SecReadings.WithLabelValues("rejected").Inc()
			b.logger.Warn("Skipping invalid SEC reading", zap.String("topic", topic), zap.Error(err))
			continue
		}
		if err := b.repo.InsertSecReading(ctx, r); err != nil {
			metrics.SecReadings.WithLabelValues("failed").Inc()
			b.logger.Error("Failed to store SEC reading",
				zap.String("sec_id", r.SecID),
				zap.Time("timestamp", r.Timestamp),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.SecReadings.WithLabelValues("stored").Inc()
	}
	return firstErr
}

func decodeSecMessages(payload []byte) ([]secMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var msgs []secMessage
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, err
		}
		return msgs, nil
	}
	var m secMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, err
	}
	return []secMessage{m}, nil
}

func (m secMessage) reading() (*domain.SecReading, error) {
	if m.SecID == "" {
		return nil, fmt.Errorf("missing sec_id")
	}
	if m.Value == nil {
		return nil, fmt.Errorf("missing value for %s", m.SecID)
	}
	ts, err := parseTimestamp(m.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("bad timestamp for %s: %w", m.SecID, err)
	}
	return &domain.SecReading{SecID: strings.ToUpper(m.SecID), Value: *m.Value, Timestamp: ts}, nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return time.Parse(time.RFC3339, s)
	}
	secs, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}
