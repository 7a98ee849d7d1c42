// Package monitoring delivers user-facing effects to a webhook and exposes
// Prometheus metrics for the engine.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoalarm/internal/config"
	"github.com/sells-group/geoalarm/internal/model"
)

// EffectCommand is a sound or vibration request sent to the effect sink.
type EffectCommand string

const (
	EffectPlay    EffectCommand = "play"
	EffectStop    EffectCommand = "stop"
	EffectVibrate EffectCommand = "vibrate"
)

// Effect is the payload posted to the effects endpoint.
type Effect struct {
	DeliveryID string        `json:"delivery_id"`
	Command    EffectCommand `json:"command"`
	Timestamp  time.Time     `json:"timestamp"`
}

// NotificationDelivery is the payload posted to the notifications endpoint.
type NotificationDelivery struct {
	DeliveryID string `json:"delivery_id"`
	model.Notification
	Timestamp time.Time `json:"timestamp"`
}

// EffectSink posts notifications and sound/vibration commands to a webhook.
// With no webhook configured every call is logged and dropped.
type EffectSink struct {
	baseURL string
	client  *http.Client
	metrics *Metrics
}

// NewEffectSink creates an EffectSink from the notify config.
func NewEffectSink(cfg config.NotifyConfig, metrics *Metrics) *EffectSink {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EffectSink{
		baseURL: strings.TrimRight(cfg.WebhookURL, "/"),
		client:  &http.Client{Timeout: timeout},
		metrics: metrics,
	}
}

// Notify delivers a notification.
func (s *EffectSink) Notify(ctx context.Context, n model.Notification) error {
	return s.post(ctx, "notifications", NotificationDelivery{
		DeliveryID:   uuid.New().String(),
		Notification: n,
		Timestamp:    time.Now().UTC(),
	})
}

// Play starts alarm playback.
func (s *EffectSink) Play(ctx context.Context) error {
	return s.effect(ctx, EffectPlay)
}

// Stop halts alarm playback.
func (s *EffectSink) Stop(ctx context.Context) error {
	return s.effect(ctx, EffectStop)
}

// Vibrate requests a single vibration.
func (s *EffectSink) Vibrate(ctx context.Context) error {
	return s.effect(ctx, EffectVibrate)
}

func (s *EffectSink) effect(ctx context.Context, cmd EffectCommand) error {
	return s.post(ctx, "effects", Effect{
		DeliveryID: uuid.New().String(),
		Command:    cmd,
		Timestamp:  time.Now().UTC(),
	})
}

// post sends a single JSON payload to {base}/{endpoint}.
func (s *EffectSink) post(ctx context.Context, endpoint string, body any) error {
	if s.baseURL == "" {
		zap.L().Debug("monitoring: no webhook configured, dropping effect",
			zap.String("endpoint", endpoint),
		)
		s.metrics.IncDelivery(endpoint, "dropped")
		return nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return eris.Wrapf(err, "monitoring: marshal %s payload", endpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.IncDelivery(endpoint, "error")
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		s.metrics.IncDelivery(endpoint, "error")
		return eris.Errorf("monitoring: webhook %s returned status %d", endpoint, resp.StatusCode)
	}
	s.metrics.IncDelivery(endpoint, "ok")
	return nil
}
