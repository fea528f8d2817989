package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rates-gateway/internal/metrics"
)

// Publisher republishes rate updates onto NATS for internal consumers that
// do not hold a WebSocket subscription. It is optional: a nil *Publisher is
// safe to call and does nothing.
type Publisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
	service string
	logger  *zap.Logger
}

// New creates a Publisher with JetStream enabled.
func New(nc *nats.Conn, subject, service string, logger *zap.Logger) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		subject: subject,
		service: service,
		logger:  logger,
	}, nil
}

// Publish serializes payload and publishes it to the configured subject.
func (p *Publisher) Publish(ctx context.Context, payload any) error {
	if p == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header: nats.Header{
			"source":       []string{p.service},
			"content_type": []string{"application/json"},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg)
	if err != nil {
		metrics.IncNATSMessage(p.subject, "error")
		p.logger.Warn("nats.publish_failed",
			zap.String("subject", p.subject),
			zap.Error(err))
		return err
	}

	metrics.IncNATSMessage(p.subject, "ok")
	p.logger.Debug("nats.publish_success",
		zap.String("subject", p.subject),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (p *Publisher) Close() {
	if p != nil && p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
