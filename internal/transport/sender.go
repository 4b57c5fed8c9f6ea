// Package transport delivers encoded CoT events to the configured
// destination.
package transport

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/relabs-tech/lincot/internal/config"
)

// Sender delivers one encoded event per call.
type Sender interface {
	Send(ctx context.Context, event []byte) error
	Close() error
}

// NewSender connects to cfg.CoTURL, picking the transport by scheme:
// mqtt/mqtts/ssl/ws/wss go to an MQTT broker, amqp/amqps to RabbitMQ,
// udp and tcp write raw CoT XML.
func NewSender(ctx context.Context, cfg config.Config) (Sender, error) {
	u, err := url.Parse(cfg.CoTURL)
	if err != nil {
		return nil, fmt.Errorf("invalid COT_URL %q: %w", cfg.CoTURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid COT_URL %q: missing host", cfg.CoTURL)
	}

	var s Sender
	switch scheme := strings.ToLower(u.Scheme); scheme {
	case "mqtt", "mqtts", "ssl", "ws", "wss":
		s, err = NewMQTTSender(ctx, cfg, u)
	case "amqp", "amqps":
		s, err = NewAMQPSender(ctx, cfg)
	case "udp", "tcp":
		s, err = NewNetSender(ctx, scheme, u.Host)
	default:
		return nil, fmt.Errorf("unsupported COT_URL scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// clientID returns cfg.MQTTClientID or a default derived from the
// hostname.
func clientID(cfg config.Config, suffix string) string {
	if cfg.MQTTClientID != "" {
		return cfg.MQTTClientID + suffix
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return "lincot-" + host + suffix
}
