package transport

import (
	"context"
	"fmt"
	"net/url"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/relabs-tech/lincot/internal/config"
)

// MQTTSender publishes events to a single topic.
type MQTTSender struct {
	client mqtt.Client
	topic  string
	retain bool
}

// NewMQTTSender connects to the broker in u.
func NewMQTTSender(ctx context.Context, cfg config.Config, u *url.URL) (*MQTTSender, error) {
	client := mqtt.NewClient(ClientOptions(cfg, u, ""))
	if err := waitToken(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", u.Host, err)
	}
	glog.Infof("transport: connected to MQTT broker at %s", u.Redacted())

	return &MQTTSender{
		client: client,
		topic:  cfg.MQTTTopic,
		retain: cfg.MQTTRetain,
	}, nil
}

// ClientOptions builds paho options for the broker in u. Credentials in
// the URL userinfo are used for authentication.
func ClientOptions(cfg config.Config, u *url.URL, idSuffix string) *mqtt.ClientOptions {
	broker := *u
	broker.User = nil

	opts := mqtt.NewClientOptions().
		AddBroker(broker.String()).
		SetClientID(clientID(cfg, idSuffix)).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			glog.Warningf("transport: MQTT connection lost: %v", err)
		})

	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pw, ok := u.User.Password(); ok {
			opts.SetPassword(pw)
		}
	}
	return opts
}

func (s *MQTTSender) Send(ctx context.Context, event []byte) error {
	return waitToken(ctx, s.client.Publish(s.topic, 0, s.retain, event))
}

func (s *MQTTSender) Close() error {
	s.client.Disconnect(250)
	return nil
}

func (s *MQTTSender) String() string {
	return "mqtt topic " + s.topic
}

func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
