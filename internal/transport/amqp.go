package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/relabs-tech/lincot/internal/config"
)

// AMQPSender publishes events to a direct exchange. A closed connection
// is redialed on the next Send.
type AMQPSender struct {
	url        string
	exchange   string
	routingKey string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPSender dials cfg.CoTURL and declares the exchange.
func NewAMQPSender(ctx context.Context, cfg config.Config) (*AMQPSender, error) {
	s := &AMQPSender{
		url:        cfg.CoTURL,
		exchange:   cfg.AMQPExchange,
		routingKey: cfg.AMQPRoutingKey,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

// connect must be called with mu held.
func (s *AMQPSender) connect() error {
	conn, err := amqp.DialConfig(s.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		s.exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp exchange declare %q: %w", s.exchange, err)
	}

	s.conn = conn
	s.channel = ch
	glog.Infof("transport: connected to AMQP exchange %q", s.exchange)
	return nil
}

func (s *AMQPSender) Send(ctx context.Context, event []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || s.conn.IsClosed() || s.channel.IsClosed() {
		s.closeLocked()
		if err := s.connect(); err != nil {
			return err
		}
	}

	return s.channel.PublishWithContext(ctx,
		s.exchange,
		s.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/xml",
			Timestamp:   time.Now(),
			Body:        event,
		},
	)
}

func (s *AMQPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *AMQPSender) closeLocked() error {
	var err error
	if s.channel != nil {
		s.channel.Close()
		s.channel = nil
	}
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
	}
	return err
}

func (s *AMQPSender) String() string {
	return fmt.Sprintf("amqp exchange %s key %s", s.exchange, s.routingKey)
}
