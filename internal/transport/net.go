package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

const netDialTimeout = 5 * time.Second

// NetSender writes raw CoT XML to a UDP or TCP endpoint. A TCP stream
// that fails a write is redialed once before the error is returned.
type NetSender struct {
	network string
	addr    string

	mu   sync.Mutex
	conn net.Conn
}

// NewNetSender dials addr over network ("udp" or "tcp").
func NewNetSender(ctx context.Context, network, addr string) (*NetSender, error) {
	s := &NetSender{network: network, addr: addr}
	if err := s.dial(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *NetSender) dial(ctx context.Context) error {
	d := &net.Dialer{Timeout: netDialTimeout}
	conn, err := d.DialContext(ctx, s.network, s.addr)
	if err != nil {
		return fmt.Errorf("dial %s %s: %w", s.network, s.addr, err)
	}
	s.conn = conn
	return nil
}

func (s *NetSender) Send(ctx context.Context, event []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		if err := s.dial(ctx); err != nil {
			return err
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetWriteDeadline(deadline)
	} else {
		s.conn.SetWriteDeadline(time.Time{})
	}

	_, err := s.conn.Write(event)
	if err == nil || s.network != "tcp" {
		return err
	}

	s.conn.Close()
	s.conn = nil
	if err := s.dial(ctx); err != nil {
		return err
	}
	_, err = s.conn.Write(event)
	return err
}

func (s *NetSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *NetSender) String() string {
	return s.network + "://" + s.addr
}
