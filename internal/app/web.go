package app

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/lincot/internal/config"
	"github.com/relabs-tech/lincot/internal/transport"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// EventHub keeps the latest event and fans every new one out to the
// connected websocket clients.
type EventHub struct {
	mu      sync.RWMutex
	last    []byte
	lastAt  time.Time
	clients map[chan []byte]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[chan []byte]struct{})}
}

// Publish records event as the latest one. Clients that are too slow to
// keep up miss events rather than block the publisher.
func (h *EventHub) Publish(event []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = event
	h.lastAt = time.Now()
	for ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

// Last returns the latest event, if any.
func (h *EventHub) Last() ([]byte, time.Time, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.lastAt, h.last != nil
}

func (h *EventHub) subscribe() chan []byte {
	ch := make(chan []byte, 8)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// Handler serves:
//
//	GET /api/event  latest CoT event as XML
//	GET /ws         websocket, one text message per event
func (h *EventHub) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/event", func(w http.ResponseWriter, r *http.Request) {
		event, at, ok := h.Last()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Header().Set("Last-Modified", at.UTC().Format(http.TimeFormat))
		if _, err := w.Write(event); err != nil {
			glog.Errorf("web: write error: %v", err)
		}
	})

	mux.HandleFunc("/ws", h.serveWS)
	return mux
}

func (h *EventHub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Errorf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// The read loop only notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					glog.Warningf("web: websocket read error: %v", err)
				}
				return
			}
		}
	}()

	if event, _, ok := h.Last(); ok {
		if err := writeEvent(conn, event); err != nil {
			return
		}
	}

	for {
		select {
		case event := <-ch:
			if err := writeEvent(conn, event); err != nil {
				glog.V(1).Infof("web: websocket write error: %v", err)
				return
			}
		case <-gone:
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, event []byte) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, event)
}

// ServeHub serves hub.Handler on addr until ctx ends.
func ServeHub(ctx context.Context, addr string, hub *EventHub) error {
	srv := &http.Server{Addr: addr, Handler: hub.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	glog.Infof("web: server listening on %s", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return ctx.Err()
	}
	return err
}

// RunMonitor subscribes to the CoT topic on the MQTT broker named by
// cfg.CoTURL and serves the received events on cfg.MonitorAddr.
func RunMonitor(ctx context.Context, cfg config.Config) error {
	u, err := url.Parse(cfg.CoTURL)
	if err != nil {
		return err
	}

	client := mqtt.NewClient(transport.ClientOptions(cfg, u, "-monitor"))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	glog.Infof("web: connected to MQTT broker at %s", u.Redacted())

	hub := NewEventHub()

	token := client.Subscribe(cfg.MQTTTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		hub.Publish(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	glog.Infof("web: subscribed to MQTT topic %s", cfg.MQTTTopic)

	addr := cfg.MonitorAddr
	if addr == "" {
		addr = ":8080"
	}
	return ServeHub(ctx, addr, hub)
}
