package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestEventHubLatest(t *testing.T) {
	hub := NewEventHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/api/event")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	hub.Publish([]byte("<event uid=\"a\"/>"))
	hub.Publish([]byte("<event uid=\"b\"/>"))

	res, err = http.Get(srv.URL + "/api/event")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/xml", res.Header.Get("Content-Type"))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, "<event uid=\"b\"/>", string(body))
}

func TestEventHubWebsocket(t *testing.T) {
	hub := NewEventHub()
	hub.Publish([]byte("<event uid=\"first\"/>"))

	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "<event uid=\"first\"/>", string(msg))

	// the handler subscribes before replaying the latest event
	hub.Publish([]byte("<event uid=\"second\"/>"))

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "<event uid=\"second\"/>", string(msg))
}

func TestEventHubUnsubscribes(t *testing.T) {
	hub := NewEventHub()
	ch := hub.subscribe()
	hub.Publish([]byte("x"))
	require.Equal(t, "x", string(<-ch))

	hub.unsubscribe(ch)
	hub.Publish([]byte("y"))
	require.Empty(t, ch)
}

func TestFormatEvent(t *testing.T) {
	line, err := FormatEvent([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<event version="2.0" uid="rover" type="a-f-G-E-S" how="m-g" time="t" start="2024-05-01T10:00:00.000Z" stale="s">` +
		`<point lat="1.5" lon="2.5" hae="10" ce="3" le="9999999"/>` +
		`<detail><contact callsign="rover"/><track course="90" speed="1.5"/></detail></event>`))
	require.NoError(t, err)
	require.Equal(t,
		"[COT ]  uid=rover type=a-f-G-E-S time=2024-05-01T10:00:00.000Z lat=1.500000 lon=2.500000 hae=10.0 ce=3.0 course=90.0° speed=1.5m/s",
		line)

	_, err = FormatEvent([]byte("not xml"))
	require.Error(t, err)
}
