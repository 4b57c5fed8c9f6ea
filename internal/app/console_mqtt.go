package app

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/relabs-tech/lincot/internal/config"
	"github.com/relabs-tech/lincot/internal/cot"
	"github.com/relabs-tech/lincot/internal/transport"
)

// RunConsoleMQTT prints every CoT event published on cfg.MQTTTopic until
// ctx ends.
func RunConsoleMQTT(ctx context.Context, cfg config.Config, out io.Writer) error {
	u, err := url.Parse(cfg.CoTURL)
	if err != nil {
		return err
	}

	client := mqtt.NewClient(transport.ClientOptions(cfg, u, "-console"))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	glog.Infof("console: connected to MQTT broker at %s", u.Redacted())

	token := client.Subscribe(cfg.MQTTTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line, err := FormatEvent(msg.Payload())
		if err != nil {
			glog.Errorf("console: cot unmarshal error: %v", err)
			return
		}
		fmt.Fprintln(out, line)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	glog.Infof("console: subscribed to %s", cfg.MQTTTopic)

	<-ctx.Done()

	glog.Info("console: shutting down")
	client.Disconnect(250)
	return nil
}

// FormatEvent renders a CoT event as one console line.
func FormatEvent(payload []byte) (string, error) {
	var ev cot.Event
	if err := xml.Unmarshal(payload, &ev); err != nil {
		return "", err
	}

	line := fmt.Sprintf(
		"[COT ]  uid=%s type=%s time=%s lat=%.6f lon=%.6f hae=%.1f ce=%.1f",
		ev.UID, ev.Type, ev.Start, ev.Point.Lat, ev.Point.Lon, ev.Point.Hae, ev.Point.Ce,
	)
	if tr := ev.Detail.Track; tr != nil {
		line += fmt.Sprintf(" course=%.1f° speed=%.1fm/s", tr.Course, tr.Speed)
	}
	return line, nil
}
