package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a key is absent.
const (
	DefaultCoTURL         = "udp://239.2.3.1:6969"
	DefaultGPSInfoFormat  = "json"
	DefaultCoTType        = "a-f-G-E-S"
	DefaultCoTStale       = 120 // seconds
	DefaultTXQueueSize    = 100
	DefaultMQTTTopic      = "lincot/cot"
	DefaultAMQPExchange   = "lincot"
	DefaultAMQPRoutingKey = "cot"
)

// ErrUnknownKey is returned for keys that no component consumes.
var ErrUnknownKey = errors.New("unknown config key")

// Keys lists every configuration key, in the order they are documented.
// Environment variables with these names override file values.
var Keys = []string{
	"COT_URL",
	"POLL_INTERVAL",
	"GPS_INFO_CMD",
	"GPS_INFO_FORMAT",
	"COT_UID",
	"CALLSIGN",
	"COT_TYPE",
	"COT_STALE",
	"TX_QUEUE_SIZE",
	"MQTT_TOPIC",
	"MQTT_CLIENT_ID",
	"MQTT_RETAIN",
	"AMQP_EXCHANGE",
	"AMQP_ROUTING_KEY",
	"MONITOR_ADDR",
}

// Config holds all application configuration values. It is built once at
// startup and passed by value afterwards.
type Config struct {
	// Destination
	CoTURL string

	// GPS polling
	// PollInterval and GPSInfoCmd are kept as given; the worker resolves
	// them against its own defaults so a bad value never stops startup.
	PollInterval  string
	GPSInfoCmd    string
	GPSInfoFormat string // "json" (gpspipe TPV) or "nmea"

	// CoT event
	CoTUID   string
	Callsign string
	CoTType  string
	CoTStale int // seconds

	// Transmit queue
	TXQueueSize int

	// MQTT
	MQTTTopic    string
	MQTTClientID string
	MQTTRetain   bool

	// AMQP
	AMQPExchange   string
	AMQPRoutingKey string

	// Monitor web server, e.g. ":8080"
	MonitorAddr string
}

// Default returns a Config with every default applied.
func Default() Config {
	return Config{
		CoTURL:         DefaultCoTURL,
		GPSInfoFormat:  DefaultGPSInfoFormat,
		CoTType:        DefaultCoTType,
		CoTStale:       DefaultCoTStale,
		TXQueueSize:    DefaultTXQueueSize,
		MQTTTopic:      DefaultMQTTTopic,
		AMQPExchange:   DefaultAMQPExchange,
		AMQPRoutingKey: DefaultAMQPRoutingKey,
	}
}

// Load reads the configuration file, applies environment overrides and
// returns the resulting Config. An empty path skips the file.
// Files ending in .yaml or .yml are parsed as a flat YAML mapping, anything
// else as KEY=VALUE lines.
func Load(configPath string) (Config, error) {
	cfg := Default()

	if configPath != "" {
		var err error
		switch strings.ToLower(filepath.Ext(configPath)) {
		case ".yaml", ".yml":
			err = cfg.loadYAML(configPath)
		default:
			err = cfg.loadKeyValue(configPath)
		}
		if err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) loadKeyValue(configPath string) error {
	file, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func (c *Config) loadYAML(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("error parsing config YAML: %w", err)
	}

	for _, key := range Keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		delete(raw, key)
		if v == nil {
			continue
		}
		if err := c.setValue(key, fmt.Sprint(v)); err != nil {
			return err
		}
	}
	if len(raw) > 0 {
		unknown := make([]string, 0, len(raw))
		for key := range raw {
			unknown = append(unknown, key)
		}
		sort.Strings(unknown)
		return fmt.Errorf("%w: %q", ErrUnknownKey, unknown[0])
	}
	return nil
}

// ApplyEnv overrides values with the variables lookup reports as set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, key := range Keys {
		value, ok := lookup(key)
		if !ok {
			continue
		}
		if err := c.setValue(key, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	case "COT_URL":
		c.CoTURL = value

	// GPS polling
	case "POLL_INTERVAL":
		c.PollInterval = value
	case "GPS_INFO_CMD":
		c.GPSInfoCmd = value
	case "GPS_INFO_FORMAT":
		c.GPSInfoFormat = strings.ToLower(value)

	// CoT event
	case "COT_UID":
		c.CoTUID = value
	case "CALLSIGN":
		c.Callsign = value
	case "COT_TYPE":
		c.CoTType = value
	case "COT_STALE":
		stale, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid COT_STALE %q: %w", value, err)
		}
		c.CoTStale = stale

	case "TX_QUEUE_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TX_QUEUE_SIZE %q: %w", value, err)
		}
		c.TXQueueSize = size

	// MQTT
	case "MQTT_TOPIC":
		c.MQTTTopic = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_RETAIN":
		retain, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_RETAIN %q: %w", value, err)
		}
		c.MQTTRetain = retain

	// AMQP
	case "AMQP_EXCHANGE":
		c.AMQPExchange = value
	case "AMQP_ROUTING_KEY":
		c.AMQPRoutingKey = value

	case "MONITOR_ADDR":
		c.MonitorAddr = value

	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	return nil
}

// validate checks the values that have no sensible fallback.
func (c *Config) validate() error {
	if c.CoTURL == "" {
		return fmt.Errorf("COT_URL is required")
	}
	if c.GPSInfoFormat != "json" && c.GPSInfoFormat != "nmea" {
		return fmt.Errorf("GPS_INFO_FORMAT must be json or nmea, got %q", c.GPSInfoFormat)
	}
	if c.CoTStale <= 0 {
		return fmt.Errorf("COT_STALE must be positive, got %d", c.CoTStale)
	}
	if c.TXQueueSize <= 0 {
		return fmt.Errorf("TX_QUEUE_SIZE must be positive, got %d", c.TXQueueSize)
	}
	if c.MQTTTopic == "" {
		return fmt.Errorf("MQTT_TOPIC must not be empty")
	}
	return nil
}
