package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/relabs-tech/lincot/internal/config"
	"github.com/relabs-tech/lincot/internal/gps"
)

const (
	// DefaultPollInterval is used when POLL_INTERVAL is absent or not a
	// positive integer.
	DefaultPollInterval = 30 * time.Second

	// DefaultGPSInfoCmd is used when GPS_INFO_CMD is absent or empty.
	DefaultGPSInfoCmd = "gpspipe --json -n 5"
)

// Fetcher returns the raw output of one fix-source run.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Converter encodes a fix as an event. A nil event means no event.
type Converter interface {
	Convert(f gps.Fix, cfg config.Config) ([]byte, error)
}

// Enqueuer accepts encoded events for transmission.
type Enqueuer interface {
	Put(ctx context.Context, event []byte) error
}

// GPSWorker polls a fix source and enqueues one event per cycle at most.
// Its configuration is fixed at construction.
type GPSWorker struct {
	cfg      config.Config
	interval time.Duration
	cmd      string
	format   string

	source    Fetcher
	converter Converter
	queue     Enqueuer

	// sleep waits d or until ctx ends. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// PollInterval resolves a POLL_INTERVAL value in seconds.
func PollInterval(raw string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(secs) * time.Second
}

// GPSInfoCmd resolves a GPS_INFO_CMD value.
func GPSInfoCmd(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return DefaultGPSInfoCmd
	}
	return raw
}

// NewGPSWorker builds a worker reading from source. The command string
// is only reported in logs; source already runs it.
func NewGPSWorker(cfg config.Config, source Fetcher, converter Converter, queue Enqueuer) *GPSWorker {
	format := cfg.GPSInfoFormat
	if format == "" {
		format = config.DefaultGPSInfoFormat
	}
	return &GPSWorker{
		cfg:       cfg,
		interval:  PollInterval(cfg.PollInterval),
		cmd:       GPSInfoCmd(cfg.GPSInfoCmd),
		format:    format,
		source:    source,
		converter: converter,
		queue:     queue,
		sleep:     sleepContext,
	}
}

// Interval returns the resolved poll interval.
func (w *GPSWorker) Interval() time.Duration {
	return w.interval
}

// Run polls until ctx ends, a record fails to decode, or the converter
// or queue fail. iterations > 0 stops after that many cycles; any other
// value polls forever. On cancellation Run returns ctx.Err().
func (w *GPSWorker) Run(ctx context.Context, iterations int) error {
	glog.Infof("gps worker: Sending to: %s", redactURL(w.cfg.CoTURL))

	for n := 1; ; n++ {
		glog.Infof("gps worker: Polling every %s: %s", w.interval, w.cmd)

		if err := w.pollOnce(ctx); err != nil {
			return err
		}

		if iterations > 0 && n >= iterations {
			return nil
		}
		if err := w.sleep(ctx, w.interval); err != nil {
			return err
		}
	}
}

// pollOnce runs a single fetch, extract, convert, enqueue cycle.
func (w *GPSWorker) pollOnce(ctx context.Context) error {
	raw, err := w.source.Fetch(ctx)
	if err != nil {
		return err
	}
	if raw == "" {
		return nil
	}

	line, ok := w.candidate(raw)
	if !ok {
		return nil
	}

	glog.V(2).Infof("gps worker: GPS_INFO=%s", line)

	fix, err := w.decode(line)
	if err != nil {
		return fmt.Errorf("decode fix: %w", err)
	}

	event, err := w.converter.Convert(fix, w.cfg)
	if err != nil {
		return fmt.Errorf("convert fix: %w", err)
	}
	if event == nil {
		return nil
	}

	if err := w.queue.Put(ctx, event); err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}
	return nil
}

func (w *GPSWorker) candidate(raw string) (string, bool) {
	if w.format == "nmea" {
		return lastRMCLine(raw)
	}
	return lastTPVLine(raw)
}

func (w *GPSWorker) decode(line string) (gps.Fix, error) {
	if w.format == "nmea" {
		return gps.FromRMC(line)
	}
	return gps.Decode(line)
}

// lastTPVLine returns the last line of raw that mentions TPV. Output
// without any newline never yields a candidate, even when it is a TPV
// record itself; gpspipe always terminates its lines.
func lastTPVLine(raw string) (string, bool) {
	return lastLineMatching(raw, func(line string) bool {
		return strings.Contains(line, gps.ClassTPV)
	})
}

// lastRMCLine is lastTPVLine for NMEA output: the last $..RMC sentence.
func lastRMCLine(raw string) (string, bool) {
	return lastLineMatching(raw, func(line string) bool {
		line = strings.TrimSpace(line)
		return len(line) >= 6 && line[0] == '$' && line[3:6] == "RMC"
	})
}

func lastLineMatching(raw string, match func(string) bool) (string, bool) {
	if !strings.Contains(raw, "\n") {
		return "", false
	}

	var found string
	for _, line := range strings.Split(raw, "\n") {
		if match(line) {
			found = line
		}
	}
	if found == "" {
		return "", false
	}
	return strings.TrimRight(found, "\r"), true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
