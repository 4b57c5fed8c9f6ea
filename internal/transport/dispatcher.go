package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/relabs-tech/lincot/internal/queue"
)

// Source is where the dispatcher takes events from. Get returns
// queue.ErrClosed when no more events will come.
type Source interface {
	Get(ctx context.Context) ([]byte, error)
}

// Dispatcher drains a Source into a Sender, one event at a time.
type Dispatcher struct {
	src    Source
	sender Sender
	target string

	// OnSent, if set, is called after each successful send.
	OnSent func(event []byte)
}

// NewDispatcher builds a Dispatcher. target is only used for logging.
func NewDispatcher(src Source, sender Sender, target string) *Dispatcher {
	if s, ok := sender.(fmt.Stringer); ok && target == "" {
		target = s.String()
	}
	return &Dispatcher{src: src, sender: sender, target: target}
}

// Run sends events until ctx ends or the source is closed and drained,
// in which case it returns nil after the last send completes. A failed
// send is logged and the event is dropped.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		event, err := d.src.Get(ctx)
		if errors.Is(err, queue.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := d.sender.Send(ctx, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			glog.Errorf("transport: send to %s failed: %v", d.target, err)
			continue
		}

		glog.Infof("transport: sent %d bytes to %s", len(event), d.target)
		if d.OnSent != nil {
			d.OnSent(event)
		}
	}
}
