// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"net/url"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/lincot/internal/config"
	"github.com/relabs-tech/lincot/internal/cot"
	"github.com/relabs-tech/lincot/internal/fixsource"
	"github.com/relabs-tech/lincot/internal/queue"
	"github.com/relabs-tech/lincot/internal/transport"
)

// RunLincot polls the GPS and transmits CoT events until ctx ends or the
// worker fails. iterations bounds the number of poll cycles when > 0; a
// bounded run returns once every queued event has been sent.
func RunLincot(ctx context.Context, cfg config.Config, iterations int) error {
	source, err := fixsource.NewCommand(GPSInfoCmd(cfg.GPSInfoCmd))
	if err != nil {
		return err
	}

	q, err := queue.New(cfg.TXQueueSize)
	if err != nil {
		return err
	}

	sender, err := transport.NewSender(ctx, cfg)
	if err != nil {
		return err
	}
	defer sender.Close()

	p := pipeline{
		worker:     NewGPSWorker(cfg, source, cot.Converter{}, q),
		iterations: iterations,
		queue:      q,
		dispatcher: transport.NewDispatcher(q, sender, redactURL(cfg.CoTURL)),
	}

	if cfg.MonitorAddr != "" {
		hub := NewEventHub()
		p.dispatcher.OnSent = hub.Publish
		p.serve = func(ctx context.Context) error {
			return ServeHub(ctx, cfg.MonitorAddr, hub)
		}
	}

	return p.run(ctx)
}

// pipeline is a worker feeding a dispatcher through a queue, plus an
// optional server that lives as long as the dispatcher.
type pipeline struct {
	worker     *GPSWorker
	iterations int
	queue      *queue.Queue
	dispatcher *transport.Dispatcher
	serve      func(ctx context.Context) error
}

// run returns the first failure. When the worker stops the queue is
// closed, the dispatcher sends what is left and then stops serve.
func (p pipeline) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()

	g.Go(func() error {
		defer p.queue.Close()
		return p.worker.Run(ctx, p.iterations)
	})
	g.Go(func() error {
		defer stopServe()
		return p.dispatcher.Run(ctx)
	})
	if p.serve != nil {
		g.Go(func() error {
			return p.serve(serveCtx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		glog.Info("lincot: shutting down")
		return nil
	}
	return err
}

// redactURL hides any password in a destination URL before it is logged.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
