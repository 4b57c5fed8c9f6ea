// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/golang/glog"

	"github.com/relabs-tech/lincot/internal/app"
	"github.com/relabs-tech/lincot/internal/config"
)

var cli struct {
	Config string `short:"c" help:"path to a KEY=VALUE or YAML config file" type:"path"`
	Addr   string `help:"listen address, overrides MONITOR_ADDR"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("web"),
		kong.Description("Serves the latest CoT event from the MQTT topic over HTTP and websocket"),
		kong.UsageOnError())

	flag.Set("logtostderr", "true")
	defer glog.Flush()

	glog.Info("starting lincot web server (MQTT subscriber)")

	cfg, err := config.Load(cli.Config)
	if err != nil {
		glog.Exitf("failed to load config: %v", err)
	}
	if cli.Addr != "" {
		cfg.MonitorAddr = cli.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMonitor(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		glog.Exitf("fatal: %v", err)
	}
}
