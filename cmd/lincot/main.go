package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/golang/glog"

	"github.com/relabs-tech/lincot/internal/app"
	"github.com/relabs-tech/lincot/internal/config"
)

var version = "v0.0.0"

var cli struct {
	Version    bool   `help:"print version"`
	Config     string `short:"c" help:"path to a KEY=VALUE or YAML config file" type:"path"`
	Iterations int    `help:"stop after this many poll cycles (0 polls forever)" default:"0"`
	Verbose    int    `short:"v" help:"log verbosity, 2 logs every GPS record" default:"0"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("lincot"),
		kong.Description("Polls gpspipe and sends the position as Cursor-on-Target "+version),
		kong.UsageOnError())

	if cli.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	flag.Set("logtostderr", "true")
	flag.Set("v", strconv.Itoa(cli.Verbose))
	defer glog.Flush()

	glog.Info("starting lincot (gpspipe → CoT)")

	cfg, err := config.Load(cli.Config)
	if err != nil {
		glog.Exitf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunLincot(ctx, cfg, cli.Iterations); err != nil {
		glog.Exitf("fatal: %v", err)
	}
}
