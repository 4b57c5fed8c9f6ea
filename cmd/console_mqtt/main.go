package main

import (
	"context"
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
}

func main() {
	kong.Parse(&cli,
		kong.Name("console_mqtt"),
		kong.Description("Prints the CoT events published on the MQTT topic"),
		kong.UsageOnError())

	flag.Set("logtostderr", "true")
	defer glog.Flush()

	glog.Info("starting lincot console (MQTT subscriber)")

	cfg, err := config.Load(cli.Config)
	if err != nil {
		glog.Exitf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunConsoleMQTT(ctx, cfg, os.Stdout); err != nil {
		glog.Exitf("fatal: %v", err)
	}
}
