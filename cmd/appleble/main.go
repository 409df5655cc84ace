// Command appleble encodes, decodes and broadcasts Apple Continuity BLE
// advertisements through BlueZ.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mikoaf/appleble/internal/config"
	"github.com/mikoaf/appleble/internal/logging"
)

type cli struct {
	Config   string `help:"TOML configuration file" type:"path" env:"APPLEBLE_CONFIG"`
	Adapter  string `help:"BlueZ adapter id, overrides the config file" env:"APPLEBLE_ADAPTER"`
	LogLevel string `help:"Log level (debug, info, warn, error)" env:"APPLEBLE_LOG_LEVEL"`

	Encode    encodeCmd    `cmd:"" help:"Print the manufacturer data for a message"`
	Decode    decodeCmd    `cmd:"" help:"Decode manufacturer data"`
	Advertise advertiseCmd `cmd:"" help:"Broadcast a message until interrupted"`
	Serve     serveCmd     `cmd:"" help:"Run the HTTP control API"`
}

// runtime is passed to every command's Run method.
type runtime struct {
	cfg    config.Config
	logger zerolog.Logger
}

func (c *cli) load() (config.Config, error) {
	cfg := config.Default()
	if c.Config != "" {
		var err error
		cfg, err = config.Load(c.Config)
		if err != nil {
			return config.Config{}, err
		}
	}
	if c.Adapter != "" {
		cfg.Adapter = c.Adapter
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	return cfg, nil
}

func main() {
	var params cli
	kctx := kong.Parse(&params,
		kong.Name("appleble"),
		kong.Description("Apple Continuity BLE advertisement codec and broadcaster."),
		kong.UsageOnError(),
	)

	cfg, err := params.load()
	if err != nil {
		kctx.FatalIfErrorf(err)
	}
	logger := logging.Init("appleble", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(&runtime{cfg: cfg, logger: logger}); err != nil {
		log.Error().Err(err).Str("command", kctx.Command()).Msg("command failed")
		cancel()
		os.Exit(1)
	}
}
