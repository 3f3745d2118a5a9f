package main

import (
	"context"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/tunebot/internal/shared"
	"github.com/urfave/cli/v3"
)

const redacted = "[redacted]"

// ConfigInit writes the embedded default configuration to the given path or --config.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		path = cmd.String("config")
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return nil
}

// ConfigShow prints the effective configuration as TOML.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	config := *r.config
	if config.Telegram.Token != "" {
		config.Telegram.Token = redacted
	}
	if config.Credentials.Spotify.ClientSecret != "" {
		config.Credentials.Spotify.ClientSecret = redacted
	}

	return toml.NewEncoder(r.output).Encode(config)
}
