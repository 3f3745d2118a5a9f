package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/tunebot/internal/pipeline"
	"github.com/desertthunder/tunebot/internal/session"
	"github.com/desertthunder/tunebot/internal/shared"
	"github.com/desertthunder/tunebot/internal/ui"
	"github.com/urfave/cli/v3"
)

// Console launches the interactive terminal UI.
func (r *Runner) Console(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	f, err := os.OpenFile(cmd.String("log-file"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	logger := shared.NewLogger(f)
	logger.SetLevel(r.logger.GetLevel())
	r.SetLogger(logger)

	sessions := session.NewStore(r.config.Session.TTL.Duration)
	updates := make(chan pipeline.Update, 16)

	pipe, err := r.pipeline(sessions, nil, updates)
	if err != nil {
		return err
	}

	if err := ui.Run(ctx, pipe, cmd.String("output"), updates); err != nil {
		return fmt.Errorf("error running console: %w", err)
	}
	return nil
}
