package main

import (
	"context"
	"time"

	"github.com/desertthunder/tunebot/internal/metrics"
	"github.com/desertthunder/tunebot/internal/server"
	"github.com/desertthunder/tunebot/internal/services"
	"github.com/desertthunder/tunebot/internal/session"
	"github.com/desertthunder/tunebot/internal/telegram"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	sweepInterval = time.Minute
	// minHTTPTimeout must stay above the bot's long-poll interval.
	minHTTPTimeout = 90 * time.Second
)

// Serve runs the Telegram bot and the HTTP server until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.RequireToken(); err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	sessions := session.NewStore(r.config.Session.TTL.Duration)

	pipe, err := r.pipeline(sessions, rec, nil)
	if err != nil {
		return err
	}

	bot, err := telegram.NewBot(r.config.Telegram, pipe, r.logger, max(r.config.Timeouts.Deliver.Duration, minHTTPTimeout))
	if err != nil {
		return err
	}

	health := server.NewHealthHandler(bot.Username(), sessions.Len)
	router := server.NewBotRouter(r.logger, rec, health, rec.Handler())
	srv := server.New(r.config.Server.Addr(), router, r.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error {
		sessions.Janitor(ctx, sweepInterval, func(n int) {
			if n > 0 {
				r.logger.Debug("expired candidate lists", "count", n)
			}
			rec.Sessions(sessions.Len())
		})
		return nil
	})

	r.logger.Info("tunebot started", "bot", bot.Username(), "addr", r.config.Server.Addr(),
		"searcher", services.NameOf(r.searcher), "resolver", services.NameOf(r.resolver))
	return g.Wait()
}
