package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebot/internal/metrics"
	"github.com/desertthunder/tunebot/internal/pipeline"
	"github.com/desertthunder/tunebot/internal/services"
	"github.com/desertthunder/tunebot/internal/session"
	"github.com/desertthunder/tunebot/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config    *shared.Config
	logger    *log.Logger
	output    io.Writer
	lookupEnv func(string) (string, bool)
	resolver  services.Resolver
	searcher  services.Searcher
	fetcher   services.Fetcher
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Config is loaded from --config and the environment before each command runs.
type RunnerOpts struct {
	Config    *shared.Config
	Logger    *log.Logger
	Output    io.Writer
	LookupEnv func(string) (string, bool)
	Resolver  services.Resolver
	Searcher  services.Searcher
	Fetcher   services.Fetcher
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	return &Runner{
		config:    opts.Config,
		logger:    opts.Logger,
		output:    opts.Output,
		lookupEnv: opts.LookupEnv,
		resolver:  opts.Resolver,
		searcher:  opts.Searcher,
		fetcher:   opts.Fetcher,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, consoleCommand, resolveCommand, searchCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// flags are the global flags shared by every command.
func (r *Runner) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("TUNEBOT_CONFIG"),
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Minimum log level (debug, info, warn, error)",
		},
	}
}

// before loads the configuration once, ahead of the selected command.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		config, err := r.loadConfig(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := r.config.Log.Level
	if cmd.String("log-level") != "" {
		level = cmd.String("log-level")
	}
	if err := shared.SetLogLevel(r.logger, level); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// loadConfig reads path when it exists, overlays the environment and validates the result.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, err
		}
		r.logger.Debug("loaded config", "path", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := config.ApplyEnv(r.lookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// services builds the collaborators not injected through [RunnerOpts].
//
// Without Spotify credentials the resolver stays nil and links are searched as text.
func (r *Runner) services() error {
	if r.resolver == nil && r.config.Credentials.Spotify.Enabled() {
		spotify, err := services.NewSpotifyResolver(r.config.Credentials.Spotify.Map())
		if err != nil {
			return err
		}
		spotify.SetRateLimit(r.config.Credentials.Spotify.RequestsPerSecond)
		r.resolver = spotify
	}
	if r.resolver == nil {
		r.logger.Info("spotify credentials not configured, link resolution disabled")
	}

	if r.searcher == nil {
		searcher, err := services.NewSearcher(r.config.Search.Engine)
		if err != nil {
			return err
		}
		r.searcher = searcher
	}

	if r.fetcher == nil {
		r.fetcher = services.NewYouTubeFetcher(r.config.Download)
	}
	return nil
}

// pipeline wires the collaborators and configured limits into a [pipeline.Pipeline].
func (r *Runner) pipeline(sessions *session.Store, rec *metrics.Recorder, updates chan<- pipeline.Update) (*pipeline.Pipeline, error) {
	if err := r.services(); err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		LinkDomains:    r.config.Credentials.Spotify.LinkDomains,
		ResultsLimit:   r.config.Search.ResultsLimit,
		LabelWidth:     r.config.Search.LabelWidth,
		MaxFileSize:    r.config.Download.MaxFileSize,
		ResolveTimeout: r.config.Timeouts.Resolve.Duration,
		SearchTimeout:  r.config.Timeouts.Search.Duration,
		FetchTimeout:   r.config.Timeouts.Fetch.Duration,
		DeliverTimeout: r.config.Timeouts.Deliver.Duration,
		Logger:         r.logger,
		Updates:        updates,
	}
	if rec != nil {
		opts.Recorder = rec
	}

	return pipeline.New(r.resolver, r.searcher, r.fetcher, sessions, opts), nil
}

// SetLogger replaces the logger used by subsequent commands.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
