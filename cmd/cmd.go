// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the Telegram bot and its HTTP endpoints
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the Telegram bot with liveness, health and metrics endpoints",
		Action: r.Serve,
	}
}

// consoleCommand runs the pipeline in a local terminal UI
func consoleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "console",
		Usage: "Search and download interactively in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory delivered files are copied to",
				Value:   "music",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File console logs are written to",
				Value: "tunebot-console.log",
			},
		},
		Action: r.Console,
	}
}

// resolveCommand prints the search string a streaming link resolves to
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a Spotify link to a search string",
		ArgsUsage: "<link>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Resolve,
	}
}

// searchCommand prints candidates for a query
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search for candidate tracks",
		ArgsUsage: "<query...>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of candidates (defaults to search.results_limit)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "Output CSV",
			},
		},
		Action: r.Search,
	}
}

// configCommand handles configuration files
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Write the default configuration file",
				ArgsUsage: "[path]",
				Action:    r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets redacted",
				Action: r.ConfigShow,
			},
		},
	}
}
