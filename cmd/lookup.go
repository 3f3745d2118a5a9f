package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/tunebot/internal/formatter"
	"github.com/desertthunder/tunebot/internal/shared"
	"github.com/urfave/cli/v3"
)

// Resolve prints the search string for a streaming link.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	link := strings.TrimSpace(cmd.Args().First())
	if link == "" {
		return fmt.Errorf("%w: link", shared.ErrMissingArgument)
	}

	if err := r.services(); err != nil {
		return err
	}
	if r.resolver == nil {
		return fmt.Errorf("%w: set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET", shared.ErrMissingCredentials)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeouts.Resolve.Duration)
	defer cancel()

	query, err := r.resolver.Resolve(ctx, link)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", link, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]string{"link": link, "query": query}, false)
	}
	return r.writePlain("%s\n", query)
}

// Search prints candidates for the query formed by all arguments.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		limit = r.config.Search.ResultsLimit
	}

	if err := r.services(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeouts.Search.Duration)
	defer cancel()

	list, err := r.searcher.Search(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	list = list.Cap(limit)

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(list, cmd.Bool("pretty"))
	case cmd.Bool("csv"):
		data, err := formatter.CandidatesToCSV(list)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	default:
		if len(list) == 0 {
			return r.writePlain("No results for %q\n", query)
		}
		return r.writePlain("%s", formatter.CandidatesToText(list, r.config.Search.LabelWidth))
	}
}
