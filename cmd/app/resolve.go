package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/starford/projtree/internal/include"
	"github.com/starford/projtree/internal/models"
	"github.com/starford/projtree/internal/treeservice"
)

func resolve(ctx context.Context, cmd *cli.Command) error {
	project := cmd.Args().First()
	if project == "" {
		return fmt.Errorf("resolve: project file argument is required")
	}

	opts := []treeservice.Option{
		treeservice.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		treeservice.WithResolverOptions(include.WithMaxParentTraversal(int(cmd.Int("max-parent-traversal")))),
	}
	if f := cmd.String("filters"); f != "" {
		opts = append(opts, treeservice.WithFiltersPath(f))
	}
	svc, err := treeservice.New(project, opts...)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	start := time.Now()
	snap, _, err := svc.Reload(ctx, true)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	fd := os.Stdout.Fd()
	if cmd.Bool("json") || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) {
		return writeJSON(os.Stdout, snap)
	}
	printTree(os.Stdout, snap, time.Since(start))
	return nil
}

func writeJSON(w io.Writer, snap *models.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

var (
	dirColor  = color.New(color.FgBlue, color.Bold)
	linkColor = color.New(color.FgCyan)
	typeColor = color.New(color.Faint)
	warnColor = color.New(color.FgYellow)
)

// printTree renders entries indented by depth. Entries arrive with each
// folder ahead of its children; files outside the project print at the root.
func printTree(w io.Writer, snap *models.Snapshot, took time.Duration) {
	for _, e := range snap.Entries {
		indent := strings.Repeat("  ", models.Depth(e.RelativePath))
		fmt.Fprint(w, indent)
		switch {
		case e.IsDirectory:
			dirColor.Fprint(w, e.Name+"/")
		case e.IsLink:
			linkColor.Fprint(w, e.Name)
			fmt.Fprintf(w, " -> %s", e.FullPath)
		default:
			fmt.Fprint(w, e.Name)
		}
		if e.ItemType != "" && !e.IsDirectory {
			typeColor.Fprintf(w, "  [%s]", e.ItemType)
		}
		if e.DependentUpon != "" {
			typeColor.Fprintf(w, "  (depends on %s)", e.DependentUpon)
		}
		fmt.Fprintln(w)
	}

	for _, d := range snap.Diagnostics {
		warnColor.Fprintf(w, "warning: %s: %s\n", d.Kind, d.Message)
	}

	fmt.Fprintf(w, "\n%s entries, %s diagnostics, resolved in %s\n",
		humanize.Comma(int64(len(snap.Entries))),
		humanize.Comma(int64(len(snap.Diagnostics))),
		took.Round(time.Millisecond))
}
