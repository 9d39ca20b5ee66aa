package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lumina-backend/internal/app"
	"lumina-backend/internal/models"
	"lumina-backend/internal/progress"
	"lumina-backend/internal/services"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var concurrency int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Ingest every raw + preview pair found in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			info, err := os.Stat(dir)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("directory does not exist: %s", dir)
				}
				return fmt.Errorf("inspect directory: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}

			pairs, unmatched, err := findPairs(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range unmatched {
				fmt.Fprintf(out, "No preview for %s, skipping\n", filepath.Base(path))
			}
			if len(pairs) == 0 {
				fmt.Fprintln(out, "No raw + preview pairs found")
				return nil
			}
			if dryRun {
				for _, p := range pairs {
					fmt.Fprintf(out, "%s + %s\n", filepath.Base(p.RawPath), filepath.Base(p.PreviewPath))
				}
				return nil
			}

			narration := newNarrator(out)
			return ctx.withApp(func(a *app.App) error {
				if _, err := a.Migrate(); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				if concurrency <= 0 {
					concurrency = a.Config.BatchConcurrency
				}
				results := ingestPairs(cmd.Context(), a.Ingest, pairs, concurrency, narration)
				printSummary(out, results)
				if services.Summarize(results).Failed > 0 {
					return errors.New("some bundles failed")
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Bundles processed in parallel (default BATCH_CONCURRENCY)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the pairs that would be ingested")
	return cmd
}

// ingestPairs loads at most concurrency bundles into memory at a time.
func ingestPairs(ctx context.Context, svc *services.IngestService, pairs []bundlePair, concurrency int, narration progress.Sink) []services.Result {
	chunk := max(concurrency, 1)
	results := make([]services.Result, 0, len(pairs))
	for start := 0; start < len(pairs); start += chunk {
		end := min(start+chunk, len(pairs))

		var inputs []models.BundleInput
		var loadFailures []services.Result
		for _, p := range pairs[start:end] {
			in, err := loadBundle(p)
			if err != nil {
				loadFailures = append(loadFailures, services.Result{
					Filename: filepath.Base(p.RawPath),
					State:    models.StateFailed,
					Err:      err,
				})
				continue
			}
			inputs = append(inputs, in)
		}
		results = append(results, svc.IngestBatch(ctx, inputs, concurrency, narration)...)
		results = append(results, loadFailures...)
	}
	return results
}

// narrator prints progress events as plain lines.
type narrator struct {
	mu  sync.Mutex
	out io.Writer
}

func newNarrator(out io.Writer) *narrator {
	return &narrator{out: out}
}

func (n *narrator) Emit(_ context.Context, event models.ProgressEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	prefix := "  "
	if event.Level == progress.LevelWarn || event.Level == progress.LevelError {
		prefix = "! "
	}
	fmt.Fprintf(n.out, "%s[%s] %s\n", prefix, event.Filename, event.Message)
}

func printSummary(out io.Writer, results []services.Result) {
	fmt.Fprintln(out)
	for _, r := range results {
		state := strings.ToUpper(string(r.State))
		switch {
		case r.Committed():
			v := r.Bundle.Verdict
			fmt.Fprintf(out, "%-9s %s  %s %.1f (%d/5)\n", state, r.Filename, strings.ToUpper(string(v.Flag)), v.Score, v.Rating)
		case r.Err != nil:
			fmt.Fprintf(out, "%-9s %s  %v\n", state, r.Filename, r.Err)
		default:
			fmt.Fprintf(out, "%-9s %s\n", state, r.Filename)
		}
	}
	sum := services.Summarize(results)
	fmt.Fprintf(out, "\n%s committed, %s skipped, %s failed\n",
		humanize.Comma(int64(sum.Committed)), humanize.Comma(int64(sum.Skipped)), humanize.Comma(int64(sum.Failed)))
}
