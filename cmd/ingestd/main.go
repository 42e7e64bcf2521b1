// Package main is ingestd, the single CLI entry point dispatching every
// command of spec.md §6 (plus the supplemented merge-duplicates command),
// grounded on the teacher's cmd/ingest/main.go flag-parsing and
// mode-dispatch shape generalized from one ingestion mode flag to a
// subcommand taken from os.Args[1].
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code per spec.md §6: 0 success, 1 run-level
// failure, 2 invalid arguments.
func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ingestd <command> [flags]")
		fmt.Fprintln(os.Stderr, "commands: refresh-window, ingest-new, single, full-refresh, backfill-details, merge-duplicates")
		return 2
	}
	command := os.Args[1]
	fs := flag.NewFlagSet(command, flag.ContinueOnError)

	limit := fs.Int("limit", 0, "")
	dryRun := fs.Bool("dry-run", false, "")
	mode := fs.String("mode", "operational", "")
	batchSize := fs.Int("batch-size", 500, "")
	concurrency := fs.Int("concurrency", 4, "")
	idKind := fs.String("id-kind", "internal", "")
	id := fs.Int64("id", 0, "")
	sources := fs.String("sources", "store,meta", "")
	useMemory := fs.Bool("use-memory", false, "")

	if err := fs.Parse(os.Args[2:]); err != nil {
		return 2
	}
	if err := validateArgs(command, *limit, *mode, *batchSize, *idKind, *id); err != nil {
		fmt.Fprintf(os.Stderr, "ingestd: %v\n", err)
		return 2
	}

	logger := log.New(os.Stdout, fmt.Sprintf("[ingestd:%s] ", command), log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, cancelling...", sig)
		cancel()
	}()

	a, err := newApp(ctx, logger, *useMemory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingestd: %v\n", err)
		return 1
	}
	defer a.Close()

	var s summary
	switch command {
	case "refresh-window":
		s, err = a.runRefreshWindow(ctx, logger, nonZero(*limit, 10_000), *dryRun)
	case "ingest-new":
		s, err = a.runIngestNew(ctx, logger, *mode, nonZero(*limit, 50_000), *dryRun)
	case "single":
		if *id == 0 {
			fmt.Fprintln(os.Stderr, "ingestd: --id is required for the single command")
			return 2
		}
		s, err = a.runSingle(ctx, logger, *idKind, *id, splitSources(*sources), *dryRun)
	case "full-refresh":
		s, err = a.runFullRefresh(ctx, logger, *mode, *batchSize, *dryRun)
	case "backfill-details":
		s, err = a.runBackfillDetails(ctx, logger, nonZero(*limit, 1000), *concurrency)
	case "merge-duplicates":
		s, err = a.runMergeDuplicates(ctx, logger, *limit, *dryRun)
	default:
		fmt.Fprintf(os.Stderr, "ingestd: unknown command %q\n", command)
		return 2
	}

	printSummary(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingestd: %v\n", err)
		return 1
	}
	return 0
}

// validateArgs checks the bounds spec.md §6's command table lists before any
// dependency is wired, so a malformed invocation exits 2 rather than 1 even
// though the per-command run functions repeat some of these checks as a
// defense-in-depth backstop.
func validateArgs(command string, limit int, mode string, batchSize int, idKind string, id int64) error {
	switch command {
	case "refresh-window":
		if limit != 0 && (limit < 1 || limit > 10_000) {
			return fmt.Errorf("--limit must be in [1,10000]")
		}
	case "ingest-new":
		if mode != "bootstrap" && mode != "operational" {
			return fmt.Errorf("--mode must be bootstrap or operational")
		}
		if limit != 0 && (limit < 1 || limit > 50_000) {
			return fmt.Errorf("--limit must be in [1,50000]")
		}
	case "single":
		if id == 0 {
			return fmt.Errorf("--id is required")
		}
		if idKind != "internal" && idKind != "store" && idKind != "meta" {
			return fmt.Errorf("--id-kind must be internal, store, or meta")
		}
	case "full-refresh":
		if batchSize < 100 || batchSize > 2000 {
			return fmt.Errorf("--batch-size must be in [100,2000]")
		}
	case "backfill-details", "merge-duplicates":
		// limit/concurrency have sane defaults; nothing to reject here.
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

// nonZero returns fallback when limit is unset (0), letting every command's
// --limit flag default to the cap spec.md §6 gives it without repeating the
// constant as a flag.Int default.
func nonZero(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

func splitSources(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func printSummary(s summary) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingestd: marshal summary: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
