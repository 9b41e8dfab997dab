// Package main is the kugiri CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kugiri/internal/batch"
	"github.com/hyperjump/kugiri/internal/cli"
	"github.com/hyperjump/kugiri/internal/config"
	"github.com/hyperjump/kugiri/internal/embedding"
	"github.com/hyperjump/kugiri/internal/extract"
	"github.com/hyperjump/kugiri/internal/pipeline"
	"github.com/hyperjump/kugiri/internal/storage"
	"github.com/hyperjump/kugiri/internal/watcher"
	"github.com/hyperjump/kugiri/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kugiri/config.yaml"

var errUsage = errors.New("usage")

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if it exists, and a missing default file means
// built-in defaults. Returns the config and the path actually loaded ("" for
// defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// commonFlags are accepted by every command.
type commonFlags struct {
	config *string
	debug  *bool
	output *string
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return fs, &commonFlags{
		config: fs.String("config", defaultConfigPath, "config file path"),
		debug:  fs.Bool("debug", false, "enable debug logging"),
		output: fs.String("output", "text", "output format: text or json"),
	}
}

// reorderArgs moves flags that follow positional arguments to the front so
// "kugiri resume cv.pdf --output json" parses like "kugiri resume --output json cv.pdf".
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// env is what a command runs with once flags and config are resolved.
type env struct {
	cfg    *config.Config
	format cli.OutputFormat
	logger *zap.Logger
}

func setup(fs *flag.FlagSet, cf *commonFlags, args []string) (*env, error) {
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return nil, err
	}
	format, err := cli.ParseFormat(*cf.output)
	if err != nil {
		return nil, err
	}
	cfg, path, err := loadConfig(*cf.config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || *cf.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.Bool("debug", debug))
	return &env{cfg: cfg, format: format, logger: logger}, nil
}

// openStore opens the configured database.
func (e *env) openStore() (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(e.cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

// buildPipeline assembles the pipeline. The store backs persisted
// embeddings when embedding.persist is set.
func (e *env) buildPipeline(ctx context.Context, store *storage.SQLiteStorage) (*pipeline.Pipeline, error) {
	var vs embedding.VectorStore
	if store != nil {
		vs = store
	}
	p, err := pipeline.Build(ctx, e.cfg, vs, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	return p, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if errors.Is(err, errUsage) {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	rest := args[1:]
	switch args[0] {
	case "resume":
		return runDocument(ctx, "resume", rest, stdout)
	case "chunk":
		return runDocument(ctx, "chunk", rest, stdout)
	case "segment":
		return runDocument(ctx, "segment", rest, stdout)
	case "batch":
		return runBatch(ctx, rest, stdout)
	case "manifest":
		return runManifest(ctx, rest, stdout)
	case "watch":
		return runWatch(ctx, rest, stdout)
	case "status":
		return runStatus(ctx, rest, stdout)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "kugiri version %s\n", version)
		return nil
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

// runDocument extracts one file and runs the résumé, free-form or
// change-point flow over it.
func runDocument(ctx context.Context, command string, args []string, stdout io.Writer) error {
	fs, cf := newFlagSet(command)
	e, err := setup(fs, cf, args)
	if err != nil {
		return err
	}
	defer e.logger.Sync()
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: kugiri %s [flags] <file>", errUsage, command)
	}

	text, err := extract.NewExtractor().Extract(fs.Arg(0))
	if err != nil {
		return err
	}

	var store *storage.SQLiteStorage
	if e.cfg.Embedding.Persist {
		if store, err = e.openStore(); err != nil {
			return err
		}
		defer store.Close()
	}
	p, err := e.buildPipeline(ctx, store)
	if err != nil {
		return err
	}
	defer p.Close()

	switch command {
	case "resume":
		r, err := p.ParseResume(ctx, text)
		if err != nil {
			return err
		}
		return cli.WriteResume(stdout, r, e.format)
	case "chunk":
		r, err := p.ChunkFreeForm(ctx, text)
		if err != nil {
			return err
		}
		return cli.WriteChunks(stdout, r, e.format)
	default:
		r, err := p.CoarseSegments(ctx, text)
		if err != nil {
			return err
		}
		return cli.WriteSegments(stdout, r, e.format)
	}
}

func runBatch(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cf := newFlagSet("batch")
	outDir := fs.String("out", "", "output directory (default from config)")
	workers := fs.Int("workers", 0, "documents processed at once (default from config)")
	xlsx := fs.Bool("xlsx", false, "also write combined.xlsx")
	persist := fs.Bool("persist", false, "save documents and chunks to the database")
	e, err := setup(fs, cf, args)
	if err != nil {
		return err
	}
	defer e.logger.Sync()
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: kugiri batch [flags] <manifest.csv|manifest.xlsx>", errUsage)
	}
	if *outDir == "" {
		*outDir = e.cfg.Batch.OutputDir
	}
	if *workers == 0 {
		*workers = e.cfg.Batch.Workers
	}
	*xlsx = *xlsx || e.cfg.Batch.ExportXLSX
	*persist = *persist || e.cfg.Batch.Persist

	entries, err := batch.ReadManifest(fs.Arg(0))
	if err != nil {
		return err
	}

	var store *storage.SQLiteStorage
	if *persist || e.cfg.Embedding.Persist {
		if store, err = e.openStore(); err != nil {
			return err
		}
		defer store.Close()
	}
	p, err := e.buildPipeline(ctx, store)
	if err != nil {
		return err
	}
	defer p.Close()

	opts := []batch.Option{batch.WithWorkers(*workers), batch.WithLogger(e.logger.Named("batch"))}
	if *persist {
		opts = append(opts, batch.WithStore(store))
	}
	start := time.Now()
	results, err := batch.NewRunner(p, opts...).Run(ctx, entries)
	if err != nil {
		return err
	}
	files, err := batch.Export(*outDir, results, *xlsx)
	if err != nil {
		return err
	}
	summary := batch.Summarize(results)
	summary.Files = files
	summary.Duration = time.Since(start).Round(time.Millisecond)
	return cli.WriteBatchSummary(stdout, summary, e.format)
}

func runManifest(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cf := newFlagSet("manifest")
	out := fs.String("out", "manifest.csv", "manifest to write (.csv or .xlsx)")
	e, err := setup(fs, cf, args)
	if err != nil {
		return err
	}
	defer e.logger.Sync()
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: kugiri manifest [flags] <base-folder>", errUsage)
	}

	entries, err := batch.GenerateManifest(ctx, fs.Arg(0), e.logger.Named("manifest"))
	if err != nil {
		return err
	}
	if err := batch.WriteManifest(*out, entries); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Manifest written: %s (%d documents)\n", *out, len(entries))
	return nil
}

func runWatch(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cf := newFlagSet("watch")
	outDir := fs.String("out", "", "directory for JSON results (default from config)")
	syncExisting := fs.Bool("sync", true, "process files already in the watched directories first")
	e, err := setup(fs, cf, args)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	wc := e.cfg.Watch
	dirs := wc.Directories
	if fs.NArg() > 0 {
		dirs = fs.Args()
	}
	if len(dirs) == 0 {
		return fmt.Errorf("%w: kugiri watch [flags] <dir>... (or set watch.directories)", errUsage)
	}
	if *outDir == "" {
		*outDir = wc.OutputDir
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	p, err := e.buildPipeline(ctx, store)
	if err != nil {
		return err
	}
	defer p.Close()

	inbox := watcher.NewInbox(dirs, p, *outDir,
		watcher.WithInboxLogger(e.logger.Named("inbox")),
		watcher.WithStore(store),
		watcher.WithDefaultDocType(wc.DefaultDocType))
	w := watcher.New(dirs, inbox,
		watcher.WithLogger(e.logger.Named("watcher")),
		watcher.WithExtensions(wc.Extensions),
		watcher.WithRecursive(wc.RecursiveOrDefault()),
		watcher.WithDebounce(wc.Debounce))
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	if *syncExisting {
		w.SyncExisting(ctx)
	}
	fmt.Fprintf(stdout, "Watching %d directories; results in %s\n", len(dirs), *outDir)
	w.Wait()
	e.logger.Info("shutting down")
	return nil
}

func runStatus(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cf := newFlagSet("status")
	e, err := setup(fs, cf, args)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := storage.CollectStats(ctx, store, e.cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	return cli.WriteStatus(stdout, cli.Status{
		Stats:            stats,
		DatabasePath:     e.cfg.Storage.DatabasePath,
		ProviderBackend:  e.cfg.Providers.Backend,
		EmbeddingBackend: e.cfg.Embedding.Backend,
		EmbeddingDims:    e.cfg.Embedding.Dimensions,
		Clusterer:        e.cfg.FreeForm.Clusterer,
		WatchDirectories: e.cfg.Watch.Directories,
	}, e.format)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `kugiri - Segment résumés and free-form documents into labeled chunks

Usage:
  kugiri resume [flags] <file>        Parse a résumé into name, contact and sections
  kugiri chunk [flags] <file>         Chunk free-form text by semantic similarity
  kugiri segment [flags] <file>       Find coarse segments by change-point detection
  kugiri batch [flags] <manifest>     Process a CSV/XLSX manifest and write exports
  kugiri manifest [flags] <folder>    Build a manifest from <folder>/<doc_type>/<file>
  kugiri watch [flags] [dir...]       Watch inbox directories and process new files
  kugiri status [flags]               Show stored counts and configuration
  kugiri version                      Show version
  kugiri help                         Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/kugiri/config.yaml)
  --debug            Enable debug logging
  --output string    Output format: text or json (default: text)

Batch Flags:
  --out string       Output directory (default from batch.output_dir)
  --workers int      Documents processed at once (default from batch.workers)
  --xlsx             Also write combined.xlsx
  --persist          Save documents and chunks to the database

Manifest Flags:
  --out string       Manifest path, .csv or .xlsx (default: manifest.csv)

Watch Flags:
  --out string       Directory for JSON results (default from watch.output_dir)
  --sync             Process files already present (default: true)

Examples:
  kugiri resume "Jane Smith.pdf"
  kugiri chunk --output json essay.md
  kugiri manifest --out manifest.csv ./documents
  kugiri batch --xlsx manifest.csv
  kugiri watch ./inbox`)
}
