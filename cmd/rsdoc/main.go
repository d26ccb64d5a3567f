package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/arjunmahishi/rsdoc/config"
	"github.com/arjunmahishi/rsdoc/infer"
	"github.com/arjunmahishi/rsdoc/logging"
	"github.com/arjunmahishi/rsdoc/output"
	"github.com/arjunmahishi/rsdoc/rsdoc"
)

var (
	errWouldChange = errors.New("files would change")
	errFilesFailed = errors.New("some files could not be documented")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := &cli.Command{
		Name:      "rsdoc",
		Usage:     "add documentation comments to Rust source without changing its code",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			docCommand(),
			planCommand(),
			itemsCommand(),
			exampleConfigCommand(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		output.New(output.Config{Output: stdout, ErrOutput: stderr}).WriteError("%s", err)
		return 1
	}
	return 0
}

func scanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "path",
			Value: ".",
			Usage: "root path to scan",
		},
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "single file to process",
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Value:   runtime.NumCPU(),
			Usage:   "number of parallel workers",
		},
		&cli.Int64Flag{
			Name:  "max-bytes",
			Value: 2 * 1024 * 1024,
			Usage: "skip files larger than this",
		},
	}
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Value: "json",
			Usage: "report format: json, yaml, text",
		},
		&cli.BoolFlag{
			Name:  "compact",
			Usage: "minimize JSON output",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "disable colors in text reports",
		},
	}
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file (default: nearest rsdoc.toml or rsdoc.yaml)",
		},
		&cli.BoolFlag{
			Name:  "private",
			Usage: "document private items too",
		},
		&cli.UintFlag{
			Name:  "min-doc-len",
			Usage: "existing docs shorter than this are treated as stubs",
		},
		&cli.UintFlag{
			Name:  "timeout-ms",
			Usage: "per-item inference timeout",
		},
		&cli.UintFlag{
			Name:  "concurrency",
			Usage: "concurrent inference calls per file",
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "HTTP inference service URL",
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "cache inferred docs in this directory",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "text or json",
		},
	}
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func docCommand() *cli.Command {
	return &cli.Command{
		Name:  "doc",
		Usage: "document missing items",
		Description: "Runs the pipeline and reports per-file results. Files are only\n" +
			"replaced with --write. With --file - the source is read from stdin\n" +
			"and the documented source is written to stdout.",
		Flags: flags(scanFlags(), reportFlags(), configFlags(), []cli.Flag{
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "replace changed files",
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "exit non-zero if any file would change",
			},
		}),
		Action: runDoc,
	}
}

func runDoc(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("write") && cmd.Bool("check") {
		return errors.New("use --write or --check, not both")
	}
	ctx, opts, err := docSetup(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.String("file") == "-" {
		return docStdin(ctx, cmd, opts)
	}

	opts.Write = cmd.Bool("write")
	results, err := rsdoc.Document(ctx, opts)
	if err != nil {
		return err
	}
	w, err := newWriter(cmd)
	if err != nil {
		return err
	}
	if err := w.Write(results); err != nil {
		return err
	}

	changed, failed := 0, 0
	for _, r := range results {
		if r.Changed {
			changed++
		}
		if r.Err != nil && r.Err.Stage != rsdoc.StageValidate {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d", errFilesFailed, failed)
	}
	if cmd.Bool("check") && changed > 0 {
		return fmt.Errorf("%w: %d", errWouldChange, changed)
	}
	return nil
}

// docStdin filters one file from stdin to stdout. On failure the original
// text is written unchanged and the error is returned.
func docStdin(ctx context.Context, cmd *cli.Command, opts rsdoc.DocOptions) error {
	root := cmd.Root()
	src, err := io.ReadAll(root.Reader)
	if err != nil {
		return err
	}
	res, err := rsdoc.DocumentSource(ctx, "<stdin>", src, opts)
	if err != nil {
		return err
	}
	if _, err := root.Writer.Write(res.Output); err != nil {
		return err
	}
	if res.Err != nil {
		return res.Err
	}
	if cmd.Bool("check") && res.Changed {
		return errWouldChange
	}
	return nil
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:   "plan",
		Usage:  "show the insertion plan without changing files",
		Flags:  flags(scanFlags(), reportFlags(), configFlags()),
		Action: runPlan,
	}
}

func runPlan(ctx context.Context, cmd *cli.Command) error {
	ctx, opts, err := docSetup(ctx, cmd)
	if err != nil {
		return err
	}
	results, err := rsdoc.Document(ctx, opts)
	if err != nil {
		return err
	}

	plans := make([]*rsdoc.Plan, 0, len(results))
	for _, r := range results {
		if r.Plan != nil {
			plans = append(plans, r.Plan)
		}
	}
	w, err := newWriter(cmd)
	if err != nil {
		return err
	}
	return w.Write(plans)
}

func itemsCommand() *cli.Command {
	return &cli.Command{
		Name:  "items",
		Usage: "list documentable items",
		Flags: flags(scanFlags(), reportFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "visibility",
				Value: "all",
				Usage: "filter: all, public, private",
			},
		}),
		Action: runItems,
	}
}

func runItems(ctx context.Context, cmd *cli.Command) error {
	opts := rsdoc.ItemsOptions{
		Language:   "rust",
		Path:       cmd.String("path"),
		File:       cmd.String("file"),
		Visibility: cmd.String("visibility"),
		Jobs:       cmd.Int("jobs"),
		MaxBytes:   cmd.Int64("max-bytes"),
	}

	results, err := rsdoc.Items(ctx, opts)
	if err != nil {
		return err
	}
	w, err := newWriter(cmd)
	if err != nil {
		return err
	}
	return w.Write(results)
}

// docSetup loads the config, starts logging for this run and builds the
// pipeline options shared by doc and plan.
func docSetup(ctx context.Context, cmd *cli.Command) (context.Context, rsdoc.DocOptions, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return ctx, rsdoc.DocOptions{}, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return ctx, rsdoc.DocOptions{}, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return ctx, rsdoc.DocOptions{}, err
	}
	logging.InitLogger(level, format, cmd.Root().ErrWriter)
	ctx = logging.WithRunID(ctx, logging.NewRunID())

	adapter, err := infer.New(cfg.Inference)
	if err != nil {
		return ctx, rsdoc.DocOptions{}, err
	}
	logging.LoggerFromContext(ctx).Debug("run_started",
		"endpoint", cfg.Inference.Endpoint,
		"cache_dir", cfg.Inference.CacheDir,
		"document_private", cfg.DocumentPrivate)

	file := cmd.String("file")
	if file == "-" {
		file = ""
	}
	return ctx, rsdoc.DocOptions{
		Config:   cfg,
		Adapter:  adapter,
		Language: "rust",
		Path:     cmd.String("path"),
		File:     file,
		Jobs:     cmd.Int("jobs"),
		MaxBytes: cmd.Int64("max-bytes"),
	}, nil
}

// loadConfig reads --config, or the nearest config file above the scanned
// path, and applies flag overrides.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()

	path := cmd.String("config")
	if path == "" {
		start := cmd.String("path")
		if f := cmd.String("file"); f != "" && f != "-" {
			start = filepath.Dir(f)
		}
		found, ok, err := config.Find(start)
		if err != nil {
			return cfg, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if cmd.IsSet("private") {
		cfg.DocumentPrivate = cmd.Bool("private")
	}
	if cmd.IsSet("min-doc-len") {
		cfg.MinExistingDocLen = cmd.Uint("min-doc-len")
	}
	if cmd.IsSet("timeout-ms") {
		cfg.InferenceTimeoutMS = cmd.Uint("timeout-ms")
	}
	if cmd.IsSet("concurrency") {
		cfg.InferenceConcurrency = cmd.Uint("concurrency")
	}
	if cmd.IsSet("endpoint") {
		cfg.Inference.Endpoint = cmd.String("endpoint")
	}
	if cmd.IsSet("cache-dir") {
		cfg.Inference.CacheDir = cmd.String("cache-dir")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}
	return cfg, cfg.Validate()
}

func newWriter(cmd *cli.Command) (*output.Writer, error) {
	format, err := output.ParseFormat(cmd.String("format"))
	if err != nil {
		return nil, err
	}
	root := cmd.Root()
	return output.New(output.Config{
		Format:    format,
		Compact:   cmd.Bool("compact"),
		NoColor:   cmd.Bool("no-color") || !isTerminal(root.Writer),
		Output:    root.Writer,
		ErrOutput: root.ErrWriter,
	}), nil
}

// isTerminal reports whether w is a terminal. Colors are only written to one.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
