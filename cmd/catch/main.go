// catch: quick-capture inbox for a markdown vault.
//
// Catch a short idea from a terminal prompt, the command line, an MCP client,
// or a hotkey tool posting to a loopback-only HTTP endpoint, and drop it into
// the vault's inbox folder as its own note.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ryan-winkler/catch/internal/app"
	"github.com/ryan-winkler/catch/internal/config"
	"github.com/ryan-winkler/catch/internal/journal"
	"github.com/ryan-winkler/catch/internal/mcptool"
	"github.com/ryan-winkler/catch/internal/notify"
	"github.com/ryan-winkler/catch/internal/ratelimit"
	"github.com/ryan-winkler/catch/internal/vault"
	"github.com/ryan-winkler/catch/internal/watcher"
)

const version = "0.1.0"

const usage = `catch - quick-capture inbox for a markdown vault

Usage:
  catch [flags] [command]

Commands:
  (none)               Open the capture prompt
  add <text...>        Catch text without the prompt
  serve                Run the capture listener, following settings changes
  folders              List inbox folder choices
  list [-n N]          Show notes in the inbox folder, newest first
  log [-n N]           Show recent capture attempts from the journal
  config get [key]     Print settings
  config set <k> <v>   Change a setting (port, inboxFolder, webserver, template)
  mcp                  Serve the catch_note tool over MCP stdio
  version              Print version

Flags:
`

// options are the global CLI flags.
// Priority: CLI flag > environment variable > settings file > default
type options struct {
	vault   string
	config  string
	port    string
	version bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("catch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.vault, "vault", "", "Vault directory (default: $CATCH_VAULT_DIR or .)")
	fs.StringVar(&opts.config, "config", "", "Settings file (.json, .yaml or .yml)")
	fs.StringVar(&opts.port, "port", "", "Listener port for serve, overriding the settings file")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if opts.version {
		fmt.Fprintln(stdout, "catch", version)
		return nil
	}

	cmd, rest := "", fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	switch cmd {
	case "version":
		fmt.Fprintln(stdout, "catch", version)
		return nil
	case "help":
		fs.Usage()
		return nil
	case "", "add", "serve", "folders", "list", "log", "config", "mcp":
	default:
		fs.Usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}

	// serve is the long-running mode and logs to stdout like any service;
	// one-shot commands keep stdout for their output.
	logOut := stderr
	if cmd == "serve" {
		logOut = stdout
	}
	e, err := setup(opts, logOut)
	if err != nil {
		return err
	}
	defer e.close()

	switch cmd {
	case "":
		return runPrompt(e, stdout)
	case "add":
		return runAdd(e, rest, stdout)
	case "serve":
		return runServe(e, opts)
	case "folders":
		return runFolders(e, stdout)
	case "list":
		return runList(e, rest, stdout)
	case "log":
		return runLog(e, rest, stdout)
	case "config":
		return runConfig(e, rest, stdout)
	case "mcp":
		return runMCP(e)
	}
	return nil
}

// env is everything a command needs, built once from flags and environment.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *config.Store
	journal *journal.Journal
	writer  *vault.Writer
	notify  notify.Notifier
	closers []func() error
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Warn("close failed", "error", err)
		}
	}
}

func setup(opts options, logOut io.Writer) (*env, error) {
	cfg := config.Load()

	// Apply CLI flag overrides
	if opts.vault != "" {
		cfg.VaultDir = opts.vault
	}
	cfg.VaultDir = filepath.Clean(cfg.VaultDir)

	logger := newLogger(cfg, logOut)

	settingsPath := cfg.SettingsPath()
	if opts.config != "" {
		settingsPath = opts.config
	}
	store := config.NewStore(settingsPath)
	if _, err := store.Load(); err != nil {
		// An explicitly named settings file must be readable; the default
		// location degrades to defaults.
		if opts.config != "" {
			return nil, err
		}
		logger.Warn("using default settings", "path", settingsPath, "error", err)
	}

	e := &env{cfg: cfg, logger: logger, store: store}

	if cfg.Notify {
		e.notify = notify.NewDesktop("Catch", logger)
	} else {
		e.notify = notify.NewLog(logger)
	}

	var recorder vault.Recorder
	if cfg.Journal != "" {
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			logger.Error("capture journal disabled", "path", cfg.Journal, "error", err)
		} else {
			e.journal = j
			recorder = j
			e.closers = append(e.closers, j.Close)
		}
	}

	e.writer = vault.NewWriter(vault.NewFS(cfg.VaultDir), e.notify, recorder, logger)
	return e, nil
}

// newLogger writes to out, tee'd to a rotating file when CATCH_LOG_DIR is set.
func newLogger(cfg *config.Config, out io.Writer) *slog.Logger {
	logWriter := out
	if cfg.LogDir != "" {
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "catch.log"),
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		logWriter = io.MultiWriter(out, rotator)
	}

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(logWriter, opts))
	}
	return slog.New(slog.NewTextHandler(logWriter, opts))
}

func runServe(e *env, opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.New(e.cfg.RateLimit, time.Minute, e.logger)
	go limiter.Run(ctx, 5*time.Minute)

	a := app.New(e.store, e.writer, e.notify, limiter, e.logger)
	if opts.port != "" {
		a.OverridePort(opts.port)
	}
	a.Startup()
	if !a.Server().Running() {
		e.logger.Info("catch server idle; enable the webserver setting to start it",
			"settings", e.store.Path())
	}

	w := watcher.New(e.store.Path(), 0, e.logger)
	if err := w.Start(func() { a.Reload() }); err != nil {
		e.logger.Warn("settings changes need a restart", "error", err)
	}

	<-ctx.Done()
	e.logger.Info("shutting down")
	// No reload may run once the listener is going down.
	w.Stop()
	a.Shutdown()
	return nil
}

func runMCP(e *env) error {
	a := app.New(e.store, e.writer, e.notify, nil, e.logger)
	return server.ServeStdio(mcptool.NewServer(version, a.Capture))
}
