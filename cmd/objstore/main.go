// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// objstore is a command-line client for the shared-memory object
// store. It puts files into the store, reads objects back out, and
// drives the store's maintenance and manager operations:
//
//	objstore put --compression auto report.json
//	objstore get 3f2a...e9 > report.json
//	objstore watch
//	objstore top
//
// Connection settings come from the file named by --config or
// OBJSTORE_CONFIG when either is given, otherwise from built-in
// defaults; --store-socket and --manager-socket override both.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/objstore/lib/client"
	"github.com/bureau-foundation/objstore/lib/config"
	"github.com/bureau-foundation/objstore/lib/process"
	"github.com/bureau-foundation/objstore/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		process.Fatal(err)
	}
}

// command is one objstore subcommand.
type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, session *session, args []string) error
}

var commands = []command{
	{"put", "put [flags] FILE|-", "store a file as a new sealed object", runPut},
	{"get", "get [flags] ID", "write an object's contents to stdout or a file", runGet},
	{"contains", "contains ID", "exit 0 if the store has the object, 1 if not", runContains},
	{"hash", "hash ID", "print an object's content digest", runHash},
	{"evict", "evict SIZE", "ask the store to free at least SIZE bytes", runEvict},
	{"status", "status", "print store capacity and connection details", runStatus},
	{"watch", "watch [flags]", "print seal and delete notifications as they happen", runWatch},
	{"top", "top", "show a live dashboard of store activity", runTop},
	{"wait", "wait [flags] ID...", "wait until objects are available", runWait},
	{"fetch", "fetch ID...", "ask the manager to pull objects into the local store", runFetch},
	{"transfer", "transfer ADDRESS PORT ID", "ask the manager to push an object to another manager", runTransfer},
	{"info", "info ID...", "print where the manager believes objects live", runInfo},
}

// session carries what every subcommand shares: configuration, output,
// and a lazily established client.
type session struct {
	config *config.Config
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	client *client.Client
}

// connect returns the session's client, connecting on first use.
func (s *session) connect(ctx context.Context) (*client.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	c, err := client.Connect(ctx, s.config.ClientOptions(s.logger))
	if err != nil {
		return nil, err
	}
	s.client = c
	return c, nil
}

func (s *session) close() {
	if s.client == nil {
		return
	}
	if err := s.client.Disconnect(); err != nil {
		s.logger.Warn("disconnecting from store", "error", err)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	var (
		configPath    string
		storeSocket   string
		managerSocket string
		logLevel      string
		showVersion   bool
	)
	flagSet := pflag.NewFlagSet("objstore", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&configPath, "config", "", "path to objstore.yaml (default: $OBJSTORE_CONFIG)")
	flagSet.StringVar(&storeSocket, "store-socket", "", "object store socket path (overrides config)")
	flagSet.StringVar(&managerSocket, "manager-socket", "", "manager socket path (overrides config)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	help := flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(os.Stderr, flagSet)
			return nil
		}
		return process.Exit(2, fmt.Errorf("%w\n\nRun 'objstore --help' for usage.", err))
	}
	if showVersion {
		version.Print(stdout, "objstore")
		return nil
	}
	if *help || flagSet.NArg() == 0 {
		printHelp(os.Stderr, flagSet)
		if *help {
			return nil
		}
		return process.Exit(2, nil)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if storeSocket != "" {
		cfg.StoreSocket = storeSocket
	}
	if managerSocket != "" {
		cfg.ManagerSocket = managerSocket
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, _ := cfg.Level()

	session := &session{
		config: cfg,
		logger: newLogger(level),
		stdin:  stdin,
		stdout: stdout,
	}
	defer session.close()

	name := flagSet.Arg(0)
	for _, candidate := range commands {
		if candidate.name == name {
			return candidate.run(ctx, session, flagSet.Args()[1:])
		}
	}
	return process.Exit(2, fmt.Errorf("unknown command %q\n\nRun 'objstore --help' for usage.", name))
}

// loadConfig loads the explicit config file, else OBJSTORE_CONFIG if
// set, else the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("OBJSTORE_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// newLogger writes text logs to a terminal and JSON logs otherwise.
func newLogger(level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `objstore -- client for the shared-memory object store.

Usage:
  objstore [global flags] COMMAND [flags] [args]

Commands:
`)
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, entry := range commands {
		fmt.Fprintf(table, "  %s\t%s\n", entry.usage, entry.summary)
	}
	table.Flush()

	fmt.Fprintf(w, "\nGlobal flags:\n")
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
	fmt.Fprintf(w, "\nIDs are 40 hex characters. Sizes accept units (64MiB, 1.5GB).\n")
}
