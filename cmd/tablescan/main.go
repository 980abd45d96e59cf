// Command tablescan lists the tables a database login can actually read.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/koustreak/tablescan/internal/catalog"
	"github.com/koustreak/tablescan/internal/config"
	"github.com/koustreak/tablescan/internal/discovery"
	"github.com/koustreak/tablescan/internal/filestore/minio"
	"github.com/koustreak/tablescan/internal/logger"
	"github.com/koustreak/tablescan/internal/scanner"
	"github.com/koustreak/tablescan/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "tablescan error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) < 2 {
		printUsage(stdout)
		return nil
	}

	switch args[1] {
	case "describe":
		return runDescribe(ctx, args[2:], stdout)
	case "serve":
		return runServe(ctx, args[2:])
	case "engines":
		return runEngines(stdout)
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[1])
	}
}

func runDescribe(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml")
	name := fs.String("database", "", "Configured database to scan")
	engine := fs.String("engine", "", "Engine for an ad-hoc scan (postgres, mysql, sqlserver, sqlite)")
	dsn := fs.String("dsn", "", "Connection string for an ad-hoc scan")
	export := fs.Bool("export", false, "Publish the snapshot to object storage")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	switch {
	case *configPath != "":
		if *name == "" {
			return errors.New("missing required flag: --database")
		}
		cfg, err = config.Load(*configPath)
	case *engine != "" && *dsn != "":
		*name = *engine
		cfg, err = adHocConfig(*engine, *dsn)
	default:
		return errors.New("either --config with --database, or --engine with --dsn, is required")
	}
	if err != nil {
		return err
	}

	log := cfg.Logger()
	sc, err := newScanner(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sc.Close()

	res, err := sc.Scan(ctx, *name, *export)
	if err != nil {
		return err
	}
	if res.Object != nil {
		log.InfoWith("snapshot exported", map[string]interface{}{"key": res.Object.Key})
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Snapshot)
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml")
	addr := fs.String("addr", "", "Listen address, overrides server.addr")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return errors.New("missing required flag: --config")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log := cfg.Logger()
	logger.SetGlobal(log)
	sc, err := newScanner(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sc.Close()

	return server.New(sc, log).ListenAndServe(ctx, cfg.Server.Addr)
}

func runEngines(stdout io.Writer) error {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tSTRATEGY")
	for _, e := range discovery.Engines() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.DisplayName, e.Strategy)
	}
	return tw.Flush()
}

// newScanner wires the publisher when export is enabled.
func newScanner(ctx context.Context, cfg *config.Config, log *logger.Logger) (*scanner.Scanner, error) {
	var pub *catalog.Publisher
	if cfg.Export.Enabled {
		store, err := minio.New(ctx, cfg.Export.Store())
		if err != nil {
			return nil, fmt.Errorf("connect object store: %w", err)
		}
		pub = catalog.NewPublisher(store, cfg.Export.Bucket, cfg.Export.Prefix, log)
	}
	return scanner.New(cfg, pub, log), nil
}

// adHocConfig builds a one-database configuration from flags and the
// TABLESCAN_* environment.
func adHocConfig(engine, dsn string) (*config.Config, error) {
	return config.ForDatabases(config.DatabaseConfig{Name: engine, Engine: engine, DSN: dsn})
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `tablescan - readable table discovery

Usage:
  tablescan describe --config <path> --database <name> [--export]
  tablescan describe --engine <engine> --dsn <dsn>
  tablescan serve --config <path> [--addr <addr>]
  tablescan engines

Commands:
  describe  Scan one database and print its inventory as JSON
  serve     Run the HTTP API
  engines   List supported engines
  help      Show this help message
`)
}
