// Command vehicle-history stores telematics samples and serves, exports and
// replays processed vehicle history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/vehicle.history/internal/api"
	"github.com/banshee-data/vehicle.history/internal/config"
	"github.com/banshee-data/vehicle.history/internal/db"
	"github.com/banshee-data/vehicle.history/internal/monitoring"
	"github.com/banshee-data/vehicle.history/internal/serialmux"
	"github.com/banshee-data/vehicle.history/internal/timeutil"
	"github.com/banshee-data/vehicle.history/internal/version"
)

const defaultDBFile = "vehicle_history.db"

const usage = `usage: vehicle-history <command> [flags]

commands:
  serve     serve exports, playback controls and admin routes
  ingest    store NDJSON samples from a serial unit or a file
  export    write a vehicle history as csv, json or chart
  plot      write a cumulative distance PNG
  replay    play a vehicle history back in real time
  migrate   manage the database schema (up, down, status, force)
  ports     list serial ports
  version   print the build version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func run(ctx context.Context, command string, args []string, out io.Writer) error {
	switch command {
	case "serve":
		return runServe(ctx, args)
	case "ingest":
		return runIngest(ctx, args, out)
	case "export":
		return runExport(ctx, args, out)
	case "plot":
		return runPlot(ctx, args, out)
	case "replay":
		return runReplay(ctx, args, out)
	case "migrate":
		fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
		dbPath := fs.String("db", defaultDBFile, "Path to the sqlite database")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return db.RunMigrateCommand(fs.Args(), *dbPath, out)
	case "ports":
		ports, err := serialmux.ListPorts()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Fprintln(out, p)
		}
		return nil
	case "version":
		fmt.Fprintln(out, version.String())
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

// loadConfig reads the pipeline config, or returns the defaults for an empty
// path.
func loadConfig(path string) (*config.PipelineConfig, error) {
	if path == "" {
		return config.DefaultPipelineConfig(), nil
	}
	return config.LoadPipelineConfig(path)
}

// openMux opens the serial unit at path, or a disabled mux when path is empty.
func openMux(path string, opts serialmux.PortOptions) (serialmux.SerialMuxInterface, error) {
	if path == "" {
		return serialmux.NewDisabledSerialMux(), nil
	}
	m, err := serialmux.NewRealSerialMux(path, opts)
	if err != nil {
		return nil, err
	}
	if err := m.Initialize(); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to initialize telematics unit: %w", err)
	}
	log.Printf("initialized telematics unit on %s", path)
	return m, nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("listen", ":8080", "Listen address")
	dbPath := fs.String("db", defaultDBFile, "Path to the sqlite database")
	cfgPath := fs.String("config", "", "Pipeline config JSON (defaults built in)")
	port := fs.String("port", "", "Serial port of a telematics unit to ingest from (none when empty)")
	baud := fs.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	org := fs.String("org", "", "Organization the ingested samples belong to")
	vehicle := fs.String("vehicle", "", "Vehicle ID for samples that carry none")
	diag := fs.Bool("diag", false, "Log per-sample diagnostics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	monitoring.SetDiagnostics(*diag)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	m, err := openMux(*port, serialmux.PortOptions{BaudRate: *baud})
	if err != nil {
		return err
	}
	defer m.Close()

	log.Print(version.String())

	var wg sync.WaitGroup
	if *port != "" {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := m.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("failed to monitor serial port: %v", err)
			}
			log.Print("monitor routine terminated")
		}()

		id, lines := m.Subscribe()
		go func() {
			defer wg.Done()
			defer m.Unsubscribe(id)
			in := &serialmux.Ingester{Writer: database, OrgID: *org, DefaultVehicle: *vehicle}
			stats, err := in.Run(ctx, lines)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("ingest stopped: %v", err)
			}
			log.Printf("ingest routine terminated: %d samples written, %d lines skipped", stats.Written, stats.Skipped)
		}()
	}

	srv := api.NewServer(m, database, cfg, timeutil.RealClock{})
	mux := srv.ServeMux()
	m.AttachAdminRoutes(mux)
	if err := database.AttachAdminRoutes(mux); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              *listen,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("failed to shut down HTTP server: %v", err)
	}
	srv.Player().Stop()
	srv.Feed().Close()
	wg.Wait()
	return nil
}
