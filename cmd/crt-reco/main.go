// Command crt-reco reconstructs CRT tracks from hit files. It can store the
// results in sqlite, draw event displays, write JSON, and serve the monitor.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/banshee-data/crt.report/internal/config"
	"github.com/banshee-data/crt.report/internal/crt/l1hits"
	"github.com/banshee-data/crt.report/internal/crt/monitor"
	"github.com/banshee-data/crt.report/internal/crt/pipeline"
	"github.com/banshee-data/crt.report/internal/crt/storage/sqlite"
	"github.com/banshee-data/crt.report/internal/version"
)

type options struct {
	hitsPath   string
	configPath string
	dbPath     string
	outPath    string
	plotDir    string
	listen     string
	grpcListen string
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("crt-reco", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.hitsPath, "hits", "", "hit file to reconstruct (JSON)")
	fs.StringVar(&o.configPath, "config", "", "tuning config file (.json, .yaml); built-in defaults when empty")
	fs.StringVar(&o.dbPath, "db", "", "sqlite database for reconstructed events")
	fs.StringVar(&o.outPath, "out", "", "write results as JSON to this file ('-' for stdout)")
	fs.StringVar(&o.plotDir, "plot-dir", "", "write XY/ZY event displays to this directory")
	fs.StringVar(&o.listen, "listen", "", "serve the monitor on this address, e.g. :8090")
	fs.StringVar(&o.grpcListen, "grpc-listen", "", "serve gRPC health checks on this address, e.g. :8091")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if !o.version && o.hitsPath == "" && o.listen == "" && o.grpcListen == "" {
		return o, errors.New("nothing to do: pass -hits, -listen or -grpc-listen")
	}
	return o, nil
}

func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func readEvents(path string) ([]l1hits.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hit file: %w", err)
	}
	defer f.Close()
	return l1hits.DecodeEvents(f)
}

func writeResults(path string, stdout io.Writer, results []*pipeline.EventResult) error {
	w := stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	log.Print(version.String())

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reconCfg, err := pipeline.ConfigFromTuning(cfg)
	if err != nil {
		return err
	}
	recon, err := pipeline.NewReconstructor(reconCfg, pipeline.NewMetrics(reg))
	if err != nil {
		return err
	}

	var store *sqlite.Store
	if o.dbPath != "" {
		store, err = sqlite.Open(o.dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
	}

	if o.hitsPath != "" {
		events, err := readEvents(o.hitsPath)
		if err != nil {
			return err
		}
		results, err := recon.ReconstructAll(ctx, events)
		if err != nil {
			return err
		}
		log.Printf("reconstructed %d events from %s", len(results), o.hitsPath)

		for _, res := range results {
			if store != nil {
				id, err := store.SaveEvent(ctx, res)
				if err != nil {
					return fmt.Errorf("store event %s: %w", res.EventID, err)
				}
				log.Printf("stored event %s as %s", res.EventID, id)
			}
			if o.plotDir != "" {
				paths, err := monitor.PlotEvent(res, o.plotDir)
				if err != nil {
					return fmt.Errorf("plot event %s: %w", res.EventID, err)
				}
				log.Printf("wrote %v", paths)
			}
		}

		if o.outPath != "" {
			if err := writeResults(o.outPath, stdout, results); err != nil {
				return err
			}
		}
	}

	if o.listen == "" && o.grpcListen == "" {
		return nil
	}
	return serve(ctx, o, recon, store, reg)
}

// serve runs the monitor and the gRPC health server until ctx is cancelled
// or either server fails.
func serve(ctx context.Context, o options, recon *pipeline.Reconstructor, store *sqlite.Store, reg *prometheus.Registry) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var starts []func(context.Context) error

	if o.listen != "" {
		wsCfg := monitor.WebServerConfig{
			Address:       o.listen,
			Reconstructor: recon,
			Gatherer:      reg,
		}
		if store != nil {
			wsCfg.Store = store
		}
		ws, err := monitor.NewWebServer(wsCfg)
		if err != nil {
			return err
		}
		starts = append(starts, ws.Start)
	}

	if o.grpcListen != "" {
		hs := monitor.NewHealthServer(o.grpcListen)
		// The reconstructor is built and any requested store is open.
		hs.SetServing(monitor.ReconstructorService, true)
		hs.SetServing(monitor.StoreService, store != nil)
		hs.SetServing("", true)
		starts = append(starts, hs.Start)
	}

	errs := make(chan error, len(starts))
	var wg sync.WaitGroup
	for _, start := range starts {
		wg.Add(1)
		go func(start func(context.Context) error) {
			defer wg.Done()
			errs <- start(ctx)
		}(start)
	}
	go func() {
		wg.Wait()
		close(errs)
	}()

	var firstErr error
	for err := range errs {
		if err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	return firstErr
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("crt-reco: %v", err)
	}
}
