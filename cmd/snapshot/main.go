// Command snapshot fetches one region from OpenSky and prints the real-time
// statistics, or the full view as JSON. Provider settings come from the same
// config file and environment variables as the tracker.
//
// Usage:
//
//	go run ./cmd/snapshot -region europe
//	go run ./cmd/snapshot -region world -icao24 4b1814 -json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/but-pixelated/AircraftTracker-Live/internal/adapter/opensky"
	"github.com/but-pixelated/AircraftTracker-Live/internal/config"
	"github.com/but-pixelated/AircraftTracker-Live/internal/domain"
	"github.com/but-pixelated/AircraftTracker-Live/internal/observability"
	"github.com/but-pixelated/AircraftTracker-Live/internal/refresh"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run returns 0 on success, 1 when no usable snapshot was produced and 2 on
// bad usage.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	regionName := fs.String("region", domain.DefaultRegion, "region preset: "+strings.Join(domain.RegionNames(), ", "))
	icao24 := fs.String("icao24", "", "optional transponder address filter")
	asJSON := fs.Bool("json", false, "print the full view as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	region, ok := domain.LookupRegion(strings.ToLower(*regionName))
	if !ok {
		fmt.Fprintf(stderr, "unknown region %q, want one of: %s\n", *regionName, strings.Join(domain.RegionNames(), ", "))
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}

	logger := observability.NewLoggerTo(stderr, cfg)
	metrics := observability.NewMetricsWithRegisterer(prometheus.NewRegistry())

	client := opensky.NewClient(cfg.OpenSky, metrics, logger)
	retrier := refresh.NewRetrier(client, cfg.Retry, nil, metrics, logger)
	service := refresh.NewService(retrier, cfg.Presentation.HistogramBins, nil, metrics, logger)

	view, err := service.Refresh(ctx, refresh.Request{Region: region, ICAO24: strings.ToLower(*icao24)})
	if err != nil {
		fmt.Fprintf(stderr, "refresh: %v\n", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			fmt.Fprintf(stderr, "encode view: %v\n", err)
			return 1
		}
	} else {
		fmt.Fprintln(stdout, view.StatsText)
	}

	if view.Degraded {
		return 1
	}
	return 0
}
