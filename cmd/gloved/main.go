// gloved is the glove tracking daemon: it listens for OSC kinematic packets
// on the glove ports, maintains calibrated per-hand sessions, and serves the
// HTTP control surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/handtrack-data/pose.report/internal/api"
	"github.com/handtrack-data/pose.report/internal/config"
	"github.com/handtrack-data/pose.report/internal/db"
	"github.com/handtrack-data/pose.report/internal/dispatch"
	"github.com/handtrack-data/pose.report/internal/glove"
	"github.com/handtrack-data/pose.report/internal/metrics"
	"github.com/handtrack-data/pose.report/internal/monitoring"
	"github.com/handtrack-data/pose.report/internal/pose"
	"github.com/handtrack-data/pose.report/internal/record"
	"github.com/handtrack-data/pose.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to JSON config file (optional)")
	listen      = flag.String("listen", "", "HTTP listen address (overrides config)")
	bindHost    = flag.String("host", "", "UDP bind address for glove listeners (default: all interfaces)")
	portsFlag   = flag.String("ports", "", "Comma-separated UDP ports to listen on (overrides config)")
	dbFile      = flag.String("db", "", "Path to the SQLite database file (overrides config)")
	recDir      = flag.String("recdir", "", "Directory for recorded frame logs (overrides config)")
	sampleFlag  = flag.String("sample", "", "Recording sample interval, e.g. 50ms (overrides config)")
	logInterval = flag.Int("log-interval", 60, "Packet statistics logging interval in seconds")
	debug       = flag.Bool("debug", false, "Enable per-packet debug logging")
)

// parsePorts parses a comma-separated port list like "9000,9001".
func parsePorts(s string) ([]int, error) {
	var ports []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil || p < 0 || p > 65535 {
			return nil, fmt.Errorf("bad port %q", part)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

func main() {
	flag.Parse()
	monitoring.SetDebug(*debug)
	log.Printf("gloved %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	cfg := config.Empty()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
		log.Printf("Loaded configuration from %s", *configPath)
	}

	// Flags override the file when set.
	httpListen := cfg.GetListen()
	if *listen != "" {
		httpListen = *listen
	}
	udpHost := cfg.GetBindHost()
	if *bindHost != "" {
		udpHost = *bindHost
	}
	ports := cfg.GetPorts()
	if *portsFlag != "" {
		parsed, err := parsePorts(*portsFlag)
		if err != nil {
			log.Fatalf("Invalid -ports: %v", err)
		}
		ports = parsed
	}
	dbPath := cfg.GetDatabasePath()
	if *dbFile != "" {
		dbPath = *dbFile
	}
	recordingDir := cfg.GetRecordingDir()
	if *recDir != "" {
		recordingDir = *recDir
	}
	sampleInterval := cfg.GetSampleInterval()
	if *sampleFlag != "" {
		d, err := time.ParseDuration(*sampleFlag)
		if err != nil || d <= 0 {
			log.Fatalf("Invalid -sample: %q", *sampleFlag)
		}
		sampleInterval = d
	}

	if err := os.MkdirAll(recordingDir, 0755); err != nil {
		log.Fatalf("Failed to create recording directory: %v", err)
	}

	store, err := db.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to open recording database: %v", err)
	}
	defer store.Close()

	tracker := glove.NewTracker()
	rec := record.NewRecorder()
	mtr := metrics.New()

	dispatcher, err := dispatch.New(dispatch.Config{
		Host:        udpHost,
		Ports:       ports,
		Sink:        tracker,
		Stats:       dispatch.MultiStats(dispatch.NewPacketStats(), mtr),
		LogInterval: time.Duration(*logInterval) * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to create dispatcher: %v", err)
	}
	// Bind before the workers start so a dead-on-arrival port set fails fast.
	if err := dispatcher.Bind(); err != nil {
		log.Fatalf("Failed to bind glove listeners: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// UDP listener routine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := dispatcher.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Dispatcher error: %v", err)
		}
		log.Print("Glove listener routine terminated")
	}()

	// Recording sampler routine. The recorder ignores samples while disarmed,
	// so the ticker runs for the process lifetime.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(sampleInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Print("Sampler routine terminated")
				return
			case <-ticker.C:
				if !rec.Armed() {
					continue
				}
				rec.Sample(
					tracker.GetSnapshot(pose.Left).Pose,
					tracker.GetSnapshot(pose.Right).Pose,
				)
				mtr.AddFrameRecorded()
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		apiServer := api.NewServer(tracker, rec, store, recordingDir, mtr)
		mux := http.NewServeMux()
		mux.Handle("/", apiServer.ServeMux())
		mux.Handle("/metrics", mtr.Handler())

		server := &http.Server{
			Addr:    httpListen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("Starting HTTP server on %s", httpListen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
