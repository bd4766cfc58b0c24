package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/csbeno10/Kripto/app/services/ledger/handlers"
	"github.com/csbeno10/Kripto/business/core/ledger"
	"github.com/csbeno10/Kripto/business/sys/metrics"
	"github.com/csbeno10/Kripto/foundation/events"
	"github.com/csbeno10/Kripto/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("LEDGER")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:60s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			APIHost         string        `conf:"default:0.0.0.0:8080"`
			CorsOrigin      string        `conf:"default:*"`
		}
		Ledger struct {
			Difficulty  int           `conf:"default:4"`
			Hash        string        `conf:"default:sha256"`
			Encoding    string        `conf:"default:framed"`
			Signer      string        `conf:"default:ecdsa"`
			KeyFile     string        `conf:"help:path to a persistent signing key; empty signs each block with a fresh key"`
			Workers     int           `conf:"default:0"`
			MaxAttempts uint64        `conf:"default:0"`
			Rounds      int           `conf:"default:10"`
			Bits        int           `conf:"default:512"`
			Blocks      int           `conf:"default:3,help:sample blocks to mine at startup"`
			MineTimeout time.Duration `conf:"default:30s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "append-only ledger with proof of work and signed blocks",
		},
	}

	const prefix = "LEDGER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Metrics Support

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mining, err := metrics.NewMining(reg)
	if err != nil {
		return fmt.Errorf("registering mining metrics: %w", err)
	}

	webMetrics, err := metrics.NewHTTP(reg)
	if err != nil {
		return fmt.Errorf("registering web metrics: %w", err)
	}

	// =========================================================================
	// Ledger Support

	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := logger.EvHandler(log, "00000000-0000-0000-0000-000000000000", evts.Send)

	settings := ledger.DefaultSettings()
	settings.Difficulty = cfg.Ledger.Difficulty
	settings.Hash = cfg.Ledger.Hash
	settings.Encoding = cfg.Ledger.Encoding
	settings.Signer = cfg.Ledger.Signer
	settings.KeyFile = cfg.Ledger.KeyFile
	settings.Workers = cfg.Ledger.Workers
	settings.MaxAttempts = cfg.Ledger.MaxAttempts
	settings.Rounds = cfg.Ledger.Rounds
	settings.Bits = cfg.Ledger.Bits

	// Startup mining gets one mining timeout per block, genesis included.
	ctx := context.Background()
	if cfg.Ledger.MineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Ledger.MineTimeout*time.Duration(cfg.Ledger.Blocks+1))
		defer cancel()
	}

	l, err := ledger.New(ctx, settings, ev, ledger.WithMetrics(mining))
	if err != nil {
		return fmt.Errorf("starting ledger: %w", err)
	}

	if _, err := l.MineSample(ctx, cfg.Ledger.Blocks); err != nil {
		return fmt.Errorf("mining sample blocks: %w", err)
	}

	reg.MustRegister(metrics.NewChainCollector(l.Chain()))

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log, l, reg)

	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	apiMux := handlers.APIMux(handlers.APIMuxConfig{
		Shutdown:    shutdown,
		Log:         log,
		Ledger:      l,
		Evts:        evts,
		Metrics:     webMetrics,
		CorsOrigin:  cfg.Web.CorsOrigin,
		MineTimeout: cfg.Ledger.MineTimeout,
	})

	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop api service gracefully: %w", err)
		}
	}

	return nil
}
