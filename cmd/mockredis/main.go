// mockredis serves an in-memory Redis command engine over RESP and HTTP.
//
// Usage:
//
//	mockredis [flags]
//
// Flags:
//
//	-config string     JSON config file (default "mockredis.json")
//	-env string        .env file loaded before MOCKREDIS_* variables (default ".env")
//	-addr string       RESP listen address
//	-webaddr string    HTTP API address, empty disables it
//	-noweb             Disable the HTTP API
//	-name string       Server name
//	-backend string    Persistence backend: memory, file, badger
//	-data string       Data directory for the file and badger backends
//	-noscripting       Disable EVAL and friends
//	-loglevel string   Log level: debug, info, warn, error
//	-version           Show version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mockredis/mockredis/internal/config"
	"github.com/mockredis/mockredis/internal/engine"
	"github.com/mockredis/mockredis/internal/metrics"
	"github.com/mockredis/mockredis/internal/persist"
	"github.com/mockredis/mockredis/internal/script/lua"
	"github.com/mockredis/mockredis/internal/server"
	"github.com/mockredis/mockredis/internal/version"
	"github.com/mockredis/mockredis/internal/web"
)

func main() {
	configPath := flag.String("config", "mockredis.json", "JSON config file")
	envPath := flag.String("env", ".env", ".env file loaded before MOCKREDIS_* variables")
	addr := flag.String("addr", "", "RESP listen address")
	webAddr := flag.String("webaddr", "", "HTTP API address")
	noWeb := flag.Bool("noweb", false, "Disable the HTTP API")
	name := flag.String("name", "", "Server name")
	backend := flag.String("backend", "", "Persistence backend: memory, file, badger")
	dataDir := flag.String("data", "", "Data directory")
	noScripting := flag.Bool("noscripting", false, "Disable scripting")
	logLevel := flag.String("loglevel", "", "Log level: debug, info, warn, error")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mockredis v%s (redis %s, built %s)\n", version.Version, version.RedisCompat, version.BuildTime)
		return
	}

	if err := config.LoadEnvFile(*envPath); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("Failed to read environment: %v", err)
	}

	// Flags win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "webaddr":
			cfg.WebAddr = *webAddr
		case "noweb":
			if *noWeb {
				cfg.WebAddr = ""
			}
		case "name":
			cfg.Name = *name
		case "backend":
			cfg.Backend = *backend
		case "data":
			cfg.DataDir = *dataDir
		case "noscripting":
			cfg.Scripting = !*noScripting
		case "loglevel":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("mockredis: %v", err)
	}
	log.Println("mockredis shutdown complete")
}

// closer is implemented by the on-disk backends.
type closer interface {
	Close() error
}

func openPersister(cfg *config.Config) (engine.Persister, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return persist.NewFile(cfg.DataDir)
	case config.BackendBadger:
		return persist.OpenBadger(cfg.DataDir)
	}
	return persist.NewRegistry(), nil
}

func run(cfg *config.Config) error {
	logger := log.Default()
	if !cfg.Verbose() {
		logger = log.New(io.Discard, "", 0)
	}
	logger.Printf("mockredis v%s starting (backend %s, name %q)", version.Version, cfg.Backend, cfg.Name)

	p, err := openPersister(cfg)
	if err != nil {
		return err
	}
	if c, ok := p.(closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				log.Printf("mockredis: closing backend: %v", err)
			}
		}()
	}

	ecfg := engine.Config{Name: cfg.Name, Persister: p, Logger: logger}
	if cfg.Scripting {
		ecfg.Scripting = lua.New()
	}
	var m *metrics.Metrics
	if cfg.Metrics {
		m = metrics.New()
		ecfg.Observer = m
	}

	in, err := engine.New(ecfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := in.Close(); err != nil {
			log.Printf("mockredis: final save failed: %v", err)
		}
	}()

	srv := server.New(cfg.Addr, in)
	if m != nil {
		if err := m.Watch(srv.Stats); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if cfg.WebAddr != "" {
		var metricsHandler http.Handler
		if m != nil {
			metricsHandler = m.Handler()
		}
		webSrv := web.New(cfg.WebAddr, srv, metricsHandler)
		go func() {
			if err := webSrv.Start(ctx); err != nil {
				log.Printf("Web server error: %v", err)
			}
		}()
	}

	return srv.Start(ctx)
}
