package main

import (
	"log"
	"net"
	"net/http"

	"github.com/joho/godotenv"

	"datalens/app"
	"datalens/internal"
	"datalens/internal/charts"
	"datalens/internal/config"
	"datalens/internal/render"
	"datalens/internal/session"
	"datalens/internal/tabs"
	"datalens/internal/testkit"
	"datalens/internal/transfer"
	"datalens/ui"
)

func main() {
	// Load .env file if present (development convenience)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	// Re-derive the log level after godotenv so .env settings apply
	internal.DefaultLogger = internal.NewDefaultLogger()
	logger := internal.DefaultLogger.WithTag("main")

	backendURL := cfg.Backend.URL
	if backendURL == "" {
		// Standalone mode: run the embedded fake backend on a loopback port
		// so the full transfer path is still exercised.
		url, err := startEmbeddedBackend()
		if err != nil {
			log.Fatalf("embedded backend failed to start: %v", err)
		}
		backendURL = url
		logger.Info("no BACKEND_URL configured, using embedded backend at %s", backendURL)
	}

	client := transfer.NewClient(backendURL,
		transfer.WithTimeouts(cfg.Backend.UploadTimeout, cfg.Backend.AnalyzeTimeout))

	store := session.NewStore()
	registry := charts.NewRegistry()
	registry.RegisterSurface(charts.SlotDistribution, "distribution-chart")
	registry.RegisterSurface(charts.SlotHistogram, "histogram-chart")
	registry.RegisterSurface(charts.SlotScatter, "scatter-chart")

	pipeline := render.NewPipeline(registry)
	controller := tabs.NewController(store, client, pipeline)
	service := app.NewAnalysisService(client, store, registry, pipeline, controller, cfg)

	server, err := ui.NewServer(service, controller, registry, store, cfg)
	if err != nil {
		log.Fatalf("server setup failed: %v", err)
	}
	if err := server.Start(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// startEmbeddedBackend serves the testkit backend on an ephemeral loopback
// port and returns its base URL.
func startEmbeddedBackend() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	backend := testkit.NewBackend()
	go func() {
		if err := http.Serve(ln, backend.Router()); err != nil {
			log.Printf("embedded backend stopped: %v", err)
		}
	}()
	return "http://" + ln.Addr().String(), nil
}
