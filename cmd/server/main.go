package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"motorpool/internal/config"
	"motorpool/internal/handler"
	"motorpool/internal/hub"
	"motorpool/internal/repository/sqlite"
	"motorpool/internal/service"
)

func main() {
	// Command line flags (override config file values)
	addr := flag.String("addr", "", "HTTP listen address")
	dbPath := flag.String("db", "", "SQLite database path")
	configPath := flag.String("config", "", "Config file path")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Motorpool server...")

	// Load configuration
	var cfg *config.Config
	var cfgPath string
	var err error
	if *configPath != "" {
		cfg, cfgPath, err = config.LoadFromPath(*configPath)
	} else {
		cfg, cfgPath, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfgPath != "" {
		log.Printf("Config loaded: %s", cfgPath)
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// Initialize SQLite repository
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()
	log.Printf("Database opened: %s", cfg.Database.Path)

	// Initialize event bus
	eventBus := service.NewEventBus()

	// Initialize SSE hub and connect it to the event bus
	sseHub := hub.New()
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for event := range eventChan {
			sseHub.Broadcast(event)
		}
	}()

	// Initialize service and HTTP handlers
	carSvc := service.NewCarService(repo, eventBus)
	carHandler := handler.NewCarHandler(carSvc)

	// Setup routes
	mux := http.NewServeMux()

	// Car endpoints
	mux.HandleFunc("GET /api/cars", carHandler.ListCars)
	mux.HandleFunc("POST /api/cars", carHandler.CreateCar)
	mux.HandleFunc("GET /api/cars/{id}", carHandler.GetCar)
	mux.HandleFunc("PUT /api/cars/{id}", carHandler.UpdateCar)
	mux.HandleFunc("PATCH /api/cars/{id}", carHandler.PatchCar)
	mux.HandleFunc("DELETE /api/cars/{id}", carHandler.DeleteCar)

	// Import/export endpoints
	mux.HandleFunc("POST /api/import/yaml", carHandler.ImportYAML)
	mux.HandleFunc("GET /api/export/json", carHandler.ExportJSON)
	mux.HandleFunc("GET /api/export/yaml", carHandler.ExportYAML)

	// SSE events endpoint
	mux.Handle("GET /events", sseHub)

	// Health endpoint
	mux.HandleFunc("GET /healthz", carHandler.Health)

	// Apply middleware
	finalHandler := handler.Chain(mux,
		handler.Recover,
		handler.CORS,
		handler.RequestID,
		handler.Logger,
	)

	// Create server
	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      finalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Listen)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
