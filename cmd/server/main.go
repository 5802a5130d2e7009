package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-workbench/internal/config"
	"pdf-workbench/internal/handler"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	// Wiring
	container := config.NewContainer()

	// Handlers
	operationHandler := handler.NewOperationHandler(
		container.Orchestrator,
		container.Store,
		container.Config,
		container.Logger,
	)
	artifactHandler := handler.NewArtifactHandler(
		container.Store,
		container.Logger,
	)

	// Router
	router := handler.NewRouter(operationHandler, artifactHandler)

	// Expired artifacts are swept in the background for as long as the
	// process lives
	stopCleanup := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := container.Store.Cleanup(); err != nil {
					container.Logger.Error("cleanup sweep failed", err)
				}
			case <-stopCleanup:
				return
			}
		}
	}()

	// start server
	server := &http.Server{
		Addr:    ":" + container.Config.GetServerPort(),
		Handler: router,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")
	close(stopCleanup)
	_ = server.Close()

	container.Logger.Info("Server exited")
}
