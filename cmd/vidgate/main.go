package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vidgate/vidgate/internal/server"
	"github.com/vidgate/vidgate/internal/store"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env")
	}

	port := getEnv("PORT", "8080")
	storeDir := getEnv("STORE_DIR", "data")
	mediaRoot := getEnv("MEDIA_ROOT", "media")
	baseURL := getEnv("BASE_URL", "http://localhost:8080")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	if err := store.Ensure(storeDir); err != nil {
		log.Fatalf("metadata store initialization failed: %v", err)
	}
	st, err := store.Open(storeDir)
	if err != nil {
		log.Fatalf("metadata store unavailable: %v", err)
	}
	log.Printf("metadata store ready in %s", storeDir)

	srv := server.New(server.Config{
		Store:     st,
		MediaRoot: mediaRoot,
		JWTSecret: jwtSecret,
		BaseURL:   baseURL,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("vidgate listening on :%s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	log.Println("shutdown complete")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
