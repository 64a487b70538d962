package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FonTain1991/aidkit/internal/database"
	"github.com/FonTain1991/aidkit/internal/logging"
	"github.com/FonTain1991/aidkit/internal/notify"
	"github.com/FonTain1991/aidkit/internal/server"
)

func main() {
	port := os.Getenv("AIDKIT_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("AIDKIT_DB_PATH")
	if dbPath == "" {
		dbPath = "aidkit.db"
	}

	logger := logging.Setup(os.Getenv("AIDKIT_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		VAPIDPublicKey:  os.Getenv("AIDKIT_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("AIDKIT_VAPID_PRIVATE_KEY"),
	}
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		if os.Getenv("AIDKIT_GENERATE_VAPID") == "true" {
			pub, priv, err := notify.GenerateVAPIDKeys()
			if err != nil {
				log.Fatalf("failed to generate VAPID keys: %v", err)
			}
			fmt.Printf("AIDKIT_VAPID_PUBLIC_KEY=%s\nAIDKIT_VAPID_PRIVATE_KEY=%s\n", pub, priv)
			return
		}
		logger.Warn("VAPID keys not configured, push delivery disabled")
	}

	srv := server.New(db, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if d := srv.Dispatcher(); d != nil {
		d.Start(ctx)
		defer d.Stop()
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("AidKit running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
