/**
 * @description
 * This is the main entry point for the merchant service. It handles merchant
 * onboarding, login, balance lookup, and QR payload retrieval.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - internal/account, internal/api, internal/config, internal/identity, internal/store.
 * - pkg/speck: VID obfuscation cipher.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nexapay/upi-gateway/internal/account"
	"github.com/nexapay/upi-gateway/internal/api"
	"github.com/nexapay/upi-gateway/internal/config"
	"github.com/nexapay/upi-gateway/internal/identity"
	"github.com/nexapay/upi-gateway/internal/store"
	"github.com/nexapay/upi-gateway/pkg/speck"
)

func main() {
	// Load .env if present so local runs match deployed environments.
	_ = godotenv.Load()

	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting merchant service\" port=%s store=%s", cfg.ServerPort, cfg.StoreBackend)

	// Open the document store for the configured backend.
	docStore, err := store.Open(context.Background(), cfg.StoreBackend, cfg.DatabaseURL, cfg.RedisURL, cfg.RedisKeyPrefix)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"store init failed\" backend=%s err=%v", cfg.StoreBackend, err)
	}
	defer docStore.Close()
	log.Println("level=info component=bootstrap msg=\"document store connected\"")

	// Wire the onboarding service.
	cipher := speck.New(cfg.VIDKeyHigh, cfg.VIDKeyLow)
	accounts := account.NewService(docStore, identity.NewGenerator(), cipher, cfg.BranchPrefixes)
	tokens := api.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)

	// Initialize the API handlers and router.
	merchantHandlers := api.NewMerchantHandlers(accounts, cipher, tokens)
	router := api.MerchantRoutes(merchantHandlers, cfg.JWTSecret)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
