/**
 * @description
 * This is the main entry point for the bank service. It is responsible for
 * initializing all components of the service, including configuration, the
 * document store, the per-bank ledger registry, the settlement engine, the
 * RabbitMQ producer and reconcile consumer, and the HTTP server. It wires
 * everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - internal/api, internal/config, internal/ledger, internal/settle, internal/store.
 * - pkg/rabbitmq: Client for RabbitMQ.
 * - pkg/speck: VID obfuscation cipher.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nexapay/upi-gateway/internal/api"
	"github.com/nexapay/upi-gateway/internal/config"
	"github.com/nexapay/upi-gateway/internal/domain"
	"github.com/nexapay/upi-gateway/internal/ledger"
	"github.com/nexapay/upi-gateway/internal/settle"
	"github.com/nexapay/upi-gateway/internal/store"
	"github.com/nexapay/upi-gateway/pkg/rabbitmq"
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

	log.Printf("level=info component=bootstrap msg=\"starting bank service\" port=%s store=%s banks=%v", cfg.ServerPort, cfg.StoreBackend, cfg.Banks)

	// Open the document store for the configured backend.
	docStore, err := store.Open(context.Background(), cfg.StoreBackend, cfg.DatabaseURL, cfg.RedisURL, cfg.RedisKeyPrefix)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"store init failed\" backend=%s err=%v", cfg.StoreBackend, err)
	}
	defer docStore.Close()
	log.Println("level=info component=bootstrap msg=\"document store connected\"")

	// Initialize the RabbitMQ producer to publish settlement events. A
	// missing broker degrades to the fallback publisher instead of blocking
	// settlements.
	var publisher rabbitmq.Publisher
	rabbitProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		publisher = &rabbitmq.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		publisher = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Build the per-bank ledger registry and the settlement engine.
	cipher := speck.New(cfg.VIDKeyHigh, cfg.VIDKeyLow)
	ledgers := ledger.NewRegistry(docStore, cfg.Banks)
	engine := settle.NewEngine(docStore, ledgers, cipher, publisher)

	// Drain reconcile events into the reconciliation worklist. Consumer
	// setup is best-effort for the same reason the producer is.
	rabbitConsumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; reconcile worklist disabled\" err=%v", err)
	} else {
		defer rabbitConsumer.Close()
		bindings := map[string]func([]byte) bool{
			rabbitmq.RoutingKeyReconcile: func(body []byte) bool {
				var event domain.SettlementEvent
				if err := json.Unmarshal(body, &event); err != nil {
					log.Printf("level=error component=reconcile msg=\"undecodable reconcile event; dropping\" err=%v", err)
					return true
				}
				if err := docStore.Set(context.Background(), store.CollectionReconciliations, event.TransactionID, &event); err != nil {
					log.Printf("level=error component=reconcile msg=\"worklist write failed\" transaction_id=%s err=%v", event.TransactionID, err)
					return false
				}
				log.Printf("level=info component=reconcile msg=\"settlement queued for reconciliation\" transaction_id=%s amount=%d", event.TransactionID, event.Amount)
				return true
			},
		}
		if err := rabbitConsumer.ConsumeWithBindings(rabbitmq.SettlementExchange, cfg.SettlementQueue, bindings); err != nil {
			log.Printf("level=warn component=bootstrap msg=\"reconcile consumer start failed\" err=%v", err)
		}
	}

	// Initialize the API handlers and router.
	bankHandlers := api.NewBankHandlers(engine, ledgers, docStore, cfg.BranchPrefixes)
	router := api.BankRoutes(bankHandlers)

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
