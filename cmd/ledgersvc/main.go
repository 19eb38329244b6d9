package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/avvvet/arcade-ledger/configs"
	mongodb "github.com/avvvet/arcade-ledger/internal/db"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/access"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/broker"
	ledgercfg "github.com/avvvet/arcade-ledger/internal/ledgersvc/config"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/custody"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/db"
	handlers "github.com/avvvet/arcade-ledger/internal/ledgersvc/handlers"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/service"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/store"
	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ws"
	nats "github.com/avvvet/arcade-ledger/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "ledger"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := ledgercfg.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	feePercentage, err := cfg.FeePercentageScaled()
	if err != nil {
		log.Fatalf("Invalid fee percentage: %v", err)
	}

	// role table, seeded from env
	roles := access.NewRoleTable(cfg.OwnerAddress())
	for role, list := range map[ledger.Role][]string{
		ledger.RoleAdmin:         cfg.Admins,
		ledger.RoleArcadeManager: cfg.ArcadeManagers,
		ledger.RoleGameMaster:    cfg.GameMasters,
	} {
		members, _ := ledgercfg.Addresses(list) // validated by Load
		roles.Grant(role, members...)
		log.Infof("role %s held by %d principals", role, len(roles.Members(role)))
	}

	book := custody.NewBook()
	if cfg.SeedFile != "" {
		if err := book.LoadSeed(context.Background(), cfg.SeedFile); err != nil {
			log.Fatalf("Failed to seed custody book: %v", err)
		}
	}

	// Connect to NATS
	n, err := nats.Connect(SERVICE_NAME + "_service_" + instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	b := broker.NewBroker(n.Conn, nil, cfg.EventSubject)
	feed := ws.NewFeed()
	recorders := ledger.Recorders{b, feed}

	var history handlers.History
	switch cfg.Store {
	case ledgercfg.StorePostgres:
		dbpool, err := db.Connect(cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer db.ClosePool()
		log.Printf("pg connection established successfully")

		observationStore := store.NewObservationStore(dbpool)
		if err := observationStore.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to prepare observation table: %v", err)
		}
		recorders = append(recorders, observationStore)
		history = observationStore
	case ledgercfg.StoreMongo:
		mdb, err := mongodb.ConnectToDB(cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mongodb.Disconnect(mdb)
		log.Printf("mongodb connection established successfully")

		if cfg.ObservationTTL > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := mongodb.CreateTTLIndexForCollection(ctx, mdb, store.ObservationCollection)
			cancel()
			if err != nil {
				log.Fatalf("Failed to create observation TTL index: %v", err)
			}
		}
		observationStore := store.NewMongoObservationStore(mdb, cfg.ObservationTTL)
		recorders = append(recorders, observationStore)
		history = observationStore
	}

	l, err := ledger.New(ledger.Options{
		Custody:       cfg.CustodyAddress(),
		Gate:          roles,
		Tokens:        book,
		FeePercentage: feePercentage,
		Recorder:      recorders,
	})
	if err != nil {
		log.Fatalf("Failed to build ledger: %v", err)
	}
	ledgerService := service.NewLedgerService(l)
	b.LedgerService = ledgerService

	sub, err := b.QueueSubscribeCommands(cfg.CommandSubject, SERVICE_NAME+"_service")
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(1)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.CorsOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(ledgerService, history, feed, cfg.Port)
	h.InitAuth(cfg.JWTSecret)
	h.SetRoutes(r)

	// Create server with timeout settings; no WriteTimeout so the
	// observation websocket stays up
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
