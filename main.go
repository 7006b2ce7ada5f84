package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"memochat/internal/config"
	"memochat/internal/db"
	"memochat/internal/events"
	"memochat/internal/handlers"
	"memochat/internal/ledger"
	"memochat/internal/middleware"
	"memochat/internal/observability"
	"memochat/internal/processor"
	"memochat/internal/rabbitmq"
	"memochat/internal/repositories"
	"memochat/internal/service"
	"memochat/internal/telemetry"
	"memochat/internal/ws"
)

func main() {
	cfg, err := config.Load(".", "/etc/memochat")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTel.Endpoint, cfg.OTel.ServiceName)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	dsn := cfg.DB.DSN
	if cfg.DB.Driver == db.DriverSQLite && dsn == "" {
		dsn = db.SQLitePath(cfg.DataDir)
	}
	database, err := db.Connect(cfg.DB.Driver, dsn)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	store := repositories.NewSQLStore(database)
	defer store.Close()

	client, closeLedger, err := newLedger(cfg)
	if err != nil {
		log.Fatalf("failed to connect to ledger: %v", err)
	}
	defer closeLedger()

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s %s", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	audit := telemetry.NewAuditEmitter(publisher, cfg.AMQP.AuditRoute, cfg.OTel.ServiceName, cfg.Environment)

	bus := events.NewBus(cfg.Events.Buffer)
	core := service.New(store, client, bus, audit, service.Options{
		Account:   cfg.Ledger.Account,
		Processor: processor.Options{MaxRetries: cfg.Processor.MaxRetries},
	})
	defer core.Stop()
	if err := core.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}

	brokerSub := bus.Subscribe()
	defer brokerSub.Close()
	go events.Forward(ctx, brokerSub, publisher)

	hub := ws.NewHub()
	hubSub := bus.Subscribe()
	defer hubSub.Close()
	go hub.Run(ctx, hubSub)
	defer hub.CloseAll()

	chatHandler := handlers.NewChatHandler(core)
	walletHandler := handlers.NewWalletHandler(core)
	eventsWS := ws.NewEventsHandler(hub)

	router := gin.New()

	// middlewares
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(observability.Handler()))

	api := router.Group("/", middleware.AuthMiddleware(cfg.APIToken))
	api.GET("/chats", chatHandler.ListChats)
	api.POST("/chats", chatHandler.StartChat)
	api.GET("/chats/:chat_id/messages", chatHandler.GetChatMessages)
	api.POST("/chats/:chat_id/messages", chatHandler.PostChatMessage)
	api.PATCH("/chats/:chat_id/alias", chatHandler.UpdateAlias)
	api.POST("/chats/:chat_id/verify", chatHandler.VerifyChat)

	api.POST("/wallet/start", walletHandler.Start)
	api.DELETE("/wallet", walletHandler.Wipe)

	api.GET("/ws/events", eventsWS.Handle)

	handlers.RegisterDebugRoutes(api, core, audit, cfg.Environment != "production")

	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("memochat listening on :%s ledger=%s", cfg.Port, cfg.Ledger.Mode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

func newLedger(cfg *config.Config) (ledger.Client, func(), error) {
	if cfg.Ledger.Mode == config.LedgerNATS {
		client, err := ledger.NewNATSClient(cfg.Ledger.NATSURL, cfg.Ledger.Prefix, cfg.Ledger.Buffer)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	}
	log.Printf("[ledger] using in-memory ledger address=%s", cfg.Ledger.Address)
	return ledger.NewMemory(cfg.Ledger.Buffer).Wallet(cfg.Ledger.Address), func() {}, nil
}
