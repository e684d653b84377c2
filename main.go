package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"channel-service/internal/channels"
	"channel-service/internal/config"
	"channel-service/internal/db"
	"channel-service/internal/directory"
	"channel-service/internal/handlers"
	"channel-service/internal/middleware"
	"channel-service/internal/observability"
	"channel-service/internal/rabbitmq"
	"channel-service/internal/repositories"
	"channel-service/internal/telemetry"
	"channel-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := observability.SetupTracing(context.Background(), cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	observability.SetPublisher(publisher)

	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit_log.channels", "channel-service", cfg.Environment)

	userDirectory := directory.NewUserDirectory(database)
	channelRepo := repositories.NewChannelRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	typingRepo := repositories.NewTypingRepo(database)

	channelService := channels.NewService(userDirectory, channelRepo, messageRepo, typingRepo)

	hub := ws.NewHub()

	channelHandler := handlers.NewChannelHandler(channelService, channelRepo, messageRepo, userDirectory, hub)
	typingHandler := handlers.NewTypingHandler(channelService, hub)
	channelWS := ws.NewChannelWebSocketHandler(hub, channelRepo, userDirectory, cfg.JWTSecret)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("channel-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	router.GET("/channels", authMiddleware, channelHandler.ListChannels)
	router.POST("/channels", authMiddleware, channelHandler.CreateChannel)
	router.POST("/channels/private/:user_id", authMiddleware, channelHandler.ResolvePrivateChannel)
	router.GET("/channels/:channel_id/messages", authMiddleware, channelHandler.GetChannelMessages)
	router.POST("/channels/:channel_id/messages", authMiddleware, channelHandler.PostChannelMessage)
	router.POST("/channels/:channel_id/typing", authMiddleware, typingHandler.EmitTyping)

	router.GET("/ws/channels/:channel_id", channelWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugEndpoints)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
