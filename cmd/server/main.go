package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duongvyyyx/anti-traffic-jam/config"
	"github.com/duongvyyyx/anti-traffic-jam/module/core"
)

func main() {
	cfg := config.Load()

	db, err := config.NewPostgres(cfg)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	if db != nil {
		defer func() { _ = db.Close() }()
	}

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	if amqpConn != nil {
		defer func() { _ = amqpConn.Close() }()
	}

	mqttClient, err := config.NewMQTT(cfg)
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}
	if mqttClient != nil {
		defer mqttClient.Disconnect(250)
	}

	coreModule, err := core.Build(db, amqpConn, mqttClient, core.Options{
		EventTTL:         cfg.EventTTL,
		SweepInterval:    cfg.SweepInterval,
		MaxListEvents:    cfg.MaxListEvents,
		SubscriberBuffer: cfg.SubscriberBuffer,
	})
	if err != nil {
		log.Fatalf("core module: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if n, err := coreModule.Restore(ctx); err != nil {
		log.Printf("archive restore: %v", err)
	} else if n > 0 {
		log.Printf("restored %d events from archive", n)
	}

	coreModule.StartSweeper(ctx)

	if err := coreModule.StartSubscribers(); err != nil {
		log.Fatalf("start subscribers: %v", err)
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	health := config.NewHealthChecker(db, amqpConn, mqttClient)
	health.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	coreModule.RegisterRoutes(r)

	// no WriteTimeout: the live feed holds its response open indefinitely
	server := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("server stopped")
}
