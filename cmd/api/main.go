package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/duongph/go-order-fulfillment/internal/bus"
	"github.com/duongph/go-order-fulfillment/internal/config"
	"github.com/duongph/go-order-fulfillment/internal/directory"
	"github.com/duongph/go-order-fulfillment/internal/httpx"
	kafkax "github.com/duongph/go-order-fulfillment/internal/kafka"
	"github.com/duongph/go-order-fulfillment/internal/notifications"
	"github.com/duongph/go-order-fulfillment/internal/orders"
	"github.com/duongph/go-order-fulfillment/internal/postgres"
	"github.com/duongph/go-order-fulfillment/internal/redisx"
	"github.com/duongph/go-order-fulfillment/internal/vouchers"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis (event bus + unread cache)
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	eventBus := bus.NewRedis(rdb)

	// Kafka journal
	prod := kafkax.NewProducer(cfg.KafkaBrokers, kafkax.TopicOrderLifecycle, 1024)
	prod.Start(ctx)
	journal := kafkax.NewJournal(prod, cfg.ServiceName)

	// Stores
	orderRepo := &orders.Repo{DB: db}
	voucherRepo := &vouchers.Repo{DB: db}
	notifRepo := &notifications.Repo{DB: db}

	// Services
	dispatcher, err := notifications.NewDispatcher(notifRepo, eventBus, cfg.StaffGroupID)
	if err != nil {
		log.Fatalf("dispatcher: %v", err)
	}
	dispatcher.SetRedisClient(rdb)

	voucherSvc := vouchers.NewService(voucherRepo, orderRepo)
	dir := directory.NewHTTPClient(cfg.DirectoryBaseURL, cfg.DirectoryTimeout)
	orderSvc := orders.NewService(orderRepo, voucherSvc, dir, dispatcher, journal)

	// HTTP
	router := httpx.NewRouter()
	h := &httpx.Handler{
		Orders:        orderSvc,
		Notifications: dispatcher,
		Bus:           eventBus,
		StaffGroupID:  cfg.StaffGroupID,
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	prod.WaitClosed()
}
