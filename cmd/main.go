package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/SergeyBogomolovv/purchase-order-service/docs"
	"github.com/SergeyBogomolovv/purchase-order-service/internal/app"
	"github.com/SergeyBogomolovv/purchase-order-service/internal/client"
	"github.com/SergeyBogomolovv/purchase-order-service/internal/config"
	"github.com/SergeyBogomolovv/purchase-order-service/internal/handler"
	"github.com/SergeyBogomolovv/purchase-order-service/internal/postgres"
	"github.com/SergeyBogomolovv/purchase-order-service/internal/repo"
	"github.com/SergeyBogomolovv/purchase-order-service/internal/service"
	"github.com/SergeyBogomolovv/purchase-order-service/pkg/cache"
	"github.com/SergeyBogomolovv/purchase-order-service/pkg/trm"

	"github.com/joho/godotenv"
)

// @title           Purchase Order Service API
// @version         1.0
// @description     Places, queries and cancels purchase orders, validating users and products against their services.
func main() {
	conf := config.New()
	logger := newLogger(conf.Env)
	panicIfErr("invalid config", conf.Validate())

	db, err := postgres.New(conf.Postgres)
	panicIfErr("failed to connect to db", err)
	defer db.Close()
	logger.Info("postgres connected")

	orderRepo := repo.NewPostgresRepo(db)
	txManager := trm.NewManager(db)
	orderCache := cache.NewLRUCache(conf.Cache.Capacity, conf.Cache.TTL)

	userClient := client.NewUserClient(logger, conf.UserService)
	productClient := client.NewProductClient(logger, conf.ProductService)

	orderService := service.NewOrderService(logger, txManager, orderRepo, orderCache, userClient, productClient)

	kafkaHandler := handler.NewKafkaHandler(logger, conf.Kafka, orderService)
	httpHandler := handler.NewHTTPHandler(logger, orderService)
	handler.RegisterMetrics()

	app := app.New(logger, conf)
	app.SetHTTPHandlers(httpHandler)
	app.SetConsumers(kafkaHandler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	orderCache.StartJanitor(ctx)

	panicIfErr("failed to start app", app.Start(ctx))
	<-ctx.Done()
	panicIfErr("failed to stop app", app.Stop())
}

func init() {
	godotenv.Load()
}

func newLogger(env string) *slog.Logger {
	switch env {
	case "production":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func panicIfErr(prefix string, err error) {
	if err != nil {
		panic(prefix + ": " + err.Error())
	}
}
