package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/olegbarsky/techstock-bot/api"
	"github.com/olegbarsky/techstock-bot/internal/bot"
	"github.com/olegbarsky/techstock-bot/internal/contracts"
	"github.com/olegbarsky/techstock-bot/internal/devicetypes"
	"github.com/olegbarsky/techstock-bot/internal/session"
	"github.com/olegbarsky/techstock-bot/internal/tickets"
	"github.com/olegbarsky/techstock-bot/internal/users"
	"github.com/olegbarsky/techstock-bot/internal/writeoffs"
	"github.com/olegbarsky/techstock-bot/pkg/config"
	"github.com/olegbarsky/techstock-bot/pkg/db"
	"github.com/olegbarsky/techstock-bot/pkg/logger"
	"github.com/olegbarsky/techstock-bot/pkg/metrics"
	"github.com/olegbarsky/techstock-bot/pkg/migrate"
	"github.com/olegbarsky/techstock-bot/pkg/redis"
	"github.com/olegbarsky/techstock-bot/pkg/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "techstock-bot",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil && err != context.Canceled {
		logg.Error(ctx, "service stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "service stopped")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	client, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	dispatchMetrics := metrics.NewDispatchMetrics(registry)

	userRepo := users.NewRepository(client)
	sessions := session.NewDispatcher(userRepo, logg, dispatchMetrics)

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		if cfg.FeatureFlags.CallbackDedup {
			sessions.WithDedup(redisClient, cfg.Bot.CallbackDedupTTL)
		}
	}

	engine := bot.NewEngine(cfg.Bot, client, userRepo, sessions, logg, dispatchMetrics)

	ticketRepo := tickets.NewRepository()
	writeoffRepo := writeoffs.NewRepository()
	typeRepo := devicetypes.NewRepository()
	engine.Register(bot.Routes{
		Menu:         bot.NewMenuHandlers(userRepo),
		Tickets:      tickets.NewHandlers(tickets.NewService(ticketRepo, contracts.NewRepository(), typeRepo, cfg.Bot)),
		Writeoffs:    writeoffs.NewHandlers(writeoffs.NewService(writeoffRepo, typeRepo)),
		TicketRepo:   ticketRepo,
		WriteoffRepo: writeoffRepo,
		MaxDevices:   cfg.Bot.MaxDevicesPerTicket,
	})

	opsServer := api.NewServer(api.Options{
		Addr:     cfg.Ops.Addr,
		DB:       client,
		Redis:    pingerOrNil(redisClient),
		Registry: registry,
		Logger:   logg,
	})

	source := telegram.NewConsoleSource(os.Stdin)
	sink := telegram.NewConsoleSink(os.Stdout)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return opsServer.Start(ctx)
	})
	group.Go(func() error {
		return engine.Run(ctx, source, sink)
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return opsServer.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func pingerOrNil(client *redis.Client) api.Pinger {
	if client == nil {
		return nil
	}
	return client
}
