package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedgate/internal/accounts"
	"feedgate/internal/config"
	"feedgate/internal/emitters"
	"feedgate/internal/events"
	"feedgate/internal/health"
	"feedgate/internal/interfaces"
	"feedgate/internal/logger"
	"feedgate/internal/metrics"
	"feedgate/internal/payments"
	"feedgate/internal/rpc"
	"feedgate/internal/settlement"
	"feedgate/internal/store"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().Error().Interface("panic", r).Msg("Application panicked, recovering")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel)

	params, err := cfg.ChainParams()
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to resolve network")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(registry); err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to register metrics")
	}

	accountStore, err := store.Open(cfg.Store, cfg.Database)
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to open account store")
	}
	defer func() {
		if err := accountStore.Close(); err != nil {
			logger.GetLogger().Error().Err(err).Msg("Error closing account store")
		}
	}()

	client := rpc.NewClient(rpc.Options{
		Endpoint:    cfg.RPC.Endpoint,
		User:        cfg.RPC.User,
		Password:    cfg.RPC.Password,
		RateLimit:   cfg.RPC.RateLimit,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		HTTPTimeout: cfg.HTTP.Timeout,
		Logger:      logger.Component("rpc"),
	})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	accountService := accounts.NewService(accounts.Options{
		Store:  accountStore,
		Wallet: client,
		Gate: payments.Gate{
			Threshold: cfg.Payments.MonthlyThreshold,
			Admin:     cfg.Payments.AdminAccount,
		},
		Network: params,
		Logger:  logger.Component("accounts"),
	})
	seedAdminAccount(ctx, accountService, cfg.Payments)

	emitter := &events.LogEmitter{Logger: logger.Component("events")}
	if cfg.Kafka.BrokerAddress != "" {
		kafkaEmitter := emitters.NewKafkaEmitter(cfg.Kafka.BrokerAddress, cfg.Kafka.Topic, cfg.Kafka.BatchTimeout, logger.Component("kafka"))
		defer func() {
			if err := kafkaEmitter.Close(); err != nil {
				logger.GetLogger().Error().Err(err).Msg("Error closing Kafka emitter")
			}
		}()
		emitter.WrappedEmitter = kafkaEmitter
	}

	var sweeper *settlement.Sweeper
	var sweepDone chan struct{}
	if cfg.Sweep.Enabled {
		sweeper = settlement.NewSweeper(client, settlement.Config{
			Destination: cfg.Sweep.CollectionAddress,
			Fee:         cfg.Sweep.NetworkFee,
			Concurrency: cfg.Sweep.Concurrency,
			Location:    cfg.Sweep.Location,
		}, interfaces.EventEmitter(emitter), clock.New(), logger.Component("settlement"))

		sweepDone = make(chan struct{})
		go func() {
			defer close(sweepDone)
			if err := sweeper.Run(ctx); err != nil {
				logger.GetLogger().Error().Err(err).Msg("Settlement sweeper stopped")
			}
		}()
	} else {
		logger.GetLogger().Warn().Msg("Settlement sweeping is disabled")
	}

	var status health.SweepStatus
	if sweeper != nil {
		status = sweeper
	}
	healthServer := health.NewServer(status, registry)
	srv := &http.Server{
		Addr:              cfg.HealthAddr,
		Handler:           healthServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.GetLogger().Info().Str("addr", cfg.HealthAddr).Msg("Starting health server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().Error().Err(err).Msg("Health server failed")
		}
	}()
	healthServer.SetReady(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.GetLogger().Info().Str("signal", sig.String()).Msg("Shutting down")

	healthServer.SetReady(false)
	cancel()
	if sweepDone != nil {
		<-sweepDone
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().Error().Err(err).Msg("Error shutting down health server")
	}
}
