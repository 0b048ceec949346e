package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/roomrelay/internal/adapters/http"
	"github.com/dkeye/roomrelay/internal/adapters/identity"
	"github.com/dkeye/roomrelay/internal/adapters/oracle"
	"github.com/dkeye/roomrelay/internal/adapters/telemetry"
	"github.com/dkeye/roomrelay/internal/app"
	"github.com/dkeye/roomrelay/internal/app/orch"
	"github.com/dkeye/roomrelay/internal/config"
	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/ratelimit"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogger(cfg *config.Config) {
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Err(err).Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func run(ctx context.Context, cfg *config.Config) error {
	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}

	rooms, err := buildOracle(cfg, rdb)
	if err != nil {
		return err
	}
	verifier := buildVerifier(cfg, rdb)
	pub, closeSinks, err := buildPublisher(cfg, rdb)
	if err != nil {
		return err
	}
	defer closeSinks()
	sink := telemetry.NewAsync(pub, cfg.Telemetry.Buffer)

	l := cfg.Limits
	reg := app.NewRegistry()
	adm := app.NewAdmission(reg, app.AdmissionConfig{
		Attempts:      ratelimit.Limit{Window: l.AttemptWindow, Cap: l.AttemptCap},
		Caps:          app.Caps{PerAddress: l.MaxPerAddress, PerIdentity: l.MaxPerIdentity},
		SweepInterval: l.SweepInterval,
	}, ratelimit.RealClock{}, sink)
	gate := app.NewGate(app.MessageLimits{
		Chat:    ratelimit.Limit{Window: l.MessageWindow, Cap: l.ChatCap},
		ICE:     ratelimit.Limit{Window: l.MessageWindow, Cap: l.ICECap},
		General: ratelimit.Limit{Window: l.MessageWindow, Cap: l.GeneralCap},
	}, ratelimit.RealClock{}, sink)

	o := &orch.Orchestrator{
		Registry:         reg,
		Admission:        adm,
		Gate:             gate,
		Router:           app.NewRouter(reg),
		Rooms:            rooms,
		Identity:         verifier,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRouter(ctx, cfg, o),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Room relay started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error { return adm.Run(gctx) })
	g.Go(func() error { return sink.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})
	return g.Wait()
}

func buildOracle(cfg *config.Config, rdb *redis.Client) (core.RoomOracle, error) {
	if cfg.Oracle.Type == config.OracleRedis {
		return oracle.NewRedisOracle(rdb), nil
	}
	o, err := oracle.FromSeed(cfg.Oracle.Rooms)
	if err != nil {
		return nil, fmt.Errorf("oracle seed: %w", err)
	}
	log.Info().Int("rooms", len(cfg.Oracle.Rooms)).Msg("in-memory room oracle")
	return o, nil
}

func buildVerifier(cfg *config.Config, rdb *redis.Client) identity.Chain {
	var chain identity.Chain
	if cfg.Auth.JWTSecret != "" {
		chain = append(chain, identity.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience))
	}
	if cfg.Auth.SessionLookup {
		chain = append(chain, identity.NewSessionVerifier(rdb))
	}
	if len(chain) == 0 {
		log.Warn().Msg("no authentication scheme configured, only public rooms are reachable")
	}
	return chain
}

func buildPublisher(cfg *config.Config, rdb *redis.Client) (telemetry.Publisher, func(), error) {
	var (
		fan     telemetry.Fanout
		closers []func() error
	)
	for _, name := range cfg.Telemetry.Sinks {
		switch name {
		case config.SinkLog:
			fan = append(fan, telemetry.NewLogSink())
		case config.SinkRedis:
			fan = append(fan, telemetry.NewRedisSink(rdb, cfg.Telemetry.RedisStream))
		case config.SinkKafka:
			k, err := telemetry.NewKafkaSink(cfg.Telemetry.KafkaBrokers, cfg.Telemetry.KafkaTopic)
			if err != nil {
				return nil, nil, err
			}
			fan = append(fan, k)
			closers = append(closers, k.Close)
		}
	}
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Error().Err(err).Msg("closing telemetry sink")
			}
		}
	}
	return fan, closeAll, nil
}
