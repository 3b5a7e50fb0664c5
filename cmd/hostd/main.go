// Command hostd is the capahost runtime entrypoint: it loads configuration,
// connects every configured capability backend, compiles the guest
// component named by GUEST_MODULE_PATH, and serves inbound events over a
// WebSocket fan-out server, dispatching each to a fresh guest instance.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sandhost/capahost/internal/capability"
	"github.com/sandhost/capahost/internal/config"
	"github.com/sandhost/capahost/internal/dispatcher"
	"github.com/sandhost/capahost/internal/httpcap"
	"github.com/sandhost/capahost/internal/identity"
	"github.com/sandhost/capahost/internal/logger"
	"github.com/sandhost/capahost/internal/messaging"
	"github.com/sandhost/capahost/internal/sqlexec"
	"github.com/sandhost/capahost/internal/state"
	"github.com/sandhost/capahost/internal/wsserver"
)

func main() {
	logger.Initialize(getEnv("LOG_LEVEL", "info"), getEnv("ENV", "development") != "production")
	log := logger.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()

	var linkers []capability.Linker

	stateBackend, err := newStateBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize state-store backend")
	}
	linkers = append(linkers, state.Linker(stateBackend))
	log.Info().Str("backend", cfg.StateStoreBackend).Msg("state-store capability ready")

	httpClient := httpcap.New()
	linkers = append(linkers, httpcap.Linker(httpClient))
	log.Info().Msg("outbound http capability ready")

	if cfg.SQL.User != "" && cfg.SQL.DBName != "" {
		executor, err := sqlexec.New(ctx, cfg.SQL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect sql execution capability")
		}
		defer executor.Close()
		linkers = append(linkers, sqlexec.Linker(executor))
		log.Info().Str("host", cfg.SQL.Host).Str("dbname", cfg.SQL.DBName).Msg("sql execution capability ready")
	} else {
		log.Warn().Msg("SQL_USER/SQL_DBNAME not set, sql execution capability disabled")
	}

	if cfg.NATSURL != "" {
		publisher, err := messaging.New(cfg.NATSURL, cfg.Env)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect messaging capability")
		}
		defer publisher.Close()
		linkers = append(linkers, messaging.Linker(publisher))
		log.Info().Str("url", cfg.NATSURL).Msg("messaging capability ready")
	}

	if cfg.AzureIdentity != "" {
		provider, err := identity.New(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize identity capability")
		}
		linkers = append(linkers, identity.Linker(provider))
		log.Info().Str("identity", cfg.AzureIdentity).Msg("identity capability ready")
	} else {
		log.Warn().Msg("AZURE_IDENTITY not set, identity capability disabled")
	}

	disp, err := dispatcher.New(ctx, cfg.GuestModulePath, "handle_event", linkers...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to compile guest component")
	}
	defer disp.Close(context.Background())
	log.Info().Str("module", cfg.GuestModulePath).Str("component", cfg.Component).Msg("guest component compiled")

	var wsSrv *wsserver.Server
	wsSrv = wsserver.New(func(event wsserver.Event) {
		dispatchEvent(wsSrv, disp, event)
	})

	srv := &http.Server{
		Addr:    cfg.WebSocketAddr,
		Handler: wsSrv.Handler(),

		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Info().Str("addr", cfg.WebSocketAddr).Msg("listening for guest events")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("websocket server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("websocket server forced to shutdown")
	}
}

// dispatchEvent hands one inbound peer event to the guest component and
// fans the result back out over the WebSocket server to every connected
// peer; the originating connection's groups are not used to narrow it.
func dispatchEvent(srv *wsserver.Server, disp *dispatcher.Dispatcher, event wsserver.Event) {
	log := logger.Dispatcher()

	if !json.Valid(event.Data) {
		log.Warn().Uint64("connection_id", event.ConnectionID).Msg("inbound event is not valid JSON")
		return
	}

	result, err := disp.Dispatch(context.Background(), json.RawMessage(event.Data))
	if err != nil {
		log.Warn().Err(err).Uint64("connection_id", event.ConnectionID).Msg("guest dispatch failed")
		return
	}

	srv.Send(result, nil)
}

func newStateBackend(ctx context.Context, cfg config.Config) (state.Backend, error) {
	switch cfg.StateStoreBackend {
	case "redis":
		return state.NewRedisBackend(ctx, cfg.Redis)
	case "memory", "":
		return state.NewInMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown STATE_STORE_BACKEND %q", cfg.StateStoreBackend)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
