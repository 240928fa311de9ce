package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/scalehouse/weighbridge/internal/adapters/http/api"
	"github.com/scalehouse/weighbridge/internal/adapters/repository"
	sap "github.com/scalehouse/weighbridge/internal/adapters/sap"
	scale "github.com/scalehouse/weighbridge/internal/adapters/scale"
	service "github.com/scalehouse/weighbridge/internal/app"
	"github.com/scalehouse/weighbridge/internal/config"
	"github.com/scalehouse/weighbridge/internal/scheduler"
	"github.com/scalehouse/weighbridge/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection; the weighbridge registry is
	// self-contained.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Optional .env ahead of config layering; absence is not an error.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	ledger, err := repository.Open(cfg.DBPath)
	if err != nil {
		log.Error(ctx, "failed to open ledger", logger.String("path", cfg.DBPath), logger.Error(err))
		return
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			log.Error(ctx, "failed to close ledger", logger.Error(err))
		}
	}()

	scaleDriver, err := newScaleDriver(cfg.Scale)
	if err != nil {
		log.Error(ctx, "invalid scale configuration", logger.Error(err))
		return
	}
	channel := scale.New(scaleDriver, cfg.Scale, scale.WithLogger(log.Named("scale")))
	if err := channel.Connect(ctx); err != nil {
		// the station can run without a live scale; captures will refuse
		// until the operator reconnects
		log.Warn(ctx, "scale connect failed, starting disconnected", logger.Error(err))
	}
	defer channel.Disconnect()

	connector, err := newSAPConnector(cfg.SAP)
	if err != nil {
		log.Error(ctx, "invalid sap configuration", logger.Error(err))
		return
	}
	gateway := sap.NewGateway(connector, sap.WithLogger(log.Named("sap")))
	if err := gateway.Connect(ctx); err != nil {
		log.Warn(ctx, "sap connect failed, starting disconnected", logger.Error(err))
	}
	defer func() {
		if err := gateway.Disconnect(context.Background()); err != nil {
			log.Error(ctx, "sap disconnect failed", logger.Error(err))
		}
	}()

	svc := service.New(
		service.WithLedger(ledger),
		service.WithTelemetry(channel),
		service.WithGateway(gateway),
		service.WithHistoryLimit(cfg.HistoryLimit),
		service.WithLogger(log.Named("session")),
	)

	sched := scheduler.New(cfg.Sync, ledger, gateway, scheduler.WithLogger(log.Named("sync")))
	if err := sched.Start(ctx); err != nil {
		log.Error(ctx, "failed to start auto-send scheduler", logger.Error(err))
		return
	}
	defer sched.Stop()

	// HTTP mux and routes.
	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// newScaleDriver picks the indicator driver by configuration. Only the
// simulator ships in-tree; a serial driver satisfying scale.Driver can be
// dropped in without touching the rest of the service.
func newScaleDriver(cfg config.ScaleConfig) (scale.Driver, error) {
	switch cfg.Driver {
	case "", "sim":
		return scale.NewSimDriver(), nil
	default:
		return nil, fmt.Errorf("unknown scale driver %q", cfg.Driver)
	}
}

// newSAPConnector picks the ERP connector by configuration.
func newSAPConnector(cfg config.SAPConfig) (sap.Connector, error) {
	switch cfg.Driver {
	case "odata":
		return sap.NewODataConnector(cfg), nil
	case "", "sim":
		return sap.NewSimConnector(), nil
	default:
		return nil, fmt.Errorf("unknown sap driver %q", cfg.Driver)
	}
}
