package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/webssh/sshgate/pkg/applog"
	"github.com/webssh/sshgate/pkg/config"
	"github.com/webssh/sshgate/pkg/httpapi"
	"github.com/webssh/sshgate/pkg/pool"
	"github.com/webssh/sshgate/pkg/store"
)

// reapInterval is how often the pool sweeps for transports that hung up
// without a caller noticing and for connections that have sat idle past
// their grace period.
const reapInterval = 15 * time.Second

func main() {
	logger := applog.Init("info")

	if _, err := config.EnsureDefaultConfig(); err != nil {
		logger.Warn("failed to ensure default config; falling back to defaults", "error", err)
	}
	cfg, cfgPath, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	logger.Info("config loaded", "path", cfgPath, "host", cfg.Host(), "port", cfg.Port())

	configDir, _, err := config.DefaultPaths()
	if err != nil {
		logger.Error("resolve config dir", "error", err)
		os.Exit(1)
	}
	dbPath := filepath.Join(configDir, "targets.db")
	targetStore, err := store.Open(dbPath)
	if err != nil {
		logger.Error("open target store", "path", dbPath, "error", err)
		os.Exit(1)
	}

	p := pool.New(targetStore, cfg.ToPoolConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runReaper(ctx, p)

	engine := httpapi.New(p, targetStore, logger)
	addr := net.JoinHostPort(cfg.Host(), strconv.Itoa(cfg.Port()))
	httpServer := &http.Server{Addr: addr, Handler: engine}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	p.Close()
}

// runReaper periodically sweeps the pool for transports that disconnected
// without a caller noticing. Exits when ctx is done.
func runReaper(ctx context.Context, p *pool.Pool) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ReapDisconnected()
		}
	}
}
