package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splitsettle/splitsettle/internal/api"
	"github.com/splitsettle/splitsettle/internal/config"
	"github.com/splitsettle/splitsettle/internal/credit"
	"github.com/splitsettle/splitsettle/internal/middleware"
	"github.com/splitsettle/splitsettle/internal/service"
	"github.com/splitsettle/splitsettle/internal/storage/sqlite"
	"github.com/splitsettle/splitsettle/pkg/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Database.Path)

	engine := credit.NewEngine(store)

	groupSvc := service.NewGroupService(store)
	expenseSvc := service.NewExpenseService(store)
	settlementSvc := service.NewSettlementService(store, engine)
	creditSvc := service.NewCreditService(store, engine)
	reconcileSvc := service.NewReconciliationService(store)

	mux := http.NewServeMux()
	api.New(groupSvc, expenseSvc, settlementSvc, creditSvc, reconcileSvc).Routes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.Logging(middleware.CORS(middleware.Metrics(mux)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Credit.ScanEnabled {
		go runDelayScanner(ctx, creditSvc, cfg.Credit.ScanInterval)
	}

	addr := ":" + cfg.Server.Port
	server := &http.Server{Addr: addr, Handler: handler}

	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

// runDelayScanner periodically applies delay penalties to every debtor with
// pending settlements.
func runDelayScanner(ctx context.Context, creditSvc *service.CreditService, interval time.Duration) {
	slog.Info("Delay scanner started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Delay scanner stopped")
			return
		case <-ticker.C:
			penalties, err := creditSvc.ScanAllPendingDelays(ctx)
			if err != nil {
				slog.Error("Delay scan failed", "error", err)
				continue
			}
			if len(penalties) > 0 {
				slog.Info("Delay scan applied penalties", "count", len(penalties))
			}
		}
	}
}
