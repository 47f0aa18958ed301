package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyw0ng95/v2e/pkg/broker"
	"github.com/cyw0ng95/v2e/pkg/common"
	"github.com/cyw0ng95/v2e/pkg/ratelimit"
	"github.com/cyw0ng95/v2e/pkg/rpcenvelope"
)

func main() {
	cfg, err := common.Load()
	if err != nil {
		common.Fatal("failed to load configuration: %v", err)
	}
	common.SetLevel(common.ParseLevel(cfg.Logging.Level))

	b := broker.NewRedisBroker(cfg.Broker)
	defer b.Close()

	handlers := &gatewayHandlers{
		broker:    b,
		waitSlack: common.DefaultResultWaitSlack,
	}
	reg := rpcenvelope.NewRegistry()
	handlers.register(reg)

	rps := cfg.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = common.DefaultRateLimitRPS
	}
	limiter := ratelimit.NewClientLimiter(cfg.RateLimit.Burst, time.Second/time.Duration(rps))
	router := setupRouter(reg, limiter)

	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,
	}

	go func() {
		common.Info("gateway listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.Error("gateway server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	common.Info("shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.Error("gateway forced to shut down: %v", err)
		os.Exit(1)
	}
	common.Info("gateway stopped")
}
