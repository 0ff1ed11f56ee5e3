// Command webapp is a runnable example: a small gin service wired to
// crashkit end to end. Point CRASHKIT_* at a real sink, or run it as-is and
// watch diagnostic reports on stderr.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/beaconops/crashkit"
	"github.com/beaconops/crashkit/ginkit"
	"github.com/beaconops/crashkit/logger"

	_ "github.com/beaconops/crashkit/adapter/sentry"
	_ "github.com/beaconops/crashkit/adapter/telegram"
)

var (
	errInventory = crashkit.Define("inventory_lookup_failed", 502)
	errPayment   = crashkit.Define("payment_failed", 402)
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := crashkit.FromEnv()
	if err != nil {
		return err
	}
	if os.Getenv("CRASHKIT_SINK") == "" {
		// No sink configured: render reports on stderr so the demo shows
		// something.
		cfg.Diagnostic = true
	}

	log := logger.New(logger.Options{
		Env: cfg.Environment,
		App: "webapp",
	})
	defer func() { _ = logger.Close(log) }()
	slog.SetDefault(log)

	n, err := crashkit.NewNotifier(cfg, crashkit.WithLogger(log))
	if err != nil {
		return err
	}
	n.SetContext(map[string]any{"service": "webapp"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := gin.New()
	r.Use(ginkit.New(n, ginkit.Options{ReportErrors: true}))

	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/fail", func(c *gin.Context) {
		err := errPayment.New("card declined", "order_id", c.Query("order"))
		_ = c.Error(err)
		c.JSON(errPayment.Code(), err.Payload())
	})
	r.GET("/panic", func(*gin.Context) {
		panic(errInventory.New("inventory shard down", "shard", 3))
	})

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", slog.Any("err", err))
		}
	}()
	log.Info("listening", slog.String("addr", addr), slog.Bool("reporting", n.Enabled()))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if !n.Flush(2 * time.Second) {
		log.Warn("crash reports may be lost")
	}
	return nil
}
