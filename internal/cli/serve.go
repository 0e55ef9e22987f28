package cli

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"checkin-queue/internal/analytics"
	"checkin-queue/internal/config"
	"checkin-queue/internal/helper"
	"checkin-queue/internal/http/handler"
	"checkin-queue/internal/http/middleware"
	"checkin-queue/internal/monitoring"
	"checkin-queue/internal/queue"
	"checkin-queue/internal/realtime"
	"checkin-queue/internal/store"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	port string
	dsn  string
}

func (o *serveOptions) bindFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&o.dsn, "dsn", "", "database DSN (overrides DB_DSN)")
}

func (o *serveOptions) config() *config.Config {
	cfg := config.Load()
	if o.port != "" {
		cfg.Port = o.port
	}
	if o.dsn != "" {
		cfg.DBDSN = o.dsn
	}
	return cfg
}

func (o *serveOptions) run(ctx context.Context) error {
	return serve(ctx, o.config())
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and realtime channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context())
		},
	}
	opts.bindFlags(cmd)
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	runtime.GOMAXPROCS(runtime.NumCPU())

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := config.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	dialect := store.Dialect(cfg.DBDriver)
	if err := store.Migrate(ctx, db, dialect, helper.AccountNumber); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	s := store.New(db, dialect)

	var (
		reg     *prometheus.Registry
		monitor *monitoring.Monitor
	)
	if cfg.EnableMetrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		monitor = monitoring.NewMonitor(reg)
	}

	var reports queue.Reports = analytics.NewAggregator(s, loc)
	rdb, err := config.NewRedis(cfg)
	if err != nil {
		// the cache is optional, run without it
		log.Printf("[config] %v, analytics cache disabled", err)
	} else if rdb != nil {
		defer rdb.Close()
		reports = analytics.NewCache(reports, rdb, cfg.AnalyticsCacheTTL)
	}

	engine := queue.NewEngine(s, reports, queue.WithMonitor(monitor))
	hub := realtime.NewHub(engine.ListWaiting, monitor)

	app := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[http] ${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST",
	}))
	if monitor != nil {
		app.Use(middleware.Metrics(monitor))
		app.Get("/metrics", middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPassword), adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	handler.New(engine, hub, handler.Options{
		PingInterval: cfg.PingInterval,
		PongTimeout:  cfg.PongTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Health:       s.Ping,
	}).Register(app)

	go func() {
		<-ctx.Done()
		log.Println("[server] shutting down")
		hub.Close()
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Printf("[server] shutdown: %v", err)
		}
	}()

	log.Println("[server] listening on", cfg.Addr())
	if err := app.Listen(cfg.Addr()); err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	}
	return nil
}
