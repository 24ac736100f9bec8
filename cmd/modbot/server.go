package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/KathyFeiyang/cs152bots/triage/abusestore"
	"github.com/KathyFeiyang/cs152bots/triage/auditstore"
	"github.com/KathyFeiyang/cs152bots/triage/cachestore"
	"github.com/KathyFeiyang/cs152bots/triage/classifier"
	"github.com/KathyFeiyang/cs152bots/triage/countstore"
	"github.com/KathyFeiyang/cs152bots/triage/dispatch"
	"github.com/KathyFeiyang/cs152bots/triage/priority"
	"github.com/KathyFeiyang/cs152bots/triage/reportid"
	"github.com/KathyFeiyang/cs152bots/triage/scheduler"
	"github.com/KathyFeiyang/cs152bots/triage/setstore"
	"github.com/KathyFeiyang/cs152bots/triage/transport"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Server struct {
	dispatcher *dispatch.Dispatcher
	platform   *transport.MemTransport
	audit      *auditstore.GormAuditStore
	screener   *scheduler.Scheduler[screenTask]
	echo       *echo.Echo
	httpd      *http.Server
	logger     *slog.Logger
}

type Config struct {
	Logger           *slog.Logger
	Mode             string
	Classifier       classifier.Classifier
	RedisURL         string
	DatabaseURL      string
	MaxDBConnections int
	SlackWebhookURL  string
	SetsFileJSON     string
	FalseReportLimit int
	NodeID           int64
	Bind             string
	SchedulerWorkers int
}

// a channel message queued for screening, with any caller-provided risk signals
type screenTask struct {
	Message transport.Message
	Signals priority.Signals
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	mode, err := priority.ParseMode(config.Mode)
	if err != nil {
		return nil, err
	}

	sets := setstore.NewMemSetStore()
	if config.SetsFileJSON != "" {
		if err := sets.LoadFromFileJSON(config.SetsFileJSON); err != nil {
			return nil, fmt.Errorf("initializing in-process setstore: %v", err)
		} else {
			logger.Info("loaded set config from JSON", "path", config.SetsFileJSON, "moderators", len(sets.Members(setstore.Moderators)))
		}
	}

	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var abuse abusestore.AbuseStore
	if config.RedisURL != "" {
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		// check redis connection before building the stores on it
		rdb := redis.NewClient(opt)
		ctx, cancel := startupContext()
		_, err = rdb.Ping(ctx).Result()
		cancel()
		rdb.Close()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		csh, err := cachestore.NewRedisCacheStore(config.RedisURL, 30*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %v", err)
		}
		cache = csh

		abs, err := abusestore.NewRedisAbuseStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis abusestore: %v", err)
		}
		abuse = abs
	} else {
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(5_000, 30*time.Minute)
		abuse = abusestore.NewMemAbuseStore()
	}

	var audit *auditstore.GormAuditStore
	if config.DatabaseURL != "" {
		db, err := auditstore.Open(config.DatabaseURL, config.MaxDBConnections)
		if err != nil {
			return nil, fmt.Errorf("opening audit database: %w", err)
		}
		audit, err = auditstore.NewGormAuditStore(db)
		if err != nil {
			return nil, fmt.Errorf("initializing audit store: %w", err)
		}
	}

	platform := transport.NewMemTransport()
	var tport transport.Transport = platform
	if config.SlackWebhookURL != "" {
		logger.Info("mirroring audit channel to slack")
		sa := transport.NewSlackAuditor(platform, config.SlackWebhookURL)
		sa.Logger = logger.With("system", "slack")
		tport = sa
	}

	ids, err := reportid.NewGenerator(config.NodeID)
	if err != nil {
		return nil, err
	}

	dconf := dispatch.Config{
		Logger:           logger,
		Policy:           priority.DefaultPolicy(mode),
		Classifier:       config.Classifier,
		Transport:        tport,
		Moderators:       sets,
		Abuse:            abuse,
		FalseReportLimit: config.FalseReportLimit,
		Cache:            cache,
		Counters:         counters,
		IDs:              ids,
	}
	// avoid a typed nil in the interface
	if audit != nil {
		dconf.Audit = audit
	}
	d, err := dispatch.NewDispatcher(dconf)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		dispatcher: d,
		platform:   platform,
		audit:      audit,
		logger:     logger,
	}

	workers := config.SchedulerWorkers
	if workers <= 0 {
		workers = 1
	}
	srv.screener = scheduler.NewScheduler(workers, "screen", srv.screenMessage)

	e := echo.New()

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	srv.echo = e
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           config.Bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(httpMetrics())
	e.Use(middleware.BodyLimit("4M"))
	e.HTTPErrorHandler = srv.errorHandler
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000, // 365 days
	}))

	e.GET("/_health", srv.HandleHealthCheck)
	e.POST("/api/messages", srv.HandleChannelMessage)
	e.POST("/api/dm", srv.HandleDirectMessage)
	e.POST("/api/reports", srv.HandleSubmitReport)
	e.GET("/api/reports/:id", srv.HandleGetReport)
	e.POST("/api/reports/:id/advance", srv.HandleAdvanceReport)
	e.POST("/api/auto-flags", srv.HandleAutoFlag)
	e.POST("/api/moderators/:id/assignment", srv.HandleRequestAssignment)
	e.DELETE("/api/moderators/:id/assignment", srv.HandleRelease)
	e.GET("/api/queue", srv.HandleQueueStatus)
	e.GET("/api/outbox/:conversation", srv.HandleOutbox)
	e.GET("/api/audit", srv.HandleAuditChannel)
	e.GET("/api/audit/records", srv.HandleAuditRecords)

	return srv, nil
}

// request metrics register with the default prometheus registry, which only allows it once
var httpMetrics = sync.OnceValue(func() echo.MiddlewareFunc {
	return echoprometheus.NewMiddleware("modbot")
})

func (srv *Server) screenMessage(ctx context.Context, task screenTask) error {
	ctx, span := tracer.Start(ctx, "screenMessage", trace.WithAttributes(
		attribute.String("guild", task.Message.GuildID),
		attribute.String("channel", task.Message.ChannelID),
	))
	defer span.End()

	id, err := srv.dispatcher.ScreenMessage(ctx, task.Message, task.Signals)
	if err != nil {
		messagesFailed.Inc()
		srv.logger.Error("failed to screen message", "message", task.Message.Link(), "err", err)
		return err
	}
	if id != "" {
		srv.logger.Info("message auto-flagged", "message", task.Message.Link(), "report", id)
	}
	return nil
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

func (srv *Server) RunAPI() error {
	slog.Info("starting server", "bind", srv.httpd.Addr)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	// Wait for a signal to exit.
	slog.Info("registering OS exit signal handler")
	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		slog.Info("received OS exit signal", "signal", sig)

		if err := srv.Shutdown(); err != nil {
			slog.Error("HTTP server shutdown error", "err", err)
		}

		// Trigger the return that causes an exit.
		close(quit)
	}()
	<-quit
	slog.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

// Shutdown stops accepting requests, then drains the screening workers.
func (srv *Server) Shutdown() error {
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := srv.httpd.Shutdown(ctx)
	srv.screener.Shutdown()
	return err
}
