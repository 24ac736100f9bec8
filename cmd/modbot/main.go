package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/KathyFeiyang/cs152bots/triage/classifier"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "modbot",
		Usage:   "content moderation triage daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"MODBOT_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   20,
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "mode",
			Usage:   "priority policy mode: best-accuracy or rapid-response",
			Value:   "best-accuracy",
			EnvVars: []string{"MODBOT_MODE"},
		},
		&cli.StringFlag{
			Name:    "classifier",
			Usage:   "classifier backend: openai, http, or mock",
			Value:   "openai",
			EnvVars: []string{"MODBOT_CLASSIFIER"},
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Usage:   "API key for the OpenAI classifier",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "openai-model",
			Usage:   "chat completion model used for classification",
			Value:   classifier.DefaultOpenAIModel,
			EnvVars: []string{"MODBOT_OPENAI_MODEL"},
		},
		&cli.StringFlag{
			Name:    "openai-base-url",
			Usage:   "override the OpenAI API endpoint (for compatible providers)",
			EnvVars: []string{"OPENAI_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "classifier-url",
			Usage:   "URL of a hosted text classification endpoint, for the http classifier",
			EnvVars: []string{"MODBOT_CLASSIFIER_URL"},
		},
		&cli.StringFlag{
			Name:    "classifier-token",
			Usage:   "bearer token for the hosted classification endpoint",
			EnvVars: []string{"MODBOT_CLASSIFIER_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "classifier-label",
			Usage:   "label counted as the positive (harmful) class by the http classifier",
			Value:   "LABEL_1",
			EnvVars: []string{"MODBOT_CLASSIFIER_LABEL"},
		},
		&cli.Float64Flag{
			Name:    "mock-score",
			Usage:   "score returned by the mock classifier",
			Value:   0.5,
			EnvVars: []string{"MODBOT_MOCK_SCORE"},
		},
		&cli.DurationFlag{
			Name:    "classifier-timeout",
			Usage:   "time budget for a single classification",
			Value:   classifier.DefaultTimeout,
			EnvVars: []string{"MODBOT_CLASSIFIER_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "classifier-rate-limit",
			Usage:   "max classifier requests per second (0 for unlimited)",
			Value:   10,
			EnvVars: []string{"MODBOT_CLASSIFIER_RATE_LIMIT"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL; in-process stores are used if not set",
			EnvVars: []string{"MODBOT_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database for the moderation outcome log (sqlite:// or postgres://); disabled if empty",
			Value:   "sqlite://data/modbot/modbot.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "also mirror audit channel posts to this Slack webhook",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "sets-file",
			Usage:   "JSON file with named sets, including the moderator roster",
			EnvVars: []string{"MODBOT_SETS_JSON"},
		},
		&cli.IntFlag{
			Name:    "false-report-limit",
			Usage:   "number of false reports after which a reporter is throttled",
			Value:   5,
			EnvVars: []string{"MODBOT_FALSE_REPORT_LIMIT"},
		},
		&cli.Int64Flag{
			Name:    "node-id",
			Usage:   "snowflake node id used for auto-flag report identities",
			Value:   1,
			EnvVars: []string{"MODBOT_NODE_ID"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3989",
			EnvVars: []string{"MODBOT_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3988",
			EnvVars: []string{"MODBOT_METRICS_LISTEN"},
		},
		&cli.IntFlag{
			Name:    "scheduler-workers",
			Usage:   "number of workers screening channel messages",
			Value:   8,
			EnvVars: []string{"MODBOT_SCHEDULER_WORKERS"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx)
		shutdownOTEL := configOTEL("modbot")
		defer shutdownOTEL()

		cls, err := configClassifier(cctx, logger)
		if err != nil {
			return err
		}

		srv, err := NewServer(Config{
			Logger:           logger,
			Mode:             cctx.String("mode"),
			Classifier:       cls,
			RedisURL:         cctx.String("redis-url"),
			DatabaseURL:      cctx.String("database-url"),
			MaxDBConnections: cctx.Int("max-db-connections"),
			SlackWebhookURL:  cctx.String("slack-webhook-url"),
			SetsFileJSON:     cctx.String("sets-file"),
			FalseReportLimit: cctx.Int("false-report-limit"),
			NodeID:           cctx.Int64("node-id"),
			Bind:             cctx.String("bind"),
			SchedulerWorkers: cctx.Int("scheduler-workers"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		return srv.RunAPI()
	},
}

func configLogger(cctx *cli.Context) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cctx.String("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// every backend is wrapped in a Guard, which bounds latency and rate
func configClassifier(cctx *cli.Context, logger *slog.Logger) (classifier.Classifier, error) {
	var inner classifier.Classifier
	name := cctx.String("classifier")
	switch name {
	case "openai":
		if cctx.String("openai-api-key") == "" {
			return nil, fmt.Errorf("openai classifier requires --openai-api-key")
		}
		inner = classifier.NewOpenAIClassifier(cctx.String("openai-api-key"), cctx.String("openai-model"), cctx.String("openai-base-url"))
	case "http":
		if cctx.String("classifier-url") == "" {
			return nil, fmt.Errorf("http classifier requires --classifier-url")
		}
		inner = classifier.NewHTTPClassifier(cctx.String("classifier-url"), cctx.String("classifier-token"), cctx.String("classifier-label"))
	case "mock":
		logger.Warn("using mock classifier", "score", cctx.Float64("mock-score"))
		inner = classifier.NewMockClassifier(cctx.Float64("mock-score"))
	default:
		return nil, fmt.Errorf("unknown classifier backend: %q", name)
	}

	var limiter *rate.Limiter
	if n := cctx.Int("classifier-rate-limit"); n > 0 {
		limiter = rate.NewLimiter(rate.Limit(n), n)
	}
	g := classifier.NewGuard(name, inner, cctx.Duration("classifier-timeout"), limiter)
	g.Logger = logger.With("system", "classifier", "classifier", name)
	logger.Info("configured classifier", "backend", name, "timeout", g.Timeout.String())
	return g, nil
}

// bounds how long startup may block on external stores
const startupTimeout = 15 * time.Second

func startupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), startupTimeout)
}
