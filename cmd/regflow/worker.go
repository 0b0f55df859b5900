package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/regflow/pkg/cmd"
	"github.com/dukex/regflow/pkg/config"
	"github.com/dukex/regflow/pkg/dispatcher"
	"github.com/dukex/regflow/pkg/eventbus"
	"github.com/dukex/regflow/pkg/httpcaller"
	"github.com/dukex/regflow/pkg/log"
	"github.com/dukex/regflow/pkg/mailer"
	"github.com/dukex/regflow/pkg/metrics"
	"github.com/dukex/regflow/pkg/otelhelper"
	"github.com/dukex/regflow/pkg/payment"
	"github.com/dukex/regflow/pkg/portal"
	"github.com/dukex/regflow/pkg/protocol"
	"github.com/dukex/regflow/pkg/workflow"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

func NewWorkerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run payment-completion actions for invoice_payment_completed events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			stagesFileFlag(),
			settingsFileFlag(),
			&cli.StringFlag{
				Name:    "internal-api-url",
				Usage:   "Base URL for internal_api_call actions and portal edits",
				Sources: cli.EnvVars("INTERNAL_API_URL"),
			},
			&cli.StringFlag{
				Name:    "internal-api-token",
				Usage:   "Bearer token sent with internal API calls",
				Sources: cli.EnvVars("INTERNAL_API_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "otel-endpoint",
				Usage:   "OTLP/HTTP endpoint; tracing is disabled when empty",
				Sources: cli.EnvVars("OTEL_EXPORTER_OTLP_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Address serving Prometheus metrics on /metrics; disabled when empty",
				Sources: cli.EnvVars("METRICS_ADDR"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("regflow-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing regflow worker")

			tracer := otelhelper.NoopTracer()

			if command.String("otel-endpoint") != "" {
				var shutdown func(context.Context) error

				var err error

				tracer, shutdown, err = otelhelper.NewTracer(ctx, "regflow-worker")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}
				defer func() {
					if err := shutdown(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			m := metrics.New(prometheus.DefaultRegisterer)

			if addr := command.String("metrics-addr"); addr != "" {
				stop := serveMetrics(logger, addr)
				defer stop()
			}

			engine, bus, closeAll, err := buildWorker(ctx, logger, workerSettings{
				databaseURL:      command.String("database-url"),
				eventBus:         command.String("event-bus"),
				kafkaBrokers:     command.String("kafka-brokers"),
				stagesFile:       command.String("stages-file"),
				settingsFile:     command.String("settings-file"),
				internalAPIURL:   command.String("internal-api-url"),
				internalAPIToken: command.String("internal-api-token"),
			}, tracer, m)
			if err != nil {
				return err
			}
			defer closeAll()

			return NewWorkerManager(workerID, engine, bus, logger).Start(ctx)
		},
	}
}

type workerSettings struct {
	databaseURL      string
	eventBus         string
	kafkaBrokers     string
	stagesFile       string
	settingsFile     string
	internalAPIURL   string
	internalAPIToken string
}

// buildWorker wires persistence, the event bus, the executors and the engine. The
// returned func closes what was opened.
func buildWorker(
	ctx context.Context,
	logger *slog.Logger,
	settings workerSettings,
	tracer trace.Tracer,
	m *metrics.Metrics,
) (*workflow.Engine, eventbus.EventBus, func(), error) {
	if settings.settingsFile == "" {
		return nil, nil, nil, errors.New("--settings-file is required")
	}

	registry := cmd.NewRegistry(logger)
	loader := config.NewLoader(registry, logger)

	cfg, err := loader.LoadFiles(settings.stagesFile, settings.settingsFile)
	if err != nil {
		return nil, nil, nil, err
	}

	stages, err := workflow.NewStageSet(cfg.Stages)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := cmd.NewPersistence(ctx, logger, settings.databaseURL)
	if err != nil {
		return nil, nil, nil, err
	}

	bus, err := cmd.NewEventBus(settings.eventBus, settings.kafkaBrokers, "regflow-worker", logger)
	if err != nil {
		_ = store.Close(ctx)

		return nil, nil, nil, err
	}

	closeAll := func() {
		if err := bus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}

		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}

	purposes := config.NewFileSettings(loader, settings.settingsFile)

	caller := httpcaller.New(logger,
		httpcaller.WithInternalBaseURL(settings.internalAPIURL),
		httpcaller.WithInternalToken(settings.internalAPIToken),
	)

	err = registry.Build(protocol.Dependencies{
		Logger:     logger,
		Mailer:     mailer.NewLogMailer(logger),
		HTTPCaller: caller,
		Payments:   payment.NewInitiator(purposes, store.InvoiceRepository(), logger, payment.WithPublisher(bus)),
		Portal:     portal.NewHTTPApplier(caller, portal.DefaultEndpoint),
		Templates:  cfg.EmailTemplates,
	})
	if err != nil {
		closeAll()

		return nil, nil, nil, err
	}

	actionDispatcher := dispatcher.New(registry, logger,
		dispatcher.WithTracer(tracer),
		dispatcher.WithMetrics(m),
	)

	engine := workflow.NewEngine(stages, actionDispatcher, logger,
		workflow.WithPaymentCompletion(purposes, store.TransactionManager()),
		workflow.WithPublisher(bus),
		workflow.WithTracer(tracer),
		workflow.WithMetrics(m),
	)

	return engine, bus, closeAll, nil
}

func serveMetrics(logger *slog.Logger, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}
}
