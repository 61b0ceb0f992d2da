// Package main provides the maestro API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/renderstack/maestro/pkg/backends"
	"github.com/renderstack/maestro/pkg/cmd"
	"github.com/renderstack/maestro/pkg/dispatch"
	"github.com/renderstack/maestro/pkg/engine"
	"github.com/renderstack/maestro/pkg/log"
	"github.com/renderstack/maestro/pkg/manifest"
	"github.com/renderstack/maestro/pkg/models"
	"github.com/renderstack/maestro/pkg/offload"
	"github.com/renderstack/maestro/pkg/otelhelper"
	"github.com/renderstack/maestro/pkg/taskspec"
)

const defaultPort = 9280

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "maestro-api",
		Usage:                 "Serve the workflow orchestration API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Usage:   "Root directory for run outputs and reports",
				Value:   "output",
				Sources: cli.EnvVars("MAESTRO_OUTPUT_DIR"),
			},
			&cli.StringFlag{
				Name:    "temp-dir",
				Usage:   "Directory for intermediate files",
				Value:   ".temp",
				Sources: cli.EnvVars("MAESTRO_TEMP_DIR"),
			},
			&cli.IntFlag{
				Name:    "max-parallel",
				Usage:   "Maximum concurrent jobs in parallel mode",
				Value:   2,
				Sources: cli.EnvVars("MAESTRO_MAX_PARALLEL"),
			},
			&cli.DurationFlag{
				Name:  "job-timeout",
				Usage: "Per-job execution timeout",
				Value: time.Hour,
			},
			&cli.StringFlag{
				Name:    "history-url",
				Usage:   "Execution history store (memory, redis://...)",
				Value:   "memory",
				Sources: cli.EnvVars("MAESTRO_HISTORY_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka; empty disables eventing)",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "offload-endpoint",
				Usage:   "Remote kernel endpoint for offloadable tasks (empty disables offload)",
				Sources: cli.EnvVars("MAESTRO_OFFLOAD_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:  "schedule",
				Usage: "Cron schedule for recurring submission of --schedule-input",
			},
			&cli.StringFlag{
				Name:  "schedule-input",
				Usage: "Task specification JSON file submitted on --schedule",
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for workflows and jobs",
				Sources: cli.EnvVars("MAESTRO_TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing maestro API")

			history, err := cmd.NewHistory(command.String("history-url"))
			if err != nil {
				return err
			}

			table := dispatch.NewTable()
			backends.Register(table, backends.Binaries{
				Blender: envOr("BLENDER_PATH", "blender"),
				Unreal:  envOr("UNREAL_PATH", "UnrealEditor-Cmd"),
				FFmpeg:  envOr("FFMPEG_PATH", "ffmpeg"),
				Resolve: envOr("RESOLVE_PATH", "resolve"),
			})

			opts := []engine.Option{
				engine.WithHistory(history),
			}

			if endpoint := command.String("offload-endpoint"); endpoint != "" {
				opts = append(opts, engine.WithOffload(offload.NewClient(endpoint, logger)))
			}

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "maestro-api")
				if err != nil {
					return fmt.Errorf("initializing tracer: %w", err)
				}

				opts = append(opts, engine.WithTracer(tracer))
			}

			if bus := cmd.NewEventBus(command.String("event-bus"), logger); bus != nil {
				defer func() {
					if err := bus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()

				opts = append(opts, engine.WithEventPublisher(bus))
			}

			eng := engine.New(
				engine.Config{
					OutputDir:       command.String("output-dir"),
					TempDir:         command.String("temp-dir"),
					MaxParallelJobs: command.Int("max-parallel"),
					JobTimeout:      command.Duration("job-timeout"),
				},
				manifest.NewDefaultRegistry(command.String("output-dir")),
				table,
				logger,
				opts...,
			)

			if schedule := command.String("schedule"); schedule != "" {
				if err := startScheduler(eng, schedule, command.String("schedule-input"), logger); err != nil {
					return err
				}
			}

			api := NewAPI(logger, eng, history)

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("maestro-api failed", "error", err)
		os.Exit(1)
	}
}

func startScheduler(eng *engine.Engine, schedule, inputPath string, logger *slog.Logger) error {
	if inputPath == "" {
		return fmt.Errorf("--schedule requires --schedule-input")
	}

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading schedule input: %w", err)
	}

	spec, err := taskspec.Parse(raw)
	if err != nil {
		return err
	}

	sched := newScheduler(eng, logger)
	if err := sched.Add(spec, schedule, models.ModeSequential); err != nil {
		return fmt.Errorf("registering schedule: %w", err)
	}

	sched.Start()

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
