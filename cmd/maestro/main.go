// Package main provides the maestro CLI for running content workflows.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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
	"github.com/renderstack/maestro/pkg/taskspec"
)

func main() {
	logger := log.WithModule("cli")

	command := &cli.Command{
		Name:                  "maestro",
		Usage:                 "Run content creation workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Path to a task specification JSON file",
			},
			&cli.StringFlag{
				Name:    "text",
				Aliases: []string{"t"},
				Usage:   "Free-text task description (alternative to --input)",
			},
			&cli.StringFlag{
				Name:    "engine",
				Aliases: []string{"e"},
				Usage:   "Target engine for --text (blender, unreal, davinci, ffmpeg)",
				Value:   manifest.EngineBlender,
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Execution mode (sequential, parallel, interactive)",
				Value:   string(models.ModeSequential),
				Sources: cli.EnvVars("MAESTRO_MODE"),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Build and print the job plan without executing anything",
			},
			&cli.IntFlag{
				Name:    "max-parallel",
				Usage:   "Maximum concurrent jobs in parallel mode",
				Value:   2,
				Sources: cli.EnvVars("MAESTRO_MAX_PARALLEL"),
			},
			&cli.BoolFlag{
				Name:  "continue-on-error",
				Usage: "Keep executing remaining jobs after a failure",
			},
			&cli.DurationFlag{
				Name:  "job-timeout",
				Usage: "Per-job execution timeout",
				Value: time.Hour,
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
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
			&cli.StringFlag{
				Name:    "offload-endpoint",
				Usage:   "Remote kernel endpoint for offloadable tasks (empty disables offload)",
				Sources: cli.EnvVars("MAESTRO_OFFLOAD_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka; empty disables eventing)",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Auto-approve every job in interactive mode",
			},
			&cli.StringFlag{
				Name:    "blender-path",
				Usage:   "Blender executable",
				Value:   "blender",
				Sources: cli.EnvVars("BLENDER_PATH"),
			},
			&cli.StringFlag{
				Name:    "unreal-path",
				Usage:   "Unreal Engine editor executable",
				Value:   "UnrealEditor-Cmd",
				Sources: cli.EnvVars("UNREAL_PATH"),
			},
			&cli.StringFlag{
				Name:    "ffmpeg-path",
				Usage:   "FFmpeg executable",
				Value:   "ffmpeg",
				Sources: cli.EnvVars("FFMPEG_PATH"),
			},
			&cli.StringFlag{
				Name:    "resolve-path",
				Usage:   "DaVinci Resolve executable",
				Value:   "resolve",
				Sources: cli.EnvVars("RESOLVE_PATH"),
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

			return run(ctx, command)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("maestro failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("cli")

	spec, err := loadSpec(command)
	if err != nil {
		return err
	}

	mode, ok := models.ParseExecutionMode(command.String("mode"))
	if !ok {
		return fmt.Errorf("unknown execution mode: %s", command.String("mode"))
	}

	table := dispatch.NewTable()
	backends.Register(table, backends.Binaries{
		Blender: command.String("blender-path"),
		Unreal:  command.String("unreal-path"),
		FFmpeg:  command.String("ffmpeg-path"),
		Resolve: command.String("resolve-path"),
	})

	opts := []engine.Option{
		engine.WithConfirmer(newTerminalConfirmer(command.Bool("yes"))),
	}

	if endpoint := command.String("offload-endpoint"); endpoint != "" {
		opts = append(opts, engine.WithOffload(offload.NewClient(endpoint, logger)))
	}

	if bus := cmd.NewEventBus(command.String("event-bus"), logger); bus != nil {
		defer func() {
			if err := bus.Close(); err != nil {
				logger.Error("Failed to close event bus", "error", err)
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
			ContinueOnError: command.Bool("continue-on-error"),
		},
		manifest.NewDefaultRegistry(command.String("output-dir")),
		table,
		logger,
		opts...,
	)

	result, err := eng.ExecuteWorkflow(ctx, spec, mode, command.Bool("dry-run"))
	if err != nil {
		return err
	}

	return printResult(result)
}

func loadSpec(command *cli.Command) (*models.TaskSpecification, error) {
	input := command.String("input")
	text := command.String("text")

	switch {
	case input != "" && text != "":
		return nil, errors.New("--input and --text are mutually exclusive")
	case input != "":
		raw, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("reading task specification: %w", err)
		}

		return taskspec.Parse(raw)
	case text != "":
		return taskspec.FromText(command.String("engine"), text), nil
	default:
		return nil, errors.New("either --input or --text is required")
	}
}

func printResult(result *models.WorkflowResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(result); err != nil {
		return err
	}

	if result.Status == models.WorkflowStatusFailed {
		return fmt.Errorf("workflow %s failed: %s", result.WorkflowID, result.Error)
	}

	return nil
}
