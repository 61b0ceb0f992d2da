package main

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/renderstack/maestro/pkg/models"
	"github.com/renderstack/maestro/pkg/web"
)

// scheduler resubmits a fixed task specification on a cron schedule,
// covering recurring renders such as nightly previews.
type scheduler struct {
	cron   *cron.Cron
	runner web.WorkflowRunner
	logger *slog.Logger
}

func newScheduler(runner web.WorkflowRunner, logger *slog.Logger) *scheduler {
	return &scheduler{
		cron:   cron.New(),
		runner: runner,
		logger: logger.With("module", "scheduler"),
	}
}

func (s *scheduler) Add(spec *models.TaskSpecification, schedule string, mode models.ExecutionMode) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.logger.Info("Submitting scheduled workflow", "engine", spec.Engine, "schedule", schedule)

		result, err := s.runner.ExecuteWorkflow(context.Background(), spec, mode, false)
		if err != nil {
			s.logger.Error("Scheduled workflow submission failed", "error", err)

			return
		}

		s.logger.Info("Scheduled workflow finished", "workflow_id", result.WorkflowID, "status", result.Status)
	})

	return err
}

func (s *scheduler) Start() {
	s.cron.Start()
}

func (s *scheduler) Stop() {
	s.cron.Stop()
}
