package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/roadworks/internal/model"
)

// Step is one stage of an ingestion run.
// Steps run in sequence and write their results into the shared report.
type Step interface {
	// Do executes the step. A returned error stops the pipeline unless it
	// was created with WithContinueOnError. Per-file problems belong in the
	// report, not in the returned error.
	Do(ctx context.Context, report *model.RunReport) error

	// Name returns the step's name for logging and the report.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps executing steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to run the remaining steps
// after a step fails. The default is to stop: a failed fetch usually means
// there is nothing new to sort.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence and stamps the report's finish time.
//
// Cancellation is checked before each step; steps check it themselves
// between files. The first step error is recorded on the report and
// returned, unless continueOnError is set, in which case the last error
// is recorded and nil is returned.
func (p *Pipeline) Execute(ctx context.Context, report *model.RunReport) error {
	defer report.Finish()

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			report.Cancelled = true
			report.SetError(ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step", "step", step.Name(), "run", report.ID)

		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"run", report.ID,
				"error", err,
			)
			report.SetError(err)
			report.PerformedSteps = append(report.PerformedSteps, step.Name())

			if ctx.Err() != nil {
				report.Cancelled = true
			}
			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step completed", "step", step.Name(), "run", report.ID)
		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
