package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/threadcount/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the run built up by the
// previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Per-thread problems are recorded on the run's threads; an error is
	// returned only when the step itself failed.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// final contains steps that run after steps, even when one of them
	// failed or the context was cancelled.
	final []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
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

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The first error is still recorded on the run.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
		final: make([]Step, 0),
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
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalStep appends a step that always runs once the regular steps are
// done. Final steps get a context that is not cancelled with ctx, so they
// can save partial results after an interrupt.
func (p *Pipeline) AddFinalStep(step Step) {
	p.final = append(p.final, step)
}

// Execute runs all steps, then all final steps.
//
// A cancelled ctx marks the run as interrupted; any other step error is
// recorded on the run. FinishedAt is set before the final steps run.
// Returns the first error of a regular step, or else of a final step.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	err := p.executeSteps(ctx, run)

	if ctx.Err() != nil {
		run.Interrupted = true
	} else if err != nil && run.Err == nil {
		run.SetError(err)
	}
	run.FinishedAt = time.Now()

	finalCtx := context.WithoutCancel(ctx)
	for _, step := range p.final {
		p.logger.Debug("executing final step", "step", step.Name(), "site", run.Site)

		// Recorded first so that a storing step persists the full list.
		run.Steps = append(run.Steps, step.Name())

		if stepErr := step.Do(finalCtx, run); stepErr != nil {
			p.logger.Error("final step failed",
				"step", step.Name(),
				"site", run.Site,
				"error", stepErr,
			)
			if err == nil {
				err = stepErr
			}
		}
	}
	return err
}

// executeSteps runs the regular steps and returns the first error.
func (p *Pipeline) executeSteps(ctx context.Context, run *model.Run) error {
	var firstErr error
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"site", run.Site,
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"site", run.Site,
		)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"site", run.Site,
				"error", err,
			)
			if ctx.Err() != nil || !p.continueOnError {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"site", run.Site,
		)
		run.Steps = append(run.Steps, step.Name())
	}
	return firstErr
}

// StepCount returns the number of steps in the pipeline, final steps included.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.final)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.final {
		names = append(names, step.Name())
	}
	return names
}
