package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrNoCommand is returned when a site has no external command configured.
var ErrNoCommand = errors.New("no external command configured")

// Placeholders substituted in command arguments.
const (
	PlaceholderURL       = "{url}"
	PlaceholderStartPage = "{startPage}"
	PlaceholderOutput    = "{output}"
)

// waitDelay bounds the wait for output pipes after the process was killed.
const waitDelay = time.Second

// Vars holds the values substituted into a command.
type Vars struct {
	// URL is the listing URL of the site.
	URL string

	// StartPage is the first listing page to scrape.
	StartPage int

	// Output is the output file path without extension.
	Output string
}

// Expand returns args with every placeholder replaced by its value.
// Placeholders may appear anywhere inside an argument, e.g. "--out_csv={output}".
func Expand(args []string, vars Vars) []string {
	r := strings.NewReplacer(
		PlaceholderURL, vars.URL,
		PlaceholderStartPage, strconv.Itoa(vars.StartPage),
		PlaceholderOutput, vars.Output,
	)
	expanded := make([]string, len(args))
	for i, arg := range args {
		expanded[i] = r.Replace(arg)
	}
	return expanded
}

// Runner executes an external scraper command.
type Runner struct {
	command []string
	dir     string
	stdout  io.Writer
	stderr  io.Writer
	logger  *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithDir sets the working directory of the process.
func WithDir(dir string) Option {
	return func(r *Runner) {
		r.dir = dir
	}
}

// WithOutput connects the process output streams.
// By default output is discarded. A nil writer discards that stream.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithLogger sets the logger used to report the command line.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner for the given command template.
func NewRunner(command []string, opts ...Option) (*Runner, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, ErrNoCommand
	}
	r := &Runner{
		command: command,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run starts the command with vars substituted and waits for it to exit.
// Cancelling ctx kills the process.
func (r *Runner) Run(ctx context.Context, vars Vars) error {
	args := Expand(r.command, vars)

	r.logger.Info("running external scraper", "command", args[0], "args", args[1:])

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // command comes from the site configuration
	cmd.Dir = r.dir
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("external scraper %s failed: %w", args[0], err)
	}
	return nil
}
