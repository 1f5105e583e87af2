// Package buildrun executes the user's build command before the output
// directory is measured.
package buildrun

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
)

// DefaultTimeout bounds a build that never terminates on its own.
const DefaultTimeout = 20 * time.Minute

// Runner executes external commands. The exec-backed implementation is
// the default; tests inject a mock.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (string, error)
}

// ExecRunner runs commands via os/exec, inheriting the parent
// environment and streaming nothing: combined output is captured and
// returned.
type ExecRunner struct{}

// NewExecRunner creates the default command runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return output, &CommandError{
			Command: name,
			Args:    args,
			Output:  output,
			Err:     err,
		}
	}
	return output, nil
}

// Options controls how a build command is executed.
type Options struct {
	Dir     string        // working directory; empty means current
	Shell   bool          // run via `sh -c` instead of splitting fields
	Timeout time.Duration // zero means DefaultTimeout
	Runner  Runner        // nil means ExecRunner
}

// Build runs the configured build command. An empty command is a no-op:
// callers that measure a pre-built directory skip the build step
// entirely.
func Build(ctx context.Context, command string, opts Options) error {
	command = strings.TrimSpace(command)
	if command == "" {
		slog.Debug("no build command configured, skipping build")
		return nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runner := opts.Runner
	if runner == nil {
		runner = NewExecRunner()
	}

	name, args := splitCommand(command, opts.Shell)
	slog.Info("running build command",
		"command", shellescape.QuoteCommand(append([]string{name}, args...)),
		"timeout", timeout)

	start := time.Now()
	output, err := runner.Run(ctx, opts.Dir, name, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return &CommandError{Command: name, Args: args, Output: output, Err: context.DeadlineExceeded}
		}
		return err
	}
	slog.Info("build finished", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// splitCommand turns the configured command string into an argv. Shell
// mode hands the whole string to sh so pipes and && work.
func splitCommand(command string, shell bool) (string, []string) {
	if shell {
		return "sh", []string{"-c", command}
	}
	fields := strings.Fields(command)
	return fields[0], fields[1:]
}
