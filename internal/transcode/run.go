package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tendant/media-pipeline/pkg/pipeline"
)

// runFunc and outputFunc are the seams between the transcoders and the
// external binaries they drive. Production code uses run and runOutput;
// tests substitute stubs.
type runFunc func(ctx context.Context, name string, args ...string) error

type outputFunc func(ctx context.Context, name string, args ...string) (string, error)

// run executes an external binary with stdout/stderr captured for
// diagnostics. Encoder failures are transient: the stage may succeed on a
// later attempt.
func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var output bytes.Buffer
	cmd.Stderr = &output
	cmd.Stdout = &output
	if err := cmd.Run(); err != nil {
		return pipeline.Transient(fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(output.String())))
	}
	return nil
}

// runOutput executes a binary and returns its stdout.
func runOutput(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", pipeline.Transient(fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String())))
	}
	return stdout.String(), nil
}

// validateDependencies checks that every required binary is on PATH. Missing
// binaries are a fatal, non-retryable construction error.
func validateDependencies(required ...string) error {
	var missing []string
	for _, cmd := range required {
		if _, err := exec.LookPath(cmd); err != nil {
			missing = append(missing, cmd)
		}
	}
	if len(missing) > 0 {
		return &pipeline.DependencyMissingError{Commands: missing}
	}
	return nil
}
