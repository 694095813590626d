package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/tryonlab/api/internal/config"
)

// RunResult captures a finished child process
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// OK reports a zero exit status.
func (r *RunResult) OK() bool {
	return r.ExitCode == 0
}

// Reconstructor defines the local 3D reconstruction operations
type Reconstructor interface {
	CheckDependencies(ctx context.Context) (*RunResult, error)
	Reconstruct(ctx context.Context, imagePath, outDir string) (*RunResult, error)
}

// PIFuHDRunner shells out to the PIFuHD reconstruction script
type PIFuHDRunner struct {
	pythonPath      string
	scriptPath      string
	dependencyCheck string
	logger          zerolog.Logger
}

// NewPIFuHDRunner creates a runner from configuration
func NewPIFuHDRunner(cfg *config.PIFuHDConfig, logger zerolog.Logger) *PIFuHDRunner {
	check := cfg.DependencyCheck
	if check == "" {
		check = config.DefaultDependencyCheck
	}
	return &PIFuHDRunner{
		pythonPath:      cfg.PythonPath,
		scriptPath:      cfg.ScriptPath,
		dependencyCheck: check,
		logger:          logger.With().Str("component", "pifuhd").Logger(),
	}
}

// CheckDependencies runs the interpreter with the import probe.
func (r *PIFuHDRunner) CheckDependencies(ctx context.Context) (*RunResult, error) {
	return r.run(ctx, nil, "-c", r.dependencyCheck)
}

// Reconstruct runs the script for one image, writing into outDir.
func (r *PIFuHDRunner) Reconstruct(ctx context.Context, imagePath, outDir string) (*RunResult, error) {
	env := append(os.Environ(), "PYTHONIOENCODING=utf-8")
	return r.run(ctx, env, r.scriptPath, "--image", imagePath, "--out", outDir)
}

// run returns an error only when the process could not be started or was
// interrupted by ctx; a non-zero exit is reported through RunResult.
func (r *PIFuHDRunner) run(ctx context.Context, env []string, args ...string) (*RunResult, error) {
	cmd := exec.CommandContext(ctx, r.pythonPath, args...)
	if env != nil {
		cmd.Env = env
	}
	// grandchildren may keep the pipes open after a kill
	cmd.WaitDelay = 2 * time.Second
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", r.pythonPath, err)
	}
	waitErr := cmd.Wait()
	dur := time.Since(start)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	exit := 0
	if waitErr != nil {
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) {
			exit = ee.ExitCode()
		} else {
			return nil, waitErr
		}
	}

	r.logger.Debug().
		Strs("args", args).
		Int("exit_code", exit).
		Dur("duration", dur).
		Msg("process exited")

	return &RunResult{
		ExitCode: exit,
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		Duration: dur,
	}, nil
}
