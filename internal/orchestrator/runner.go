package orchestrator

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner executes a container-runtime CLI command inside a tenant directory.
// It is an interface so tests can fake the runtime and a future direct-API
// adapter can replace the CLI without touching the workflow.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct {
	binary string
}

// NewExecRunner runs commands through the given binary (normally "docker").
func NewExecRunner(binary string) Runner {
	return &execRunner{binary: binary}
}

func (r *execRunner) Run(ctx context.Context, dir string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
