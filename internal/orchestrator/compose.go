package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-engine/internal/blueprint"
	"github.com/spec-kit/provisioning-engine/internal/domain"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

// ComposeOrchestrator drives tenant stacks through the compose CLI.
type ComposeOrchestrator struct {
	runner        Runner
	tenantsDir    string
	applyTimeout  time.Duration
	removeTimeout time.Duration
	logger        *zap.Logger
}

// NewComposeOrchestrator builds the adapter.
func NewComposeOrchestrator(runner Runner, tenantsDir string, applyTimeout, removeTimeout time.Duration, logger *zap.Logger) *ComposeOrchestrator {
	return &ComposeOrchestrator{
		runner:        runner,
		tenantsDir:    tenantsDir,
		applyTimeout:  applyTimeout,
		removeTimeout: removeTimeout,
		logger:        logger,
	}
}

func (o *ComposeOrchestrator) tenantDir(name string) string {
	return filepath.Join(o.tenantsDir, name)
}

// Apply writes the descriptor and brings the stack up. compose up -d is
// already reconciling: unchanged services are left alone, changed ones are
// recreated in place.
func (o *ComposeOrchestrator) Apply(ctx context.Context, desc *blueprint.Descriptor) error {
	if err := writeDescriptor(desc); err != nil {
		return apperrors.NewFatal(fmt.Sprintf("write descriptor for tenant %q", desc.TenantName), err)
	}

	ctx, cancel := withTimeout(ctx, o.applyTimeout)
	defer cancel()

	_, stderr, err := o.runner.Run(ctx, desc.Dir, "compose", "up", "-d", "--remove-orphans")
	if err != nil {
		return o.mapRunError("apply", desc.TenantName, stderr, err)
	}
	o.logger.Info("tenant stack applied",
		zap.String("tenant", desc.TenantName), zap.Int("blueprint_version", desc.Version))
	return nil
}

// Stop halts containers. Volumes survive a stop.
func (o *ComposeOrchestrator) Stop(ctx context.Context, tenantName string) error {
	dir := o.tenantDir(tenantName)
	if !dirExists(dir) {
		return apperrors.NewOrchestratorRejected(
			fmt.Sprintf("tenant %q has no stack directory", tenantName),
			map[string]any{"tenant": tenantName},
		)
	}
	_, stderr, err := o.runner.Run(ctx, dir, "compose", "stop")
	if err != nil {
		return o.mapRunError("stop", tenantName, stderr, err)
	}
	return nil
}

// Start resumes stopped containers.
func (o *ComposeOrchestrator) Start(ctx context.Context, tenantName string) error {
	dir := o.tenantDir(tenantName)
	if !dirExists(dir) {
		return apperrors.NewOrchestratorRejected(
			fmt.Sprintf("tenant %q has no stack directory", tenantName),
			map[string]any{"tenant": tenantName},
		)
	}
	_, stderr, err := o.runner.Run(ctx, dir, "compose", "start")
	if err != nil {
		return o.mapRunError("start", tenantName, stderr, err)
	}
	return nil
}

// Remove takes the stack down with its anonymous volumes and deletes the
// descriptor directory. An already-absent stack is success.
func (o *ComposeOrchestrator) Remove(ctx context.Context, tenantName string) error {
	dir := o.tenantDir(tenantName)
	if !dirExists(dir) {
		o.logger.Info("tenant stack already absent", zap.String("tenant", tenantName))
		return nil
	}

	ctx, cancel := withTimeout(ctx, o.removeTimeout)
	defer cancel()

	_, stderr, err := o.runner.Run(ctx, dir, "compose", "down", "-v")
	if err != nil {
		return o.mapRunError("remove", tenantName, stderr, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return apperrors.NewFatal(fmt.Sprintf("remove descriptor directory for tenant %q", tenantName), err)
	}
	o.logger.Info("tenant stack removed", zap.String("tenant", tenantName))
	return nil
}

// Logs returns the most recent log lines. An absent stack yields no lines and
// present=false without an error; a suspended stack is still present.
func (o *ComposeOrchestrator) Logs(ctx context.Context, tenantName string, maxLines int) ([]string, bool, error) {
	dir := o.tenantDir(tenantName)
	if !dirExists(dir) {
		return nil, false, nil
	}
	if maxLines <= 0 {
		maxLines = 100
	}
	stdout, stderr, err := o.runner.Run(ctx, dir, "compose", "logs", "--no-color", "--tail", strconv.Itoa(maxLines))
	if err != nil {
		return nil, false, o.mapRunError("logs", tenantName, stderr, err)
	}

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}
	return lines, true, nil
}

// Ping verifies the container runtime answers at all. Used by readiness
// probes; tenant operations classify failures themselves.
func (o *ComposeOrchestrator) Ping(ctx context.Context) error {
	// Runs outside any tenant dir; the tenants dir may not exist yet at startup.
	if _, _, err := o.runner.Run(ctx, "", "version"); err != nil {
		return apperrors.NewOrchestratorUnavailable("container runtime unreachable", err)
	}
	return nil
}

// Status reports per-service state from compose ps.
func (o *ComposeOrchestrator) Status(ctx context.Context, tenantName string) (map[string]domain.ServiceState, error) {
	dir := o.tenantDir(tenantName)
	if !dirExists(dir) {
		return map[string]domain.ServiceState{}, nil
	}
	stdout, stderr, err := o.runner.Run(ctx, dir, "compose", "ps", "--all", "--format", "json")
	if err != nil {
		return nil, o.mapRunError("status", tenantName, stderr, err)
	}
	return parsePSOutput(stdout), nil
}

// psEntry is the subset of compose ps json output the adapter needs.
type psEntry struct {
	Service string `json:"Service"`
	State   string `json:"State"`
}

// parsePSOutput handles compose's line-delimited json. Unparseable lines are
// reported as unknown rather than dropped.
func parsePSOutput(stdout string) map[string]domain.ServiceState {
	states := map[string]domain.ServiceState{}
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry psEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil || entry.Service == "" {
			continue
		}
		states[entry.Service] = mapState(entry.State)
	}
	return states
}

func mapState(raw string) domain.ServiceState {
	switch strings.ToLower(raw) {
	case "running", "up":
		return domain.ServiceRunning
	case "paused", "stopped", "created":
		return domain.ServiceStopped
	case "restarting":
		return domain.ServiceRestarting
	case "exited", "dead":
		return domain.ServiceExited
	default:
		return domain.ServiceUnknown
	}
}

// mapRunError classifies a failed runtime call. A refusal from a reachable
// daemon is Rejected; a missing binary, cancelled context, or unreachable
// socket is Unavailable.
func (o *ComposeOrchestrator) mapRunError(op, tenantName, stderr string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewOrchestratorUnavailable(
			fmt.Sprintf("%s timed out for tenant %q", op, tenantName), err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if daemonUnreachable(stderr) {
			return apperrors.NewOrchestratorUnavailable(
				fmt.Sprintf("container runtime unreachable during %s for tenant %q", op, tenantName), err)
		}
		return apperrors.NewOrchestratorRejected(
			fmt.Sprintf("%s rejected by container runtime for tenant %q", op, tenantName),
			map[string]any{"tenant": tenantName, "stderr": strings.TrimSpace(stderr)},
		)
	}

	return apperrors.NewOrchestratorUnavailable(
		fmt.Sprintf("container runtime unavailable during %s for tenant %q", op, tenantName), err)
}

func daemonUnreachable(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "cannot connect to the docker daemon") ||
		strings.Contains(s, "error during connect") ||
		strings.Contains(s, "connection refused")
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// writeDescriptor lays the descriptor files down atomically enough for compose:
// directories 0700, files 0600 since the env file carries the DB password.
func writeDescriptor(desc *blueprint.Descriptor) error {
	if err := os.MkdirAll(desc.Dir, 0o700); err != nil {
		return err
	}
	for name, content := range desc.Files {
		path := filepath.Join(desc.Dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return err
		}
		if err := os.WriteFile(path, content, 0o600); err != nil {
			return err
		}
	}
	return nil
}
