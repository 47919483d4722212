package orchestrator

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-engine/internal/blueprint"
	"github.com/spec-kit/provisioning-engine/internal/domain"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

type recordedCall struct {
	dir  string
	args []string
}

type fakeRunner struct {
	calls  []recordedCall
	stdout string
	stderr string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, dir string, args ...string) (string, string, error) {
	f.calls = append(f.calls, recordedCall{dir: dir, args: args})
	return f.stdout, f.stderr, f.err
}

// realExitError produces a genuine *exec.ExitError the way a failed CLI
// invocation would.
func realExitError(t *testing.T) error {
	t.Helper()
	err := exec.Command("false").Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	return err
}

func newTestOrchestrator(t *testing.T, runner Runner) (*ComposeOrchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	return NewComposeOrchestrator(runner, dir, time.Minute, time.Minute, zap.NewNop()), dir
}

func testDescriptor(dir string) *blueprint.Descriptor {
	return &blueprint.Descriptor{
		TenantName: "shoes",
		Project:    "tenant-shoes",
		Version:    2,
		Dir:        filepath.Join(dir, "shoes"),
		Files: map[string][]byte{
			"docker-compose.yml": []byte("services: {}\n"),
			".env":               []byte("DB_PASSWORD=secret\n"),
			"html/index.html":    []byte("<html></html>\n"),
		},
	}
}

func TestApplyWritesDescriptorAndRunsUp(t *testing.T) {
	runner := &fakeRunner{}
	orch, dir := newTestOrchestrator(t, runner)
	desc := testDescriptor(dir)

	require.NoError(t, orch.Apply(context.Background(), desc))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, desc.Dir, runner.calls[0].dir)
	assert.Equal(t, []string{"compose", "up", "-d", "--remove-orphans"}, runner.calls[0].args)

	for name, want := range desc.Files {
		path := filepath.Join(desc.Dir, name)
		got, err := os.ReadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "%s must not be world-readable", name)
	}

	info, err := os.Stat(desc.Dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestApplyDaemonUnreachableIsUnavailable(t *testing.T) {
	runner := &fakeRunner{
		stderr: "Cannot connect to the Docker daemon at unix:///var/run/docker.sock",
		err:    realExitError(t),
	}
	orch, dir := newTestOrchestrator(t, runner)

	err := orch.Apply(context.Background(), testDescriptor(dir))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeOrchestratorUnavailable))
	assert.True(t, apperrors.Unavailable(err))
}

func TestApplyRuntimeRefusalIsRejected(t *testing.T) {
	runner := &fakeRunner{
		stderr: `pull access denied for medusa, repository does not exist`,
		err:    realExitError(t),
	}
	orch, dir := newTestOrchestrator(t, runner)

	err := orch.Apply(context.Background(), testDescriptor(dir))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeOrchestratorRejected))
	assert.False(t, apperrors.Unavailable(err), "a refusal must not be retried")
}

func TestApplyContextDeadlineIsUnavailable(t *testing.T) {
	runner := &fakeRunner{err: context.DeadlineExceeded}
	orch, dir := newTestOrchestrator(t, runner)

	err := orch.Apply(context.Background(), testDescriptor(dir))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeOrchestratorUnavailable))
}

func TestApplyMissingBinaryIsUnavailable(t *testing.T) {
	runner := &fakeRunner{err: errors.New(`exec: "docker": executable file not found in $PATH`)}
	orch, dir := newTestOrchestrator(t, runner)

	err := orch.Apply(context.Background(), testDescriptor(dir))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeOrchestratorUnavailable))
}

func TestRemoveAbsentStackSucceeds(t *testing.T) {
	runner := &fakeRunner{}
	orch, _ := newTestOrchestrator(t, runner)

	require.NoError(t, orch.Remove(context.Background(), "never-created"))
	assert.Empty(t, runner.calls, "no runtime call for an absent stack")
}

func TestRemoveTakesStackDownAndDeletesDir(t *testing.T) {
	runner := &fakeRunner{}
	orch, dir := newTestOrchestrator(t, runner)
	desc := testDescriptor(dir)
	require.NoError(t, orch.Apply(context.Background(), desc))

	require.NoError(t, orch.Remove(context.Background(), "shoes"))

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"compose", "down", "-v"}, runner.calls[1].args)
	_, err := os.Stat(desc.Dir)
	assert.True(t, os.IsNotExist(err), "descriptor directory must be gone")
}

func TestStopWithoutStackIsRejected(t *testing.T) {
	runner := &fakeRunner{}
	orch, _ := newTestOrchestrator(t, runner)

	err := orch.Stop(context.Background(), "never-created")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeOrchestratorRejected))
}

func TestStartAfterStopUsesTenantDir(t *testing.T) {
	runner := &fakeRunner{}
	orch, dir := newTestOrchestrator(t, runner)
	require.NoError(t, orch.Apply(context.Background(), testDescriptor(dir)))

	require.NoError(t, orch.Stop(context.Background(), "shoes"))
	require.NoError(t, orch.Start(context.Background(), "shoes"))

	require.Len(t, runner.calls, 3)
	assert.Equal(t, []string{"compose", "stop"}, runner.calls[1].args)
	assert.Equal(t, []string{"compose", "start"}, runner.calls[2].args)
	assert.Equal(t, filepath.Join(dir, "shoes"), runner.calls[2].dir)
}

func TestLogsAbsentStack(t *testing.T) {
	runner := &fakeRunner{}
	orch, _ := newTestOrchestrator(t, runner)

	lines, present, err := orch.Logs(context.Background(), "never-created", 50)
	require.NoError(t, err)
	assert.False(t, present)
	assert.Nil(t, lines)
	assert.Empty(t, runner.calls)
}

func TestLogsSplitsLinesAndPassesTail(t *testing.T) {
	runner := &fakeRunner{stdout: "medusa-shoes | booting\nmedusa-shoes | listening on 9000\n"}
	orch, dir := newTestOrchestrator(t, runner)
	require.NoError(t, orch.Apply(context.Background(), testDescriptor(dir)))

	lines, present, err := orch.Logs(context.Background(), "shoes", 25)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, []string{"medusa-shoes | booting", "medusa-shoes | listening on 9000"}, lines)
	assert.Equal(t, []string{"compose", "logs", "--no-color", "--tail", "25"}, runner.calls[1].args)
}

func TestLogsStoppedStackStillPresent(t *testing.T) {
	runner := &fakeRunner{}
	orch, dir := newTestOrchestrator(t, runner)
	require.NoError(t, orch.Apply(context.Background(), testDescriptor(dir)))
	require.NoError(t, orch.Stop(context.Background(), "shoes"))

	_, present, err := orch.Logs(context.Background(), "shoes", 10)
	require.NoError(t, err)
	assert.True(t, present, "presence reflects the descriptor directory, not container state")
}

func TestLogsDefaultsTail(t *testing.T) {
	runner := &fakeRunner{}
	orch, dir := newTestOrchestrator(t, runner)
	require.NoError(t, orch.Apply(context.Background(), testDescriptor(dir)))

	_, _, err := orch.Logs(context.Background(), "shoes", 0)
	require.NoError(t, err)
	assert.Contains(t, runner.calls[1].args, "100")
}

func TestPing(t *testing.T) {
	runner := &fakeRunner{}
	orch, _ := newTestOrchestrator(t, runner)

	require.NoError(t, orch.Ping(context.Background()))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"version"}, runner.calls[0].args)
}

func TestPingRuntimeDown(t *testing.T) {
	runner := &fakeRunner{err: errors.New("dial unix /var/run/docker.sock: connection refused")}
	orch, _ := newTestOrchestrator(t, runner)

	err := orch.Ping(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeOrchestratorUnavailable))
}

func TestStatusAbsentStackIsEmpty(t *testing.T) {
	runner := &fakeRunner{}
	orch, _ := newTestOrchestrator(t, runner)

	states, err := orch.Status(context.Background(), "never-created")
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestStatusParsesComposeOutput(t *testing.T) {
	runner := &fakeRunner{stdout: `{"Service":"medusa","State":"running"}
{"Service":"redis","State":"exited"}
`}
	orch, dir := newTestOrchestrator(t, runner)
	require.NoError(t, orch.Apply(context.Background(), testDescriptor(dir)))

	states, err := orch.Status(context.Background(), "shoes")
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.ServiceState{
		"medusa": domain.ServiceRunning,
		"redis":  domain.ServiceExited,
	}, states)
}

func TestParsePSOutput(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   map[string]domain.ServiceState
	}{
		{
			name:   "empty output",
			stdout: "",
			want:   map[string]domain.ServiceState{},
		},
		{
			name:   "single running service",
			stdout: `{"Service":"ghost","State":"running"}`,
			want:   map[string]domain.ServiceState{"ghost": domain.ServiceRunning},
		},
		{
			name: "mixed states with blank and garbage lines",
			stdout: `{"Service":"medusa","State":"restarting"}

not json at all
{"Service":"redis","State":"paused"}`,
			want: map[string]domain.ServiceState{
				"medusa": domain.ServiceRestarting,
				"redis":  domain.ServiceStopped,
			},
		},
		{
			name:   "unknown state string",
			stdout: `{"Service":"ghost","State":"levitating"}`,
			want:   map[string]domain.ServiceState{"ghost": domain.ServiceUnknown},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parsePSOutput(tc.stdout))
		})
	}
}

func TestMapState(t *testing.T) {
	assert.Equal(t, domain.ServiceRunning, mapState("Up"))
	assert.Equal(t, domain.ServiceStopped, mapState("created"))
	assert.Equal(t, domain.ServiceExited, mapState("dead"))
	assert.Equal(t, domain.ServiceUnknown, mapState(""))
}
