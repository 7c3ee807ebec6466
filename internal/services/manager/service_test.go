package manager

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/models"
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/creds"
)

const testCheck = "fmos.health.checks.basic.LoadAvgCheck"

// Mock implementations.
type mockAPIClient struct {
	loginFunc     func(ctx context.Context, username, password string) error
	configGetFunc func(ctx context.Context, category string) map[string]any
	configPutFunc func(ctx context.Context, category string, payload map[string]any) error
	applyFunc     func(ctx context.Context) error

	putCalls   []string
	applyCalls int
}

func (m *mockAPIClient) Login(ctx context.Context, username, password string) error {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, username, password)
	}
	return nil
}

func (m *mockAPIClient) Authenticate(ctx context.Context, credentials models.Credentials) error {
	if credentials.IsZero() {
		return nil
	}
	return m.Login(ctx, credentials.Username, credentials.Password)
}

func (m *mockAPIClient) ConfigGet(ctx context.Context, category string) map[string]any {
	if m.configGetFunc != nil {
		return m.configGetFunc(ctx, category)
	}
	return map[string]any{}
}

func (m *mockAPIClient) ConfigPut(ctx context.Context, category string, payload map[string]any) error {
	m.putCalls = append(m.putCalls, category)
	if m.configPutFunc != nil {
		return m.configPutFunc(ctx, category, payload)
	}
	return nil
}

func (m *mockAPIClient) Apply(ctx context.Context) error {
	m.applyCalls++
	if m.applyFunc != nil {
		return m.applyFunc(ctx)
	}
	return nil
}

type mockCronService struct {
	entry        string
	hasEntry     bool
	installErr   error
	removeErr    error
	installCalls int
	removeCalls  int
	syncCalls    int
}

func (m *mockCronService) CurrentEntry(ctx context.Context) (string, bool) {
	return m.entry, m.hasEntry
}

func (m *mockCronService) SyncIfNeeded(ctx context.Context, sched models.BackupSchedule) {
	m.syncCalls++
}

func (m *mockCronService) Install(ctx context.Context, sched models.BackupSchedule) error {
	m.installCalls++
	return m.installErr
}

func (m *mockCronService) Remove(ctx context.Context) error {
	m.removeCalls++
	return m.removeErr
}

type mockHealthService struct {
	disabled    bool
	enableErr   error
	enableCalls []bool // recorded wait arguments
}

func (m *mockHealthService) Disable(ctx context.Context) error { return nil }

func (m *mockHealthService) Enable(ctx context.Context, wait bool) error {
	m.enableCalls = append(m.enableCalls, wait)
	return m.enableErr
}

func (m *mockHealthService) IsDisabled(ctx context.Context) bool { return m.disabled }

type mockPrompter struct {
	err   error
	calls int
}

func (m *mockPrompter) Run(ctx context.Context, defaultUser string) error {
	m.calls++
	return m.err
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testCredentials() models.Credentials {
	return models.Credentials{Username: "admin", Password: "pw"}
}

func testConfig(t *testing.T) models.ManagerConfig {
	t.Helper()
	return models.ManagerConfig{
		ScriptPath: "/opt/fmos/loadavg-manager",
		CredsFile:  filepath.Join(t.TempDir(), ".fmos_api_creds"),
		CheckName:  testCheck,
		APIBaseURL: "https://localhost:55555/api",
		AdminUser:  "admin",
	}
}

type fixture struct {
	svc      *Impl
	client   *mockAPIClient
	cron     *mockCronService
	health   *mockHealthService
	store    *creds.Store
	prompter *mockPrompter
	out      *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig(t)
	f := &fixture{
		client:   &mockAPIClient{},
		cron:     &mockCronService{},
		health:   &mockHealthService{},
		prompter: &mockPrompter{},
		out:      &bytes.Buffer{},
	}
	f.store = creds.NewStore(testLogger(), cfg.CredsFile)
	f.svc = NewWithServices(testLogger(), cfg, f.client, f.cron, f.health, f.store, f.prompter, f.out)
	return f
}

func TestSetup_PromptsWhenNoStoredCredentials(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Setup(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, f.prompter.calls)
	assert.Contains(t, f.client.putCalls, "os/backup/post-backup")
	assert.Equal(t, 1, f.cron.installCalls)
}

func TestSetup_ReusesStoredCredentials(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(models.Credentials{Username: "admin", Password: "pw"}))

	err := f.svc.Setup(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, f.prompter.calls)
	assert.Contains(t, f.out.String(), "Using existing API credentials")
}

func TestSetup_AbortsWhenPromptFails(t *testing.T) {
	f := newFixture(t)
	f.prompter.err = errors.New("passwords do not match")

	err := f.svc.Setup(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "credentials required")
	assert.Empty(t, f.client.putCalls, "no remote writes after credential failure")
	assert.Equal(t, 0, f.cron.installCalls)
}

func TestSetup_PostBackupPayloadCoversBothOutcomes(t *testing.T) {
	f := newFixture(t)
	var payload map[string]any
	f.client.configPutFunc = func(ctx context.Context, category string, p map[string]any) error {
		if category == "os/backup/post-backup" {
			payload = p
		}
		return nil
	}

	require.NoError(t, f.svc.Setup(context.Background()))

	post, ok := payload["post_backup"].(map[string]any)
	require.True(t, ok)
	for _, outcome := range []string{"success", "failure"} {
		action, ok := post[outcome].(map[string]any)
		require.True(t, ok, outcome)
		cmds, ok := action["run-command"].([]any)
		require.True(t, ok, outcome)
		require.Len(t, cmds, 1)
		cmd, ok := cmds[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "/opt/fmos/loadavg-manager enable", cmd["command"])
	}
}

func TestSetup_PostBackupPutFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.client.configPutFunc = func(ctx context.Context, category string, p map[string]any) error {
		return errors.New("put rejected")
	}

	err := f.svc.Setup(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 0, f.client.applyCalls, "apply must be skipped when put fails")
	assert.Equal(t, 0, f.cron.installCalls)
}

func TestSetup_CronInstallFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.cron.installErr = errors.New("crontab failed")

	err := f.svc.Setup(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cronjob")
}

func TestCleanup_RemovesEverythingAndForceEnables(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(models.Credentials{Username: "admin", Password: "pw"}))

	err := f.svc.Cleanup(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, f.cron.removeCalls)
	assert.Contains(t, f.client.putCalls, "os/backup/post-backup")
	assert.False(t, f.store.Exists())
	require.Len(t, f.health.enableCalls, 1)
	assert.False(t, f.health.enableCalls[0], "cleanup must enable without the settle wait")
}

func TestCleanup_ContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	f.cron.removeErr = errors.New("crontab failed")
	f.client.configPutFunc = func(ctx context.Context, category string, p map[string]any) error {
		return errors.New("put rejected")
	}
	f.health.enableErr = errors.New("enable failed")

	err := f.svc.Cleanup(context.Background())

	assert.NoError(t, err, "cleanup is best-effort")
	assert.Len(t, f.health.enableCalls, 1, "enable still attempted")
}

func TestUpdateCredentials_Delegates(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.UpdateCredentials(context.Background()))
	assert.Equal(t, 1, f.prompter.calls)

	f.prompter.err = errors.New("login failed")
	assert.Error(t, f.svc.UpdateCredentials(context.Background()))
}
