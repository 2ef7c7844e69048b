package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a config file pointing at a database in a temp dir.
type testEnv struct {
	t       *testing.T
	cfgPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "database:\n  path: " + filepath.Join(dir, "gtx.db") + "\n" +
		"logging:\n  level: error\n" +
		"checkpoint:\n  auto: false\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return &testEnv{t: t, cfgPath: cfgPath}
}

// run executes the root command and returns its standard output.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	viper.Reset()
	t := e.t
	t.Cleanup(viper.Reset)

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--config", e.cfgPath}, args...))

	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "gtx %s", strings.Join(args, " "))
	return out
}

var idPattern = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

func createdID(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, "no ID in %q", out)
	return m[1]
}

func TestVersionCmd(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, "gtx dev\n", env.mustRun("version"))
}

func TestUsersAddAndList(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("users", "add", "--id", "ana", "--name", "Ana Souza", "--role", "admin")
	assert.Contains(t, out, "Saved profile Ana Souza (ana)")
	env.mustRun("users", "add", "--id", "bia", "--name", "Bia Lima")

	out = env.mustRun("users", "list")
	assert.Contains(t, out, "Ana Souza")
	assert.Contains(t, out, "Bia Lima")

	out = env.mustRun("users", "list", "--role", "admin")
	assert.Contains(t, out, "Ana Souza")
	assert.NotContains(t, out, "Bia Lima")
}

func TestLedgerUpdatesBalanceAndQuotation(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("users", "add", "--id", "u1", "--name", "Carla")

	out := env.mustRun("finance", "record", "01/2024", "50000")
	assert.Contains(t, out, "01/2024 quotation 1.0500")

	out = env.mustRun("tx", "add", "--user", "u1", "--date", "2024-01-10", "--type", "credit", "--amount", "1000", "--reason", "Onboarding")
	assert.Contains(t, out, "u1 1000")
	assert.Contains(t, out, "1 written")

	out = env.mustRun("finance", "list")
	assert.Contains(t, out, "1.0490")

	out = env.mustRun("tx", "list", "--user", "u1")
	assert.Contains(t, out, "Onboarding")

	out = env.mustRun("maintenance", "balance", "u1")
	assert.Contains(t, out, "u1 balance: 1000 GTXips")

	out = env.mustRun("finance", "overview", "--year", "2024")
	assert.Contains(t, out, "02/2024")
	assert.Contains(t, out, "pending")
}

func TestFinanceRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("finance", "record", "13/2024", "1000")
	assert.Error(t, err)

	_, err = env.run("finance", "record", "01/2024", "-5")
	assert.Error(t, err)
}

func TestActivityApprovalFlow(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("users", "add", "--id", "boss", "--name", "Admin", "--role", "admin")
	env.mustRun("users", "add", "--id", "u1", "--name", "Dani")

	ruleID := createdID(t, env.mustRun("rules", "add", "--category", "Curso concluído", "--value", "50", "--self-service"))

	out := env.mustRun("activities", "submit", "--user", "u1", "--rule", ruleID, "--date", "2024-05-02")
	assert.Contains(t, out, "awaiting review")

	out = env.mustRun("activities", "list", "--status", "pendente")
	assert.Contains(t, out, "u1")
	fields := strings.Fields(strings.Split(strings.TrimSpace(out), "\n")[1])
	activityID := fields[0]

	_, err := env.run("activities", "approve", activityID, "--reviewer", "u1")
	assert.Error(t, err)

	out = env.mustRun("activities", "approve", activityID, "--reviewer", "boss")
	assert.Contains(t, out, "u1 50")

	out = env.mustRun("notifications", "list", "u1", "--unread")
	assert.NotContains(t, out, "No notifications.")
}

func TestMaintenanceResync(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("users", "add", "--id", "u1", "--name", "Eva")
	env.mustRun("tx", "add", "--user", "u1", "--date", "2024-01-10", "--type", "credito", "--amount", "10")

	out := env.mustRun("maintenance", "resync")
	assert.Contains(t, out, "Resynced 1 profiles, 0 corrected")
}

func TestMigrateStatus(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("migrate")

	out := env.mustRun("migrate", "--status")
	assert.Contains(t, out, "Current version: 4")
	assert.Contains(t, out, "Latest version:  4")
}

func TestCheckpointLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("users", "add", "--id", "u1", "--name", "Fabi")

	out := env.mustRun("checkpoint", "create", "--tag", "before", "--description", "test")
	assert.Contains(t, out, "Created checkpoint before")

	env.mustRun("users", "delete", "u1")

	out = env.mustRun("checkpoint", "restore", "before", "--force")
	assert.Contains(t, out, "Restored from checkpoint before")
	assert.Contains(t, env.mustRun("users", "list"), "Fabi")

	out = env.mustRun("checkpoint", "list")
	assert.Contains(t, out, "before")

	env.mustRun("checkpoint", "delete", "before")
	assert.Contains(t, env.mustRun("checkpoint", "list"), "No checkpoints found.")
}

func TestParsePeriodArg(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "03/2024", want: "03/2024"},
		{in: "2024-03", want: "03/2024"},
		{in: "3/2024", want: "03/2024"},
		{in: "202403", wantErr: true},
		{in: "13/2024", wantErr: true},
		{in: "03/abcd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := parsePeriodArg(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.5 KB", formatFileSize(1536))
	assert.Equal(t, "2.0 MB", formatFileSize(2*1024*1024))
}
