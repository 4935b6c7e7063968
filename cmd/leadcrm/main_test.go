package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadcrm/internal/config"
	"leadcrm/pkg/domain"
)

type harness struct {
	t   *testing.T
	dir string
	env string
}

func newHarness(t *testing.T, driver string) *harness {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{
		config.EnvStateKey, config.EnvPostgresDSN, config.EnvRedisURL,
		config.EnvS3Bucket, config.EnvS3Region, config.EnvS3Endpoint, config.EnvS3Prefix,
		config.EnvS3PathStyle, config.EnvS3AccessKeyID, config.EnvS3SecretAccessKey,
		config.EnvS3SessionToken, config.EnvStageRemovalPolicy, config.EnvLogLevel,
		config.EnvLogFormat, config.EnvLogFile, config.EnvMetrics,
	} {
		t.Setenv(key, "")
	}
	t.Setenv(config.EnvStorageDriver, driver)
	t.Setenv(config.EnvSQLitePath, filepath.Join(dir, "crm.db"))
	t.Setenv(config.EnvFilePath, filepath.Join(dir, "data"))
	return &harness{t: t, dir: dir, env: filepath.Join(dir, "missing.env")}
}

func (h *harness) run(args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	code := cli(append([]string{"-env", h.env}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	code, out, errOut := h.run(args...)
	require.Equal(h.t, 0, code, "leadcrm %v failed: %s", args, errOut)
	return out
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t, "memory")
	for _, args := range [][]string{
		{},
		{"bogus"},
		{"leads"},
		{"leads", "frobnicate"},
		{"leads", "move", "-id", "x"},
		{"stages", "remove", "one"},
		{"rules", "add", "vip"},
		{"tasks", "list", "extra"},
		{"leads", "list", "-nope"},
		{"leads", "edit", "-name", "x"},
		{"clients", "delete"},
		{"campaigns", "edit", "-id", "x", "extra"},
	} {
		code, _, _ := h.run(args...)
		assert.Equal(t, 2, code, "args %v", args)
	}

	var stderr bytes.Buffer
	assert.Equal(t, 2, cli([]string{"-bogus-flag"}, &bytes.Buffer{}, &stderr))
}

func TestLeadLifecycleSQLite(t *testing.T) {
	h := newHarness(t, "sqlite")

	id := strings.TrimSpace(h.mustRun("leads", "add", "-name", "Ada Lovelace", "-email", "ada@example.com", "-source", "web", "-tags", "vip, math"))
	require.NotEmpty(t, id)
	h.mustRun("rules", "add", "vip", "10")
	h.mustRun("rules", "add", "web", "five")

	list := h.mustRun("leads", "list")
	assert.Contains(t, list, "Ada Lovelace")
	assert.Contains(t, list, "vip,math")
	assert.Contains(t, h.mustRun("rules", "list"), "1\tweb\t0")

	h.mustRun("leads", "move", "-id", id, "-stage", "Qualified")
	pipeline := h.mustRun("pipeline")
	assert.Contains(t, pipeline, "Qualified (1)")
	assert.Contains(t, pipeline, "score=10")

	assert.Contains(t, h.mustRun("leads", "list", "-status", "Qualified", "-q", "ADA@"), id)
	assert.NotContains(t, h.mustRun("leads", "list", "-status", "New"), id)

	code, _, errOut := h.run("leads", "move", "-id", id, "-stage", "Nowhere")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Nowhere")

	var exported []domain.Lead
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("leads", "export")), &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "Qualified", exported[0].Status)

	h.mustRun("leads", "delete", "-id", id)
	h.mustRun("leads", "delete", "-id", id)
	assert.NotContains(t, h.mustRun("leads", "list"), id)
}

func TestImportExportFiles(t *testing.T) {
	h := newHarness(t, "file")
	in := filepath.Join(h.dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(`[{"id":"l1","name":"Imported","status":"New","tags":[]}]`), 0o600))
	assert.Equal(t, "imported 1 leads\n", h.mustRun("leads", "import", "-file", in))

	out := filepath.Join(h.dir, "out.json")
	h.mustRun("leads", "export", "-out", out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {\n"), "unexpected export %q", data)

	bad := filepath.Join(h.dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{}`), 0o600))
	code, _, errOut := h.run("leads", "import", "-file", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "import leads")
	assert.Contains(t, h.mustRun("leads", "list"), "Imported")

	code, _, _ = h.run("leads", "import", "-file", filepath.Join(h.dir, "absent.json"))
	assert.Equal(t, 1, code)
}

func TestStagesCommands(t *testing.T) {
	h := newHarness(t, "file")
	h.mustRun("stages", "add", "Nurture")
	stages := h.mustRun("stages", "list")
	assert.Contains(t, stages, "0\tNew\n")
	assert.Contains(t, stages, "6\tNurture\n")

	id := strings.TrimSpace(h.mustRun("leads", "add", "-name", "Bob", "-status", "Nurture"))
	h.mustRun("stages", "remove", "6")
	assert.NotContains(t, h.mustRun("stages", "list"), "Nurture")

	pipeline := h.mustRun("pipeline")
	assert.Contains(t, pipeline, "removed stages (1)")
	assert.Contains(t, pipeline, id)
}

func TestForbidPolicyFromEnvironment(t *testing.T) {
	h := newHarness(t, "sqlite")
	t.Setenv(config.EnvStageRemovalPolicy, "forbid")
	h.mustRun("leads", "add", "-name", "Bob")
	code, _, errOut := h.run("stages", "remove", "0")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "still referenced")
}

func TestTasksClientsCampaignsAndDashboard(t *testing.T) {
	h := newHarness(t, "sqlite")
	taskID := strings.TrimSpace(h.mustRun("tasks", "add", "-title", "Call Ada", "-priority", "High"))
	assert.Equal(t, "Done\n", h.mustRun("tasks", "toggle", "-id", taskID))
	assert.Contains(t, h.mustRun("tasks", "list"), "Call Ada")

	code, _, _ := h.run("tasks", "add", "-title", "Bad", "-priority", "Urgent")
	assert.Equal(t, 1, code)
	code, _, _ = h.run("tasks", "toggle", "-id", "missing")
	assert.Equal(t, 1, code)

	h.mustRun("clients", "add", "-name", "Acme", "-company", "Acme Corp", "-value", "1000")
	assert.Contains(t, h.mustRun("clients", "list"), "Acme Corp")
	h.mustRun("campaigns", "add", "-name", "Launch", "-start", "2026-11-01")
	assert.Contains(t, h.mustRun("campaigns", "list"), "Launch")

	dashboard := h.mustRun("dashboard")
	assert.Contains(t, dashboard, "Clients:")
	assert.Contains(t, dashboard, "Open tasks:  0")
	assert.Contains(t, dashboard, "Campaigns:   1")
}

func TestEditAndDeleteCommands(t *testing.T) {
	h := newHarness(t, "sqlite")

	leadID := strings.TrimSpace(h.mustRun("leads", "add", "-name", "Ada", "-email", "ada@example.com"))
	h.mustRun("leads", "edit", "-id", leadID, "-name", "Ada King", "-tags", "vip, math")
	list := h.mustRun("leads", "list")
	assert.Contains(t, list, "Ada King")
	assert.Contains(t, list, "ada@example.com")
	assert.Contains(t, list, "vip,math")
	code, _, _ := h.run("leads", "edit", "-id", leadID, "-status", "Nowhere")
	assert.Equal(t, 1, code)
	code, _, _ = h.run("leads", "edit", "-id", "missing", "-name", "X")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.mustRun("leads", "list", "-status", "New"), leadID)

	taskID := strings.TrimSpace(h.mustRun("tasks", "add", "-title", "Call Ada", "-priority", "Low"))
	h.mustRun("tasks", "edit", "-id", taskID, "-priority", "High", "-status", "Done")
	tasks := h.mustRun("tasks", "list")
	assert.Contains(t, tasks, "Call Ada")
	assert.Contains(t, tasks, "High")
	assert.Contains(t, tasks, "Done")
	code, _, _ = h.run("tasks", "edit", "-id", taskID, "-priority", "Urgent")
	assert.Equal(t, 1, code)
	h.mustRun("tasks", "delete", "-id", taskID)
	assert.NotContains(t, h.mustRun("tasks", "list"), taskID)

	clientID := strings.TrimSpace(h.mustRun("clients", "add", "-name", "Acme", "-company", "Acme Corp"))
	h.mustRun("clients", "edit", "-id", clientID, "-company", "Acme Ltd")
	clients := h.mustRun("clients", "list")
	assert.Contains(t, clients, "Acme Ltd")
	assert.NotContains(t, clients, "Acme Corp")
	code, _, _ = h.run("clients", "edit", "-id", clientID, "-name", "")
	assert.Equal(t, 1, code)
	h.mustRun("clients", "delete", "-id", clientID)
	h.mustRun("clients", "delete", "-id", clientID)
	assert.NotContains(t, h.mustRun("clients", "list"), clientID)

	campaignID := strings.TrimSpace(h.mustRun("campaigns", "add", "-name", "Launch", "-start", "2026-11-01"))
	h.mustRun("campaigns", "edit", "-id", campaignID, "-end", "2026-12-01")
	campaigns := h.mustRun("campaigns", "list")
	assert.Contains(t, campaigns, "2026-11-01")
	assert.Contains(t, campaigns, "2026-12-01")
	h.mustRun("campaigns", "delete", "-id", campaignID)
	assert.NotContains(t, h.mustRun("campaigns", "list"), campaignID)
}

func TestMetricsTraceAndAuditFlags(t *testing.T) {
	h := newHarness(t, "memory")
	code, _, errOut := h.run("-metrics", "-trace", "-audit", "leads", "add", "-name", "Ada")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, `leadcrm_service_operations_total{operation="create_lead",status="success"} 1`)
	assert.Contains(t, errOut, `"operation":"create_lead"`)
	assert.Contains(t, errOut, "audit")
}

func TestExpvarMetricsBackend(t *testing.T) {
	h := newHarness(t, "memory")
	t.Setenv(config.EnvMetrics, "expvar")
	code, _, errOut := h.run("-metrics", "leads", "add", "-name", "Ada")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, `"results_total":{"create_lead":{"success":1}}`)
	assert.NotContains(t, errOut, "leadcrm_service_operations_total")
}

func TestCorruptStateRecovers(t *testing.T) {
	h := newHarness(t, "file")
	require.NoError(t, os.MkdirAll(filepath.Join(h.dir, "data"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "data", config.DefaultStateKey+".json"), []byte("not json"), 0o600))

	code, out, errOut := h.run("dashboard")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "warning:")
	assert.Contains(t, out, "Leads:")
	assert.Contains(t, h.mustRun("stages", "list"), "0\tNew")
}

func TestConfigErrorExitsOne(t *testing.T) {
	h := newHarness(t, "bogus")
	code, _, errOut := h.run("dashboard")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "config:")
}

func TestMainUsesExitFunc(t *testing.T) {
	newHarness(t, "memory")
	var got int
	prevExit, prevArgs := exitFunc, os.Args
	t.Cleanup(func() { exitFunc, os.Args = prevExit, prevArgs })
	exitFunc = func(code int) { got = code }
	os.Args = []string{"leadcrm", "stages", "list", "extra"}
	main()
	assert.Equal(t, 2, got)
}
