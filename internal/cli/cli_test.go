package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tablestore/internal/paths"
	"github.com/mesh-intelligence/tablestore/pkg/tableclient"
	"github.com/mesh-intelligence/tablestore/pkg/tablestore"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

type cliEnv struct {
	configDir string
	dataDir   string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
	}
	t.Setenv(paths.EnvConfigDir, "")
	t.Setenv(paths.EnvDataDir, "")
	return env
}

type cliResult struct {
	stdout string
	stderr string
	code   int
}

func (e *cliEnv) run(t *testing.T, args ...string) cliResult {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	code := run(context.Background(), root, full, &stderr)
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	res := e.run(t, args...)
	require.Equal(t, exitSuccess, res.code, "tablestore %s: %s", strings.Join(args, " "), res.stderr)
	return res.stdout
}

func TestCLI_Version(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun(t, "version")
	assert.Contains(t, out, "tablestore v"+tablestore.Version)
	assert.Contains(t, out, tablestore.ModulePath)
}

func TestCLI_Init(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun(t, "init")
	assert.Contains(t, out, "tablestore initialized")

	data, err := os.ReadFile(filepath.Join(env.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")
	assert.Contains(t, string(data), "max_attempts: 1")

	_, err = os.Stat(filepath.Join(env.dataDir, "tables.db"))
	require.NoError(t, err)

	// Init is idempotent and keeps an edited config.
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, "config.yaml"), []byte("backend: sqlite\nlog_level: debug\n"), 0o644))
	env.mustRun(t, "init")
	data, err = os.ReadFile(filepath.Join(env.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "backend: sqlite\nlog_level: debug\n", string(data))
}

func TestCLI_UnknownBackend(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(env.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, "config.yaml"), []byte("backend: cassandra\n"), 0o644))

	res := env.run(t, "table", "list")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "unknown backend")
}

func TestCLI_EnvOverridesConfig(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(env.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, "config.yaml"), []byte("backend: cassandra\n"), 0o644))
	t.Setenv("TABLESTORE_BACKEND", "sqlite")

	env.mustRun(t, "table", "list")
}

func TestCLI_TableLifecycle(t *testing.T) {
	env := newCLIEnv(t)

	assert.Contains(t, env.mustRun(t, "table", "create", "orders"), "created table orders")
	env.mustRun(t, "table", "create", "users")

	res := env.run(t, "table", "create", "orders")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "table already exists")

	assert.Contains(t, env.mustRun(t, "table", "create", "orders", "--if-not-exists"), "already exists")

	assert.Equal(t, "orders\nusers\n", env.mustRun(t, "table", "list"))

	out := env.mustRun(t, "--json", "table", "exists", "orders", "users")
	var exists map[string]bool
	require.NoError(t, json.Unmarshal([]byte(out), &exists))
	assert.Equal(t, map[string]bool{"orders": true, "users": true}, exists)

	res = env.run(t, "table", "exists", "orders", "missing")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stdout, "missing\tfalse")
	assert.Contains(t, res.stdout, "orders\ttrue")

	env.mustRun(t, "table", "delete", "users")
	res = env.run(t, "table", "delete", "users")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, env.mustRun(t, "table", "delete", "users", "--if-exists"), "does not exist")

	res = env.run(t, "table", "create", "x")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "invalid table name")
}

func TestCLI_Entities(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "table", "create", "orders")

	out := env.mustRun(t, "entity", "insert", "orders", "c1", "o1", "--props", `{"Item":"widget","Qty":3,"Paid":false}`)
	assert.Contains(t, out, "insert c1/o1 etag=")

	res := env.run(t, "entity", "insert", "orders", "c1", "o1")
	assert.Equal(t, exitUserError, res.code)

	env.mustRun(t, "entity", "merge", "orders", "c1", "o1", "--props", `{"Qty":4,"Due":{"t":"Edm.DateTime","v":"2026-11-01T00:00:00.000000000Z"}}`)

	var e types.Entity
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "entity", "get", "orders", "c1", "o1")), &e))
	assert.Equal(t, "widget", e.Properties["Item"])
	assert.EqualValues(t, 4, e.Properties["Qty"])
	assert.Equal(t, "2026-11-01T00:00:00Z", e.Properties["Due"])

	res = env.run(t, "entity", "replace", "orders", "c1", "o1", "--etag", "stale", "--props", `{}`)
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "precondition")

	env.mustRun(t, "entity", "upsert", "orders", "c1", "o2", "--props", `{"Qty":1}`)
	env.mustRun(t, "entity", "merge", "orders", "c1", "o3", "--upsert", "--props", `{"Qty":9}`)
	env.mustRun(t, "entity", "delete", "orders", "c1", "o1")

	res = env.run(t, "entity", "get", "orders", "c1", "o1")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "entity not found")

	res = env.run(t, "entity", "insert", "orders", "c1", "o4", "--props", `[1]`)
	assert.Equal(t, exitUserError, res.code)
}

func TestCLI_Query(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "table", "create", "orders")
	for _, rk := range []string{"o1", "o2", "o3"} {
		env.mustRun(t, "entity", "insert", "orders", "c1", rk, "--props", `{"Qty":`+rk[1:]+`}`)
	}

	var all []types.Entity
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "query", "orders", "--filter", "Qty ge 2")), &all))
	require.Len(t, all, 2)
	assert.Equal(t, "o2", all[0].RowKey)

	res := env.run(t, "query", "orders", "--top", "1")
	require.Equal(t, exitSuccess, res.code)
	assert.Contains(t, res.stderr, `--next-pk "c1" --next-rk "o2"`)

	var page struct {
		Entities          []types.Entity           `json:"entities"`
		ContinuationToken *types.ContinuationToken `json:"continuationToken"`
	}
	out := env.mustRun(t, "--json", "query", "orders", "--top", "1", "--next-pk", "c1", "--next-rk", "o2")
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Entities, 1)
	assert.Equal(t, "o2", page.Entities[0].RowKey)
	require.NotNil(t, page.ContinuationToken)
	assert.Equal(t, "o3", page.ContinuationToken.NextRowKey)

	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "query", "orders", "--top", "1", "--all")), &all))
	assert.Len(t, all, 3)

	res = env.run(t, "query", "orders", "--filter", "Qty between 1")
	assert.Equal(t, exitUserError, res.code)
}

func TestCLI_ACL(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "table", "create", "orders")

	env.mustRun(t, "acl", "set", "orders",
		"--policy", "id=readers,perms=r,expiry=2027-01-01T00:00:00Z",
		"--policy", "id=writers,perms=dau")

	out := env.mustRun(t, "acl", "get", "orders")
	assert.Equal(t, "readers\tperms=r\texpiry=2027-01-01T00:00:00Z\nwriters\tperms=aud\n", out)

	res := env.run(t, "acl", "set", "orders", "--policy", "id=bad,perms=x")
	assert.Equal(t, exitUserError, res.code)

	res = env.run(t, "acl", "set", "orders", "--policy", "perms=r")
	assert.Equal(t, exitUserError, res.code)

	env.mustRun(t, "acl", "set", "orders")
	assert.Empty(t, env.mustRun(t, "acl", "get", "orders"))
}

func TestCLI_ExportImport(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "table", "create", "orders")
	env.mustRun(t, "entity", "insert", "orders", "c1", "o1", "--props", `{"Qty":1,"Ref":{"t":"Edm.Guid","v":"0190a8f0-0000-7000-8000-000000000001"}}`)
	env.mustRun(t, "entity", "insert", "orders", "c2", "o1", "--props", `{"Qty":2}`)

	file := filepath.Join(t.TempDir(), "orders.jsonl")
	assert.Contains(t, env.mustRun(t, "export", "orders", file), "exported 2 entities")

	assert.Contains(t, env.mustRun(t, "import", "copy", file, "--create"), "imported 2 entities")

	var e types.Entity
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "entity", "get", "copy", "c1", "o1")), &e))
	assert.Equal(t, "0190a8f0-0000-7000-8000-000000000001", e.Properties["Ref"])

	res := env.run(t, "import", "copy", file, "--mode", "insert")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "entity already exists")

	res = env.run(t, "import", "missing", file)
	assert.Equal(t, exitUserError, res.code)

	res = env.run(t, "import", "copy", filepath.Join(t.TempDir(), "none.jsonl"))
	assert.Equal(t, exitUserError, res.code)
}

func TestCLI_MetricsTextfile(t *testing.T) {
	env := newCLIEnv(t)
	prom := filepath.Join(t.TempDir(), "tablestore.prom")
	t.Setenv("TABLESTORE_METRICS_TEXTFILE", prom)

	env.mustRun(t, "table", "create", "orders")
	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `tablestore_operations_total{operation="Create",outcome="succeeded"} 1`)

	t.Setenv("TABLESTORE_METRICS_EXPORTER", "statsd")
	res := env.run(t, "table", "list")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "unknown metrics exporter")
}

func TestCLI_UnknownCommand(t *testing.T) {
	env := newCLIEnv(t)
	res := env.run(t, "bogus")
	assert.Equal(t, exitUserError, res.code)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"user error", userError(errors.New("bad")), exitUserError},
		{"system error", sysError(errors.New("disk")), exitSysError},
		{"not found", types.NewStorageError("Delete", types.ErrTableNotFound), exitUserError},
		{"precondition", types.NewStorageError("Execute", types.ErrPreconditionFailed), exitUserError},
		{"timeout", types.NewStorageError("Exists", types.ErrOperationTimeout), exitSysError},
		{"busy", types.NewStorageError("Exists", types.ErrServiceUnavailable), exitSysError},
		{"internal", types.NewStorageError("Exists", errors.New("disk I/O error")), exitSysError},
		{"canceled", &tableclient.CanceledError{Op: "Exists", Cause: context.Canceled}, exitUserError},
		{"invalid argument", fmt.Errorf("Execute: %w", tableclient.ErrInvalidArgument), exitUserError},
		{"usage", errors.New(`unknown command "bogus"`), exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestParseProperties(t *testing.T) {
	props, err := parseProperties(`{"S":"x","I":3,"F":1.5,"B":true,"G":{"t":"Edm.Guid","v":"0190a8f0-0000-7000-8000-000000000001"}}`)
	require.NoError(t, err)
	assert.Equal(t, "x", props["S"])
	assert.Equal(t, int64(3), props["I"])
	assert.Equal(t, 1.5, props["F"])
	assert.Equal(t, true, props["B"])
	assert.Equal(t, uuid.MustParse("0190a8f0-0000-7000-8000-000000000001"), props["G"])

	for _, bad := range []string{`[1]`, `{"N":null}`, `{"A":[1]}`, `{"T":{"t":"Edm.Nope","v":1}}`} {
		_, err := parseProperties(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseFilter(t *testing.T) {
	cond, err := parseFilter("Qty ge 3")
	require.NoError(t, err)
	assert.Equal(t, types.Condition{Property: "Qty", Op: types.Ge, Value: int64(3)}, cond)

	cond, err = parseFilter("PartitionKey EQ c1")
	require.NoError(t, err)
	assert.Equal(t, types.Condition{Property: "PartitionKey", Op: types.Eq, Value: "c1"}, cond)

	cond, err = parseFilter(`Name eq "two words"`)
	require.NoError(t, err)
	assert.Equal(t, "two words", cond.Value)

	_, err = parseFilter("Qty ge")
	assert.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	id, pol, err := parsePolicy("id=readers,perms=r,start=2026-01-01T00:00:00Z,expiry=2026-02-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "readers", id)
	assert.Equal(t, "r", pol.Permissions)
	assert.Equal(t, 2026, pol.Start.Year())
	assert.Equal(t, time.February, pol.Expiry.Month())

	for _, bad := range []string{"perms=r", "id=x,perms", "id=x,start=yesterday", "id=x,color=red"} {
		_, _, err := parsePolicy(bad)
		assert.Error(t, err, bad)
	}
}
