package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/tablescan/internal/database"
)

const sample = `
log:
  level: debug
scan:
  page_size: 100
  probe_rate: 50
export:
  enabled: true
  endpoint: localhost:9000
  access_key: minio
  secret_key: ${TABLESCAN_TEST_SECRET}
  bucket: catalogs
databases:
  - name: warehouse
    engine: postgres
    dsn: postgres://scan:pw@localhost:5432/wh
    strategy: scan-then-filter
    exclude_schemas: [audit, staging]
    max_conns: 2
    connect_timeout: 3s
  - name: local
    engine: sqlite
    dsn: ./local.db
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tablescan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Valid(t *testing.T) {
	t.Setenv("TABLESCAN_TEST_SECRET", "s3cret")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 100, cfg.Scan.PageSize)
	assert.Equal(t, 50.0, cfg.Scan.ProbeRate)
	assert.Equal(t, "s3cret", cfg.Export.SecretKey)
	assert.Equal(t, "inventories", cfg.Export.Prefix)
	require.Len(t, cfg.Databases, 2)

	wh, ok := cfg.Database("warehouse")
	require.True(t, ok)
	assert.Equal(t, []string{"audit", "staging"}, wh.ExcludeSchemas)
	assert.Equal(t, 3*time.Second, wh.ConnectTimeout)
	assert.Len(t, wh.Options(), 2)

	_, ok = cfg.Database("missing")
	assert.False(t, ok)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TABLESCAN_TEST_SECRET", "x")
	t.Setenv("TABLESCAN_SERVER_ADDR", "127.0.0.1:9999")
	t.Setenv("TABLESCAN_LOG_FORMAT", "console")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "no databases",
			body: "log: {level: info}\n",
			want: "at least one database",
		},
		{
			name: "unknown engine",
			body: "databases: [{name: a, engine: oracle, dsn: x}]\n",
			want: `unknown engine "oracle"`,
		},
		{
			name: "duplicate name",
			body: "databases: [{name: a, engine: sqlite, dsn: x}, {name: a, engine: sqlite, dsn: y}]\n",
			want: "defined twice",
		},
		{
			name: "missing dsn",
			body: "databases: [{name: a, engine: mysql}]\n",
			want: "dsn is required",
		},
		{
			name: "bad strategy",
			body: "databases: [{name: a, engine: mysql, dsn: x, strategy: sideways}]\n",
			want: "unknown strategy",
		},
		{
			name: "export without bucket",
			body: "export: {enabled: true, endpoint: h:9000}\ndatabases: [{name: a, engine: sqlite, dsn: x}]\n",
			want: "export.bucket",
		},
		{
			name: "bad log format",
			body: "log: {format: xml}\ndatabases: [{name: a, engine: sqlite, dsn: x}]\n",
			want: "log.format",
		},
		{
			name: "malformed yaml",
			body: "databases: [\n",
			want: "parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDatabaseConfig_Pool(t *testing.T) {
	d := DatabaseConfig{Name: "a", Engine: "mysql", DSN: "dsn", MaxConns: 7}

	cfg := d.Pool()

	assert.Equal(t, database.EngineMySQL, cfg.Engine)
	assert.Equal(t, "dsn", cfg.DSN)
	assert.Equal(t, int32(7), cfg.MaxConns)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Empty(t, d.Options())
}

func TestExportConfig_Store(t *testing.T) {
	e := ExportConfig{Endpoint: "h:9000", AccessKey: "a", SecretKey: "s", UseSSL: true, Bucket: "b"}

	cfg := e.Store()

	assert.Equal(t, "h:9000", cfg.Endpoint)
	assert.True(t, cfg.UseSSL)
	assert.Equal(t, "b", cfg.DefaultBucket)
}

func TestForDatabases(t *testing.T) {
	cfg, err := ForDatabases(DatabaseConfig{Name: "x", Engine: "sqlite", DSN: "file:$HOME.db"})
	require.NoError(t, err)

	assert.Equal(t, "file:$HOME.db", cfg.Databases[0].DSN)
	assert.Equal(t, 500, cfg.Scan.PageSize)

	_, err = ForDatabases(DatabaseConfig{Name: "x", Engine: "db2", DSN: "d"})
	assert.Error(t, err)
}
