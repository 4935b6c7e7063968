package kv

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadcrm/internal/config"
	"leadcrm/internal/infra/kv/postgres"
	"leadcrm/internal/infra/kv/postgres/testutil"
)

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	mr := miniredis.RunT(t)
	db, _ := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	cases := []config.Storage{
		{Driver: DriverMemory},
		{Driver: DriverFile, FilePath: filepath.Join(dir, "files")},
		{Driver: DriverSQLite, SQLitePath: filepath.Join(dir, "leadcrm.db")},
		{Driver: DriverPostgres, PostgresDSN: "postgres://stub"},
		{Driver: DriverRedis, RedisURL: "redis://" + mr.Addr()},
		{Driver: DriverS3, S3: config.S3{Bucket: "b", Region: "us-east-1", Endpoint: "http://127.0.0.1:1", PathStyle: true}},
	}
	for _, cfg := range cases {
		slot, err := Open(ctx, cfg)
		require.NoError(t, err, "driver %s", cfg.Driver)
		require.Equal(t, cfg.Driver, slot.Driver())
		require.NoError(t, slot.Close())
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.Storage{Driver: "mongo"})
	require.Error(t, err)
}

func TestOpenS3UsesConfiguredCredentials(t *testing.T) {
	var (
		mu    sync.Mutex
		auths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
	}))
	defer srv.Close()

	slot, err := Open(context.Background(), config.Storage{
		Driver: DriverS3,
		S3: config.S3{
			Bucket:          "crm",
			Region:          "us-east-1",
			Endpoint:        srv.URL,
			PathStyle:       true,
			AccessKeyID:     "AKIDLEADCRM",
			SecretAccessKey: "secret",
		},
	})
	require.NoError(t, err)
	defer func() { _ = slot.Close() }()

	_, ok, err := slot.Load(context.Background(), "leadcrm.state")
	require.NoError(t, err)
	assert.False(t, ok)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, auths)
	assert.True(t, strings.Contains(auths[0], "Credential=AKIDLEADCRM/"), "unexpected Authorization %q", auths[0])
}
