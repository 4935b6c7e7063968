package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"leadcrm/internal/infra/kv"
	"leadcrm/internal/infra/kv/kvtest"
	"leadcrm/internal/infra/kv/postgres/testutil"
)

func newStubSlot(t *testing.T) (*Slot, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	slot, err := New(context.Background(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = slot.Close() })
	return slot, conn
}

func TestSlotContract(t *testing.T) {
	slot, _ := newStubSlot(t)
	if slot.Driver() != kv.DriverPostgres {
		t.Fatalf("unexpected driver %s", slot.Driver())
	}
	kvtest.Exercise(t, slot)
}

func TestNewEnsuresStateTable(t *testing.T) {
	_, conn := newStubSlot(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got %v", conn.Execs)
	}
}

func TestSaveUpsertsSingleRow(t *testing.T) {
	slot, conn := newStubSlot(t)
	ctx := context.Background()
	for _, payload := range []string{"one", "two"} {
		if err := slot.Save(ctx, "leadcrm.state", []byte(payload)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	rows := conn.Rows("state")
	if len(rows) != 1 {
		t.Fatalf("expected one row after upsert, got %d", len(rows))
	}
	if got, _ := rows[0]["payload"].([]byte); string(got) != "two" {
		t.Fatalf("unexpected payload %v", rows[0]["payload"])
	}
}

func TestNewFailsWhenPingFails(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := New(context.Background(), "postgres://example"); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestSaveSurfacesCommitFailure(t *testing.T) {
	slot, conn := newStubSlot(t)
	conn.FailCommit = true
	if err := slot.Save(context.Background(), "leadcrm.state", []byte("x")); err == nil {
		t.Fatalf("expected commit failure")
	}
}

func TestSaveSurfacesBeginFailure(t *testing.T) {
	slot, conn := newStubSlot(t)
	conn.FailBegin = true
	if err := slot.Save(context.Background(), "leadcrm.state", []byte("x")); err == nil {
		t.Fatalf("expected begin failure")
	}
}
