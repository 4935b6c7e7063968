package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"leadcrm/internal/config"
	"leadcrm/internal/core"
	"leadcrm/internal/kv"
	"leadcrm/pkg/domain"
)

// TestIntegrationSmoke runs a short write, reopen and read cycle against every
// storage driver that works in-process, with the observability exporters wired.
func TestIntegrationSmoke(t *testing.T) {
	ctx := context.Background()

	variants := []struct {
		name    string
		storage func(t *testing.T) config.Storage
	}{
		{
			name: "file",
			storage: func(t *testing.T) config.Storage {
				return config.Storage{Driver: kv.DriverFile, Key: config.DefaultStateKey, FilePath: t.TempDir()}
			},
		},
		{
			name: "sqlite",
			storage: func(t *testing.T) config.Storage {
				return config.Storage{Driver: kv.DriverSQLite, Key: config.DefaultStateKey, SQLitePath: filepath.Join(t.TempDir(), "crm.db")}
			},
		},
		{
			name: "redis",
			storage: func(t *testing.T) config.Storage {
				mr := miniredis.RunT(t)
				return config.Storage{Driver: kv.DriverRedis, Key: config.DefaultStateKey, RedisURL: "redis://" + mr.Addr()}
			},
		},
	}

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage = v.storage(t)
			logger, hook := logtest.NewNullLogger()

			metrics := core.NewExpvarMetricsRecorder("")
			var traces bytes.Buffer
			tracer := core.NewJSONTracer(&traces)
			svc, store, err := core.OpenService(ctx, cfg, logger, core.WithMetricsRecorder(metrics), core.WithTracer(tracer))
			if err != nil {
				t.Fatalf("open service: %v", err)
			}

			lead, err := svc.CreateLead(ctx, domain.Lead{Name: "Ada", Source: "web", Tags: []string{"vip"}})
			if err != nil {
				t.Fatalf("create lead: %v", err)
			}
			if _, _, err := svc.AddScoringRule(ctx, "vip", 10); err != nil {
				t.Fatalf("add rule: %v", err)
			}
			if err := svc.MoveLead(ctx, lead.ID, "Proposal"); err != nil {
				t.Fatalf("move lead: %v", err)
			}
			if _, err := svc.CreateTask(ctx, domain.Task{Title: "Follow up"}); err != nil {
				t.Fatalf("create task: %v", err)
			}
			// orphan the lead so a warning is logged
			if err := svc.RemoveStage(ctx, 3); err != nil {
				t.Fatalf("remove stage: %v", err)
			}
			if err := store.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}

			reopened, store2, err := core.OpenService(ctx, cfg, logger)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer func() { _ = store2.Close() }()
			if store2.Driver() != cfg.Storage.Driver {
				t.Fatalf("unexpected driver %s", store2.Driver())
			}
			got, ok := reopened.FindLead(lead.ID)
			if !ok || got.Status != "Proposal" {
				t.Fatalf("expected persisted lead in Proposal, got %+v ok=%v", got, ok)
			}
			if orphans := reopened.OrphanedLeads(); len(orphans) != 1 {
				t.Fatalf("expected the lead to be orphaned after reopen, got %d", len(orphans))
			}
			if score, _ := reopened.LeadScore(lead.ID); score != 10 {
				t.Fatalf("expected score 10, got %d", score)
			}
			if summary := reopened.Dashboard(); summary.TotalLeads != 1 || summary.OpenTasks != 1 {
				t.Fatalf("unexpected dashboard %+v", summary)
			}

			snap := metrics.Snapshot()
			if snap.Results["create_lead"]["success"] != 1 || snap.Results["remove_stage"]["success"] != 1 {
				t.Fatalf("unexpected metrics %+v", snap.Results)
			}
			if traces.Len() == 0 {
				t.Fatalf("expected trace exporter to emit spans")
			}
			var first core.JSONTraceEntry
			if err := json.NewDecoder(&traces).Decode(&first); err != nil || first.Operation != "create_lead" {
				t.Fatalf("unexpected first span %+v err=%v", first, err)
			}
			warned := false
			for _, entry := range hook.AllEntries() {
				if entry.Data["rule"] == "lead_stage" {
					warned = true
				}
			}
			if !warned {
				t.Fatalf("expected orphan warning to be logged")
			}
		})
	}
}
