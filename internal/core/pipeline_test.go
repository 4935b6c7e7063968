package core

import (
	"context"
	"errors"
	"testing"

	"leadcrm/internal/config"
	"leadcrm/internal/infra/persistence/snapshot"
	"leadcrm/internal/kv"
	"leadcrm/pkg/domain"
)

type countingSlot struct {
	kv.Slot
	saves int
}

func (c *countingSlot) Save(ctx context.Context, key string, payload []byte) error {
	c.saves++
	return c.Slot.Save(ctx, key, payload)
}

func TestMoveLead(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	lead := mustCreateLead(t, svc, Lead{Name: "Ada"})

	if err := svc.MoveLead(ctx, lead.ID, "Won"); err != nil {
		t.Fatalf("move forward: %v", err)
	}
	// any stage may follow any other
	if err := svc.MoveLead(ctx, lead.ID, "New"); err != nil {
		t.Fatalf("move backward: %v", err)
	}
	if found, _ := svc.FindLead(lead.ID); found.Status != "New" {
		t.Fatalf("unexpected status %q", found.Status)
	}

	err := svc.MoveLead(ctx, lead.ID, "Archived")
	var stageErr *domain.InvalidStageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "Archived" {
		t.Fatalf("expected InvalidStageError, got %v", err)
	}
	if found, _ := svc.FindLead(lead.ID); found.Status != "New" {
		t.Fatalf("rejected move changed status to %q", found.Status)
	}

	err = svc.MoveLead(ctx, "missing", "Archived")
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("missing lead must be reported before the stage, got %v", err)
	}
}

func TestRejectedMoveIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	inner, err := kv.Open(ctx, config.Storage{Driver: kv.DriverMemory})
	if err != nil {
		t.Fatalf("open slot: %v", err)
	}
	slot := &countingSlot{Slot: inner}
	store, err := snapshot.Open(ctx, slot, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := NewService(store)
	lead := mustCreateLead(t, svc, Lead{Name: "Ada"})
	saves := slot.saves

	err = svc.MoveLead(ctx, lead.ID, "Nope")
	var stageErr *domain.InvalidStageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected InvalidStageError, got %v", err)
	}
	if slot.saves != saves {
		t.Fatalf("rejected move wrote the snapshot (%d saves, want %d)", slot.saves, saves)
	}
	if found, _ := svc.FindLead(lead.ID); found.Status != "New" {
		t.Fatalf("rejected move changed status to %q", found.Status)
	}
	reopened, err := snapshot.Open(ctx, inner, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if leads := reopened.ExportState().Leads; len(leads) != 1 || leads[0].Status != "New" {
		t.Fatalf("unexpected persisted leads %+v", leads)
	}
}

func TestPipelineColumnsFollowStageOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	a := mustCreateLead(t, svc, Lead{Name: "A"})
	b := mustCreateLead(t, svc, Lead{Name: "B", Status: "Won"})
	c := mustCreateLead(t, svc, Lead{Name: "C"})
	if err := svc.AddStage(ctx, "Nurture"); err != nil {
		t.Fatalf("add stage: %v", err)
	}

	columns := svc.Pipeline()
	if len(columns) != 7 {
		t.Fatalf("expected a column per stage, got %d", len(columns))
	}
	if columns[0].Stage != "New" || len(columns[0].Leads) != 2 || columns[0].Leads[0].ID != a.ID || columns[0].Leads[1].ID != c.ID {
		t.Fatalf("unexpected New column %+v", columns[0])
	}
	if columns[4].Stage != "Won" || len(columns[4].Leads) != 1 || columns[4].Leads[0].ID != b.ID {
		t.Fatalf("unexpected Won column %+v", columns[4])
	}
	if columns[6].Stage != "Nurture" || columns[6].Leads == nil || len(columns[6].Leads) != 0 {
		t.Fatalf("empty stage must have an empty column, got %+v", columns[6])
	}

	byStage := svc.LeadsByStage()
	if len(byStage) != 7 || len(byStage["New"]) != 2 || len(byStage["Lost"]) != 0 {
		t.Fatalf("unexpected grouping %+v", byStage)
	}
}

func TestLeadScores(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	if _, _, err := svc.AddScoringRule(ctx, "vip", 10); err != nil {
		t.Fatalf("add rule: %v", err)
	}
	if _, _, err := svc.AddScoringRule(ctx, "web", 5); err != nil {
		t.Fatalf("add rule: %v", err)
	}
	hot := mustCreateLead(t, svc, Lead{Name: "Hot", Source: "Web", Tags: []string{"VIP"}})
	cold := mustCreateLead(t, svc, Lead{Name: "Cold", Source: "referral", Tags: []string{"other"}})

	if score, ok := svc.LeadScore(hot.ID); !ok || score != 15 {
		t.Fatalf("expected score 15, got %d ok=%v", score, ok)
	}
	if score, ok := svc.LeadScore(cold.ID); !ok || score != 0 {
		t.Fatalf("expected score 0, got %d ok=%v", score, ok)
	}
	if _, ok := svc.LeadScore("missing"); ok {
		t.Fatalf("expected missing lead to report ok=false")
	}

	scored := svc.ScoredLeads(nil)
	if len(scored) != 2 || scored[0].Score != 15 || scored[1].Score != 0 {
		t.Fatalf("unexpected scored leads %+v", scored)
	}

	// scores are derived, so rule edits apply immediately
	if err := svc.RemoveScoringRule(ctx, 0); err != nil {
		t.Fatalf("remove rule: %v", err)
	}
	if score, _ := svc.LeadScore(hot.ID); score != 5 {
		t.Fatalf("expected score 5 after rule removal, got %d", score)
	}
}
