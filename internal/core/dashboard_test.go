package core

import (
	"context"
	"testing"
	"time"

	"leadcrm/pkg/domain"
)

func TestDashboardSummary(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*60*60))
	svc := newTestService(t, WithClock(ClockFunc(func() time.Time { return now })))

	if got := svc.Dashboard(); got.TotalLeads != 0 || got.DueToday == nil {
		t.Fatalf("unexpected empty dashboard %+v", got)
	}

	mustCreateLead(t, svc, Lead{Name: "A"})
	mustCreateLead(t, svc, Lead{Name: "B"})
	if _, err := svc.CreateClient(ctx, Client{Name: "Acme"}); err != nil {
		t.Fatalf("create client: %v", err)
	}
	if _, err := svc.CreateCampaign(ctx, Campaign{Name: "Launch"}); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	// 23:30 at UTC-2 is already the 19th in UTC
	due, err := svc.CreateTask(ctx, Task{Title: "Due", DueDate: "2026-10-19T09:00"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	done, err := svc.CreateTask(ctx, Task{Title: "Done", DueDate: "2026-10-19", Status: domain.TaskStatusDone})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	for _, task := range []Task{
		{Title: "Local date", DueDate: "2026-10-18"},
		{Title: "Undated"},
	} {
		if _, err := svc.CreateTask(ctx, task); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	got := svc.Dashboard()
	if got.TotalLeads != 2 || got.TotalClients != 1 || got.Campaigns != 1 {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got.OpenTasks != 3 {
		t.Fatalf("expected 3 open tasks, got %d", got.OpenTasks)
	}
	if len(got.DueToday) != 2 || got.DueToday[0].ID != due.ID || got.DueToday[1].ID != done.ID {
		t.Fatalf("unexpected due-today list %+v", got.DueToday)
	}
}
