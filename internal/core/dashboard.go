package core

import (
	"strings"

	"leadcrm/pkg/domain"
)

// DashboardSummary holds the dashboard rollups.
type DashboardSummary struct {
	TotalLeads   int
	TotalClients int
	OpenTasks    int
	Campaigns    int
	DueToday     []Task
}

// Dashboard computes the rollups from current state. A task is due today when
// its dueDate starts with the clock's UTC date in YYYY-MM-DD form.
func (s *Service) Dashboard() DashboardSummary {
	today := s.clock.Now().UTC().Format("2006-01-02")
	summary := DashboardSummary{DueToday: []Task{}}
	s.view(func(v domain.TransactionView) {
		tasks := v.ListTasks()
		summary.TotalLeads = len(v.ListLeads())
		summary.TotalClients = len(v.ListClients())
		summary.Campaigns = len(v.ListCampaigns())
		for _, task := range tasks {
			if task.Status != domain.TaskStatusDone {
				summary.OpenTasks++
			}
			if task.DueDate != "" && strings.HasPrefix(task.DueDate, today) {
				summary.DueToday = append(summary.DueToday, task)
			}
		}
	})
	return summary
}
