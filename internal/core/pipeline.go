package core

import (
	"context"

	"leadcrm/pkg/domain"
)

// MoveLead sets a lead's status to targetStage. Any stage may follow any
// other; the target must be a current stage.
func (s *Service) MoveLead(ctx context.Context, leadID, targetStage string) error {
	_, err := s.run(ctx, "move_lead", EntityLead, func(tx domain.Transaction) (string, error) {
		snapshot := tx.Snapshot()
		if _, ok := snapshot.FindLead(leadID); !ok {
			return leadID, &domain.NotFoundError{Entity: EntityLead, ID: leadID}
		}
		if !snapshot.Settings().HasStage(targetStage) {
			return leadID, &domain.InvalidStageError{Stage: targetStage}
		}
		_, err := tx.UpdateLead(leadID, func(l *Lead) error {
			l.Status = targetStage
			return nil
		})
		return leadID, err
	})
	return err
}

// StageColumn is one pipeline column: a stage and the leads currently in it.
type StageColumn struct {
	Stage string
	Leads []Lead
}

// Pipeline returns one column per stage in registry order. Leads keep their
// insertion order; orphaned leads appear in no column.
func (s *Service) Pipeline() []StageColumn {
	var columns []StageColumn
	s.view(func(v domain.TransactionView) {
		settings := v.Settings()
		columns = make([]StageColumn, len(settings.Stages))
		for i, stage := range settings.Stages {
			columns[i] = StageColumn{Stage: stage, Leads: []Lead{}}
		}
		for _, lead := range v.ListLeads() {
			if i := domain.StageIndex(settings.Stages, lead.Status); i >= 0 {
				columns[i].Leads = append(columns[i].Leads, lead)
			}
		}
	})
	return columns
}

// LeadsByStage groups leads by stage. Every current stage is a key.
func (s *Service) LeadsByStage() map[string][]Lead {
	columns := s.Pipeline()
	out := make(map[string][]Lead, len(columns))
	for _, col := range columns {
		out[col.Stage] = col.Leads
	}
	return out
}

// OrphanedLeads returns leads whose status matches no current stage.
func (s *Service) OrphanedLeads() []Lead {
	var out []Lead
	s.view(func(v domain.TransactionView) {
		settings := v.Settings()
		out = filter(v.ListLeads(), func(l Lead) bool { return !settings.HasStage(l.Status) })
	})
	return out
}

// ScoredLead pairs a lead with its derived score.
type ScoredLead struct {
	Lead  Lead
	Score int
}

// LeadScore computes the score of the lead with id against the current rules.
func (s *Service) LeadScore(id string) (int, bool) {
	var (
		score int
		ok    bool
	)
	s.view(func(v domain.TransactionView) {
		var lead Lead
		if lead, ok = v.FindLead(id); ok {
			score = domain.ComputeScore(lead, v.Settings())
		}
	})
	return score, ok
}

// ScoredLeads returns every lead with its score, in insertion order.
func (s *Service) ScoredLeads(predicate func(Lead) bool) []ScoredLead {
	var out []ScoredLead
	s.view(func(v domain.TransactionView) {
		settings := v.Settings()
		for _, lead := range filter(v.ListLeads(), predicate) {
			out = append(out, ScoredLead{Lead: lead, Score: domain.ComputeScore(lead, settings)})
		}
	})
	return out
}
