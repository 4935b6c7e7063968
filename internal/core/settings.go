package core

import (
	"context"
	"strings"

	"leadcrm/pkg/domain"
)

// Settings returns a copy of the settings registry.
func (s *Service) Settings() Settings {
	var settings Settings
	s.view(func(v domain.TransactionView) { settings = v.Settings() })
	return settings
}

// AddStage appends a pipeline stage. Blank or already present names
// (case-sensitive) are ignored.
func (s *Service) AddStage(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	_, err := s.run(ctx, "add_stage", EntitySettings, func(tx domain.Transaction) (string, error) {
		if name == "" || tx.Snapshot().Settings().HasStage(name) {
			return "", nil
		}
		_, err := tx.UpdateSettings(func(st *Settings) error {
			st.Stages = append(st.Stages, name)
			return nil
		})
		return "", err
	})
	return err
}

// RemoveStage deletes the stage at index. An out-of-range index is ignored.
// Leads in the removed stage are handled according to the stage removal policy.
func (s *Service) RemoveStage(ctx context.Context, index int) error {
	_, err := s.run(ctx, "remove_stage", EntitySettings, func(tx domain.Transaction) (string, error) {
		snapshot := tx.Snapshot()
		settings := snapshot.Settings()
		if index < 0 || index >= len(settings.Stages) {
			return "", nil
		}
		stage := settings.Stages[index]
		remaining := append(append([]string{}, settings.Stages[:index]...), settings.Stages[index+1:]...)

		var affected []string
		for _, lead := range snapshot.ListLeads() {
			if lead.Status == stage {
				affected = append(affected, lead.ID)
			}
		}

		switch s.policy {
		case domain.StageRemovalForbid:
			if len(affected) > 0 {
				return "", &domain.StageInUseError{Stage: stage, Leads: affected}
			}
		case domain.StageRemovalReassign:
			if len(remaining) > 0 {
				for _, id := range affected {
					if _, err := tx.UpdateLead(id, func(l *Lead) error {
						l.Status = remaining[0]
						return nil
					}); err != nil {
						return "", err
					}
				}
			}
		}

		_, err := tx.UpdateSettings(func(st *Settings) error {
			st.Stages = remaining
			return nil
		})
		return "", err
	})
	return err
}

// AddScoringRule appends a scoring rule. A blank name is ignored.
func (s *Service) AddScoringRule(ctx context.Context, name string, value int) (ScoringRule, bool, error) {
	name = strings.TrimSpace(name)
	var (
		rule  ScoringRule
		added bool
	)
	_, err := s.run(ctx, "add_scoring_rule", EntitySettings, func(tx domain.Transaction) (string, error) {
		if name == "" {
			return "", nil
		}
		rule = ScoringRule{ID: tx.NewID(), Name: name, Value: value}
		_, err := tx.UpdateSettings(func(st *Settings) error {
			st.ScoringRules = append(st.ScoringRules, rule)
			return nil
		})
		added = err == nil
		return rule.ID, err
	})
	if err != nil {
		return ScoringRule{}, false, err
	}
	return rule, added, nil
}

// RemoveScoringRule deletes the rule at index. An out-of-range index is ignored.
func (s *Service) RemoveScoringRule(ctx context.Context, index int) error {
	_, err := s.run(ctx, "remove_scoring_rule", EntitySettings, func(tx domain.Transaction) (string, error) {
		rules := tx.Snapshot().Settings().ScoringRules
		if index < 0 || index >= len(rules) {
			return "", nil
		}
		id := rules[index].ID
		_, err := tx.UpdateSettings(func(st *Settings) error {
			st.ScoringRules = append(st.ScoringRules[:index:index], st.ScoringRules[index+1:]...)
			return nil
		})
		return id, err
	})
	return err
}
