package core

import (
	"context"
	"fmt"

	"leadcrm/pkg/domain"
)

const leadStageRuleName = "lead_stage"

// NewLeadStageRule returns the rule keeping lead statuses inside the stage
// registry. Writing a lead whose new status is not a current stage blocks the
// transaction. After stage edits and imports, leads left in no stage are
// reported as warnings.
func NewLeadStageRule() domain.Rule {
	return leadStageRule{}
}

type leadStageRule struct{}

func (leadStageRule) Name() string { return leadStageRuleName }

func (leadStageRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	settings := view.Settings()
	res := domain.Result{}
	reportOrphans := false

	for _, change := range changes {
		switch {
		case change.Entity == domain.EntitySettings, change.Entity == domain.EntityLead && change.Action == domain.ActionReplace:
			reportOrphans = true
		case change.Entity == domain.EntityLead && (change.Action == domain.ActionCreate || change.Action == domain.ActionUpdate):
			after, ok := change.After.(domain.Lead)
			if !ok || settings.HasStage(after.Status) {
				continue
			}
			if before, ok := change.Before.(domain.Lead); ok && before.Status == after.Status {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     leadStageRuleName,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("lead %s status %q is not a pipeline stage", after.ID, after.Status),
				Entity:   domain.EntityLead,
				EntityID: after.ID,
			})
		}
	}

	if reportOrphans {
		for _, lead := range view.ListLeads() {
			if settings.HasStage(lead.Status) {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     leadStageRuleName,
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("lead %s (%s) is in removed stage %q", lead.Name, lead.ID, lead.Status),
				Entity:   domain.EntityLead,
				EntityID: lead.ID,
			})
		}
	}
	return res, nil
}
