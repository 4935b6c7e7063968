package core

import "leadcrm/pkg/domain"

type (
	EntityType         = domain.EntityType
	Lead               = domain.Lead
	Client             = domain.Client
	Task               = domain.Task
	Campaign           = domain.Campaign
	CampaignStep       = domain.CampaignStep
	ScoringRule        = domain.ScoringRule
	Settings           = domain.Settings
	Severity           = domain.Severity
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
)

const (
	EntityLead     = domain.EntityLead
	EntityClient   = domain.EntityClient
	EntityTask     = domain.EntityTask
	EntityCampaign = domain.EntityCampaign
	EntitySettings = domain.EntitySettings
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate  = domain.ActionCreate
	ActionUpdate  = domain.ActionUpdate
	ActionDelete  = domain.ActionDelete
	ActionReplace = domain.ActionReplace
)
