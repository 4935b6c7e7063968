// Package domain defines the persistent records, value types, typed errors and
// rule evaluation primitives used by leadcrm.
package domain

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and error values.
const (
	// EntityLead identifies a prospective contact tracked through the pipeline.
	EntityLead EntityType = "lead"
	// EntityClient identifies a converted customer record.
	EntityClient EntityType = "client"
	// EntityTask identifies a to-do item.
	EntityTask EntityType = "task"
	// EntityCampaign identifies a marketing campaign.
	EntityCampaign EntityType = "campaign"
	// EntitySettings identifies the settings registry (stages and scoring rules).
	EntitySettings EntityType = "settings"
)

// TaskPriority is the closed set of task priorities.
type TaskPriority string

// Task priorities accepted by the repository.
const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

// Valid reports whether p is a member of the closed priority set.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// TaskStatus is the closed set of task workflow states.
type TaskStatus string

// Task statuses accepted by the repository.
const (
	TaskStatusOpen TaskStatus = "Open"
	TaskStatusDone TaskStatus = "Done"
)

// Valid reports whether s is a member of the closed status set.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusOpen || s == TaskStatusDone
}

// Lead represents a prospective contact tracked through pipeline stages.
// Status always names a stage from Settings.Stages at the time it was written.
type Lead struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Phone  string   `json:"phone"`
	Status string   `json:"status"`
	Source string   `json:"source"`
	Tags   []string `json:"tags"`
	Notes  string   `json:"notes"`
}

// Client represents a customer. All fields other than Name are free text.
type Client struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Value   string `json:"value"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`
}

// Task represents a dated to-do item.
type Task struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	DueDate  string       `json:"dueDate"`
	Priority TaskPriority `json:"priority"`
	Status   TaskStatus   `json:"status"`
	Notes    string       `json:"notes"`
}

// CampaignStep is one scheduled touchpoint of a campaign.
type CampaignStep struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Notes string `json:"notes"`
}

// Campaign represents a marketing campaign with an ordered list of steps.
type Campaign struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	Steps     []CampaignStep `json:"steps"`
	Notes     string         `json:"notes"`
}

// ScoringRule adds Value to a lead's score when its name matches a tag or the source.
type ScoringRule struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Settings is the registry of pipeline stages and scoring rules.
type Settings struct {
	Stages       []string      `json:"stages"`
	ScoringRules []ScoringRule `json:"scoringRules"`
}

// DefaultStages returns the pipeline used when nothing has been persisted yet.
func DefaultStages() []string {
	return []string{"New", "Contacted", "Qualified", "Proposal", "Won", "Lost"}
}

// HasStage reports whether name is a current stage (case-sensitive).
func (s Settings) HasStage(name string) bool {
	return StageIndex(s.Stages, name) >= 0
}

// InitialStage returns the stage assigned to new leads, or false when the
// registry has no stages.
func (s Settings) InitialStage() (string, bool) {
	if len(s.Stages) == 0 {
		return "", false
	}
	return s.Stages[0], true
}

// StageIndex returns the position of name in stages or -1.
func StageIndex(stages []string, name string) int {
	for i, stage := range stages {
		if stage == name {
			return i
		}
	}
	return -1
}

// Action captures the kind of mutation recorded in a Change.
type Action string

// Change actions enumerate supported mutations captured during a transaction.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionReplace indicates a whole collection was replaced (lead import).
	ActionReplace Action = "replace"
)

// Change describes a mutation applied within a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates rule violations.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if any violation blocks the transaction.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}
