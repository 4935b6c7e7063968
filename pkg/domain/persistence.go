package domain

import "context"

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope. Create assigns an identifier when the record has none.
type Transaction interface {
	Snapshot() TransactionView
	CreateLead(Lead) (Lead, error)
	UpdateLead(id string, mutator func(*Lead) error) (Lead, error)
	DeleteLead(id string) (bool, error)
	ReplaceLeads([]Lead) error
	CreateClient(Client) (Client, error)
	UpdateClient(id string, mutator func(*Client) error) (Client, error)
	DeleteClient(id string) (bool, error)
	CreateTask(Task) (Task, error)
	UpdateTask(id string, mutator func(*Task) error) (Task, error)
	DeleteTask(id string) (bool, error)
	CreateCampaign(Campaign) (Campaign, error)
	UpdateCampaign(id string, mutator func(*Campaign) error) (Campaign, error)
	DeleteCampaign(id string) (bool, error)
	UpdateSettings(mutator func(*Settings) error) (Settings, error)
	NewID() string
}

// TransactionView provides read-only access to state for rules and readers.
type TransactionView interface {
	ListLeads() []Lead
	FindLead(id string) (Lead, bool)
	ListClients() []Client
	FindClient(id string) (Client, bool)
	ListTasks() []Task
	FindTask(id string) (Task, bool)
	ListCampaigns() []Campaign
	FindCampaign(id string) (Campaign, bool)
	Settings() Settings
}

// PersistentStore is the abstraction the service layer depends on. Every
// successful RunInTransaction is durable before it returns.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	ExportState() State
}
