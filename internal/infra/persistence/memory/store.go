// Package memory provides the in-memory transactional state holder that backs
// every leadcrm store. Durable backends attach through a commit hook.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"leadcrm/pkg/domain"
)

type (
	// Lead aliases domain.Lead for in-memory persistence operations.
	Lead = domain.Lead
	// Client aliases domain.Client.
	Client = domain.Client
	// Task aliases domain.Task.
	Task = domain.Task
	// Campaign aliases domain.Campaign.
	Campaign = domain.Campaign
	// Settings aliases domain.Settings.
	Settings = domain.Settings
	// State aliases domain.State, the snapshot exchanged with durable backends.
	State = domain.State
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

// CommitHook runs under the store lock after rules pass and before the new
// state becomes visible. A non-nil error aborts the commit.
type CommitHook func(ctx context.Context, state State) error

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  State
	engine *RulesEngine
	idFn   func() string
	hook   CommitHook
}

// NewStore constructs an in-memory store seeded with domain.DefaultState.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  domain.DefaultState(),
		engine: engine,
		idFn:   newID,
	}
}

// newID returns a UUIDv7: a millisecond timestamp followed by random bits.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SetCommitHook installs the hook used to make commits durable.
func (s *Store) SetCommitHook(hook CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// SetIDFunc overrides identifier generation. Intended for tests.
func (s *Store) SetIDFunc(fn func() string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		fn = newID
	}
	s.idFn = fn
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = snapshot.Normalize().Clone()
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

type transaction struct {
	store   *Store
	state   State
	changes []Change
}

type transactionView struct {
	state *State
}

func newTransactionView(state *State) domain.TransactionView {
	return transactionView{state: state}
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Rules are evaluated over the copy; blocking violations, mutator errors and
// commit hook failures all leave the committed state untouched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.Clone(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := transactionView{state: &tx.state}
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.hook != nil && len(tx.changes) > 0 {
		if err := s.hook(ctx, tx.state.Clone()); err != nil {
			return result, fmt.Errorf("commit: %w", err)
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.Clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.TransactionView {
	return newTransactionView(&tx.state)
}

// NewID generates an identifier using the store's generator.
func (tx *transaction) NewID() string {
	return tx.store.idFn()
}

func indexOf[T any](items []T, id string, key func(T) string) int {
	for i, item := range items {
		if key(item) == id {
			return i
		}
	}
	return -1
}

func leadID(l Lead) string         { return l.ID }
func clientID(c Client) string     { return c.ID }
func taskID(t Task) string         { return t.ID }
func campaignID(c Campaign) string { return c.ID }

// CreateLead appends a lead, assigning an identifier when none is set.
func (tx *transaction) CreateLead(l Lead) (Lead, error) {
	if l.ID == "" {
		l.ID = tx.NewID()
	}
	if indexOf(tx.state.Leads, l.ID, leadID) >= 0 {
		return Lead{}, fmt.Errorf("lead %q already exists", l.ID)
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	tx.state.Leads = append(tx.state.Leads, domain.CloneLead(l))
	tx.recordChange(Change{Entity: domain.EntityLead, Action: domain.ActionCreate, After: domain.CloneLead(l)})
	return domain.CloneLead(l), nil
}

// UpdateLead mutates a lead in place. The identifier cannot be changed.
func (tx *transaction) UpdateLead(id string, mutator func(*Lead) error) (Lead, error) {
	idx := indexOf(tx.state.Leads, id, leadID)
	if idx < 0 {
		return Lead{}, &domain.NotFoundError{Entity: domain.EntityLead, ID: id}
	}
	before := domain.CloneLead(tx.state.Leads[idx])
	current := domain.CloneLead(before)
	if err := mutator(&current); err != nil {
		return Lead{}, err
	}
	current.ID = id
	if current.Tags == nil {
		current.Tags = []string{}
	}
	tx.state.Leads[idx] = domain.CloneLead(current)
	tx.recordChange(Change{Entity: domain.EntityLead, Action: domain.ActionUpdate, Before: before, After: domain.CloneLead(current)})
	return current, nil
}

// DeleteLead removes a lead, reporting whether it existed.
func (tx *transaction) DeleteLead(id string) (bool, error) {
	idx := indexOf(tx.state.Leads, id, leadID)
	if idx < 0 {
		return false, nil
	}
	before := tx.state.Leads[idx]
	tx.state.Leads = append(tx.state.Leads[:idx], tx.state.Leads[idx+1:]...)
	tx.recordChange(Change{Entity: domain.EntityLead, Action: domain.ActionDelete, Before: before})
	return true, nil
}

// ReplaceLeads swaps the whole lead collection without per-record checks.
func (tx *transaction) ReplaceLeads(leads []Lead) error {
	replaced := make([]Lead, len(leads))
	for i, l := range leads {
		replaced[i] = domain.CloneLead(l)
	}
	before := tx.state.Leads
	tx.state.Leads = replaced
	tx.recordChange(Change{Entity: domain.EntityLead, Action: domain.ActionReplace, Before: before, After: len(replaced)})
	return nil
}

// CreateClient appends a client.
func (tx *transaction) CreateClient(c Client) (Client, error) {
	if c.ID == "" {
		c.ID = tx.NewID()
	}
	if indexOf(tx.state.Clients, c.ID, clientID) >= 0 {
		return Client{}, fmt.Errorf("client %q already exists", c.ID)
	}
	tx.state.Clients = append(tx.state.Clients, c)
	tx.recordChange(Change{Entity: domain.EntityClient, Action: domain.ActionCreate, After: c})
	return c, nil
}

// UpdateClient mutates a client in place.
func (tx *transaction) UpdateClient(id string, mutator func(*Client) error) (Client, error) {
	idx := indexOf(tx.state.Clients, id, clientID)
	if idx < 0 {
		return Client{}, &domain.NotFoundError{Entity: domain.EntityClient, ID: id}
	}
	before := tx.state.Clients[idx]
	current := before
	if err := mutator(&current); err != nil {
		return Client{}, err
	}
	current.ID = id
	tx.state.Clients[idx] = current
	tx.recordChange(Change{Entity: domain.EntityClient, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteClient removes a client, reporting whether it existed.
func (tx *transaction) DeleteClient(id string) (bool, error) {
	idx := indexOf(tx.state.Clients, id, clientID)
	if idx < 0 {
		return false, nil
	}
	before := tx.state.Clients[idx]
	tx.state.Clients = append(tx.state.Clients[:idx], tx.state.Clients[idx+1:]...)
	tx.recordChange(Change{Entity: domain.EntityClient, Action: domain.ActionDelete, Before: before})
	return true, nil
}

// CreateTask appends a task.
func (tx *transaction) CreateTask(t Task) (Task, error) {
	if t.ID == "" {
		t.ID = tx.NewID()
	}
	if indexOf(tx.state.Tasks, t.ID, taskID) >= 0 {
		return Task{}, fmt.Errorf("task %q already exists", t.ID)
	}
	tx.state.Tasks = append(tx.state.Tasks, t)
	tx.recordChange(Change{Entity: domain.EntityTask, Action: domain.ActionCreate, After: t})
	return t, nil
}

// UpdateTask mutates a task in place.
func (tx *transaction) UpdateTask(id string, mutator func(*Task) error) (Task, error) {
	idx := indexOf(tx.state.Tasks, id, taskID)
	if idx < 0 {
		return Task{}, &domain.NotFoundError{Entity: domain.EntityTask, ID: id}
	}
	before := tx.state.Tasks[idx]
	current := before
	if err := mutator(&current); err != nil {
		return Task{}, err
	}
	current.ID = id
	tx.state.Tasks[idx] = current
	tx.recordChange(Change{Entity: domain.EntityTask, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteTask removes a task, reporting whether it existed.
func (tx *transaction) DeleteTask(id string) (bool, error) {
	idx := indexOf(tx.state.Tasks, id, taskID)
	if idx < 0 {
		return false, nil
	}
	before := tx.state.Tasks[idx]
	tx.state.Tasks = append(tx.state.Tasks[:idx], tx.state.Tasks[idx+1:]...)
	tx.recordChange(Change{Entity: domain.EntityTask, Action: domain.ActionDelete, Before: before})
	return true, nil
}

// CreateCampaign appends a campaign.
func (tx *transaction) CreateCampaign(c Campaign) (Campaign, error) {
	if c.ID == "" {
		c.ID = tx.NewID()
	}
	if indexOf(tx.state.Campaigns, c.ID, campaignID) >= 0 {
		return Campaign{}, fmt.Errorf("campaign %q already exists", c.ID)
	}
	if c.Steps == nil {
		c.Steps = []domain.CampaignStep{}
	}
	tx.state.Campaigns = append(tx.state.Campaigns, domain.CloneCampaign(c))
	tx.recordChange(Change{Entity: domain.EntityCampaign, Action: domain.ActionCreate, After: domain.CloneCampaign(c)})
	return domain.CloneCampaign(c), nil
}

// UpdateCampaign mutates a campaign in place.
func (tx *transaction) UpdateCampaign(id string, mutator func(*Campaign) error) (Campaign, error) {
	idx := indexOf(tx.state.Campaigns, id, campaignID)
	if idx < 0 {
		return Campaign{}, &domain.NotFoundError{Entity: domain.EntityCampaign, ID: id}
	}
	before := domain.CloneCampaign(tx.state.Campaigns[idx])
	current := domain.CloneCampaign(before)
	if err := mutator(&current); err != nil {
		return Campaign{}, err
	}
	current.ID = id
	if current.Steps == nil {
		current.Steps = []domain.CampaignStep{}
	}
	tx.state.Campaigns[idx] = domain.CloneCampaign(current)
	tx.recordChange(Change{Entity: domain.EntityCampaign, Action: domain.ActionUpdate, Before: before, After: domain.CloneCampaign(current)})
	return current, nil
}

// DeleteCampaign removes a campaign, reporting whether it existed.
func (tx *transaction) DeleteCampaign(id string) (bool, error) {
	idx := indexOf(tx.state.Campaigns, id, campaignID)
	if idx < 0 {
		return false, nil
	}
	before := tx.state.Campaigns[idx]
	tx.state.Campaigns = append(tx.state.Campaigns[:idx], tx.state.Campaigns[idx+1:]...)
	tx.recordChange(Change{Entity: domain.EntityCampaign, Action: domain.ActionDelete, Before: before})
	return true, nil
}

// UpdateSettings mutates the settings registry.
func (tx *transaction) UpdateSettings(mutator func(*Settings) error) (Settings, error) {
	before := tx.state.Settings.Clone()
	current := before.Clone()
	if err := mutator(&current); err != nil {
		return Settings{}, err
	}
	if current.Stages == nil {
		current.Stages = []string{}
	}
	if current.ScoringRules == nil {
		current.ScoringRules = []domain.ScoringRule{}
	}
	tx.state.Settings = current.Clone()
	tx.recordChange(Change{Entity: domain.EntitySettings, Action: domain.ActionUpdate, Before: before, After: current.Clone()})
	return current, nil
}

// ListLeads returns all leads within the snapshot in insertion order.
func (v transactionView) ListLeads() []Lead {
	out := make([]Lead, 0, len(v.state.Leads))
	for _, l := range v.state.Leads {
		out = append(out, domain.CloneLead(l))
	}
	return out
}

// FindLead retrieves a lead by ID from the snapshot.
func (v transactionView) FindLead(id string) (Lead, bool) {
	idx := indexOf(v.state.Leads, id, leadID)
	if idx < 0 {
		return Lead{}, false
	}
	return domain.CloneLead(v.state.Leads[idx]), true
}

// ListClients returns all clients.
func (v transactionView) ListClients() []Client {
	return append([]Client{}, v.state.Clients...)
}

// FindClient retrieves a client by ID.
func (v transactionView) FindClient(id string) (Client, bool) {
	idx := indexOf(v.state.Clients, id, clientID)
	if idx < 0 {
		return Client{}, false
	}
	return v.state.Clients[idx], true
}

// ListTasks returns all tasks.
func (v transactionView) ListTasks() []Task {
	return append([]Task{}, v.state.Tasks...)
}

// FindTask retrieves a task by ID.
func (v transactionView) FindTask(id string) (Task, bool) {
	idx := indexOf(v.state.Tasks, id, taskID)
	if idx < 0 {
		return Task{}, false
	}
	return v.state.Tasks[idx], true
}

// ListCampaigns returns all campaigns.
func (v transactionView) ListCampaigns() []Campaign {
	out := make([]Campaign, 0, len(v.state.Campaigns))
	for _, c := range v.state.Campaigns {
		out = append(out, domain.CloneCampaign(c))
	}
	return out
}

// FindCampaign retrieves a campaign by ID.
func (v transactionView) FindCampaign(id string) (Campaign, bool) {
	idx := indexOf(v.state.Campaigns, id, campaignID)
	if idx < 0 {
		return Campaign{}, false
	}
	return domain.CloneCampaign(v.state.Campaigns[idx]), true
}

// Settings returns a copy of the settings registry.
func (v transactionView) Settings() Settings {
	return v.state.Settings.Clone()
}
