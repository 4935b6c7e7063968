package core

import (
	"context"
	"strings"

	"leadcrm/pkg/domain"
)

// ParseTags splits a comma separated tag list, trimming each entry and
// dropping empties.
func ParseTags(raw string) []string {
	return cleanTags(strings.Split(raw, ","))
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func normalizeLead(l *Lead) {
	l.Name = strings.TrimSpace(l.Name)
	l.Email = strings.TrimSpace(l.Email)
	l.Phone = strings.TrimSpace(l.Phone)
	l.Status = strings.TrimSpace(l.Status)
	l.Source = strings.TrimSpace(l.Source)
	l.Notes = strings.TrimSpace(l.Notes)
	l.Tags = cleanTags(l.Tags)
}

func normalizeClient(c *Client) {
	c.Name = strings.TrimSpace(c.Name)
	c.Company = strings.TrimSpace(c.Company)
	c.Value = strings.TrimSpace(c.Value)
	c.Status = strings.TrimSpace(c.Status)
	c.Notes = strings.TrimSpace(c.Notes)
}

func normalizeTask(t *Task) {
	t.Title = strings.TrimSpace(t.Title)
	t.DueDate = strings.TrimSpace(t.DueDate)
	t.Notes = strings.TrimSpace(t.Notes)
	if t.Priority == "" {
		t.Priority = domain.TaskPriorityLow
	}
	if t.Status == "" {
		t.Status = domain.TaskStatusOpen
	}
}

func normalizeCampaign(c *Campaign) {
	c.Name = strings.TrimSpace(c.Name)
	c.StartDate = strings.TrimSpace(c.StartDate)
	c.EndDate = strings.TrimSpace(c.EndDate)
	c.Notes = strings.TrimSpace(c.Notes)
	steps := make([]CampaignStep, 0, len(c.Steps))
	for _, step := range c.Steps {
		steps = append(steps, CampaignStep{
			Title: strings.TrimSpace(step.Title),
			Date:  strings.TrimSpace(step.Date),
			Notes: strings.TrimSpace(step.Notes),
		})
	}
	c.Steps = steps
}

func required(entity EntityType, field, value string) error {
	if value == "" {
		return &domain.ValidationError{Entity: entity, Field: field}
	}
	return nil
}

func validateTask(t Task) error {
	if err := required(EntityTask, "title", t.Title); err != nil {
		return err
	}
	if !t.Priority.Valid() {
		return &domain.ValidationError{Entity: EntityTask, Field: "priority", Reason: "must be one of Low, Medium, High"}
	}
	if !t.Status.Valid() {
		return &domain.ValidationError{Entity: EntityTask, Field: "status", Reason: "must be Open or Done"}
	}
	return nil
}

// checkLead validates a lead about to be written. previousStatus is the
// status before an update, or "" for a create. A status that has not changed
// is accepted even when its stage has since been removed.
func checkLead(l *Lead, settings Settings, creating bool, previousStatus string) error {
	if err := required(EntityLead, "name", l.Name); err != nil {
		return err
	}
	if creating && l.Status == "" {
		first, ok := settings.InitialStage()
		if !ok {
			return &domain.InvalidStageError{}
		}
		l.Status = first
		return nil
	}
	if err := required(EntityLead, "status", l.Status); err != nil {
		return err
	}
	if (creating || l.Status != previousStatus) && !settings.HasStage(l.Status) {
		return &domain.InvalidStageError{Stage: l.Status}
	}
	return nil
}

// CreateLead validates and appends a lead. A blank status selects the first
// pipeline stage. Any identifier on the input is replaced.
func (s *Service) CreateLead(ctx context.Context, lead Lead) (Lead, error) {
	var created Lead
	_, err := s.run(ctx, "create_lead", EntityLead, func(tx domain.Transaction) (string, error) {
		candidate := domain.CloneLead(lead)
		candidate.ID = ""
		normalizeLead(&candidate)
		if err := checkLead(&candidate, tx.Snapshot().Settings(), true, ""); err != nil {
			return "", err
		}
		var err error
		created, err = tx.CreateLead(candidate)
		return created.ID, err
	})
	if err != nil {
		return Lead{}, err
	}
	return created, nil
}

// QuickAddLead creates a lead from the minimal quick-add fields.
func (s *Service) QuickAddLead(ctx context.Context, name, email, phone string) (Lead, error) {
	return s.CreateLead(ctx, Lead{Name: name, Email: email, Phone: phone})
}

// UpdateLead applies mutator to a copy of the lead and writes it back.
func (s *Service) UpdateLead(ctx context.Context, id string, mutator func(*Lead) error) (Lead, error) {
	var updated Lead
	_, err := s.run(ctx, "update_lead", EntityLead, func(tx domain.Transaction) (string, error) {
		settings := tx.Snapshot().Settings()
		var err error
		updated, err = tx.UpdateLead(id, func(l *Lead) error {
			previous := l.Status
			if mutator != nil {
				if err := mutator(l); err != nil {
					return err
				}
			}
			normalizeLead(l)
			return checkLead(l, settings, false, previous)
		})
		return id, err
	})
	if err != nil {
		return Lead{}, err
	}
	return updated, nil
}

// DeleteLead removes a lead. Deleting an unknown id is a no-op.
func (s *Service) DeleteLead(ctx context.Context, id string) error {
	_, err := s.run(ctx, "delete_lead", EntityLead, func(tx domain.Transaction) (string, error) {
		_, err := tx.DeleteLead(id)
		return id, err
	})
	return err
}

// FindLead returns the lead with id.
func (s *Service) FindLead(id string) (Lead, bool) {
	var (
		lead Lead
		ok   bool
	)
	s.view(func(v domain.TransactionView) { lead, ok = v.FindLead(id) })
	return lead, ok
}

// ListLeads returns leads in insertion order, filtered by predicate when non-nil.
func (s *Service) ListLeads(predicate func(Lead) bool) []Lead {
	var out []Lead
	s.view(func(v domain.TransactionView) { out = filter(v.ListLeads(), predicate) })
	return out
}

// LeadFilter narrows ListLeadsMatching. Empty fields match everything.
type LeadFilter struct {
	Status string // exact stage name
	Query  string // case-insensitive substring of name, email or phone
}

// Match reports whether l satisfies the filter.
func (f LeadFilter) Match(l Lead) bool {
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.Name), q) ||
		strings.Contains(strings.ToLower(l.Email), q) ||
		strings.Contains(strings.ToLower(l.Phone), q)
}

// ListLeadsMatching returns the leads selected by filter.
func (s *Service) ListLeadsMatching(filter LeadFilter) []Lead {
	return s.ListLeads(filter.Match)
}

// CreateClient validates and appends a client.
func (s *Service) CreateClient(ctx context.Context, client Client) (Client, error) {
	var created Client
	_, err := s.run(ctx, "create_client", EntityClient, func(tx domain.Transaction) (string, error) {
		candidate := client
		candidate.ID = ""
		normalizeClient(&candidate)
		if err := required(EntityClient, "name", candidate.Name); err != nil {
			return "", err
		}
		var err error
		created, err = tx.CreateClient(candidate)
		return created.ID, err
	})
	if err != nil {
		return Client{}, err
	}
	return created, nil
}

// UpdateClient applies mutator to a copy of the client and writes it back.
func (s *Service) UpdateClient(ctx context.Context, id string, mutator func(*Client) error) (Client, error) {
	var updated Client
	_, err := s.run(ctx, "update_client", EntityClient, func(tx domain.Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateClient(id, func(c *Client) error {
			if mutator != nil {
				if err := mutator(c); err != nil {
					return err
				}
			}
			normalizeClient(c)
			return required(EntityClient, "name", c.Name)
		})
		return id, err
	})
	if err != nil {
		return Client{}, err
	}
	return updated, nil
}

// DeleteClient removes a client. Deleting an unknown id is a no-op.
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	_, err := s.run(ctx, "delete_client", EntityClient, func(tx domain.Transaction) (string, error) {
		_, err := tx.DeleteClient(id)
		return id, err
	})
	return err
}

// FindClient returns the client with id.
func (s *Service) FindClient(id string) (Client, bool) {
	var (
		client Client
		ok     bool
	)
	s.view(func(v domain.TransactionView) { client, ok = v.FindClient(id) })
	return client, ok
}

// ListClients returns clients in insertion order.
func (s *Service) ListClients(predicate func(Client) bool) []Client {
	var out []Client
	s.view(func(v domain.TransactionView) { out = filter(v.ListClients(), predicate) })
	return out
}

// CreateTask validates and appends a task. Priority defaults to Low and
// status to Open.
func (s *Service) CreateTask(ctx context.Context, task Task) (Task, error) {
	var created Task
	_, err := s.run(ctx, "create_task", EntityTask, func(tx domain.Transaction) (string, error) {
		candidate := task
		candidate.ID = ""
		normalizeTask(&candidate)
		if err := validateTask(candidate); err != nil {
			return "", err
		}
		var err error
		created, err = tx.CreateTask(candidate)
		return created.ID, err
	})
	if err != nil {
		return Task{}, err
	}
	return created, nil
}

// UpdateTask applies mutator to a copy of the task and writes it back.
func (s *Service) UpdateTask(ctx context.Context, id string, mutator func(*Task) error) (Task, error) {
	var updated Task
	_, err := s.run(ctx, "update_task", EntityTask, func(tx domain.Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateTask(id, func(t *Task) error {
			if mutator != nil {
				if err := mutator(t); err != nil {
					return err
				}
			}
			normalizeTask(t)
			return validateTask(*t)
		})
		return id, err
	})
	if err != nil {
		return Task{}, err
	}
	return updated, nil
}

// ToggleTaskStatus flips a task between Open and Done.
func (s *Service) ToggleTaskStatus(ctx context.Context, id string) (Task, error) {
	var updated Task
	_, err := s.run(ctx, "toggle_task", EntityTask, func(tx domain.Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateTask(id, func(t *Task) error {
			if t.Status == domain.TaskStatusDone {
				t.Status = domain.TaskStatusOpen
			} else {
				t.Status = domain.TaskStatusDone
			}
			return nil
		})
		return id, err
	})
	if err != nil {
		return Task{}, err
	}
	return updated, nil
}

// DeleteTask removes a task. Deleting an unknown id is a no-op.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	_, err := s.run(ctx, "delete_task", EntityTask, func(tx domain.Transaction) (string, error) {
		_, err := tx.DeleteTask(id)
		return id, err
	})
	return err
}

// FindTask returns the task with id.
func (s *Service) FindTask(id string) (Task, bool) {
	var (
		task Task
		ok   bool
	)
	s.view(func(v domain.TransactionView) { task, ok = v.FindTask(id) })
	return task, ok
}

// ListTasks returns tasks in insertion order.
func (s *Service) ListTasks(predicate func(Task) bool) []Task {
	var out []Task
	s.view(func(v domain.TransactionView) { out = filter(v.ListTasks(), predicate) })
	return out
}

// CreateCampaign validates and appends a campaign.
func (s *Service) CreateCampaign(ctx context.Context, campaign Campaign) (Campaign, error) {
	var created Campaign
	_, err := s.run(ctx, "create_campaign", EntityCampaign, func(tx domain.Transaction) (string, error) {
		candidate := domain.CloneCampaign(campaign)
		candidate.ID = ""
		normalizeCampaign(&candidate)
		if err := required(EntityCampaign, "name", candidate.Name); err != nil {
			return "", err
		}
		var err error
		created, err = tx.CreateCampaign(candidate)
		return created.ID, err
	})
	if err != nil {
		return Campaign{}, err
	}
	return created, nil
}

// UpdateCampaign applies mutator to a copy of the campaign and writes it back.
func (s *Service) UpdateCampaign(ctx context.Context, id string, mutator func(*Campaign) error) (Campaign, error) {
	var updated Campaign
	_, err := s.run(ctx, "update_campaign", EntityCampaign, func(tx domain.Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateCampaign(id, func(c *Campaign) error {
			if mutator != nil {
				if err := mutator(c); err != nil {
					return err
				}
			}
			normalizeCampaign(c)
			return required(EntityCampaign, "name", c.Name)
		})
		return id, err
	})
	if err != nil {
		return Campaign{}, err
	}
	return updated, nil
}

// DeleteCampaign removes a campaign. Deleting an unknown id is a no-op.
func (s *Service) DeleteCampaign(ctx context.Context, id string) error {
	_, err := s.run(ctx, "delete_campaign", EntityCampaign, func(tx domain.Transaction) (string, error) {
		_, err := tx.DeleteCampaign(id)
		return id, err
	})
	return err
}

// FindCampaign returns the campaign with id.
func (s *Service) FindCampaign(id string) (Campaign, bool) {
	var (
		campaign Campaign
		ok       bool
	)
	s.view(func(v domain.TransactionView) { campaign, ok = v.FindCampaign(id) })
	return campaign, ok
}

// ListCampaigns returns campaigns in insertion order.
func (s *Service) ListCampaigns(predicate func(Campaign) bool) []Campaign {
	var out []Campaign
	s.view(func(v domain.TransactionView) { out = filter(v.ListCampaigns(), predicate) })
	return out
}

func filter[T any](items []T, predicate func(T) bool) []T {
	if predicate == nil {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if predicate(item) {
			out = append(out, item)
		}
	}
	return out
}
