package domain

// State is the single authoritative snapshot persisted by the store. Its JSON
// form is the on-disk format: {leads, clients, tasks, campaigns, settings}.
type State struct {
	Leads     []Lead     `json:"leads"`
	Clients   []Client   `json:"clients"`
	Tasks     []Task     `json:"tasks"`
	Campaigns []Campaign `json:"campaigns"`
	Settings  Settings   `json:"settings"`
}

// DefaultState returns the empty state with the default pipeline.
func DefaultState() State {
	return State{
		Leads:     []Lead{},
		Clients:   []Client{},
		Tasks:     []Task{},
		Campaigns: []Campaign{},
		Settings: Settings{
			Stages:       DefaultStages(),
			ScoringRules: []ScoringRule{},
		},
	}
}

// Normalize replaces nil collections with empty ones so that round-tripped
// snapshots compare equal and encode as [] rather than null.
func (s State) Normalize() State {
	if s.Leads == nil {
		s.Leads = []Lead{}
	}
	for i := range s.Leads {
		if s.Leads[i].Tags == nil {
			s.Leads[i].Tags = []string{}
		}
	}
	if s.Clients == nil {
		s.Clients = []Client{}
	}
	if s.Tasks == nil {
		s.Tasks = []Task{}
	}
	if s.Campaigns == nil {
		s.Campaigns = []Campaign{}
	}
	for i := range s.Campaigns {
		if s.Campaigns[i].Steps == nil {
			s.Campaigns[i].Steps = []CampaignStep{}
		}
	}
	if s.Settings.Stages == nil {
		s.Settings.Stages = []string{}
	}
	if s.Settings.ScoringRules == nil {
		s.Settings.ScoringRules = []ScoringRule{}
	}
	return s
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{
		Leads:     make([]Lead, len(s.Leads)),
		Clients:   append([]Client{}, s.Clients...),
		Tasks:     append([]Task{}, s.Tasks...),
		Campaigns: make([]Campaign, len(s.Campaigns)),
		Settings:  s.Settings.Clone(),
	}
	for i, l := range s.Leads {
		out.Leads[i] = CloneLead(l)
	}
	for i, c := range s.Campaigns {
		out.Campaigns[i] = CloneCampaign(c)
	}
	return out
}

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	return Settings{
		Stages:       append([]string{}, s.Stages...),
		ScoringRules: append([]ScoringRule{}, s.ScoringRules...),
	}
}

// CloneLead deep-copies a lead.
func CloneLead(l Lead) Lead {
	cp := l
	cp.Tags = append([]string{}, l.Tags...)
	return cp
}

// CloneCampaign deep-copies a campaign.
func CloneCampaign(c Campaign) Campaign {
	cp := c
	cp.Steps = append([]CampaignStep{}, c.Steps...)
	return cp
}
