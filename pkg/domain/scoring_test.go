package domain

import "testing"

func TestComputeScore(t *testing.T) {
	settings := Settings{
		Stages: []string{},
		ScoringRules: []ScoringRule{
			{ID: "r1", Name: "vip", Value: 10},
			{ID: "r2", Name: "web", Value: 5},
		},
	}

	cases := []struct {
		name string
		lead Lead
		want int
	}{
		{name: "tag and source match case-insensitively", lead: Lead{Tags: []string{"VIP"}, Source: "Web"}, want: 15},
		{name: "no match", lead: Lead{Tags: []string{"cold"}, Source: "referral"}, want: 0},
		{name: "empty lead", lead: Lead{}, want: 0},
		{name: "source only", lead: Lead{Source: "WEB"}, want: 5},
		{name: "rule counts once for repeated tags", lead: Lead{Tags: []string{"vip", "Vip", "VIP"}}, want: 10},
		{name: "rule counts once when tag and source both match", lead: Lead{Tags: []string{"web"}, Source: "web"}, want: 5},
		{name: "substring does not match", lead: Lead{Tags: []string{"vips"}, Source: "website"}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeScore(tc.lead, settings); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestComputeScoreWithoutRules(t *testing.T) {
	lead := Lead{Tags: []string{"vip", "web"}, Source: "web"}
	if got := ComputeScore(lead, Settings{Stages: DefaultStages()}); got != 0 {
		t.Fatalf("expected 0 without rules, got %d", got)
	}
}

func TestComputeScoreNegativeAndDuplicateRules(t *testing.T) {
	settings := Settings{ScoringRules: []ScoringRule{
		{Name: "vip", Value: 10},
		{Name: "VIP", Value: 3},
		{Name: "spam", Value: -20},
	}}
	lead := Lead{Tags: []string{"vip", "spam"}}
	if got := ComputeScore(lead, settings); got != -7 {
		t.Fatalf("expected -7, got %d", got)
	}
}

func TestComputeScoreReflectsRuleEdits(t *testing.T) {
	lead := Lead{Tags: []string{"vip"}}
	settings := Settings{ScoringRules: []ScoringRule{{Name: "vip", Value: 10}}}
	if ComputeScore(lead, settings) != 10 {
		t.Fatalf("expected initial score 10")
	}
	settings.ScoringRules = nil
	if ComputeScore(lead, settings) != 0 {
		t.Fatalf("expected score to drop after rule removal")
	}
	lead.Tags = nil
	settings.ScoringRules = []ScoringRule{{Name: "vip", Value: 10}}
	if ComputeScore(lead, settings) != 0 {
		t.Fatalf("expected score to drop after tag removal")
	}
}
