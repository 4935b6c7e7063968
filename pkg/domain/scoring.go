package domain

import "strings"

// ComputeScore sums the value of every scoring rule whose lowercased name
// equals one of the lead's lowercased tags or its lowercased source. Each rule
// counts at most once. The result is derived on every call and never stored.
func ComputeScore(lead Lead, settings Settings) int {
	if len(settings.ScoringRules) == 0 {
		return 0
	}
	tags := make(map[string]struct{}, len(lead.Tags))
	for _, tag := range lead.Tags {
		tags[strings.ToLower(tag)] = struct{}{}
	}
	source := strings.ToLower(lead.Source)

	score := 0
	for _, rule := range settings.ScoringRules {
		name := strings.ToLower(rule.Name)
		if _, ok := tags[name]; ok || source == name {
			score += rule.Value
		}
	}
	return score
}
