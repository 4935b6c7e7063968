package domain

import (
	"fmt"
	"strings"
)

// StageRemovalPolicy decides what happens to leads whose status names a stage
// that is being removed from the registry.
type StageRemovalPolicy string

// Supported stage removal policies.
const (
	// StageRemovalOrphan keeps the dangling status. Orphaned leads drop off
	// the board and are reported as warnings.
	StageRemovalOrphan StageRemovalPolicy = "orphan"
	// StageRemovalReassign moves affected leads to the first remaining stage.
	StageRemovalReassign StageRemovalPolicy = "reassign"
	// StageRemovalForbid refuses to remove a stage that any lead still uses.
	StageRemovalForbid StageRemovalPolicy = "forbid"
)

// ParseStageRemovalPolicy maps a configuration value to a policy. Blank input
// selects StageRemovalOrphan.
func ParseStageRemovalPolicy(raw string) (StageRemovalPolicy, error) {
	switch p := StageRemovalPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return StageRemovalOrphan, nil
	case StageRemovalOrphan, StageRemovalReassign, StageRemovalForbid:
		return p, nil
	default:
		return "", fmt.Errorf("unknown stage removal policy %q", raw)
	}
}
