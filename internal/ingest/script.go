package ingest

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"linkbio-telemetry/backend/internal/telemetry/domain"
)

// Script is a replay fixture of badge responses, loaded from YAML:
//
//	steps:
//	  - after_events: 3
//	    badges:
//	      - id: first-clicks
//	        name: First Clicks
//	        reward_type: points
//	        reward_value: 10
//
// A step fires once, on the first batch that brings the received event count to after_events or more.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step is one scripted award.
type Step struct {
	AfterEvents int           `yaml:"after_events"`
	Badges      []ScriptBadge `yaml:"badges"`
}

// ScriptBadge is the YAML form of domain.BadgeAward.
type ScriptBadge struct {
	ID                  string `yaml:"id"`
	Name                string `yaml:"name"`
	Description         string `yaml:"description"`
	Icon                string `yaml:"icon"`
	Category            string `yaml:"category"`
	CriteriaDescription string `yaml:"criteria_description"`
	RewardType          string `yaml:"reward_type"`
	RewardValue         any    `yaml:"reward_value"`
}

// Award converts b to the wire type.
func (b ScriptBadge) Award() domain.BadgeAward {
	return domain.BadgeAward{
		ID:                  domain.BadgeID(b.ID),
		Name:                b.Name,
		Description:         b.Description,
		Icon:                b.Icon,
		Category:            b.Category,
		CriteriaDescription: b.CriteriaDescription,
		RewardType:          b.RewardType,
		RewardValue:         b.RewardValue,
	}
}

// ParseScript decodes and validates a YAML script. Steps are ordered by after_events.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("ingest: parse script: %w", err)
	}
	for i, step := range s.Steps {
		if step.AfterEvents < 1 {
			return nil, fmt.Errorf("ingest: script step %d: after_events must be at least 1", i)
		}
		for j, b := range step.Badges {
			if b.ID == "" {
				return nil, fmt.Errorf("ingest: script step %d badge %d: id is required", i, j)
			}
		}
	}
	sort.SliceStable(s.Steps, func(i, j int) bool { return s.Steps[i].AfterEvents < s.Steps[j].AfterEvents })
	return &s, nil
}

// LoadScript reads and parses the YAML script at path.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read script: %w", err)
	}
	return ParseScript(data)
}
