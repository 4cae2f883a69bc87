package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BadgeID identifies a badge. The ingestion backend may encode it as a JSON string or number.
type BadgeID string

// UnmarshalJSON accepts both `"b1"` and `42`.
func (id *BadgeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = BadgeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("badge id: %w", err)
	}
	*id = BadgeID(n.String())
	return nil
}

// BadgeAward describes an achievement earned server-side. Immutable once received.
type BadgeAward struct {
	ID                  BadgeID `json:"id"`
	Name                string  `json:"name"`
	Description         string  `json:"description,omitempty"`
	Icon                string  `json:"icon,omitempty"`
	Category            string  `json:"category,omitempty"`
	CriteriaDescription string  `json:"criteria_description,omitempty"`
	RewardType          string  `json:"reward_type,omitempty"`
	RewardValue         any     `json:"reward_value,omitempty"`
}

// BadgeUpdates is the gamification part of an ingestion response.
type BadgeUpdates struct {
	NewBadges   []BadgeAward `json:"newBadges"`
	TotalBadges int          `json:"totalBadges"`
}

// ResultData is the optional data envelope of an ingestion response.
type ResultData struct {
	BadgeUpdates *BadgeUpdates `json:"badgeUpdates,omitempty"`
}

// BatchResult is the decoded ingestion response.
type BatchResult struct {
	Success bool        `json:"success"`
	Data    *ResultData `json:"data,omitempty"`
}

// NewBadges returns the badges awarded by this result, or nil.
func (r *BatchResult) NewBadges() []BadgeAward {
	if r == nil || r.Data == nil || r.Data.BadgeUpdates == nil {
		return nil
	}
	return r.Data.BadgeUpdates.NewBadges
}

// TotalBadges returns the owner's badge total snapshot, or 0 when absent.
func (r *BatchResult) TotalBadges() int {
	if r == nil || r.Data == nil || r.Data.BadgeUpdates == nil {
		return 0
	}
	return r.Data.BadgeUpdates.TotalBadges
}
