package record

import (
	"fmt"
	"time"
)

// Maintenance ticket statuses. Transitions only move forward:
// pending -> in_progress -> completed.
const (
	MaintPending    = "pending"
	MaintInProgress = "in_progress"
	MaintCompleted  = "completed"
)

var maintRank = map[string]int{
	MaintPending:    0,
	MaintInProgress: 1,
	MaintCompleted:  2,
}

// MaintenanceTicket is a repair request against an asset. AssetID is a weak
// reference: deleting the asset does not cascade to its tickets, the ticket
// keeps its name/code snapshot for display.
type MaintenanceTicket struct {
	ID          string  `json:"id"`
	AssetID     string  `json:"assetId"`
	AssetName   string  `json:"assetName,omitempty"`
	AssetCode   string  `json:"assetCode,omitempty"`
	Type        string  `json:"type,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status"`
	RequestDate string  `json:"requestDate,omitempty"`
	Cost        float64 `json:"cost"`
	RequestedBy string  `json:"requestedBy,omitempty"`
	UpdatedAt   int64   `json:"updatedAt,omitempty"`
}

// Validate checks required ticket fields.
func (m *MaintenanceTicket) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("id is required")
	}
	if m.AssetID == "" {
		return fmt.Errorf("assetId is required")
	}
	if _, ok := maintRank[m.Status]; !ok {
		return fmt.Errorf("unknown status %q", m.Status)
	}
	if m.Cost < 0 {
		return fmt.Errorf("cost must be non-negative (got %v)", m.Cost)
	}
	return nil
}

// SetDefaults fills identity, status and request date for a new ticket.
func (m *MaintenanceTicket) SetDefaults() {
	if m.ID == "" {
		m.ID = NewID()
	}
	if m.Status == "" {
		m.Status = MaintPending
	}
	if m.RequestDate == "" {
		m.RequestDate = DateOnly(time.Now())
	}
}

// Transition moves the ticket to newStatus. Backward moves are rejected so
// a completed ticket can never reopen.
func (m *MaintenanceTicket) Transition(newStatus string) error {
	to, ok := maintRank[newStatus]
	if !ok {
		return fmt.Errorf("unknown status %q", newStatus)
	}
	from := maintRank[m.Status]
	if to < from {
		return fmt.Errorf("cannot move ticket %s from %s back to %s", m.ID, m.Status, newStatus)
	}
	m.Status = newStatus
	m.UpdatedAt = time.Now().UnixMilli()
	return nil
}
