package record

import (
	"fmt"
	"time"
)

// Inventory run statuses.
const (
	InventoryInProgress = "in_progress"
	InventoryCompleted  = "completed"
)

// InventoryLog describes a scheduled or running inventory count. Department
// is an optional scope; empty means the whole office.
type InventoryLog struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Department      string `json:"department,omitempty"`
	Date            string `json:"date"`
	Status          string `json:"status"`
	AssetsCount     int    `json:"assetsCount"`
	InventoryPerson string `json:"inventoryPerson,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
}

// Validate checks required inventory log fields.
func (l *InventoryLog) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("id is required")
	}
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	if l.Status != InventoryInProgress && l.Status != InventoryCompleted {
		return fmt.Errorf("unknown status %q", l.Status)
	}
	if l.AssetsCount < 0 {
		return fmt.Errorf("assetsCount must be non-negative (got %d)", l.AssetsCount)
	}
	return nil
}

// SetDefaults fills identity, status, date and creation time for a new run.
func (l *InventoryLog) SetDefaults() {
	now := time.Now()
	if l.ID == "" {
		l.ID = NewID()
	}
	if l.Status == "" {
		l.Status = InventoryInProgress
	}
	if l.Date == "" {
		l.Date = DateOnly(now)
	}
	if l.CreatedAt == "" {
		l.CreatedAt = now.Format(time.RFC3339)
	}
}
