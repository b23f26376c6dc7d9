package record

import (
	"regexp"
	"testing"
	"time"
)

func TestNewID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^id_\d{13}_[0-9a-z]{9}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if !pattern.MatchString(id) {
			t.Fatalf("NewID() = %q, want id_<millis>_<9 base36 chars>", id)
		}
		if seen[id] {
			t.Fatalf("NewID() produced duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestCollectionAction_Valid(t *testing.T) {
	for _, c := range AllCollections {
		if !c.Valid() {
			t.Errorf("Collection(%q).Valid() = false", c)
		}
	}
	if Collection("widgets").Valid() {
		t.Error("unknown collection reported valid")
	}

	for _, a := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
		if !a.Valid() {
			t.Errorf("Action(%q).Valid() = false", a)
		}
	}
	if Action("rename").Valid() {
		t.Error("unknown action reported valid")
	}
}

func TestNextAssetCode_Sequencing(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		category string
		existing []string
		want     string
	}{
		{"first code", "Electronics", nil, "IT-2024-001"},
		{"continues sequence", "Electronics", []string{"IT-2024-001", "IT-2024-007"}, "IT-2024-008"},
		{"other prefixes ignored", "Electronics", []string{"FRN-2024-009"}, "IT-2024-001"},
		{"other years ignored", "Electronics", []string{"IT-2023-042"}, "IT-2024-001"},
		{"unknown category falls back", "Mystery", nil, "GEN-2024-001"},
		{"malformed codes ignored", "Furniture", []string{"FRN-24-1", "garbage"}, "FRN-2024-001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextAssetCode(tt.category, tt.existing, now); got != tt.want {
				t.Errorf("NextAssetCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssetValidate(t *testing.T) {
	valid := Asset{ID: "a1", Name: "Desk", Category: "Furniture", Condition: "Good"}
	if err := valid.Validate(nil, nil); err != nil {
		t.Errorf("valid asset rejected: %v", err)
	}

	tests := []struct {
		name  string
		mut   func(*Asset)
	}{
		{"missing id", func(a *Asset) { a.ID = "" }},
		{"missing name", func(a *Asset) { a.Name = "" }},
		{"negative price", func(a *Asset) { a.PurchasePrice = -1 }},
		{"negative value", func(a *Asset) { a.CurrentValue = -1 }},
		{"unknown category", func(a *Asset) { a.Category = "Spaceships" }},
		{"unknown condition", func(a *Asset) { a.Condition = "Mint" }},
		{"confidence out of range", func(a *Asset) { a.AIConfidence = 101 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mut(&a)
			if err := a.Validate(nil, nil); err == nil {
				t.Error("Validate() accepted invalid asset")
			}
		})
	}
}

func TestAssetValidate_CustomCategories(t *testing.T) {
	a := Asset{ID: "a1", Name: "Scanner", Category: "Lab Equipment"}
	if err := a.Validate(nil, nil); err == nil {
		t.Error("category outside defaults accepted without custom list")
	}
	if err := a.Validate([]string{"Lab Equipment"}, nil); err != nil {
		t.Errorf("category in custom list rejected: %v", err)
	}
}

func TestAssetSetDefaults(t *testing.T) {
	var a Asset
	a.SetDefaults()

	if a.ID == "" {
		t.Error("SetDefaults() left id empty")
	}
	if a.Condition != DefaultConditions[0] {
		t.Errorf("Condition = %q, want %q", a.Condition, DefaultConditions[0])
	}
	if a.UpdatedAt == 0 {
		t.Error("SetDefaults() left UpdatedAt zero")
	}
}

func TestMaintenanceTransition_ForwardOnly(t *testing.T) {
	m := MaintenanceTicket{ID: "m1", AssetID: "a1"}
	m.SetDefaults()

	if m.Status != MaintPending {
		t.Fatalf("default status = %q, want pending", m.Status)
	}

	if err := m.Transition(MaintInProgress); err != nil {
		t.Fatalf("pending -> in_progress rejected: %v", err)
	}
	if err := m.Transition(MaintCompleted); err != nil {
		t.Fatalf("in_progress -> completed rejected: %v", err)
	}

	// Completed tickets never reopen.
	if err := m.Transition(MaintInProgress); err == nil {
		t.Error("completed -> in_progress accepted")
	}
	if err := m.Transition(MaintPending); err == nil {
		t.Error("completed -> pending accepted")
	}
	if err := m.Transition("paused"); err == nil {
		t.Error("unknown status accepted")
	}

	// Same-status transition is allowed and harmless.
	if err := m.Transition(MaintCompleted); err != nil {
		t.Errorf("completed -> completed rejected: %v", err)
	}
}

func TestMaintenanceValidate(t *testing.T) {
	m := MaintenanceTicket{ID: "m1", AssetID: "a1", Status: MaintPending}
	if err := m.Validate(); err != nil {
		t.Errorf("valid ticket rejected: %v", err)
	}

	m2 := m
	m2.AssetID = ""
	if err := m2.Validate(); err == nil {
		t.Error("ticket without assetId accepted")
	}

	m3 := m
	m3.Cost = -5
	if err := m3.Validate(); err == nil {
		t.Error("negative cost accepted")
	}
}

func TestInventoryLogDefaults(t *testing.T) {
	l := InventoryLog{Name: "Q2 count"}
	l.SetDefaults()

	if l.ID == "" || l.Date == "" || l.CreatedAt == "" {
		t.Errorf("SetDefaults() left fields empty: %+v", l)
	}
	if l.Status != InventoryInProgress {
		t.Errorf("Status = %q, want in_progress", l.Status)
	}
	if err := l.Validate(); err != nil {
		t.Errorf("defaulted log rejected: %v", err)
	}
}

func TestDateOnly(t *testing.T) {
	got := DateOnly(time.Date(2024, 3, 7, 15, 4, 5, 0, time.UTC))
	if got != "2024-03-07" {
		t.Errorf("DateOnly() = %q, want 2024-03-07", got)
	}
}
