package record

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultCategories is the seed category list. It can be replaced through
// settings; validation always runs against the configured list.
var DefaultCategories = []string{
	"Furniture",
	"Electronics",
	"Vehicles",
	"Medical Equipment",
	"Office Equipment",
	"Electrical Appliances",
	"Other",
}

// DefaultConditions is the seed condition list, best to worst.
var DefaultConditions = []string{
	"Excellent",
	"Good",
	"Acceptable",
	"Needs Maintenance",
	"Damaged",
}

// categoryPrefixes maps default categories to asset code prefixes.
// Codes look like IT-2024-001.
var categoryPrefixes = map[string]string{
	"Furniture":             "FRN",
	"Electronics":           "IT",
	"Vehicles":              "VEH",
	"Medical Equipment":     "MED",
	"Office Equipment":      "OFC",
	"Electrical Appliances": "ELC",
	"Other":                 "GEN",
}

// Asset is a tracked piece of equipment. Field names follow the remote
// table API's JSON contract.
type Asset struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Code              string   `json:"code"` // human lookup key, not unique system-wide
	Category          string   `json:"category"`
	SerialNumber      string   `json:"serialNumber,omitempty"`
	Department        string   `json:"department,omitempty"`
	Location          string   `json:"location,omitempty"`
	PurchasePrice     float64  `json:"purchasePrice"`
	CurrentValue      float64  `json:"currentValue"`
	PurchaseDate      string   `json:"purchaseDate,omitempty"`
	Condition         string   `json:"condition"`
	Supplier          string   `json:"supplier,omitempty"`
	Warranty          string   `json:"warranty,omitempty"`
	Assignee          string   `json:"assignee,omitempty"`
	InventoryPerson   string   `json:"inventoryPerson,omitempty"`
	LastInventoryDate string   `json:"lastInventoryDate,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	Images            []string `json:"images,omitempty"` // embedded data URLs
	AIAnalyzed        bool     `json:"aiAnalyzed,omitempty"`
	AIConfidence      int      `json:"aiConfidence,omitempty"`
	UpdatedAt         int64    `json:"updatedAt"` // unix milliseconds
}

// Validate checks the asset against the configured category and condition
// sets. Empty categories/conditions fall back to the defaults.
func (a *Asset) Validate(categories, conditions []string) error {
	if a.ID == "" {
		return fmt.Errorf("id is required")
	}
	if a.Name == "" {
		return fmt.Errorf("name is required")
	}
	if a.PurchasePrice < 0 {
		return fmt.Errorf("purchasePrice must be non-negative (got %v)", a.PurchasePrice)
	}
	if a.CurrentValue < 0 {
		return fmt.Errorf("currentValue must be non-negative (got %v)", a.CurrentValue)
	}
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	if a.Category != "" && !contains(categories, a.Category) {
		return fmt.Errorf("unknown category %q", a.Category)
	}
	if len(conditions) == 0 {
		conditions = DefaultConditions
	}
	if a.Condition != "" && !contains(conditions, a.Condition) {
		return fmt.Errorf("unknown condition %q", a.Condition)
	}
	if a.AIConfidence < 0 || a.AIConfidence > 100 {
		return fmt.Errorf("aiConfidence must be 0-100 (got %d)", a.AIConfidence)
	}
	return nil
}

// SetDefaults fills identity and timestamps for a freshly created asset.
func (a *Asset) SetDefaults() {
	if a.ID == "" {
		a.ID = NewID()
	}
	if a.Condition == "" {
		a.Condition = DefaultConditions[0]
	}
	if a.UpdatedAt == 0 {
		a.UpdatedAt = time.Now().UnixMilli()
	}
}

// Touch bumps the modification timestamp. Call on every field change.
func (a *Asset) Touch() {
	a.UpdatedAt = time.Now().UnixMilli()
}

// CodePrefix returns the asset code prefix for a category, GEN when the
// category has no mapping.
func CodePrefix(category string) string {
	if p, ok := categoryPrefixes[category]; ok {
		return p
	}
	return "GEN"
}

var codePattern = regexp.MustCompile(`^([A-Z]+)-(\d{4})-(\d+)$`)

// NextAssetCode suggests the next code for a category given the codes
// already in use: PREFIX-YEAR-NNN with the sequence scoped to prefix and
// current year.
func NextAssetCode(category string, existing []string, now time.Time) string {
	prefix := CodePrefix(category)
	year := now.Format("2006")

	max := 0
	for _, code := range existing {
		m := codePattern.FindStringSubmatch(code)
		if m == nil || m[1] != prefix || m[2] != year {
			continue
		}
		if n, err := strconv.Atoi(m[3]); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%s-%03d", prefix, year, max+1)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
