package record

import "fmt"

// Department groups assets under an organizational unit. Parent is a plain
// name reference; nothing enforces that the named department exists.
type Department struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Parent   string `json:"parent,omitempty"`
	Location string `json:"location,omitempty"`
	Manager  string `json:"manager,omitempty"`
}

// Validate checks required department fields.
func (d *Department) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("id is required")
	}
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// SetDefaults fills the identity for a freshly created department.
func (d *Department) SetDefaults() {
	if d.ID == "" {
		d.ID = NewID()
	}
}
