// Package seed loads the first-run sample data set. It only fires when
// both the asset and department collections are empty, so a restored
// database is never polluted.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/raqeemx/aset1/internal/record"
	"github.com/raqeemx/aset1/internal/syncer"
)

//go:embed seed.yaml
var seedData []byte

// seedAsset and seedDepartment mirror the record types with yaml tags so
// the data file can use the same camelCase field names as the JSON wire
// format.
type seedAsset struct {
	Name          string  `yaml:"name"`
	Code          string  `yaml:"code"`
	Category      string  `yaml:"category"`
	Department    string  `yaml:"department"`
	Location      string  `yaml:"location"`
	PurchaseDate  string  `yaml:"purchaseDate"`
	PurchasePrice float64 `yaml:"purchasePrice"`
	CurrentValue  float64 `yaml:"currentValue"`
	Condition     string  `yaml:"condition"`
	SerialNumber  string  `yaml:"serialNumber"`
	Supplier      string  `yaml:"supplier"`
	Warranty      string  `yaml:"warranty"`
	Assignee      string  `yaml:"assignee"`
	Notes         string  `yaml:"notes"`
}

type seedDepartment struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Manager  string `yaml:"manager"`
}

type dataSet struct {
	Departments []seedDepartment `yaml:"departments"`
	Assets      []seedAsset      `yaml:"assets"`
}

func (s seedAsset) toRecord() record.Asset {
	return record.Asset{
		Name:          s.Name,
		Code:          s.Code,
		Category:      s.Category,
		Department:    s.Department,
		Location:      s.Location,
		PurchaseDate:  s.PurchaseDate,
		PurchasePrice: s.PurchasePrice,
		CurrentValue:  s.CurrentValue,
		Condition:     s.Condition,
		SerialNumber:  s.SerialNumber,
		Supplier:      s.Supplier,
		Warranty:      s.Warranty,
		Assignee:      s.Assignee,
		Notes:         s.Notes,
	}
}

// RunIfEmpty seeds sample departments and assets through the orchestrator
// when the working set holds neither. Every seeded record flows through
// the normal write path, so it syncs (or queues) like user data.
func RunIfEmpty(ctx context.Context, orch *syncer.Orchestrator, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(os.Stderr, "[seed] ", log.LstdFlags)
	}

	if len(orch.Records(record.Assets)) > 0 || len(orch.Records(record.Departments)) > 0 {
		return nil
	}

	var ds dataSet
	if err := yaml.Unmarshal(seedData, &ds); err != nil {
		return fmt.Errorf("failed to parse seed data: %w", err)
	}

	logger.Printf("Empty database, seeding %d departments and %d assets",
		len(ds.Departments), len(ds.Assets))

	for _, sd := range ds.Departments {
		d := record.Department{Name: sd.Name, Location: sd.Location, Manager: sd.Manager}
		d.SetDefaults()
		if err := d.Validate(); err != nil {
			return fmt.Errorf("invalid seed department %q: %w", d.Name, err)
		}
		payload, err := json.Marshal(&d)
		if err != nil {
			return fmt.Errorf("failed to marshal seed department: %w", err)
		}
		if _, err := orch.RecordWrite(ctx, record.ActionCreate, record.Departments, payload); err != nil {
			return fmt.Errorf("failed to seed department %q: %w", d.Name, err)
		}
	}

	for _, sa := range ds.Assets {
		a := sa.toRecord()
		a.SetDefaults()
		if err := a.Validate(nil, nil); err != nil {
			return fmt.Errorf("invalid seed asset %q: %w", a.Name, err)
		}
		payload, err := json.Marshal(&a)
		if err != nil {
			return fmt.Errorf("failed to marshal seed asset: %w", err)
		}
		if _, err := orch.RecordWrite(ctx, record.ActionCreate, record.Assets, payload); err != nil {
			return fmt.Errorf("failed to seed asset %q: %w", a.Name, err)
		}
	}

	return nil
}
