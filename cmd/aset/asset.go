package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/raqeemx/aset1/internal/record"
	"github.com/raqeemx/aset1/internal/ui"
)

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Manage inventory assets",
}

var assetAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an asset (interactive form when no --name given)",
	Long: `Add an asset to the inventory.

With --name the asset is created from flags. Without it an interactive
form collects the fields. --purchased accepts natural language dates
("last monday", "3 weeks ago") as well as YYYY-MM-DD.

The asset code is auto-suggested as PREFIX-YEAR-NNN from the category
when not given explicitly.`,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		a := record.Asset{}
		a.Name, _ = cmd.Flags().GetString("name")
		a.Code, _ = cmd.Flags().GetString("code")
		a.Category, _ = cmd.Flags().GetString("category")
		a.Department, _ = cmd.Flags().GetString("department")
		a.Location, _ = cmd.Flags().GetString("location")
		a.Condition, _ = cmd.Flags().GetString("condition")
		a.SerialNumber, _ = cmd.Flags().GetString("serial")
		a.Notes, _ = cmd.Flags().GetString("notes")
		a.PurchasePrice, _ = cmd.Flags().GetFloat64("price")
		a.CurrentValue, _ = cmd.Flags().GetFloat64("value")

		purchased, _ := cmd.Flags().GetString("purchased")
		if purchased != "" {
			t, err := parseDate(purchased)
			if err != nil {
				fatal("%v", err)
			}
			a.PurchaseDate = record.DateOnly(t)
		}

		if a.Name == "" {
			if err := runAssetForm(e, &a); err != nil {
				fatal("%v", err)
			}
		}

		if a.Code == "" {
			a.Code = record.NextAssetCode(a.Category, assetCodes(e), time.Now())
		}
		if a.CurrentValue == 0 {
			a.CurrentValue = a.PurchasePrice
		}
		if person, err := e.store.GetSetting(settingInventoryPerson); err == nil {
			a.InventoryPerson = person
		}
		a.SetDefaults()

		if err := a.Validate(e.categories(), nil); err != nil {
			fatal("invalid asset: %v", err)
		}

		synced, err := writeRecord(e, record.ActionCreate, record.Assets, &a)
		if err != nil {
			fatal("failed to save asset: %v", err)
		}

		fmt.Printf("%s Created %s (%s)\n", ui.RenderPass("✓"), a.Code, a.ID)
		if !synced {
			fmt.Println(ui.RenderDim("  queued for sync"))
		}
	},
}

var assetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assets",
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		category, _ := cmd.Flags().GetString("category")
		department, _ := cmd.Flags().GetString("department")

		var assets []record.Asset
		for _, payload := range e.orch.Records(record.Assets) {
			var a record.Asset
			if err := json.Unmarshal(payload, &a); err != nil {
				continue
			}
			if category != "" && a.Category != category {
				continue
			}
			if department != "" && a.Department != department {
				continue
			}
			assets = append(assets, a)
		}
		sort.Slice(assets, func(i, j int) bool { return assets[i].Code < assets[j].Code })

		if len(assets) == 0 {
			fmt.Println(ui.RenderDim("No assets"))
			return
		}
		for _, a := range assets {
			line := fmt.Sprintf("%-14s %-32s %-12s %s", a.Code, a.Name, a.Condition, a.Department)
			if a.AIAnalyzed {
				line += " " + ui.RenderDim(fmt.Sprintf("(AI %d%%)", a.AIConfidence))
			}
			fmt.Println(line)
		}
		fmt.Printf("\n%d assets\n", len(assets))
	},
}

var assetShowCmd = &cobra.Command{
	Use:   "show <id-or-code>",
	Short: "Show one asset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		a, ok := findAsset(e, args[0])
		if !ok {
			fatal("asset %q not found", args[0])
		}

		fmt.Printf("%s %s\n", ui.RenderAccent(a.Code), a.Name)
		fmt.Printf("  ID:         %s\n", a.ID)
		fmt.Printf("  Category:   %s\n", a.Category)
		fmt.Printf("  Condition:  %s\n", a.Condition)
		fmt.Printf("  Department: %s\n", a.Department)
		fmt.Printf("  Location:   %s\n", a.Location)
		fmt.Printf("  Price:      %.2f (current %.2f)\n", a.PurchasePrice, a.CurrentValue)
		if a.PurchaseDate != "" {
			fmt.Printf("  Purchased:  %s\n", a.PurchaseDate)
		}
		if a.SerialNumber != "" {
			fmt.Printf("  Serial:     %s\n", a.SerialNumber)
		}
		if a.Assignee != "" {
			fmt.Printf("  Assignee:   %s\n", a.Assignee)
		}
		if a.Notes != "" {
			fmt.Printf("  Notes:      %s\n", a.Notes)
		}
		if a.AIAnalyzed {
			fmt.Printf("  AI:         analyzed, confidence %d%%\n", a.AIConfidence)
		}
	},
}

var assetRmCmd = &cobra.Command{
	Use:   "rm <id-or-code>",
	Short: "Delete an asset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		a, ok := findAsset(e, args[0])
		if !ok {
			fatal("asset %q not found", args[0])
		}

		synced, err := writeRecord(e, record.ActionDelete, record.Assets, &a)
		if err != nil {
			fatal("failed to delete asset: %v", err)
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), a.Code)
		if !synced {
			fmt.Println(ui.RenderDim("  queued for sync"))
		}
	},
}

// runAssetForm collects asset fields interactively.
func runAssetForm(e *env, a *record.Asset) error {
	categories := e.categories()
	price := ""

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}).
				Value(&a.Name),
			huh.NewSelect[string]().
				Title("Category").
				Options(huh.NewOptions(categories...)...).
				Value(&a.Category),
			huh.NewSelect[string]().
				Title("Condition").
				Options(huh.NewOptions(record.DefaultConditions...)...).
				Value(&a.Condition),
			huh.NewInput().
				Title("Department").
				Value(&a.Department),
			huh.NewInput().
				Title("Location").
				Value(&a.Location),
			huh.NewInput().
				Title("Purchase price").
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					var f float64
					if _, err := fmt.Sscanf(s, "%f", &f); err != nil || f < 0 {
						return fmt.Errorf("enter a non-negative number")
					}
					return nil
				}).
				Value(&price),
			huh.NewText().
				Title("Notes").
				Value(&a.Notes),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("form canceled: %w", err)
	}

	if price != "" {
		fmt.Sscanf(price, "%f", &a.PurchasePrice)
	}
	return nil
}

// parseDate accepts YYYY-MM-DD or natural language ("last tuesday").
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, time.Now())
	if err != nil || r == nil {
		return time.Time{}, fmt.Errorf("could not parse date %q", s)
	}
	return r.Time, nil
}

// writeRecord marshals a record and runs it through the normal write
// path. When a remote is configured the orchestrator goes online first so
// the single immediate sync attempt happens.
func writeRecord(e *env, action record.Action, collection record.Collection, v any) (synced bool, err error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("failed to marshal record: %w", err)
	}
	if e.remoteConfigured() {
		e.orch.HandleOnline()
	}
	wr, err := e.orch.RecordWrite(context.Background(), action, collection, payload)
	if err != nil {
		return false, err
	}
	return wr.Synced, nil
}

// patchRecord is writeRecord's partial-update variant: the full record
// persists locally while only the changed fields cross the wire.
func patchRecord(e *env, collection record.Collection, id string, partial, full json.RawMessage) (synced bool, err error) {
	if e.remoteConfigured() {
		e.orch.HandleOnline()
	}
	wr, err := e.orch.RecordPatch(context.Background(), collection, id, partial, full)
	if err != nil {
		return false, err
	}
	return wr.Synced, nil
}

// findAsset resolves an argument against IDs first, then codes.
func findAsset(e *env, key string) (record.Asset, bool) {
	if payload, ok := e.orch.Get(record.Assets, key); ok {
		var a record.Asset
		if json.Unmarshal(payload, &a) == nil {
			return a, true
		}
	}
	for _, payload := range e.orch.Records(record.Assets) {
		var a record.Asset
		if json.Unmarshal(payload, &a) == nil && a.Code == key {
			return a, true
		}
	}
	return record.Asset{}, false
}

// assetCodes collects every code in use for NextAssetCode.
func assetCodes(e *env) []string {
	var codes []string
	for _, payload := range e.orch.Records(record.Assets) {
		var a record.Asset
		if json.Unmarshal(payload, &a) == nil && a.Code != "" {
			codes = append(codes, a.Code)
		}
	}
	return codes
}

func init() {
	assetAddCmd.Flags().String("name", "", "Asset name")
	assetAddCmd.Flags().String("code", "", "Asset code (auto-suggested when empty)")
	assetAddCmd.Flags().String("category", "", "Category")
	assetAddCmd.Flags().String("department", "", "Department name")
	assetAddCmd.Flags().String("location", "", "Physical location")
	assetAddCmd.Flags().String("condition", "", "Condition")
	assetAddCmd.Flags().String("serial", "", "Serial number")
	assetAddCmd.Flags().String("notes", "", "Free-form notes")
	assetAddCmd.Flags().Float64("price", 0, "Purchase price")
	assetAddCmd.Flags().Float64("value", 0, "Current value (defaults to price)")
	assetAddCmd.Flags().String("purchased", "", "Purchase date (YYYY-MM-DD or natural language)")

	assetListCmd.Flags().String("category", "", "Filter by category")
	assetListCmd.Flags().String("department", "", "Filter by department")

	assetCmd.AddCommand(assetAddCmd, assetListCmd, assetShowCmd, assetRmCmd)
	rootCmd.AddCommand(assetCmd)
}
