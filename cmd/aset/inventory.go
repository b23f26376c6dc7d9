package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/raqeemx/aset1/internal/record"
	"github.com/raqeemx/aset1/internal/ui"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Manage inventory count runs",
}

var inventoryStartCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Start an inventory count",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		l := record.InventoryLog{Name: args[0]}
		l.Department, _ = cmd.Flags().GetString("department")
		if person, err := e.store.GetSetting(settingInventoryPerson); err == nil {
			l.InventoryPerson = person
		}

		// Snapshot how many assets the run covers.
		for _, payload := range e.orch.Records(record.Assets) {
			var a record.Asset
			if json.Unmarshal(payload, &a) != nil {
				continue
			}
			if l.Department == "" || a.Department == l.Department {
				l.AssetsCount++
			}
		}

		l.SetDefaults()
		if err := l.Validate(); err != nil {
			fatal("invalid inventory run: %v", err)
		}

		synced, err := writeRecord(e, record.ActionCreate, record.InventoryLogs, &l)
		if err != nil {
			fatal("failed to save inventory run: %v", err)
		}
		fmt.Printf("%s Started %q covering %d assets (%s)\n", ui.RenderPass("✓"), l.Name, l.AssetsCount, l.ID)
		if !synced {
			fmt.Println(ui.RenderDim("  queued for sync"))
		}
	},
}

var inventoryCompleteCmd = &cobra.Command{
	Use:   "complete <run-id>",
	Short: "Mark an inventory count completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		payload, ok := e.orch.Get(record.InventoryLogs, args[0])
		if !ok {
			fatal("inventory run %q not found", args[0])
		}
		var l record.InventoryLog
		if err := json.Unmarshal(payload, &l); err != nil {
			fatal("corrupt inventory record: %v", err)
		}

		l.Status = record.InventoryCompleted
		synced, err := writeRecord(e, record.ActionUpdate, record.InventoryLogs, &l)
		if err != nil {
			fatal("failed to update inventory run: %v", err)
		}
		fmt.Printf("%s Completed %q\n", ui.RenderPass("✓"), l.Name)
		if !synced {
			fmt.Println(ui.RenderDim("  queued for sync"))
		}
	},
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inventory runs",
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		var runs []record.InventoryLog
		for _, payload := range e.orch.Records(record.InventoryLogs) {
			var l record.InventoryLog
			if json.Unmarshal(payload, &l) == nil {
				runs = append(runs, l)
			}
		}
		sort.Slice(runs, func(i, j int) bool { return runs[i].Date > runs[j].Date })

		if len(runs) == 0 {
			fmt.Println(ui.RenderDim("No inventory runs"))
			return
		}
		for _, l := range runs {
			marker := ui.RenderAccent("●")
			if l.Status == record.InventoryCompleted {
				marker = ui.RenderPass("●")
			}
			scope := l.Department
			if scope == "" {
				scope = "all departments"
			}
			fmt.Printf("%s %-24s %-10s %-24s %3d assets  %s\n", marker, l.ID, l.Date, l.Name, l.AssetsCount, scope)
		}
	},
}

func init() {
	inventoryStartCmd.Flags().String("department", "", "Limit the run to one department")

	inventoryCmd.AddCommand(inventoryStartCmd, inventoryCompleteCmd, inventoryListCmd)
	rootCmd.AddCommand(inventoryCmd)
}
