package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/raqeemx/aset1/internal/record"
	"github.com/raqeemx/aset1/internal/ui"
)

var deptCmd = &cobra.Command{
	Use:   "dept",
	Short: "Manage departments",
}

var deptAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a department",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		d := record.Department{Name: args[0]}
		d.Location, _ = cmd.Flags().GetString("location")
		d.Manager, _ = cmd.Flags().GetString("manager")
		d.SetDefaults()
		if err := d.Validate(); err != nil {
			fatal("invalid department: %v", err)
		}

		synced, err := writeRecord(e, record.ActionCreate, record.Departments, &d)
		if err != nil {
			fatal("failed to save department: %v", err)
		}
		fmt.Printf("%s Created department %s\n", ui.RenderPass("✓"), d.Name)
		if !synced {
			fmt.Println(ui.RenderDim("  queued for sync"))
		}
	},
}

var deptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List departments with asset counts",
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		counts := make(map[string]int)
		for _, payload := range e.orch.Records(record.Assets) {
			var a record.Asset
			if json.Unmarshal(payload, &a) == nil && a.Department != "" {
				counts[a.Department]++
			}
		}

		var depts []record.Department
		for _, payload := range e.orch.Records(record.Departments) {
			var d record.Department
			if json.Unmarshal(payload, &d) == nil {
				depts = append(depts, d)
			}
		}
		sort.Slice(depts, func(i, j int) bool { return depts[i].Name < depts[j].Name })

		if len(depts) == 0 {
			fmt.Println(ui.RenderDim("No departments"))
			return
		}
		for _, d := range depts {
			fmt.Printf("%-28s %-20s %3d assets\n", d.Name, d.Location, counts[d.Name])
		}
	},
}

func init() {
	deptAddCmd.Flags().String("location", "", "Department location")
	deptAddCmd.Flags().String("manager", "", "Department manager")

	deptCmd.AddCommand(deptAddCmd, deptListCmd)
	rootCmd.AddCommand(deptCmd)
}
