package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/raqeemx/aset1/internal/record"
	"github.com/raqeemx/aset1/internal/ui"
)

var maintCmd = &cobra.Command{
	Use:   "maint",
	Short: "Manage maintenance tickets",
}

var maintAddCmd = &cobra.Command{
	Use:   "add <asset-id-or-code>",
	Short: "Open a maintenance ticket for an asset",
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

		m := record.MaintenanceTicket{
			AssetID:   a.ID,
			AssetName: a.Name,
			AssetCode: a.Code,
		}
		m.Type, _ = cmd.Flags().GetString("type")
		m.Priority, _ = cmd.Flags().GetString("priority")
		m.Description, _ = cmd.Flags().GetString("desc")
		m.RequestedBy, _ = cmd.Flags().GetString("by")
		m.Cost, _ = cmd.Flags().GetFloat64("cost")
		m.SetDefaults()
		if err := m.Validate(); err != nil {
			fatal("invalid ticket: %v", err)
		}

		synced, err := writeRecord(e, record.ActionCreate, record.Maintenance, &m)
		if err != nil {
			fatal("failed to save ticket: %v", err)
		}
		fmt.Printf("%s Opened ticket %s for %s\n", ui.RenderPass("✓"), m.ID, a.Code)
		if !synced {
			fmt.Println(ui.RenderDim("  queued for sync"))
		}
	},
}

var maintListCmd = &cobra.Command{
	Use:   "list",
	Short: "List maintenance tickets",
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		status, _ := cmd.Flags().GetString("status")

		var tickets []record.MaintenanceTicket
		for _, payload := range e.orch.Records(record.Maintenance) {
			var m record.MaintenanceTicket
			if err := json.Unmarshal(payload, &m); err != nil {
				continue
			}
			if status != "" && m.Status != status {
				continue
			}
			tickets = append(tickets, m)
		}
		sort.Slice(tickets, func(i, j int) bool { return tickets[i].RequestDate < tickets[j].RequestDate })

		if len(tickets) == 0 {
			fmt.Println(ui.RenderDim("No tickets"))
			return
		}
		for _, m := range tickets {
			marker := ui.RenderWarn("●")
			switch m.Status {
			case record.MaintCompleted:
				marker = ui.RenderPass("●")
			case record.MaintInProgress:
				marker = ui.RenderAccent("●")
			}
			fmt.Printf("%s %-24s %-14s %-12s %s\n", marker, m.ID, m.AssetCode, m.Status, m.Description)
		}
	},
}

var maintStatusCmd = &cobra.Command{
	Use:   "status <ticket-id> <pending|in_progress|completed>",
	Short: "Advance a ticket's status (forward only)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		payload, ok := e.orch.Get(record.Maintenance, args[0])
		if !ok {
			fatal("ticket %q not found", args[0])
		}
		var m record.MaintenanceTicket
		if err := json.Unmarshal(payload, &m); err != nil {
			fatal("corrupt ticket record: %v", err)
		}

		if err := m.Transition(args[1]); err != nil {
			fatal("%v", err)
		}

		// Status changes go over the wire as a PATCH of just the changed
		// fields; the local store still keeps the full ticket.
		partial, err := json.Marshal(map[string]any{
			"status":    m.Status,
			"updatedAt": m.UpdatedAt,
		})
		if err != nil {
			fatal("failed to marshal status change: %v", err)
		}
		full, err := json.Marshal(&m)
		if err != nil {
			fatal("failed to marshal ticket: %v", err)
		}

		synced, err := patchRecord(e, record.Maintenance, m.ID, partial, full)
		if err != nil {
			fatal("failed to update ticket: %v", err)
		}
		fmt.Printf("%s Ticket %s is now %s\n", ui.RenderPass("✓"), m.ID, m.Status)
		if !synced {
			fmt.Println(ui.RenderDim("  queued for sync"))
		}
	},
}

func init() {
	maintAddCmd.Flags().String("type", "", "Maintenance type")
	maintAddCmd.Flags().String("priority", "", "Priority")
	maintAddCmd.Flags().String("desc", "", "Problem description")
	maintAddCmd.Flags().String("by", "", "Requested by")
	maintAddCmd.Flags().Float64("cost", 0, "Estimated cost")

	maintListCmd.Flags().String("status", "", "Filter by status")

	maintCmd.AddCommand(maintAddCmd, maintListCmd, maintStatusCmd)
	rootCmd.AddCommand(maintCmd)
}
