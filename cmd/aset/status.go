package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raqeemx/aset1/internal/record"
	"github.com/raqeemx/aset1/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local store and sync queue status",
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		st := e.orch.Status()

		fmt.Printf("%s Inventory status\n", ui.RenderAccent("◆"))
		fmt.Printf("  State:     %s\n", string(st.State))
		fmt.Printf("  Database:  %s\n", e.store.Path())
		for _, collection := range record.AllCollections {
			fmt.Printf("  %-11s %d\n", string(collection)+":", len(e.orch.Records(collection)))
		}

		if st.Pending > 0 {
			fmt.Printf("  Queued:    %s\n", ui.RenderWarn(fmt.Sprintf("%d writes awaiting replay", st.Pending)))
		} else {
			fmt.Printf("  Queued:    %s\n", ui.RenderPass("none"))
		}

		if st.LastSync.IsZero() {
			fmt.Printf("  Last sync: %s\n", ui.RenderDim("never"))
		} else {
			fmt.Printf("  Last sync: %s\n", st.LastSync.Format("2006-01-02 15:04:05"))
		}

		if e.remoteConfigured() {
			fmt.Printf("  Remote:    %s\n", e.cfg.Remote.BaseURL)
		} else {
			fmt.Printf("  Remote:    %s\n", ui.RenderDim("not configured (local-only mode)"))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
