package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raqeemx/aset1/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Force a full sync: replay the queue, then pull remote snapshots",
	Long: `Force one full sync pass against the remote table API.

This performs:
  1. FIFO replay of every queued offline write
  2. Fresh list of each collection from the remote
  3. Merge into the local store (remote wins, queued edits kept)

Entries whose replay fails stay queued for the next pass.`,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		if !e.remoteConfigured() {
			fatal("no remote configured (set remote.base_url)")
		}

		ctx := context.Background()
		e.orch.HandleOnline()

		fmt.Printf("%s Syncing with %s...\n", ui.RenderAccent("🔄"), e.cfg.Remote.BaseURL)
		start := time.Now()

		if err := e.orch.ForceSync(ctx); err != nil {
			fatal("sync failed: %v", err)
		}

		st := e.orch.Status()
		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
		if st.Pending > 0 {
			fmt.Printf("%s %d writes still queued (remote rejected or unreachable)\n",
				ui.RenderWarn("!"), st.Pending)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
