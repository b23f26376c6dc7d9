package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raqeemx/aset1/internal/dashboard"
	"github.com/raqeemx/aset1/internal/logging"
	"github.com/raqeemx/aset1/internal/netmon"
	"github.com/raqeemx/aset1/internal/seed"
	"github.com/raqeemx/aset1/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync daemon with connectivity monitoring and dashboard",
	Long: `Run the long-lived sync daemon.

The daemon watches a connectivity marker file, replays the offline queue
whenever connectivity returns, and serves a WebSocket dashboard that
broadcasts record updates, sync completions and connectivity changes.

Connectivity is signaled through the marker file (netmon.marker_file):
write "online" or "offline" into it; deleting it means offline. This
keeps the daemon testable and lets an external health checker own the
actual reachability decision.

Example usage:
  aset daemon                     # marker + port from config
  aset daemon --port 9000

Connect with a WebSocket client:
  ws://localhost:8484/ws`,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := seed.RunIfEmpty(ctx, e.orch, logging.New("[seed] ", e.cfg.Log.File)); err != nil {
			fatal("failed to seed sample data: %v", err)
		}

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = e.cfg.Dashboard.Port
		}

		var server *dashboard.Server
		if port > 0 {
			server = dashboard.NewServer(e.orch, &dashboard.Config{
				Port:   port,
				Logger: logging.New("[dashboard] ", e.cfg.Log.File),
			})
			if err := server.Start(); err != nil {
				fatal("failed to start dashboard: %v", err)
			}
			e.orch.SetNotifier(server.Broadcast)
			fmt.Printf("%s Dashboard on ws://localhost:%d/ws\n", ui.RenderAccent("◆"), port)
		}

		monLogger := logging.New("[netmon] ", e.cfg.Log.File)
		source, err := netmon.NewFileSource(e.cfg.Netmon.MarkerFile, monLogger)
		if err != nil {
			fatal("failed to watch connectivity marker: %v", err)
		}
		source.Start(ctx)

		monitor := netmon.New(e.orch, monLogger)

		fmt.Printf("%s Sync daemon running, marker file %s\n",
			ui.RenderAccent("◆"), e.cfg.Netmon.MarkerFile)
		fmt.Println(ui.RenderDim("Press Ctrl+C to stop..."))

		// Blocks until ctx is canceled. Each offline->online transition
		// replays the queue and then pulls fresh remote snapshots.
		monitor.Run(ctx, source.Events(), func(ctx context.Context) {
			if !e.remoteConfigured() {
				return
			}
			if err := e.orch.ForceSync(ctx); err != nil {
				monLogger.Printf("WARNING: reconnect sync failed: %v", err)
			}
		})

		if server != nil {
			if err := server.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "Error during dashboard shutdown: %v\n", err)
			}
		}

		st := e.orch.Status()
		if st.Pending > 0 {
			fmt.Printf("%s Stopped with %d queued writes awaiting replay\n",
				ui.RenderWarn("!"), st.Pending)
		} else {
			fmt.Printf("%s Sync daemon stopped\n", ui.RenderPass("✓"))
		}
	},
}

func init() {
	daemonCmd.Flags().IntP("port", "p", 0, "Dashboard port (0 = from config)")
	rootCmd.AddCommand(daemonCmd)
}
