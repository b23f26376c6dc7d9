// Command aset is the offline-first inventory tracker CLI. All state
// lives in a local SQLite database; the remote table API is strictly a
// replication target that the sync daemon reconciles with when
// connectivity allows.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raqeemx/aset1/internal/config"
	"github.com/raqeemx/aset1/internal/gateway"
	"github.com/raqeemx/aset1/internal/logging"
	"github.com/raqeemx/aset1/internal/queue"
	"github.com/raqeemx/aset1/internal/record"
	"github.com/raqeemx/aset1/internal/store"
	"github.com/raqeemx/aset1/internal/syncer"
)

// Settings keys shared with the remote UI.
const (
	settingInventoryPerson = "inventoryPerson"
	settingCategories      = "categories" // JSON array of strings
	settingAIKey           = "ai_api_key"
	settingAIModel         = "ai_model"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aset",
	Short: "Offline-first asset inventory tracker",
	Long: `aset manages an asset inventory that keeps working without a network.

Every write lands in the local database first and is mirrored to the
remote table API when possible; failures queue the write for replay on
reconnect. Run 'aset daemon' for continuous sync, or 'aset sync' for a
one-shot reconcile.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default aset.yaml, ~/.aset/aset.yaml)")
}

// env bundles the wired subsystems behind every command.
type env struct {
	cfg   *config.Config
	store *store.Store
	queue *queue.Queue
	orch  *syncer.Orchestrator
}

// openEnv loads config and wires store, queue, gateway and orchestrator.
// The orchestrator starts offline; commands that talk to the remote flip
// it online themselves.
func openEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.InitSchema(); err != nil {
		st.Close()
		return nil, err
	}

	q, err := queue.New(st.RawDB())
	if err != nil {
		st.Close()
		return nil, err
	}

	gw := gateway.New(gateway.Config{
		BaseURL: cfg.Remote.BaseURL,
		Token:   cfg.Remote.Token,
		Timeout: cfg.Remote.Timeout,
	})

	orch, err := syncer.New(st, q, gw, logging.New("[syncer] ", cfg.Log.File))
	if err != nil {
		st.Close()
		return nil, err
	}

	return &env{cfg: cfg, store: st, queue: q, orch: orch}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
	}
}

// categories returns the configured category list, falling back to the
// defaults when the setting is absent or unparseable.
func (e *env) categories() []string {
	v, err := e.store.GetSetting(settingCategories)
	if err != nil {
		return record.DefaultCategories
	}
	var list []string
	if err := json.Unmarshal([]byte(v), &list); err != nil || len(list) == 0 {
		return record.DefaultCategories
	}
	return list
}

// remoteConfigured reports whether a remote endpoint exists at all.
// Without one every command operates purely locally.
func (e *env) remoteConfigured() bool {
	return e.cfg.Remote.BaseURL != ""
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// notFound reports whether err is a missing-record error, so commands can
// print a friendly message instead of a storage failure.
func notFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
