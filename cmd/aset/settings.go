package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raqeemx/aset1/internal/ui"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage local settings (inventory person, categories, AI key)",
	Long: `Manage the settings stored alongside the inventory data.

Known keys:
  inventoryPerson   default inventory person stamped onto new records
  categories        JSON array replacing the default category list
  ai_api_key        Anthropic API key for 'aset analyze'
  ai_model          model override for 'aset analyze'`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		v, err := e.store.GetSetting(args[0])
		if err != nil {
			if notFound(err) {
				fatal("setting %q not set", args[0])
			}
			fatal("%v", err)
		}
		fmt.Println(v)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one setting",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		key, value := args[0], args[1]
		if key == settingCategories {
			var list []string
			if err := json.Unmarshal([]byte(value), &list); err != nil || len(list) == 0 {
				fatal("categories must be a non-empty JSON array of strings")
			}
		}

		if err := e.store.PutSetting(key, value); err != nil {
			fatal("failed to save setting: %v", err)
		}
		if key == settingAIKey {
			value = redact(value)
		}
		fmt.Printf("%s %s = %s\n", ui.RenderPass("✓"), key, value)
	},
}

func redact(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
