package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raqeemx/aset1/internal/ai"
	"github.com/raqeemx/aset1/internal/logging"
	"github.com/raqeemx/aset1/internal/record"
	"github.com/raqeemx/aset1/internal/ui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>...",
	Short: "Create an asset from photos using AI recognition",
	Long: `Analyze up to 5 photos of an asset and create a pre-filled record.

The vision model suggests name, category, condition, serial number and an
estimated value; flags override any suggested field. Requires the
ai_api_key setting:

  aset settings set ai_api_key sk-ant-...`,
	Args: cobra.RangeArgs(1, ai.MaxImages),
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fatal("%v", err)
		}
		defer e.close()

		apiKey, err := e.store.GetSetting(settingAIKey)
		if err != nil {
			if notFound(err) {
				fatal("no AI key configured, run: aset settings set ai_api_key <key>")
			}
			fatal("%v", err)
		}
		model, _ := e.store.GetSetting(settingAIModel)

		images := make([]ai.Image, 0, len(args))
		for _, path := range args {
			img, err := loadImage(path)
			if err != nil {
				fatal("%v", err)
			}
			images = append(images, img)
		}
		if err := ai.ValidateImages(images); err != nil {
			fatal("%v", err)
		}

		classifier := ai.New(apiKey, model, logging.New("[ai] ", e.cfg.Log.File))

		fmt.Printf("%s Analyzing %d image(s)...\n", ui.RenderAccent("◆"), len(images))
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		suggestion, err := classifier.Analyze(ctx, images, e.categories(), record.DefaultConditions)
		if err != nil {
			fatal("analysis failed: %v", err)
		}

		fmt.Printf("  Name:       %s\n", suggestion.Name)
		fmt.Printf("  Category:   %s\n", suggestion.Category)
		fmt.Printf("  Condition:  %s\n", suggestion.Condition)
		if suggestion.SerialNumber != "" {
			fmt.Printf("  Serial:     %s\n", suggestion.SerialNumber)
		}
		if suggestion.EstimatedValue > 0 {
			fmt.Printf("  Est. value: %.2f\n", suggestion.EstimatedValue)
		}
		fmt.Printf("  Confidence: %d%%\n", suggestion.Confidence)

		if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
			return
		}

		a := record.Asset{}
		a.Name, _ = cmd.Flags().GetString("name")
		a.Department, _ = cmd.Flags().GetString("department")
		a.Location, _ = cmd.Flags().GetString("location")
		suggestion.ApplyTo(&a)

		for _, img := range images {
			a.Images = append(a.Images, "data:"+img.MediaType+";base64,"+base64.StdEncoding.EncodeToString(img.Data))
		}

		a.Code = record.NextAssetCode(a.Category, assetCodes(e), time.Now())
		if person, err := e.store.GetSetting(settingInventoryPerson); err == nil {
			a.InventoryPerson = person
		}
		a.SetDefaults()
		if err := a.Validate(e.categories(), nil); err != nil {
			fatal("suggested asset failed validation: %v", err)
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

// loadImage reads one photo and sniffs its media type.
func loadImage(path string) (ai.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ai.Image{}, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return ai.Image{MediaType: http.DetectContentType(data), Data: data}, nil
}

func init() {
	analyzeCmd.Flags().String("name", "", "Override the suggested name")
	analyzeCmd.Flags().String("department", "", "Department name")
	analyzeCmd.Flags().String("location", "", "Physical location")
	analyzeCmd.Flags().Bool("dry-run", false, "Show the suggestion without creating an asset")
	rootCmd.AddCommand(analyzeCmd)
}
