// Package ai implements the photograph-an-asset workflow: a set of images
// goes to a vision model, a structured suggestion comes back and pre-fills
// the asset record.
//
// The classifier is a black box to the sync core. It never touches the
// store or the queue; the asset-creation flow feeds its suggestion into a
// normal RecordWrite.
package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/raqeemx/aset1/internal/record"
)

const (
	// MaxImages caps how many photos one analysis accepts.
	MaxImages = 5

	// MaxImageBytes caps each image payload.
	MaxImageBytes = 4 << 20

	// DefaultModel is used when no model is configured in settings.
	DefaultModel = "claude-sonnet-4-5"

	maxResponseTokens = 1024
)

// allowedMediaTypes is the image format allow-list accepted by the vision
// API.
var allowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Image is one photo of the asset.
type Image struct {
	MediaType string
	Data      []byte
}

// Suggestion is the model's best-effort asset description. Confidence is
// 0-100; callers decide what to do below their threshold.
type Suggestion struct {
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Condition      string  `json:"condition"`
	Model          string  `json:"model,omitempty"`
	SerialNumber   string  `json:"serialNumber,omitempty"`
	EstimatedValue float64 `json:"estimatedValue,omitempty"`
	Confidence     int     `json:"confidence"`
	Notes          string  `json:"notes,omitempty"`
}

// ApplyTo pre-fills an asset record from the suggestion and marks its
// provenance.
func (s *Suggestion) ApplyTo(a *record.Asset) {
	if a.Name == "" {
		a.Name = s.Name
	}
	if a.Category == "" {
		a.Category = s.Category
	}
	if a.Condition == "" {
		a.Condition = s.Condition
	}
	if a.SerialNumber == "" {
		a.SerialNumber = s.SerialNumber
	}
	if a.CurrentValue == 0 && s.EstimatedValue > 0 {
		a.CurrentValue = s.EstimatedValue
	}
	if s.Notes != "" {
		if a.Notes != "" {
			a.Notes += "\n"
		}
		a.Notes += s.Notes
	}
	a.AIAnalyzed = true
	a.AIConfidence = s.Confidence
}

// Classifier calls the Anthropic Messages API. Credentials come from
// settings, not from process environment, so the inventory clerk's key
// travels with the database.
type Classifier struct {
	client anthropic.Client
	model  string
	logger *log.Logger
}

// New creates a classifier. An empty model selects DefaultModel; if logger
// is nil, a default logger writing to stderr is used.
func New(apiKey, model string, logger *log.Logger) *Classifier {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[ai] ", log.LstdFlags)
	}
	return &Classifier{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
	}
}

// Analyze sends the images plus the structured prompt and parses the
// suggestion. Category and condition lists are included in the prompt so
// the model answers within the configured vocabulary.
func (c *Classifier) Analyze(ctx context.Context, images []Image, categories, conditions []string) (*Suggestion, error) {
	if err := ValidateImages(images); err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		categories = record.DefaultCategories
	}
	if len(conditions) == 0 {
		conditions = record.DefaultConditions
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(images)+1)
	for _, img := range images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(
			img.MediaType, base64.StdEncoding.EncodeToString(img.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(BuildPrompt(categories, conditions)))

	c.logger.Printf("Analyzing %d image(s) with %s", len(images), c.model)

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxResponseTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	suggestion, err := ParseSuggestion(text.String(), categories, conditions)
	if err != nil {
		return nil, err
	}

	c.logger.Printf("Suggestion: %q (%s, confidence %d%%)",
		suggestion.Name, suggestion.Category, suggestion.Confidence)
	return suggestion, nil
}

// ValidateImages enforces the count, size and format constraints before
// anything leaves the machine.
func ValidateImages(images []Image) error {
	if len(images) == 0 {
		return fmt.Errorf("at least one image is required")
	}
	if len(images) > MaxImages {
		return fmt.Errorf("at most %d images per analysis (got %d)", MaxImages, len(images))
	}
	for i, img := range images {
		if !allowedMediaTypes[img.MediaType] {
			return fmt.Errorf("image %d: unsupported media type %q", i+1, img.MediaType)
		}
		if len(img.Data) == 0 {
			return fmt.Errorf("image %d: empty payload", i+1)
		}
		if len(img.Data) > MaxImageBytes {
			return fmt.Errorf("image %d: %d bytes exceeds %d byte limit", i+1, len(img.Data), MaxImageBytes)
		}
	}
	return nil
}

// BuildPrompt asks for a single JSON object using the configured
// vocabulary.
func BuildPrompt(categories, conditions []string) string {
	return fmt.Sprintf(`You are an asset inventory assistant for a government office.
Look at the photo(s) of a single piece of office equipment and describe it.

Respond with ONLY a JSON object, no prose, in this exact shape:
{
  "name": "short descriptive name including brand if visible",
  "category": "one of: %s",
  "condition": "one of: %s",
  "model": "model designation if visible, else empty",
  "serialNumber": "serial number if legible, else empty",
  "estimatedValue": 0,
  "confidence": 0,
  "notes": "anything notable: damage, accessories, labels"
}

confidence is an integer 0-100 for how certain you are overall.
estimatedValue is a rough current market value in local currency, 0 if unknown.`,
		strings.Join(categories, ", "), strings.Join(conditions, ", "))
}

// ParseSuggestion extracts the JSON object from a model response, clamps
// the confidence and validates vocabulary fields, falling back to the last
// list entry ("Other" / worst condition analogue) on an unknown value.
func ParseSuggestion(response string, categories, conditions []string) (*Suggestion, error) {
	raw := extractJSON(response)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in analysis response")
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("malformed analysis response: %w", err)
	}

	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 100 {
		s.Confidence = 100
	}
	s.Category = pickAllowed(s.Category, categories)
	s.Condition = pickAllowed(s.Condition, conditions)
	if s.Name == "" {
		s.Name = "Unidentified asset"
	}
	return &s, nil
}

// extractJSON strips markdown fences and returns the outermost {...} span.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return ""
	}
	return response[start : end+1]
}

func pickAllowed(v string, allowed []string) string {
	for _, a := range allowed {
		if strings.EqualFold(a, v) {
			return a
		}
	}
	if len(allowed) > 0 {
		return allowed[len(allowed)-1]
	}
	return v
}
