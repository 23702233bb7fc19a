// Package extract turns label photographs into structured label data using
// Claude's vision and tool-use APIs.
package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ttb-tools/labelcheck/internal/model"
	"github.com/ttb-tools/labelcheck/pkg/anthropic"
)

const (
	// DefaultModel is the vision model used when none is configured.
	DefaultModel = "claude-sonnet-4-5-20250929"

	defaultMaxTokens = 2048
	defaultRPS       = 2
)

// mediaTypes lists the image formats the vision API accepts.
var mediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// MediaTypeForFile maps an image filename to its media type. Returns an
// error for extensions the vision API does not accept.
func MediaTypeForFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".png":
		return "image/png", nil
	case ".webp":
		return "image/webp", nil
	case ".gif":
		return "image/gif", nil
	default:
		return "", eris.Errorf("extract: unsupported image format %q", filepath.Ext(path))
	}
}

// Extractor extracts structured label data from images.
type Extractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
}

// Opts configures the extractor. Zero values fall back to defaults.
type Opts struct {
	Model             string
	MaxTokens         int64
	RequestsPerSecond float64
}

// New creates an Extractor backed by the given Anthropic client.
func New(client anthropic.Client, opts Opts) *Extractor {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRPS
	}

	return &Extractor{
		client:    client,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
}

// Extract sends one label image through the vision model and decodes the
// forced tool invocation into structured label data. A request is made at
// most once; failures surface to the caller without retry.
func (e *Extractor) Extract(ctx context.Context, image []byte, mediaType string) (*model.LabelExtraction, error) {
	if !mediaTypes[mediaType] {
		return nil, eris.Errorf("extract: unsupported media type %q", mediaType)
	}
	if len(image) == 0 {
		return nil, eris.New("extract: empty image")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "extract: rate limiter wait")
	}

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:      e.model,
		MaxTokens:  e.maxTokens,
		System:     []anthropic.SystemBlock{{Text: systemPrompt}},
		Tools:      []anthropic.Tool{labelTool},
		ToolChoice: &anthropic.ToolChoice{Name: toolName},
		Messages: []anthropic.Message{
			{
				Role: "user",
				Content: []anthropic.ContentBlock{
					{
						Type:      "image",
						MediaType: mediaType,
						Data:      base64.StdEncoding.EncodeToString(image),
					},
					{
						Type: "text",
						Text: "Extract all label data from this alcohol beverage label image. Be thorough and accurate.",
					},
				},
			},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: claude request")
	}

	resp.Usage.LogCost(e.model, "extract")

	block := resp.ToolUse()
	if block == nil {
		return nil, eris.New("extract: no structured extraction returned from model")
	}

	var extracted model.LabelExtraction
	if err := json.Unmarshal(block.Input, &extracted); err != nil {
		return nil, eris.Wrap(err, "extract: parse tool input")
	}

	zap.L().Debug("label extracted",
		zap.String("brand", extracted.BrandName),
		zap.String("confidence", string(extracted.Confidence)),
		zap.Bool("warning_present", extracted.Warning.Present),
	)

	return &extracted, nil
}
