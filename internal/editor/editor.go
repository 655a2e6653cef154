// Package editor turns an issue batch into a structured patch proposal
// via an OpenAI-compatible chat completion endpoint. The model's JSON
// output is schema-validated before it is handed to the patch engine.
package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brianndofor/texrev/internal/config"
	"github.com/brianndofor/texrev/internal/critic"
	"github.com/brianndofor/texrev/internal/ledger"
	"github.com/brianndofor/texrev/internal/patch"
	"github.com/brianndofor/texrev/internal/prompt"
	openai "github.com/sashabaranov/go-openai"
)

type Adapter interface {
	// ProposePatch asks for a patch fixing the issue batch against the
	// given document excerpt. priorDiagnostics carries compiler output
	// (or precondition failures) from a rejected earlier attempt.
	ProposePatch(ctx context.Context, issues []ledger.Issue, excerpt, priorDiagnostics string) (patch.Patch, error)
}

type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

func NewOpenAIAdapter(cfg config.EditorConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("editor api key is not configured")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIAdapter{client: openai.NewClientWithConfig(clientCfg), model: model}, nil
}

func (a *OpenAIAdapter) ProposePatch(ctx context.Context, issues []ledger.Issue, excerpt, priorDiagnostics string) (patch.Patch, error) {
	system, err := prompt.Load(prompt.EditorSystem)
	if err != nil {
		return patch.Patch{}, err
	}
	userTemplate, err := prompt.Load(prompt.EditorUser)
	if err != nil {
		return patch.Patch{}, err
	}
	user := prompt.Render(userTemplate, prompt.Vars{
		Issues:      renderIssues(issues),
		Excerpt:     excerpt,
		Diagnostics: priorDiagnostics,
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return patch.Patch{}, fmt.Errorf("editor request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return patch.Patch{}, fmt.Errorf("editor returned no choices")
	}
	return DecodePatch([]byte(resp.Choices[0].Message.Content))
}

// DecodePatch validates raw editor output against the patch schema and
// decodes it.
func DecodePatch(raw []byte) (patch.Patch, error) {
	if err := critic.ValidateJSON(prompt.SchemaPath(prompt.PatchSchema), raw); err != nil {
		return patch.Patch{}, fmt.Errorf("editor output rejected: %w", err)
	}
	var p patch.Patch
	if err := json.Unmarshal(raw, &p); err != nil {
		return patch.Patch{}, fmt.Errorf("failed to parse editor patch: %w", err)
	}
	return p, nil
}

func renderIssues(issues []ledger.Issue) string {
	var b strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&b, "- [%s/%s] %s at %s: %s\n", issue.Severity, issue.Category, issue.ID, issue.Location, issue.Description)
	}
	return strings.TrimSpace(b.String())
}
