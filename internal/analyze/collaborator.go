package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/repomap/repomap/internal/project"
)

// Collaborator is the external content-analysis service. Implementations
// must be safely callable from background workers and must honor context
// cancellation: calls may be network-bound and are never assumed fast.
type Collaborator interface {
	// Available reports whether analysis calls can be attempted at all.
	// When false the analyzer skips the per-file phase entirely.
	Available() bool

	// AnalyzeFile extracts structure from one file's content. The
	// language tag comes from extension detection. A returned error
	// marks this file's result as failed; it never aborts the batch.
	AnalyzeFile(ctx context.Context, path, language, content string) (*project.AnalysisResult, error)
}

// maxPromptBytes caps the file content embedded in a single prompt.
const maxPromptBytes = 50 * 1024

const systemPrompt = `You are a code analysis service. Given a source file, extract its
structure and respond with ONLY a JSON object, no prose and no markdown fences:
{
  "description": "one-sentence summary of the file's purpose",
  "functions": [{"name": "...", "signature": "...", "line": 1, "description": "..."}],
  "classes": [{"name": "...", "line": 1, "description": "..."}]
}
Include methods in "functions". Use line numbers from the provided content.
If the file defines nothing, return empty lists.`

// ClaudeCollaborator analyzes file content with the Anthropic Messages API.
type ClaudeCollaborator struct {
	client anthropic.Client
	model  anthropic.Model
	ok     bool
}

// NewClaudeCollaborator builds a collaborator from the given API key,
// falling back to ANTHROPIC_API_KEY. With no key at all the collaborator
// is still constructed but reports unavailable, so projects are analyzed
// structurally only.
func NewClaudeCollaborator(apiKey, model string) *ClaudeCollaborator {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	if apiKey == "" {
		return &ClaudeCollaborator{ok: false}
	}
	return &ClaudeCollaborator{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
		ok:     true,
	}
}

// Available reports whether an API key was configured.
func (c *ClaudeCollaborator) Available() bool { return c.ok }

// analysisPayload mirrors the JSON schema requested in the system prompt.
type analysisPayload struct {
	Description string `json:"description"`
	Functions   []struct {
		Name        string `json:"name"`
		Signature   string `json:"signature"`
		Line        int    `json:"line"`
		Description string `json:"description"`
	} `json:"functions"`
	Classes []struct {
		Name        string `json:"name"`
		Line        int    `json:"line"`
		Description string `json:"description"`
	} `json:"classes"`
}

// AnalyzeFile sends one file to the model and parses the structured reply.
func (c *ClaudeCollaborator) AnalyzeFile(ctx context.Context, path, language, content string) (*project.AnalysisResult, error) {
	if !c.ok {
		return nil, ErrAnalysisUnavailable
	}

	if len(content) > maxPromptBytes {
		content = content[:maxPromptBytes] + "\n... (truncated)"
	}

	prompt := fmt.Sprintf("Analyze this %s file (%s):\n\n%s", language, path, content)

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis request for %s: %w", path, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		text.WriteString(block.Text)
	}

	payload, err := parsePayload(text.String())
	if err != nil {
		return nil, fmt.Errorf("malformed analysis response for %s: %w", path, err)
	}

	result := &project.AnalysisResult{
		Path:        path,
		Language:    language,
		Description: payload.Description,
	}
	for _, f := range payload.Functions {
		result.Functions = append(result.Functions, project.FunctionInfo{
			Name:        f.Name,
			Signature:   f.Signature,
			Line:        f.Line,
			Description: f.Description,
		})
	}
	for _, cl := range payload.Classes {
		result.Classes = append(result.Classes, project.ClassInfo{
			Name:        cl.Name,
			Line:        cl.Line,
			Description: cl.Description,
		})
	}
	return result, nil
}

// parsePayload decodes the model reply, tolerating stray markdown fences.
func parsePayload(text string) (*analysisPayload, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
