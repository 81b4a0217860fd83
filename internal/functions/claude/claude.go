// Package claude serves text-generation functions with the Anthropic Messages API.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/propdesk/internal/functions"
)

// 1024 tokens fits a one-page summary with room to spare.
const maxTokens = 1024

// prompts holds the system prompt for each function this backend serves.
var prompts = map[string]string{
	functions.GenerateExecutiveSummary: "You write short executive summaries for property managers. " +
		"The user message is a JSON document of support and portfolio metrics. " +
		"Summarise the most important developments in at most five sentences of plain text.",
}

// Names lists the functions this backend can serve.
func Names() []string {
	names := make([]string, 0, len(prompts))
	for name := range prompts {
		names = append(names, name)
	}
	return names
}

type Invoker struct {
	client *anthropic.Client
	model  string
}

// New creates an Invoker. opts are passed to the Anthropic client, e.g.
// anthropic.WithBaseURL for a test server.
func New(apiKey, model string, opts ...anthropic.ClientOption) *Invoker {
	return &Invoker{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (i *Invoker) Invoke(ctx context.Context, name string, payload any) (json.RawMessage, error) {
	system, ok := prompts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", functions.ErrUnknownFunction, name)
	}

	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := i.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(i.model),
		System:    system,
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(string(input)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			text.WriteString(c.GetText())
		}
	}

	out, err := json.Marshal(functions.TextResult{Text: strings.TrimSpace(text.String())})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return out, nil
}
