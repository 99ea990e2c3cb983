package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/shared/errutil"
)

// Summarizer produces an EpisodeSummary's text and key-concept list
// from a completed episode. Anthropic's API has no embedding endpoint,
// so this is where github.com/anthropics/anthropic-sdk-go actually gets
// exercised in this module: as a text-generation backend for the
// summary itself, with the summary's embedding filled in separately by
// a Provider. This is a thin adapter, not a production summarization
// pipeline — no retry policy, no streaming, no prompt-injection
// hardening beyond the boundary already obvious from the prompt shape.
type Summarizer struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewSummarizer wraps an already-configured Anthropic client.
func NewSummarizer(client *anthropic.Client, model anthropic.Model) *Summarizer {
	return &Summarizer{client: client, model: model}
}

const summarizePrompt = `Summarize the following agent task execution in two sentences, then list up to five key concepts as a comma-separated line prefixed with "Concepts:".

Task: %s
Outcome: %s
Steps taken: %s`

// Summarize asks the model for a condensed summary and key-concept
// list, returning an EpisodeSummary with SummaryEmbedding left unset —
// callers fill that in via a Provider.
func (s *Summarizer) Summarize(ctx context.Context, ep *episode.Episode) (*episode.EpisodeSummary, error) {
	prompt := buildSummarizePrompt(ep)

	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, errutil.NetworkError("summarize_episode", "anthropic", err)
	}

	text := responseText(msg)
	summary, concepts := splitSummary(text)

	keySteps := make([]string, 0, len(ep.Steps))
	for _, step := range ep.Steps {
		keySteps = append(keySteps, step.Tool+": "+step.Action)
	}

	return &episode.EpisodeSummary{
		EpisodeID:   ep.ID,
		SummaryText: summary,
		KeyConcepts: concepts,
		KeySteps:    keySteps,
	}, nil
}

func buildSummarizePrompt(ep *episode.Episode) string {
	outcome := "in progress"
	if ep.Outcome != nil {
		outcome = string(ep.Outcome.Kind) + ": " + ep.Outcome.Verdict
	}
	steps := make([]string, 0, len(ep.Steps))
	for _, step := range ep.Steps {
		steps = append(steps, step.Tool)
	}
	return fmt.Sprintf(summarizePrompt, ep.TaskDescription, outcome, strings.Join(steps, ", "))
}

// responseText concatenates every text content block in msg, since a
// message may stream its answer across more than one block.
func responseText(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// splitSummary pulls the "Concepts:" line out of the model's response,
// returning the rest as the summary text.
func splitSummary(text string) (summary string, concepts []string) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	var summaryLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Concepts:") {
			raw := strings.TrimPrefix(trimmed, "Concepts:")
			for _, c := range strings.Split(raw, ",") {
				c = strings.TrimSpace(c)
				if c != "" {
					concepts = append(concepts, c)
				}
			}
			continue
		}
		if trimmed != "" {
			summaryLines = append(summaryLines, trimmed)
		}
	}
	return strings.Join(summaryLines, " "), concepts
}
