package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domainai "concern2care/internal/domain/ai"
)

// Disclaimer accompanies every piece of generated guidance. It is appended to
// the draft at creation time and re-confirmed on send.
const Disclaimer = "These AI-generated suggestions are intended to support, not replace, " +
	"professional judgment. Please consult your school's student support team before " +
	"implementing interventions, and contact emergency services immediately if a student " +
	"is at risk of harm."

const anthropicBaseURL = "https://api.anthropic.com/v1/messages"

// ClaudeGenerator produces intervention guidance through the Anthropic
// messages API. It implements ai.Generator.
type ClaudeGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewClaudeGenerator(apiKey, model string) *ClaudeGenerator {
	return &ClaudeGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: anthropicBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

const systemPrompt = "You are an experienced K-12 instructional coach. Given an anonymized " +
	"description of a student concern, produce practical, evidence-based guidance a classroom " +
	"teacher can apply. Use plain language, numbered strategies, and note when a concern should " +
	"be escalated to the student support team."

func (c *ClaudeGenerator) Generate(ctx context.Context, req domainai.ConcernDescriptor) (*domainai.Recommendation, error) {
	prompt := buildPrompt(req)
	text, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &domainai.Recommendation{Text: text, Disclaimer: Disclaimer}, nil
}

func (c *ClaudeGenerator) FollowUp(ctx context.Context, req domainai.ConcernDescriptor, priorText, question string) (*domainai.Recommendation, error) {
	var b strings.Builder
	b.WriteString(buildPrompt(req))
	b.WriteString("\n\nGuidance previously provided:\n")
	b.WriteString(priorText)
	b.WriteString("\n\nThe teacher has a follow-up question:\n")
	b.WriteString(question)

	text, err := c.complete(ctx, b.String())
	if err != nil {
		return nil, err
	}
	return &domainai.Recommendation{Text: text, Disclaimer: Disclaimer}, nil
}

func buildPrompt(req domainai.ConcernDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Student: %s %s.", req.StudentFirstName, req.StudentLastInitial)
	if req.GradeLevel != "" {
		fmt.Fprintf(&b, " Grade: %s.", req.GradeLevel)
	}
	fmt.Fprintf(&b, "\nRequested support: %s\n", taskLabel(req.TaskType))
	fmt.Fprintf(&b, "Severity: %s\n", req.Severity)
	if len(req.ConcernTypes) > 0 {
		fmt.Fprintf(&b, "Concern areas: %s\n", strings.Join(req.ConcernTypes, ", "))
	}
	fmt.Fprintf(&b, "Concern description: %s\n", req.ConcernDescription)
	if len(req.ActionsTaken) > 0 {
		fmt.Fprintf(&b, "Actions already taken: %s\n", strings.Join(req.ActionsTaken, ", "))
	}
	return b.String()
}

func taskLabel(taskType string) string {
	switch taskType {
	case "tier2_intervention":
		return "Tier 2 intervention strategies"
	default:
		return "differentiated instruction strategies"
	}
}

func (c *ClaudeGenerator) complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("AI API key not configured")
	}

	payload := messagesRequest{
		Model:     c.model,
		MaxTokens: 2000,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: prompt}},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("model returned no text content")
	}
	return text.String(), nil
}
