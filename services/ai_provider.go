package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// AIProvider is the external suggestion backend. Implementations may be slow
// or fail; callers recover failures to zero suggestions at the boundary and
// never let them past as exceptions.
type AIProvider interface {
	SuggestTasks(ctx context.Context, title, description string, targetSprints int) ([]TaskSuggestion, error)
	SuggestSubtasks(ctx context.Context, taskTitle, taskDescription string) ([]string, error)
}

// OpenAIProvider talks to an OpenAI-compatible chat completion endpoint and
// expects the model to answer with a JSON array.
type OpenAIProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
	Logger  *zap.Logger
}

func NewOpenAIProvider(logger *zap.Logger) *OpenAIProvider {
	baseURL := os.Getenv("AI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := os.Getenv("AI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		BaseURL: baseURL,
		APIKey:  os.Getenv("AI_API_KEY"),
		Model:   model,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Logger:  logger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *OpenAIProvider) SuggestTasks(ctx context.Context, title, description string, targetSprints int) ([]TaskSuggestion, error) {
	prompt := fmt.Sprintf(
		"You are a Scrum coach. Break the project %q (%s) into tasks spread over %d sprints. "+
			"Answer with a JSON array of objects with fields title, description, storyPoints, "+
			"suggestedSprintNumber (1..%d) and optional subtasks (array of strings). No prose.",
		title, description, targetSprints, targetSprints,
	)

	var suggestions []TaskSuggestion
	if err := p.complete(ctx, prompt, &suggestions); err != nil {
		return nil, err
	}
	return ValidSuggestions(suggestions), nil
}

func (p *OpenAIProvider) SuggestSubtasks(ctx context.Context, taskTitle, taskDescription string) ([]string, error) {
	prompt := fmt.Sprintf(
		"You are a Scrum coach. Suggest up to 5 subtasks for the task %q (%s). "+
			"Answer with a JSON array of strings. No prose.",
		taskTitle, taskDescription,
	)

	var subtasks []string
	if err := p.complete(ctx, prompt, &subtasks); err != nil {
		return nil, err
	}
	return subtasks, nil
}

func (p *OpenAIProvider) complete(ctx context.Context, prompt string, out interface{}) error {
	body, err := json.Marshal(chatRequest{
		Model:    p.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return fmt.Errorf("ai request marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ai request build failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.Logger.Warn("ai_provider_bad_status", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("ai provider returned status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return fmt.Errorf("ai response decode failed: %w", err)
	}
	if len(chat.Choices) == 0 {
		return fmt.Errorf("ai response has no choices")
	}

	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("ai suggestion parse failed: %w", err)
	}
	return nil
}
