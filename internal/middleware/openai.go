package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the Responder.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional
	Timeout time.Duration
}

// Responder implements Classifier directly on the OpenAI Chat Completions
// API. It is used when no classification service is configured.
type Responder struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewResponder returns nil when no API key is configured.
func NewResponder(cfg OpenAIConfig) *Responder {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	var c *openai.Client
	if cfg.BaseURL != "" {
		cc := openai.DefaultConfig(cfg.APIKey)
		cc.BaseURL = cfg.BaseURL
		c = openai.NewClientWithConfig(cc)
	} else {
		c = openai.NewClient(cfg.APIKey)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Responder{client: c, model: model, timeout: timeout}
}

const responderPrompt = `You are a social media assistant replying to a mention on Bluesky.
Decide what the user asks for and answer with a single JSON object {"category": ..., "result": ...}.
Categories and result shapes:
- "Impersonation": a string, the reply written in the voice of the person the user names.
- "ViralThread": an array of up to 5 strings, a thread about the original post.
- "FactCheck": a string, a short factual assessment of the original post.
- "Sentiment": {"dominant_emotion": string, "detailed_emotions": {emotion: score between 0 and 1}}.
- "Generic": a string, a helpful answer.
Never choose "Meme"; image generation is not available here.
Keep every string under 1000 characters.`

// Classify asks the model for a categorized reply.
func (r *Responder) Classify(ctx context.Context, in Request) (Result, error) {
	if r == nil {
		return Result{}, errors.New("nil openai responder")
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	user := fmt.Sprintf("User command: %s\nOriginal post: %s", in.UserCommand, in.OriginalTweet)
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user}
	if in.MediaData != "" {
		msg.Content = ""
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: user},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/jpeg;base64," + in.MediaData,
				Detail: openai.ImageURLDetailLow,
			}},
		}
	}
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: responderPrompt},
			msg,
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.4,
	})
	if err != nil {
		slog.Error("openai: classify mention error", "err", err)
		return Result{}, fmt.Errorf("%w: %w", ErrService, err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("%w: empty completion", ErrService)
	}
	return ParseResponse([]byte(strings.TrimSpace(resp.Choices[0].Message.Content)))
}
