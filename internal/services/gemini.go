package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"kelvin-backend/internal/models"
)

const DefaultGeminiModel = "gemini-flash-latest"

type GeminiOptions struct {
	Model string
	// Temperature is left to the model default when nil. Zero is a valid
	// setting.
	Temperature *float32
}

// GeminiBackend talks to Google's Gemini API. The model handle is shared by
// all sessions and never mutated after construction.
type GeminiBackend struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

func NewGeminiBackend(ctx context.Context, apiKey string, opts GeminiOptions) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY not found in environment variables")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	name := opts.Model
	if name == "" {
		name = DefaultGeminiModel
	}
	model := client.GenerativeModel(name)
	if opts.Temperature != nil {
		model.SetTemperature(*opts.Temperature)
	}
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(Persona)}}

	return &GeminiBackend{client: client, model: model, modelName: name}, nil
}

func (g *GeminiBackend) ModelName() string {
	return g.modelName
}

func (g *GeminiBackend) Close() error {
	return g.client.Close()
}

func (g *GeminiBackend) StartSession(history []models.ChatTurn) ChatSession {
	cs := g.model.StartChat()
	cs.History = toContents(history)
	return &geminiSession{cs: cs}
}

type geminiSession struct {
	cs *genai.ChatSession
}

func (s *geminiSession) SendMessage(ctx context.Context, text string) (string, error) {
	resp, err := s.cs.SendMessage(ctx, genai.Text(text))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", &UpstreamError{Kind: KindBlocked, Err: err}
		}
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return extractText(resp), nil
}

func toContents(history []models.ChatTurn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		parts := make([]genai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			parts = append(parts, genai.Text(p))
		}
		contents = append(contents, &genai.Content{Role: turn.Role, Parts: parts})
	}
	return contents
}

// extractText concatenates the text parts of every candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
