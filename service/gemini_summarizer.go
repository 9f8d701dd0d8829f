package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/aigroupchat/voicechat-be/types"
)

// GeminiSummarizer situates chunks via the Gemini API. The document
// block is carried as the system instruction of each call.
type GeminiSummarizer struct {
	client    *genai.Client
	modelName string
}

func NewGeminiSummarizer(apiKey, modelName string) (*GeminiSummarizer, error) {
	if apiKey == "" {
		return nil, errors.New("no API key provided")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiSummarizer{
		client:    client,
		modelName: modelName,
	}, nil
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, document, chunk string) (*SummarizeResult, error) {
	model := s.client.GenerativeModel(s.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(summarizerSystemPrompt + "\n\n" + documentBlock(document))},
	}
	model.SetMaxOutputTokens(200)

	resp, err := model.GenerateContent(ctx, genai.Text(chunkPrompt(chunk)))
	if err != nil {
		return nil, fmt.Errorf("summarize call failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.New("no response generated")
	}

	content := ""
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					content += string(text)
				}
			}
		}
	}

	result := &SummarizeResult{Context: strings.TrimSpace(content)}
	if meta := resp.UsageMetadata; meta != nil {
		cached := int(meta.CachedContentTokenCount)
		fresh := int(meta.PromptTokenCount) - cached
		creation := 0
		if cached == 0 {
			creation = EstimateTokens(document)
			if creation > fresh {
				creation = fresh
			}
			fresh -= creation
		}
		result.Usage = types.TokenUsage{
			Input:         fresh,
			Output:        int(meta.CandidatesTokenCount),
			CacheCreation: creation,
			CacheRead:     cached,
		}
	}
	return result, nil
}

func (s *GeminiSummarizer) Close() error {
	return s.client.Close()
}
