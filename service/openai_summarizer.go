package service

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/aigroupchat/voicechat-be/types"
)

const batchPollInterval = 10 * time.Second

// OpenAISummarizer situates chunks via chat completions. The document
// block rides in the system message so the provider's prefix cache
// covers it across per-chunk calls.
type OpenAISummarizer struct {
	client *openai.Client
	model  string
}

func NewOpenAISummarizer(baseURL, apiKey, model string) *OpenAISummarizer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(config)
	return &OpenAISummarizer{
		client: client,
		model:  model,
	}
}

func (s *OpenAISummarizer) summarizeMessages(document, chunk string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: summarizerSystemPrompt + "\n\n" + documentBlock(document),
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: chunkPrompt(chunk),
		},
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, document, chunk string) (*SummarizeResult, error) {
	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Messages:  s.summarizeMessages(document, chunk),
			Model:     s.model,
			MaxTokens: 200,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("summarize call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response generated")
	}

	return &SummarizeResult{
		Context: strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage:   usageFromResponse(resp.Usage, document),
	}, nil
}

// SummarizeBatch dispatches all chunks through the batch endpoint and
// polls until the batch settles. Line order follows chunk order; a chunk
// whose line failed comes back as nil.
func (s *OpenAISummarizer) SummarizeBatch(ctx context.Context, document string, chunks []string) ([]*SummarizeResult, error) {
	lines := make([]openai.BatchLineItem, 0, len(chunks))
	for i, chunk := range chunks {
		lines = append(lines, openai.BatchChatCompletionRequest{
			CustomID: strconv.Itoa(i),
			Method:   "POST",
			URL:      openai.BatchEndpointChatCompletions,
			Body: openai.ChatCompletionRequest{
				Messages:  s.summarizeMessages(document, chunk),
				Model:     s.model,
				MaxTokens: 200,
			},
		})
	}

	batch, err := s.client.CreateBatchWithUploadFile(ctx, openai.CreateBatchWithUploadFileRequest{
		Endpoint: openai.BatchEndpointChatCompletions,
		UploadBatchFileRequest: openai.UploadBatchFileRequest{
			FileName: "contextualize.jsonl",
			Lines:    lines,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	outputFileID, err := s.waitForBatch(ctx, batch.ID)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.GetFileContent(ctx, outputFileID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batch output: %w", err)
	}
	defer raw.Close()

	results := make([]*SummarizeResult, len(chunks))
	scanner := bufio.NewScanner(raw)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		var line batchOutputLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		idx, err := strconv.Atoi(line.CustomID)
		if err != nil || idx < 0 || idx >= len(chunks) {
			continue
		}
		if line.Response.StatusCode != 200 || len(line.Response.Body.Choices) == 0 {
			continue
		}
		results[idx] = &SummarizeResult{
			Context: strings.TrimSpace(line.Response.Body.Choices[0].Message.Content),
			Usage:   usageFromResponse(line.Response.Body.Usage, document),
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch output: %w", err)
	}

	return results, nil
}

func (s *OpenAISummarizer) waitForBatch(ctx context.Context, batchID string) (string, error) {
	ticker := time.NewTicker(batchPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("batch %s: %w", batchID, types.ErrBackendTimeout)
		case <-ticker.C:
		}

		batch, err := s.client.RetrieveBatch(ctx, batchID)
		if err != nil {
			return "", fmt.Errorf("failed to poll batch %s: %w", batchID, err)
		}
		switch batch.Status {
		case "completed":
			if batch.OutputFileID == nil {
				return "", fmt.Errorf("batch %s completed without output file", batchID)
			}
			return *batch.OutputFileID, nil
		case "failed", "expired", "cancelled":
			return "", fmt.Errorf("batch %s ended with status %s: %w", batchID, batch.Status, types.ErrBackendError)
		}
	}
}

type batchOutputLine struct {
	CustomID string `json:"custom_id"`
	Response struct {
		StatusCode int `json:"status_code"`
		Body       struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
			Usage openai.Usage `json:"usage"`
		} `json:"body"`
	} `json:"response"`
}

// usageFromResponse splits prompt tokens into cached and fresh. The
// first call on a document reports zero cached tokens, so the document
// share is counted as cache creation.
func usageFromResponse(usage openai.Usage, document string) types.TokenUsage {
	cached := 0
	if usage.PromptTokensDetails != nil {
		cached = usage.PromptTokensDetails.CachedTokens
	}
	fresh := usage.PromptTokens - cached
	creation := 0
	if cached == 0 {
		creation = EstimateTokens(document)
		if creation > fresh {
			creation = fresh
		}
		fresh -= creation
	}
	return types.TokenUsage{
		Input:         fresh,
		Output:        usage.CompletionTokens,
		CacheCreation: creation,
		CacheRead:     cached,
	}
}
