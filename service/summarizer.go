package service

import (
	"context"
	"fmt"

	"github.com/aigroupchat/voicechat-be/types"
)

const summarizerSystemPrompt = "You are an assistant that situates document chunks for search retrieval."

// SummarizeResult is one situating context plus the token accounting of
// the call that produced it.
type SummarizeResult struct {
	Context string
	Usage   types.TokenUsage
}

// Summarizer produces a short situating description of a chunk with
// respect to the whole document. The document text is sent in a
// cacheable position so per-chunk calls reuse it.
type Summarizer interface {
	Summarize(ctx context.Context, document, chunk string) (*SummarizeResult, error)
}

// BatchSummarizer is implemented by backends with a batch endpoint.
// Batch calls trade latency for roughly half the token cost.
type BatchSummarizer interface {
	SummarizeBatch(ctx context.Context, document string, chunks []string) ([]*SummarizeResult, error)
}

func documentBlock(document string) string {
	return fmt.Sprintf("<document>\n%s\n</document>", document)
}

func chunkPrompt(chunk string) string {
	return fmt.Sprintf("Here is the chunk we want to situate within the whole document:\n\n<chunk>\n%s\n</chunk>\n\nPlease give a short succinct context to situate this chunk within the overall document for the purposes of improving search retrieval of the chunk. Answer only with the succinct context and nothing else.", chunk)
}
