package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/velofit/fitcheck/internal/catalog"
	"github.com/velofit/fitcheck/internal/scrape"
	"github.com/velofit/fitcheck/pkg/perplexity"
)

type fakeSource struct {
	records []catalog.Record
	err     error
}

func (f *fakeSource) Fetch(_ context.Context) ([]catalog.Record, error) {
	return f.records, f.err
}

type fakeExtractor struct {
	page  *scrape.PageContent
	err   error
	calls atomic.Int32
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (*scrape.PageContent, error) {
	f.calls.Add(1)
	return f.page, f.err
}

type fakeInference struct {
	resp    *perplexity.ChatCompletionResponse
	err     error
	calls   atomic.Int32
	lastReq perplexity.ChatCompletionRequest
}

func (f *fakeInference) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	f.calls.Add(1)
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func answerResponse(text string, citations ...string) *perplexity.ChatCompletionResponse {
	return &perplexity.ChatCompletionResponse{
		ID: "cmpl-test",
		Choices: []perplexity.Choice{
			{Index: 0, Message: perplexity.Message{Role: "assistant", Content: text}},
		},
		Citations: citations,
	}
}
