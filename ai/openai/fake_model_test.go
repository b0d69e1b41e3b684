package openai

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// fakeModel is an llms.Model that replays canned content.
type fakeModel struct {
	mu       sync.Mutex
	content  string
	chunks   []string
	err      error
	messages []llms.MessageContent
	options  llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	f.messages = messages
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	f.options = opts
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if opts.StreamingFunc != nil {
		for _, chunk := range f.chunks {
			if err := opts.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.content}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func (f *fakeModel) lastOptions() llms.CallOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.options
}

func (f *fakeModel) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out string
	for _, m := range f.messages {
		for _, p := range m.Parts {
			if t, ok := p.(llms.TextContent); ok {
				out += t.Text
			}
		}
	}
	return out
}
