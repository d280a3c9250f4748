package llm

import (
	"context"
	"strings"
	"sync"
)

// FakeClient returns canned text for offline runs and tests. Responses are
// chosen by the first rule whose substring appears in the prompt; Err, when
// set, is returned instead.
type FakeClient struct {
	mu       sync.Mutex
	rules    []fakeRule
	fallback string
	Err      error
	prompts  []string
}

type fakeRule struct {
	contains string
	reply    string
}

func NewFakeClient(fallback string) *FakeClient {
	return &FakeClient{fallback: fallback}
}

// On registers reply for prompts containing substr.
func (f *FakeClient) On(substr, reply string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, fakeRule{contains: substr, reply: reply})
	return f
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Err != nil {
		return "", f.Err
	}
	for _, r := range f.rules {
		if strings.Contains(prompt, r.contains) {
			return r.reply, nil
		}
	}
	if f.fallback == "" {
		return "", ErrEmptyResponse
	}
	return f.fallback, nil
}

// Prompts returns every prompt received so far.
func (f *FakeClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}
