package transcriber

import (
	"context"
	"sync"
)

// FakeClient records requests and replies from a script. Used by the
// session runner tests, which sometimes poll it from another goroutine.
type FakeClient struct {
	Text string
	Err  error

	mu       sync.Mutex
	requests []Request
}

func (f *FakeClient) Name() string { return "fake" }

func (f *FakeClient) Transcribe(_ context.Context, req Request) (Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.Err != nil {
		return Result{}, f.Err
	}
	return Result{Text: f.Text}, nil
}

func (f *FakeClient) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}
