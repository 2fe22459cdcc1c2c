package resilience_test

import (
	"context"
	"sync"
	"sync/atomic"
)

// mockClient implements ResilientClient for testing
type mockClient struct {
	executeFunc func(ctx context.Context, req string) (string, error)
	callCount   atomic.Int32
}

func (m *mockClient) Execute(ctx context.Context, req string) (string, error) {
	m.callCount.Add(1)
	return m.executeFunc(ctx, req)
}

func (m *mockClient) getCallCount() int {
	return int(m.callCount.Load())
}

func (m *mockClient) resetCallCount() {
	m.callCount.Store(0)
}

// fakeResponse stands in for an HTTP response in pipeline tests.
type fakeResponse struct {
	status int
	body   string
}

// scriptedClient answers with the next scripted response on every call and
// repeats the last one once the script runs out.
type scriptedClient struct {
	mu        sync.Mutex
	responses []fakeResponse
	errs      []error
	calls     int
}

func (s *scriptedClient) Execute(_ context.Context, _ string) (fakeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := min(s.calls, len(s.responses)-1)
	s.calls++

	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return fakeResponse{}, err
	}
	return s.responses[i], nil
}

func (s *scriptedClient) getCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
