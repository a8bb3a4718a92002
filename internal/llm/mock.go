package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a scripted completion client for tests and for running
// without an API key. Responses are returned in FIFO order; when the script
// is exhausted it falls back to echoing a deterministic stub.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	calls     int
	failWith  error
}

// NewMockClient creates a mock with an optional response script.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{responses: responses}
}

// FailWith makes every subsequent call return err.
func (m *MockClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Calls returns how many completions were requested.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete pops the next scripted response.
func (m *MockClient) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32, maxTokens int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.calls++
	if m.failWith != nil {
		return "", m.failWith
	}
	if len(m.responses) > 0 {
		next := m.responses[0]
		m.responses = m.responses[1:]
		return next, nil
	}
	return fmt.Sprintf("stub response %d", m.calls), nil
}
