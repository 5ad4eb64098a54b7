package mocks

import (
	"context"
	"sync"
)

// MockCompleter is a canned-response implementation of the llm.Completer
// interface. Used for testing without calling a real completion endpoint.
type MockCompleter struct {
	Response string
	Err      error

	mu    sync.Mutex
	calls []CompletionCall
}

// CompletionCall records one Complete invocation.
type CompletionCall struct {
	System string
	User   string
}

// Complete returns the canned response or error and records the call.
func (m *MockCompleter) Complete(_ context.Context, system, user string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, CompletionCall{System: system, User: user})
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Calls returns the recorded invocations.
func (m *MockCompleter) Calls() []CompletionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionCall(nil), m.calls...)
}
