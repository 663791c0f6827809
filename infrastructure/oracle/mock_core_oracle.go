package oracle

import (
	"context"
	"sync"
	"time"
)

// MockCoreOracle is a configurable CoreOracle for middleware tests.
// It records every call and can be scripted to fail, delay, or recover.
type MockCoreOracle struct {
	mu sync.Mutex

	// Response configuration.
	Response      string
	TokensIn      int
	TokensOut     int
	Err           error
	ModelName     string
	ResponseDelay time.Duration

	// FailUntilAttempt fails the first N calls, then succeeds.
	FailUntilAttempt int

	// Call tracking.
	CallCount      int
	LastPayload    string
	LastOpts       map[string]any
	CallTimestamps []time.Time
}

// NewMockCoreOracle returns a mock with default successful behavior.
func NewMockCoreOracle() *MockCoreOracle {
	return &MockCoreOracle{
		Response:  `{"winner_index": 0, "confidence": 0.9}`,
		TokensIn:  10,
		TokensOut: 20,
		ModelName: "test-model",
	}
}

// Generate implements CoreOracle with the configured behavior.
func (m *MockCoreOracle) Generate(ctx context.Context, payload string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastPayload = payload
	m.LastOpts = opts
	m.CallTimestamps = append(m.CallTimestamps, time.Now())

	if m.ResponseDelay > 0 {
		m.mu.Unlock()
		select {
		case <-time.After(m.ResponseDelay):
		case <-ctx.Done():
			m.mu.Lock()
			return "", 0, 0, ctx.Err()
		}
		m.mu.Lock()
	}

	if m.FailUntilAttempt > 0 && m.CallCount <= m.FailUntilAttempt {
		if m.Err != nil {
			return "", 0, 0, m.Err
		}
		return "", 0, 0, ErrEmptyResponse
	}
	if m.Err != nil && m.FailUntilAttempt == 0 {
		return "", 0, 0, m.Err
	}

	return m.Response, m.TokensIn, m.TokensOut, nil
}

// Model returns the mock's configured model name.
func (m *MockCoreOracle) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ModelName
}
