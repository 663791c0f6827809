// Package testutils provides deterministic oracle doubles for testing the
// judging pipeline without external providers.
package testutils

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tribunal-ai/tribunal/internal/ports"
)

// OracleCall records one Complete invocation for assertion.
type OracleCall struct {
	// Payload is the serialized prompt the engine sent.
	Payload string
	// Options is the options map passed alongside it.
	Options map[string]any
}

// ScriptedOracle implements ports.OracleClient with a fixed response queue.
// Responses are returned in order; once the queue is exhausted the last
// entry repeats, so single-response scripts behave like a constant oracle.
// It is safe for concurrent use.
type ScriptedOracle struct {
	mu        sync.Mutex
	model     string
	responses []string
	errs      []error
	next      int
	calls     []OracleCall
}

// NewScriptedOracle creates a scripted oracle for the given model id.
// Each call consumes the next response; the last one repeats forever.
func NewScriptedOracle(model string, responses ...string) *ScriptedOracle {
	if len(responses) == 0 {
		responses = []string{`{"winner_index": 0, "confidence": 0.9, "reasoning": "default"}`}
	}
	return &ScriptedOracle{
		model:     model,
		responses: responses,
		errs:      make([]error, len(responses)),
	}
}

// ScriptError makes the i-th call fail with err instead of returning text.
func (s *ScriptedOracle) ScriptError(i int, err error) *ScriptedOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.errs) <= i {
		s.errs = append(s.errs, nil)
		s.responses = append(s.responses, s.responses[len(s.responses)-1])
	}
	s.errs[i] = err
	return s
}

// Complete returns the next scripted response or error.
func (s *ScriptedOracle) Complete(ctx context.Context, payload string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, OracleCall{Payload: payload, Options: options})

	i := s.next
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.next++

	if s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.responses[i], nil
}

// Model returns the scripted model id.
func (s *ScriptedOracle) Model() string { return s.model }

// CallCount returns how many times Complete was invoked.
func (s *ScriptedOracle) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Calls returns a copy of the recorded invocations.
func (s *ScriptedOracle) Calls() []OracleCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OracleCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// MockRegistry implements ports.OracleRegistry over a fixed client map.
type MockRegistry struct {
	mu      sync.RWMutex
	clients map[string]ports.OracleClient
}

// NewMockRegistry builds a registry from the given clients, keyed by their
// Model() ids.
func NewMockRegistry(clients ...ports.OracleClient) *MockRegistry {
	r := &MockRegistry{clients: make(map[string]ports.OracleClient, len(clients))}
	for _, c := range clients {
		r.clients[c.Model()] = c
	}
	return r
}

// Register installs a client under an explicit model id.
func (r *MockRegistry) Register(modelID string, client ports.OracleClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[modelID] = client
}

// Client resolves a model id, returning ports.ErrUnknownModel when absent.
func (r *MockRegistry) Client(modelID string) (ports.OracleClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[modelID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnknownModel, modelID)
	}
	return client, nil
}

// Models lists the registered model ids, sorted.
func (r *MockRegistry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
