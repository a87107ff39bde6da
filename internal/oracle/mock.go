package oracle

import (
	"context"
	"fmt"
)

// MockClient is an in-process Client for tests and local runs. Requests are
// numbered; results become ready once a value is installed.
type MockClient struct {
	next     int
	values   map[RequestID]uint64
	Requests int // upstream request count
	Fetches  int // upstream fetch count
}

// NewMockClient creates an empty mock provider.
func NewMockClient() *MockClient {
	return &MockClient{values: make(map[RequestID]uint64)}
}

// RequestRandomNumber implements Client.
func (m *MockClient) RequestRandomNumber(_ context.Context) (RequestID, error) {
	m.next++
	m.Requests++
	return RequestID(fmt.Sprintf("req-%d", m.next)), nil
}

// GetVerifiedRandomNumber implements Client.
func (m *MockClient) GetVerifiedRandomNumber(_ context.Context, id RequestID) (uint64, error) {
	m.Fetches++
	v, ok := m.values[id]
	if !ok {
		return 0, fmt.Errorf("%w: request %s", ErrNotReady, id)
	}
	return v, nil
}

// Fulfill installs the verified value for a request.
func (m *MockClient) Fulfill(id RequestID, value uint64) {
	m.values[id] = value
}
