package llm

import (
	"context"
	"fmt"
	"time"
)

// MockClient is a deterministic, offline stand-in for a real provider,
// grounded on the teacher repo's MockLLMClient. It is the default
// client whenever no API key is configured (SPEC_FULL.md §3), which is
// what keeps decide() fully testable without network access.
type MockClient struct {
	model    string
	reply    func(prompt string) string
	simulate time.Duration
}

// NewMockClient returns a MockClient. If reply is nil, a fixed
// JSON-shaped reply is returned; reasoning text is never parsed for
// control values (spec §4.4/§9), so a fixed reply is sufficient for
// deterministic agent behavior, with all machine-usable fields computed
// by code and supplied separately.
func NewMockClient(model string, reply func(prompt string) string) *MockClient {
	if reply == nil {
		reply = func(string) string {
			return `{"analysis":"deterministic offline assessment","confidence":0.8,"priority":"MEDIUM"}`
		}
	}
	return &MockClient{model: model, reply: reply, simulate: 5 * time.Millisecond}
}

func (m *MockClient) Model() string { return m.model }

func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(m.simulate):
	}
	if prompt == "" {
		return "", fmt.Errorf("llm: empty prompt")
	}
	return m.reply(prompt), nil
}
