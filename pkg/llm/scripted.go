package llm

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedProvider replays a fixed queue of responses and records every
// request it receives. It backs unit and e2e tests that need to steer a
// single stage (for example a verifier that reports a critical issue on the
// first pass and a clean bill on the second).
type ScriptedProvider struct {
	name string

	mu        sync.Mutex
	responses []Response
	calls     []Request
}

var _ Provider = (*ScriptedProvider)(nil)

// NewScriptedProvider creates a scripted provider registered under name.
func NewScriptedProvider(name string, responses ...Response) *ScriptedProvider {
	return &ScriptedProvider{name: name, responses: responses}
}

// Enqueue appends responses to the replay queue.
func (p *ScriptedProvider) Enqueue(responses ...Response) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, responses...)
}

// Name implements Provider.
func (p *ScriptedProvider) Name() string {
	return p.name
}

// Complete implements Provider. An exhausted queue is a provider error so a
// test that under-provisions responses fails loudly.
func (p *ScriptedProvider) Complete(_ context.Context, req Request) (Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	if len(p.responses) == 0 {
		return Response{}, &ProviderError{
			Provider: p.name,
			Err:      fmt.Errorf("scripted provider exhausted after %d calls", len(p.calls)),
		}
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

// Calls returns a copy of every request received so far.
func (p *ScriptedProvider) Calls() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.calls...)
}
