package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/require"

	"github.com/cheyenne-cl/firegeo/internal/llm"
)

// fakeBackend is a canned llm.Backend for pipeline tests.
type fakeBackend struct {
	mu          sync.Mutex
	text        string
	textErr     error
	objectJSON  string
	objectErr   error
	textCalls   int
	objectCalls int
	lastPrompt  string
}

func (f *fakeBackend) GenerateText(_ context.Context, _, _, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls++
	f.lastPrompt = prompt
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.text, nil
}

func (f *fakeBackend) GenerateObject(_ context.Context, _, prompt string, _ *jsonschema.Schema, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objectCalls++
	f.lastPrompt = prompt
	if f.objectErr != nil {
		return f.objectErr
	}
	return json.Unmarshal([]byte(f.objectJSON), out)
}

func newTestRegistry(t *testing.T, backends map[string]llm.Backend) *llm.Registry {
	t.Helper()
	opts := make([]llm.Option, 0, len(backends))
	for id, b := range backends {
		opts = append(opts, llm.WithBackend(id, b))
	}
	registry, err := llm.NewRegistry(llm.Credentials{}, opts...)
	require.NoError(t, err)
	return registry
}
