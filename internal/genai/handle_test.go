package genai

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleReloadSwapsClient(t *testing.T) {
	t.Parallel()

	handle := NewHandle(slog.Default(), Options{APIKey: "old-key"})
	before := handle.Client()
	require.NotNil(t, before)

	handle.Reload("new-key")

	after := handle.Client()
	assert.NotSame(t, before, after)
	assert.Equal(t, "new-key", after.apiKey)
	// The old client keeps its key so in-flight calls are unaffected.
	assert.Equal(t, "old-key", before.apiKey)
}

func TestHandleReloadSameKeyIsNoop(t *testing.T) {
	t.Parallel()

	handle := NewHandle(slog.Default(), Options{APIKey: "key"})
	before := handle.Client()

	handle.Reload("key")
	assert.Same(t, before, handle.Client())

	handle.Reload("")
	assert.Same(t, before, handle.Client())
}
