package agent

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grindloop/grind/internal/events"
)

// writeStubAgent writes a shell script that ignores its arguments and plays
// back a canned stream-json transcript.
func writeStubAgent(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub agent scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "stub-agent")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func TestInvokeStreamsCanonicalEvents(t *testing.T) {
	stub := writeStubAgent(t, `
cat <<'EOF'
{"type":"system","subtype":"init","session_id":"s1","model":"test-model"}
{"type":"assistant","message":{"content":[{"type":"text","text":"working"},{"type":"tool_use","id":"t1","name":"Read","input":{"file_path":"a.go"}}]}}
{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}
{"type":"result","subtype":"success","duration_ms":12,"is_error":false,"total_cost_usd":0.01,"usage":{"input_tokens":5,"output_tokens":7}}
EOF
`)

	inv := &ClaudeInvoker{Command: stub, Timeout: 10 * time.Second}
	var got []events.Event
	result, err := inv.Invoke(context.Background(), "prompt", t.TempDir(), func(ev events.Event) {
		got = append(got, ev)
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.InDelta(t, 0.01, result.CostUSD, 1e-9)
	require.NotNil(t, result.Usage)
	assert.Equal(t, int64(5), result.Usage.InputTokens)

	require.Len(t, got, 5)
	assert.Equal(t, events.KindInit, got[0].Kind)
	assert.Equal(t, events.KindText, got[1].Kind)
	assert.Equal(t, events.KindToolStart, got[2].Kind)
	assert.Equal(t, events.KindToolEnd, got[3].Kind)
	assert.Equal(t, "Read", got[3].Name, "tool end correlates back to its start")
	assert.Equal(t, events.KindResult, got[4].Kind)
}

func TestInvokeSoftFailure(t *testing.T) {
	stub := writeStubAgent(t, `
echo '{"type":"result","subtype":"error_during_execution","duration_ms":5,"is_error":true}'
`)
	inv := &ClaudeInvoker{Command: stub, Timeout: 10 * time.Second}
	result, err := inv.Invoke(context.Background(), "p", t.TempDir(), func(events.Event) {})
	require.NoError(t, err, "a completed turn reporting failure is not a transport error")
	assert.False(t, result.Success)
}

func TestInvokeMalformedLinesAreDropped(t *testing.T) {
	stub := writeStubAgent(t, `
echo 'this is not json'
echo '{"type":"result","is_error":false,"duration_ms":1}'
`)
	inv := &ClaudeInvoker{Command: stub, Timeout: 10 * time.Second}
	var got []events.Event
	result, err := inv.Invoke(context.Background(), "p", t.TempDir(), func(ev events.Event) {
		got = append(got, ev)
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, got, 1)
	assert.Equal(t, events.KindResult, got[0].Kind)
}

func TestInvokeSpawnFailureIsFatal(t *testing.T) {
	inv := &ClaudeInvoker{Command: filepath.Join(t.TempDir(), "does-not-exist")}
	_, err := inv.Invoke(context.Background(), "p", t.TempDir(), func(events.Event) {})
	require.Error(t, err)
}

func TestInvokeExitWithoutResultIsFatal(t *testing.T) {
	stub := writeStubAgent(t, `
echo 'transport broke' >&2
exit 1
`)
	inv := &ClaudeInvoker{Command: stub, Timeout: 10 * time.Second}
	_, err := inv.Invoke(context.Background(), "p", t.TempDir(), func(events.Event) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a result record")
}
