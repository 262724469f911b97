package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grindloop/grind/internal/stream"
)

func record(t *testing.T, line string) stream.Record {
	t.Helper()
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &data))
	return stream.Record{Line: line, Data: data}
}

func normalize(t *testing.T, lines ...string) []Event {
	t.Helper()
	var got []Event
	n := NewNormalizer(NewCorrelator(), func(ev Event) { got = append(got, ev) })
	for _, line := range lines {
		n.Process(record(t, line))
	}
	return got
}

func TestNormalizerSystemInit(t *testing.T) {
	got := normalize(t, `{"type":"system","subtype":"init","session_id":"sess-1","model":"opus"}`)
	require.Len(t, got, 1)
	assert.Equal(t, KindInit, got[0].Kind)
	assert.Equal(t, "sess-1", got[0].SessionID)
	assert.Equal(t, "opus", got[0].Model)
}

func TestNormalizerAssistantBlocks(t *testing.T) {
	got := normalize(t, `{"type":"assistant","message":{"content":[
		{"type":"text","text":"let me look"},
		{"type":"tool_use","id":"toolu_1","name":"Read","input":{"file_path":"main.go"}}
	]}}`)
	require.Len(t, got, 2)

	assert.Equal(t, KindText, got[0].Kind)
	assert.Equal(t, "let me look", got[0].Text)

	assert.Equal(t, KindToolStart, got[1].Kind)
	assert.Equal(t, "toolu_1", got[1].ID)
	assert.Equal(t, "Read", got[1].Name)
	assert.Equal(t, "main.go", got[1].Input["file_path"])
}

func TestNormalizerCorrelatesToolEnd(t *testing.T) {
	got := normalize(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_1","name":"Bash","input":{"command":"ls"}}]}}`,
		// Unrelated text between start and end must not break correlation.
		`{"type":"assistant","message":{"content":[{"type":"text","text":"waiting"}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"file.go"}]}}`,
	)
	require.Len(t, got, 3)

	end := got[2]
	assert.Equal(t, KindToolEnd, end.Kind)
	assert.Equal(t, "Bash", end.Name)
	assert.Equal(t, "ls", end.Input["command"])
	assert.Equal(t, "file.go", end.Output)
	assert.False(t, end.Orphaned)
}

func TestNormalizerOrphanedToolEnd(t *testing.T) {
	got := normalize(t,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_missing","content":"out"}]}}`,
	)
	require.Len(t, got, 1)
	assert.Equal(t, KindToolEnd, got[0].Kind)
	assert.True(t, got[0].Orphaned)
	assert.Empty(t, got[0].Name)
	assert.Zero(t, got[0].Duration)
}

func TestNormalizerToolResultBlockList(t *testing.T) {
	got := normalize(t,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"x","is_error":true,
			"content":[{"type":"text","text":"boom: "},{"type":"text","text":"exit 1"}]}]}}`,
	)
	require.Len(t, got, 1)
	assert.Equal(t, "boom: exit 1", got[0].Output)
	assert.True(t, got[0].IsError)
}

func TestNormalizerResult(t *testing.T) {
	got := normalize(t,
		`{"type":"result","subtype":"success","duration_ms":2500,"is_error":false,
			"total_cost_usd":0.0421,"usage":{"input_tokens":120,"output_tokens":45}}`,
	)
	require.Len(t, got, 1)
	r := got[0]
	assert.Equal(t, KindResult, r.Kind)
	assert.Equal(t, 2500*time.Millisecond, r.Duration)
	assert.False(t, r.IsError)
	assert.InDelta(t, 0.0421, r.CostUSD, 1e-9)
	require.NotNil(t, r.Usage)
	assert.Equal(t, int64(120), r.Usage.InputTokens)
	assert.Equal(t, int64(45), r.Usage.OutputTokens)
}

func TestNormalizerIgnoresUnknownRecordClass(t *testing.T) {
	got := normalize(t, `{"type":"telemetry","whatever":true}`)
	assert.Empty(t, got)
}

// A record that panics during processing is absorbed and re-emitted as an
// error event instead of aborting the stream.
func TestNormalizerRecoversPanicPerRecord(t *testing.T) {
	var got []Event
	n := NewNormalizer(NewCorrelator(), func(ev Event) {
		if ev.Kind == KindText {
			panic("handler exploded")
		}
		got = append(got, ev)
	})

	n.Process(record(t, `{"type":"assistant","message":{"content":[{"type":"text","text":"hi"}]}}`))
	n.Process(record(t, `{"type":"result","duration_ms":1}`))

	require.Len(t, got, 2)
	assert.Equal(t, KindError, got[0].Kind)
	assert.Contains(t, got[0].Message, "panic")
	assert.Equal(t, KindResult, got[1].Kind)
}

func TestCorrelatorLifetimeScopedToInvocation(t *testing.T) {
	c := NewCorrelator()
	c.Register("a", "Read", nil)
	assert.Equal(t, 1, c.PendingCount())

	_, _, _, ok := c.Resolve("a")
	assert.True(t, ok)
	assert.Equal(t, 0, c.PendingCount())

	// Resolving again misses: the entry is removed on first resolution.
	_, _, _, ok = c.Resolve("a")
	assert.False(t, ok)

	// A fresh correlator has no memory of the previous one.
	assert.Equal(t, 0, NewCorrelator().PendingCount())
}
