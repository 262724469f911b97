package events

import (
	"fmt"
	"time"

	"github.com/grindloop/grind/internal/stream"
)

// Normalizer maps heterogeneous provider envelopes (claude stream-json
// records) onto the canonical Event vocabulary. One record yields zero or
// more events, delivered synchronously to the handler in record order.
type Normalizer struct {
	correlator *Correlator
	handler    Handler
	now        func() time.Time
}

// NewNormalizer creates a Normalizer bound to one invocation's correlator.
func NewNormalizer(correlator *Correlator, handler Handler) *Normalizer {
	return &Normalizer{
		correlator: correlator,
		handler:    handler,
		now:        time.Now,
	}
}

// Process normalizes one decoded record. A panic while handling a single
// record is recovered and re-emitted as a KindError event; the stream is
// never aborted by one bad record.
func (n *Normalizer) Process(record stream.Record) {
	defer func() {
		if r := recover(); r != nil {
			n.emit(Event{
				Kind:    KindError,
				Message: fmt.Sprintf("record processing panic: %v", r),
			})
		}
	}()

	switch stringField(record.Data, "type") {
	case "system":
		n.processSystem(record.Data)
	case "assistant":
		n.processAssistant(record.Data)
	case "user":
		n.processUser(record.Data)
	case "result":
		n.processResult(record.Data)
	}
	// Unknown record classes are ignored; the vocabulary is deliberately small.
}

func (n *Normalizer) emit(ev Event) {
	ev.Timestamp = n.now()
	n.handler(ev)
}

func (n *Normalizer) processSystem(data map[string]interface{}) {
	n.emit(Event{
		Kind:      KindInit,
		SessionID: stringField(data, "session_id"),
		Model:     stringField(data, "model"),
	})
}

func (n *Normalizer) processAssistant(data map[string]interface{}) {
	for _, block := range contentBlocks(data) {
		switch stringField(block, "type") {
		case "text":
			if text := stringField(block, "text"); text != "" {
				n.emit(Event{Kind: KindText, Text: text})
			}
		case "tool_use":
			id := stringField(block, "id")
			name := stringField(block, "name")
			input, _ := block["input"].(map[string]interface{})
			n.correlator.Register(id, name, input)
			n.emit(Event{Kind: KindToolStart, ID: id, Name: name, Input: input})
		}
	}
}

func (n *Normalizer) processUser(data map[string]interface{}) {
	for _, block := range contentBlocks(data) {
		if stringField(block, "type") != "tool_result" {
			continue
		}
		id := stringField(block, "tool_use_id")
		isError, _ := block["is_error"].(bool)

		ev := Event{
			Kind:    KindToolEnd,
			ID:      id,
			Output:  resultContent(block["content"]),
			IsError: isError,
		}
		if name, input, elapsed, ok := n.correlator.Resolve(id); ok {
			ev.Name = name
			ev.Input = input
			ev.Duration = elapsed
		} else {
			ev.Orphaned = true
		}
		n.emit(ev)
	}
}

func (n *Normalizer) processResult(data map[string]interface{}) {
	ev := Event{Kind: KindResult}
	if ms, ok := data["duration_ms"].(float64); ok {
		ev.Duration = time.Duration(ms) * time.Millisecond
	}
	if isErr, ok := data["is_error"].(bool); ok {
		ev.IsError = isErr
	}
	if cost, ok := data["total_cost_usd"].(float64); ok {
		ev.CostUSD = cost
	}
	if usage, ok := data["usage"].(map[string]interface{}); ok {
		u := &Usage{}
		if v, ok := usage["input_tokens"].(float64); ok {
			u.InputTokens = int64(v)
		}
		if v, ok := usage["output_tokens"].(float64); ok {
			u.OutputTokens = int64(v)
		}
		ev.Usage = u
	}
	n.emit(ev)
}

// contentBlocks extracts message.content as a slice of block maps.
func contentBlocks(data map[string]interface{}) []map[string]interface{} {
	message, _ := data["message"].(map[string]interface{})
	raw, _ := message["content"].([]interface{})
	blocks := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if block, ok := item.(map[string]interface{}); ok {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// resultContent flattens a tool_result content field, which is either a
// plain string or a list of text blocks.
func resultContent(content interface{}) string {
	switch v := content.(type) {
	case string:
		return v
	case []interface{}:
		var out string
		for _, item := range v {
			block, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if stringField(block, "type") == "text" {
				out += stringField(block, "text")
			}
		}
		return out
	default:
		return ""
	}
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}
