package core

import (
	"strings"
	"sync"
)

// MinTurnsForPrompt is the dialogue length below which an agent reinstalls its
// system prompt before a model call.
const MinTurnsForPrompt = 4

// Dialogue is the ordered message log of one session scope. It is safe for
// concurrent access.
//
// Contract:
//   - Append preserves insertion order; there is no reordering or deduplication
//   - Only Clear and UpdateSystemMessage mutate existing entries
//   - Messages, Snapshot and LLMView return defensive copies
type Dialogue struct {
	mu       sync.RWMutex
	messages []Message
}

// NewDialogue creates a dialogue seeded with msgs.
func NewDialogue(msgs ...Message) *Dialogue {
	d := &Dialogue{messages: make([]Message, 0, len(msgs))}
	for _, m := range msgs {
		d.messages = append(d.messages, m.clone())
	}

	return d
}

// Append adds messages to the end of the log.
func (d *Dialogue) Append(msgs ...Message) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, m := range msgs {
		d.messages = append(d.messages, m.clone())
	}
}

// Len returns the number of messages.
func (d *Dialogue) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.messages)
}

// Messages returns a copy of every message in order.
func (d *Dialogue) Messages() []Message {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return copyMessages(d.messages)
}

// Snapshot returns an independent Dialogue holding the current messages.
func (d *Dialogue) Snapshot() *Dialogue {
	return &Dialogue{messages: d.Messages()}
}

// Clear drops every message.
func (d *Dialogue) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.messages = nil
}

// UpdateSystemMessage replaces the leading system message with prompt, or
// inserts one at index 0 when the log does not start with a system message.
func (d *Dialogue) UpdateSystemMessage(prompt string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.messages) > 0 && d.messages[0].Role == RoleSystem {
		d.messages[0] = NewSystemMessage(prompt)
		return
	}

	d.messages = append([]Message{NewSystemMessage(prompt)}, d.messages...)
}

// LastUserMessage returns the most recent user message.
func (d *Dialogue) LastUserMessage() (Message, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for i := len(d.messages) - 1; i >= 0; i-- {
		if d.messages[i].Role == RoleUser {
			return d.messages[i].clone(), true
		}
	}

	return Message{}, false
}

// LLMView returns the messages to send to a model. A non-empty knowledge
// string is appended to the system prompt of the returned copy only.
func (d *Dialogue) LLMView(knowledge string) []Message {
	msgs := d.Messages()

	knowledge = strings.TrimSpace(knowledge)
	if knowledge == "" || len(msgs) == 0 || msgs[0].Role != RoleSystem {
		return msgs
	}

	msgs[0].Content = msgs[0].Content + "\n\n<related_memory>\n" + knowledge + "\n</related_memory>"

	return msgs
}

// Transcript renders user and assistant text turns as "role: content" lines.
func (d *Dialogue) Transcript() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var b strings.Builder

	for _, m := range d.messages {
		if (m.Role != RoleUser && m.Role != RoleAssistant) || m.Content == "" {
			continue
		}

		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	return b.String()
}

func copyMessages(src []Message) []Message {
	out := make([]Message, len(src))
	for i, m := range src {
		out[i] = m.clone()
	}

	return out
}
