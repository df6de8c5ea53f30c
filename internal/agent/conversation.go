package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of an NPC conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Profile describes the NPC an agent plays.
type Profile struct {
	Name    string   `yaml:"name" json:"name"`
	Gender  string   `yaml:"gender" json:"gender,omitempty"`
	Context string   `yaml:"context" json:"context,omitempty"`
	Traits  []string `yaml:"traits" json:"traits,omitempty"`
	Memory  []string `yaml:"memory" json:"memory,omitempty"`
}

// Remember appends a memory, keeping only the newest max entries.
func (p *Profile) Remember(summary string, max int) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return
	}
	p.Memory = append(p.Memory, summary)
	if max > 0 && len(p.Memory) > max {
		p.Memory = append([]string(nil), p.Memory[len(p.Memory)-max:]...)
	}
}

// Responder produces the NPC's next line. Implementations may call a remote
// completion service; they are run off the tick goroutine by the JobManager.
type Responder interface {
	Respond(ctx context.Context, profile Profile, history []Message) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, profile Profile, history []Message) (string, error)

func (f ResponderFunc) Respond(ctx context.Context, profile Profile, history []Message) (string, error) {
	return f(ctx, profile, history)
}

// CannedResponder answers without any remote service.
type CannedResponder struct{}

func (CannedResponder) Respond(_ context.Context, profile Profile, history []Message) (string, error) {
	name := profile.Name
	if name == "" {
		name = "stranger"
	}
	var last string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			last = history[i].Content
			break
		}
	}
	if last == "" {
		return fmt.Sprintf("Hello, I am %s.", name), nil
	}
	return fmt.Sprintf("%s hears you say %q.", name, last), nil
}

// Thread is the message history of the current conversation. The system
// prompt, if any, survives truncation and clearing.
type Thread struct {
	mu       sync.Mutex
	messages []Message
}

func NewThread(systemPrompt string) *Thread {
	t := &Thread{}
	if systemPrompt != "" {
		t.messages = append(t.messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	return t
}

func (t *Thread) Add(role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, Message{Role: role, Content: content})
}

// Messages returns a copy of the history.
func (t *Thread) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Truncate keeps the system prompt plus the newest max other messages.
func (t *Thread) Truncate(max int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	system, rest := splitSystem(t.messages)
	if max >= 0 && len(rest) > max {
		rest = rest[len(rest)-max:]
	}
	t.messages = append(system, rest...)
}

// Clear drops everything but the system prompt.
func (t *Thread) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	system, _ := splitSystem(t.messages)
	t.messages = system
}

func splitSystem(msgs []Message) ([]Message, []Message) {
	var system []Message
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem && len(system) == 0 {
			system = append(system, m)
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// Summary is a plain-text recap of the non-system turns.
func (t *Thread) Summary(npcName string) string {
	_, rest := splitSystem(t.Messages())
	if len(rest) == 0 {
		return ""
	}
	var heard []string
	for _, m := range rest {
		if m.Role == RoleUser {
			heard = append(heard, m.Content)
		}
	}
	if len(heard) == 0 {
		return fmt.Sprintf("%s spoke to someone who said nothing.", npcName)
	}
	return fmt.Sprintf("%s talked with a player who said: %s", npcName, strings.Join(heard, " / "))
}
