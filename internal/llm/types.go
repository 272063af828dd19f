package llm

import (
	"context"
	"fmt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is one text-completion call. History holds prior turns in order;
// Prompt is appended after them as the final user turn.
type Request struct {
	System      string
	Prompt      string
	History     []Message
	Temperature float64
}

type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a plain function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAssistant
}

func checkHistory(history []Message) error {
	for i, m := range history {
		if !ValidRole(m.Role) {
			return fmt.Errorf("history[%d]: invalid role %q", i, m.Role)
		}
	}
	return nil
}
