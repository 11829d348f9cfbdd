package guardrails

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ai-gateway/chatrelay/internal/chat"
)

// Guardrails enforces size limits and a banned-phrase list before a request
// reaches any provider.
type Guardrails struct {
	maxTurns     int
	maxTurnChars int
	banned       []string
}

// New builds guardrails. A non-positive limit disables that check.
func New(maxTurns, maxTurnChars int, banned []string) *Guardrails {
	g := &Guardrails{maxTurns: maxTurns, maxTurnChars: maxTurnChars}
	for _, w := range banned {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			g.banned = append(g.banned, w)
		}
	}
	return g
}

// Check returns a *chat.ValidationError when req breaks a limit.
func (g *Guardrails) Check(req chat.Request) error {
	if g.maxTurns > 0 && len(req.Turns) > g.maxTurns {
		return &chat.ValidationError{
			Field:   "messages",
			Message: fmt.Sprintf("too many messages: %d > %d", len(req.Turns), g.maxTurns),
		}
	}
	for i, t := range req.Turns {
		if g.maxTurnChars > 0 && utf8.RuneCountInString(t.Content) > g.maxTurnChars {
			return &chat.ValidationError{
				Field:   fmt.Sprintf("messages[%d].content", i),
				Message: fmt.Sprintf("longer than %d characters", g.maxTurnChars),
			}
		}
	}
	if len(req.Turns) > 0 {
		if err := g.CheckInput(req.Turns[len(req.Turns)-1].Content); err != nil {
			return err
		}
	}
	return nil
}

// CheckInput returns an error if input contains banned words.
func (g *Guardrails) CheckInput(input string) error {
	lower := strings.ToLower(input)
	for _, w := range g.banned {
		if strings.Contains(lower, w) {
			return &chat.ValidationError{Field: "messages", Message: "input violates guardrails"}
		}
	}
	return nil
}
