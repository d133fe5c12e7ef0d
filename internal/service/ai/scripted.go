package ai

import (
	"context"
	"sync"
)

// Scripted answers from each persona's prepared lines. It keeps the dialogue
// service usable when no model credentials are configured.
type Scripted struct {
	mu     sync.Mutex
	cursor map[string]int
}

// NewScripted creates a Scripted generator.
func NewScripted() *Scripted {
	return &Scripted{cursor: make(map[string]int)}
}

// Reply returns the speaker's next prepared line, cycling when exhausted.
func (s *Scripted) Reply(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lines := req.Speaker.Lines
	if len(lines) == 0 {
		if req.Speaker.OpeningLine != "" {
			return req.Speaker.OpeningLine, nil
		}
		return "...", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := req.ConversationID + "/" + req.Speaker.ID
	idx := s.cursor[key]
	s.cursor[key] = idx + 1
	return lines[idx%len(lines)], nil
}
