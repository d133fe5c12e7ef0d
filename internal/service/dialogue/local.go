package dialogue

import (
	"context"

	"github.com/ourhouse/backend/internal/conversation"
	"github.com/ourhouse/backend/internal/model/chat"
)

// Local adapts Service to conversation.DialogueService for sessions running
// in the same process as the server.
type Local struct {
	svc *Service
}

// NewLocal wraps svc.
func NewLocal(svc *Service) *Local {
	return &Local{svc: svc}
}

var _ conversation.DialogueService = (*Local)(nil)

func (l *Local) StartSingle(ctx context.Context, agentID string) (string, error) {
	conv, err := l.svc.StartSingle(ctx, agentID)
	if err != nil {
		return "", err
	}
	return conv.ID, nil
}

func (l *Local) StartDual(ctx context.Context, agentID1, agentID2 string) (string, error) {
	conv, err := l.svc.StartDual(ctx, agentID1, agentID2)
	if err != nil {
		return "", err
	}
	return conv.ID, nil
}

func (l *Local) Continue(ctx context.Context, sessionID string, message *string, speakerID string) ([]conversation.Utterance, error) {
	messages, err := l.svc.Continue(ctx, sessionID, message, speakerID)
	if err != nil {
		return nil, err
	}
	return ToUtterances(messages), nil
}

// ToUtterances converts stored messages into the client-side shape.
func ToUtterances(messages []chat.Message) []conversation.Utterance {
	out := make([]conversation.Utterance, 0, len(messages))
	for _, m := range messages {
		role := conversation.RoleAgent
		if m.Role == chat.RoleUser {
			role = conversation.RoleOperator
		}
		out = append(out, conversation.Utterance{Role: role, Speaker: m.Speaker, Content: m.Content})
	}
	return out
}
