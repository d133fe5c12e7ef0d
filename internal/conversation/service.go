// Package conversation implements the turn engine behind the conversation scene:
// who speaks next, which remote call to make, how returned utterances are merged,
// and the timed reveal of the newest line.
package conversation

import "context"

// Role tells operator-authored utterances apart from generated ones.
type Role string

const (
	RoleOperator Role = "operator"
	RoleAgent    Role = "agent"
)

// Utterance is one immutable line of dialogue.
type Utterance struct {
	Role    Role   `json:"role"`
	Speaker string `json:"speaker,omitempty"`
	Content string `json:"content"`
}

// DialogueService is the remote dialogue generator. Implementations normalise
// whatever shape the transport returns into Utterance values.
type DialogueService interface {
	StartSingle(ctx context.Context, agentID string) (string, error)
	StartDual(ctx context.Context, agentID1, agentID2 string) (string, error)
	// Continue returns only the utterances produced by this exchange.
	// message is nil when an autonomous persona speaks.
	Continue(ctx context.Context, sessionID string, message *string, speakerID string) ([]Utterance, error)
}
