package chat

import "time"

// Mode records which start entry point opened a conversation.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeDual   Mode = "dual"
)

// Conversation captures one dialogue between two personas.
type Conversation struct {
	ID           string    `json:"id"`
	Mode         Mode      `json:"mode"`
	Participants [2]string `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasParticipant reports whether id takes part in the conversation.
func (c Conversation) HasParticipant(id string) bool {
	return c.Participants[0] == id || c.Participants[1] == id
}

// Partner returns the participant facing id.
func (c Conversation) Partner(id string) string {
	if c.Participants[0] == id {
		return c.Participants[1]
	}
	return c.Participants[0]
}
